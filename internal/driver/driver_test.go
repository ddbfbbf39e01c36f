package driver_test

import (
	"testing"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/driver"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/session"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

const (
	calleeAddr = 0x2000
	callerAddr = 0x1000
)

// buildCallee is a leaf procedure: r0 := 5; return r0.
func buildCallee(uint64) (*cfg.CFG, error) {
	c := cfg.New()
	ret := stmt.NewReturn()
	ret.RetExprs = []*expr.Expr{expr.Subscript(expr.RegOf(0), nil)}
	ret.Modifieds.Add(expr.RegOf(0))
	b, err := c.NewBB([]*cfg.RTL{{Addr: calleeAddr, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(0), expr.IntConst(5), nil),
		ret,
	}}}, cfg.Return, 0)
	if err != nil {
		return nil, err
	}
	c.SetEntryBB(b)
	c.SetExitBB(b)
	return c, nil
}

// buildCaller calls callee then returns.
func buildCaller(uint64) (*cfg.CFG, error) {
	c := cfg.New()
	call := stmt.NewCall(expr.AddrConst(calleeAddr))
	callBB, err := c.NewBB([]*cfg.RTL{{Addr: callerAddr, Stmts: []*stmt.Stmt{call}}}, cfg.Call, 1)
	if err != nil {
		return nil, err
	}
	c.AddCall(call)

	ret := stmt.NewReturn()
	retBB, err := c.NewBB([]*cfg.RTL{{Addr: callerAddr + 4, Stmts: []*stmt.Stmt{ret}}}, cfg.Return, 0)
	if err != nil {
		return nil, err
	}
	c.AddOutEdge(callBB, retBB)
	c.SetEntryBB(callBB)
	c.SetExitBB(retBB)
	return c, nil
}

func newTestDriver(t *testing.T) (*driver.Driver, *proc.Program, *proc.UserProc, *proc.UserProc) {
	t.Helper()
	pr := proc.NewProgram()
	callee := proc.NewUserProc("callee", calleeAddr, proc.NewSignature("callee"))
	caller := proc.NewUserProc("caller", callerAddr, proc.NewSignature("caller"))
	pr.AddProcedure(nil, callee)
	pr.AddProcedure(nil, caller)

	dec := driver.DecodeFunc(func(addr uint64) (*cfg.CFG, error) {
		switch addr {
		case calleeAddr:
			return buildCallee(addr)
		case callerAddr:
			return buildCaller(addr)
		}
		t.Fatalf("unexpected decode request for 0x%x", addr)
		return nil, nil
	})

	sess := session.New(session.DefaultConfig(), nil)
	d := driver.New(pr, dec, sess, 14)
	return d, pr, caller, callee
}

func TestDecompileResolvesCalleesAndReachesFinal(t *testing.T) {
	d, _, caller, callee := newTestDriver(t)

	if err := d.Decompile(caller); err != nil {
		t.Fatalf("Decompile returned an error: %v", err)
	}

	if caller.Status != proc.Final {
		t.Errorf("expected caller to reach Final, got %v", caller.Status)
	}
	if callee.Status != proc.Final {
		t.Errorf("expected callee to reach Final, got %v", callee.Status)
	}
	if len(caller.Callees) != 1 || caller.Callees[0].ProcName() != "callee" {
		t.Fatalf("expected caller to resolve exactly one callee named callee, got %v", caller.Callees)
	}
	if len(callee.Callers()) != 1 {
		t.Fatalf("expected callee to record exactly one caller, got %d", len(callee.Callers()))
	}
}

func TestDecompileDetectsMutualRecursionCycle(t *testing.T) {
	const aAddr = 0x3000
	const bAddr = 0x4000

	buildA := func(uint64) (*cfg.CFG, error) {
		c := cfg.New()
		call := stmt.NewCall(expr.AddrConst(bAddr))
		callBB, err := c.NewBB([]*cfg.RTL{{Addr: aAddr, Stmts: []*stmt.Stmt{call}}}, cfg.Call, 1)
		if err != nil {
			return nil, err
		}
		c.AddCall(call)
		retBB, err := c.NewBB([]*cfg.RTL{{Addr: aAddr + 4, Stmts: []*stmt.Stmt{stmt.NewReturn()}}}, cfg.Return, 0)
		if err != nil {
			return nil, err
		}
		c.AddOutEdge(callBB, retBB)
		c.SetEntryBB(callBB)
		c.SetExitBB(retBB)
		return c, nil
	}
	buildB := func(uint64) (*cfg.CFG, error) {
		c := cfg.New()
		call := stmt.NewCall(expr.AddrConst(aAddr))
		callBB, err := c.NewBB([]*cfg.RTL{{Addr: bAddr, Stmts: []*stmt.Stmt{call}}}, cfg.Call, 1)
		if err != nil {
			return nil, err
		}
		c.AddCall(call)
		retBB, err := c.NewBB([]*cfg.RTL{{Addr: bAddr + 4, Stmts: []*stmt.Stmt{stmt.NewReturn()}}}, cfg.Return, 0)
		if err != nil {
			return nil, err
		}
		c.AddOutEdge(callBB, retBB)
		c.SetEntryBB(callBB)
		c.SetExitBB(retBB)
		return c, nil
	}

	pr := proc.NewProgram()
	a := proc.NewUserProc("a", aAddr, proc.NewSignature("a"))
	b := proc.NewUserProc("b", bAddr, proc.NewSignature("b"))
	pr.AddProcedure(nil, a)
	pr.AddProcedure(nil, b)

	dec := driver.DecodeFunc(func(addr uint64) (*cfg.CFG, error) {
		switch addr {
		case aAddr:
			return buildA(addr)
		case bAddr:
			return buildB(addr)
		}
		t.Fatalf("unexpected decode request for 0x%x", addr)
		return nil, nil
	})

	sess := session.New(session.DefaultConfig(), nil)
	d := driver.New(pr, dec, sess, 14)

	if err := d.Decompile(a); err != nil {
		t.Fatalf("Decompile returned an error: %v", err)
	}

	if a.Status != proc.Final {
		t.Errorf("expected a to settle at Final once its cycle with b resolves, got %v", a.Status)
	}
	if b.CycleGrp == nil || !b.CycleGrp.Contains(a) {
		t.Errorf("expected b's cycle group to include a")
	}
}
