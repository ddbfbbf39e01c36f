package main

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/driver"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// newFixtureProgram builds a tiny two-procedure program (a caller that
// invokes a leaf callee) standing in for an external decoder/loader:
// actual instruction decoding and binary loading are an external
// collaborator's responsibility, not this driver's. It returns the
// program, the named entry procedure (nil if name is unrecognized), and
// a Decoder that lazily builds each procedure's CFG on first visit.
func newFixtureProgram(entryName string) (*proc.Program, *proc.UserProc, driver.Decoder) {
	const (
		calleeAddr = 0x2000
		callerAddr = 0x1000
	)

	pr := proc.NewProgram()
	callee := proc.NewUserProc("callee", calleeAddr, proc.NewSignature("callee"))
	caller := proc.NewUserProc("caller", callerAddr, proc.NewSignature("caller"))
	pr.AddProcedure(nil, callee)
	pr.AddProcedure(nil, caller)

	dec := driver.DecodeFunc(func(addr uint64) (*cfg.CFG, error) {
		switch addr {
		case calleeAddr:
			return fixtureCallee(calleeAddr)
		case callerAddr:
			return fixtureCaller(callerAddr, calleeAddr)
		}
		return nil, nil
	})

	switch entryName {
	case "caller":
		return pr, caller, dec
	case "callee":
		return pr, callee, dec
	default:
		return pr, nil, dec
	}
}

// fixtureCallee is a leaf procedure: r0 := 5; return r0.
func fixtureCallee(addr uint64) (*cfg.CFG, error) {
	c := cfg.New()
	ret := stmt.NewReturn()
	ret.RetExprs = []*expr.Expr{expr.Subscript(expr.RegOf(0), nil)}
	ret.Modifieds.Add(expr.RegOf(0))
	b, err := c.NewBB([]*cfg.RTL{{Addr: addr, Stmts: []*stmt.Stmt{
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

// fixtureCaller calls callee at calleeAddr, then returns.
func fixtureCaller(addr, calleeAddr uint64) (*cfg.CFG, error) {
	c := cfg.New()
	call := stmt.NewCall(expr.AddrConst(calleeAddr))
	callBB, err := c.NewBB([]*cfg.RTL{{Addr: addr, Stmts: []*stmt.Stmt{call}}}, cfg.Call, 1)
	if err != nil {
		return nil, err
	}
	c.AddCall(call)

	ret := stmt.NewReturn()
	retBB, err := c.NewBB([]*cfg.RTL{{Addr: addr + 4, Stmts: []*stmt.Stmt{ret}}}, cfg.Return, 0)
	if err != nil {
		return nil, err
	}
	c.AddOutEdge(callBB, retBB)
	c.SetEntryBB(callBB)
	c.SetExitBB(retBB)
	return c, nil
}
