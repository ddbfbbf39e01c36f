package dessa_test

import (
	"testing"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/dessa"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/ssa"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// buildDiamond builds a branch-join CFG: entry branches to left/right,
// each assigns r0 a different constant, join returns r0 — the minimal
// shape that forces a phi at join.
func buildDiamond(t *testing.T) (*cfg.CFG, *cfg.BasicBlock) {
	t.Helper()
	c := cfg.New()
	cond := stmt.NewBranch(expr.RegOf(1), 0x1010, 0x1020)
	entry, err := c.NewBB([]*cfg.RTL{{Addr: 0x1000, Stmts: []*stmt.Stmt{cond}}}, cfg.TwoWay, 2)
	if err != nil {
		t.Fatal(err)
	}
	left, err := c.NewBB([]*cfg.RTL{{Addr: 0x1010, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(0), expr.IntConst(1), nil),
	}}}, cfg.Fall, 1)
	if err != nil {
		t.Fatal(err)
	}
	right, err := c.NewBB([]*cfg.RTL{{Addr: 0x1020, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(0), expr.IntConst(2), nil),
	}}}, cfg.Fall, 1)
	if err != nil {
		t.Fatal(err)
	}
	ret := stmt.NewReturn()
	ret.RetExprs = []*expr.Expr{expr.RegOf(0)}
	join, err := c.NewBB([]*cfg.RTL{{Addr: 0x1030, Stmts: []*stmt.Stmt{ret}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}

	c.AddOutEdge(entry, left)
	c.AddOutEdge(entry, right)
	c.AddOutEdge(left, join)
	c.AddOutEdge(right, join)
	c.SetEntryBB(entry)
	c.SetExitBB(join)
	return c, join
}

func TestFromSSARemovesPhisAndSubscripts(t *testing.T) {
	c, join := buildDiamond(t)
	ssa.Build(c)

	if len(join.Phis) == 0 {
		t.Fatalf("expected SSA build to place a phi for r0 at the join block")
	}

	p := proc.NewUserProc("diamond", 0x1000, proc.NewSignature("diamond"))
	p.CFG = c

	dessa.FromSSA(p)

	if len(join.Phis) != 0 {
		t.Errorf("expected FromSSA to remove every phi, got %d left at join", len(join.Phis))
	}
	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			for _, e := range allExprs(s) {
				assertNoSubscript(t, e)
			}
		}
	}

	retExpr := join.RTLs[0].Stmts[0].RetExprs[0]
	if retExpr.Op != expr.OpLocal {
		t.Fatalf("expected the phi-joined return value to resolve to a named local, got %v", retExpr.Op)
	}
}

func allExprs(s *stmt.Stmt) []*expr.Expr {
	var out []*expr.Expr
	add := func(e *expr.Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	add(s.Lhs)
	add(s.Rhs)
	add(s.Cond)
	out = append(out, s.RetExprs...)
	return out
}

func assertNoSubscript(t *testing.T, e *expr.Expr) {
	t.Helper()
	if e == nil {
		return
	}
	if e.Op == expr.OpSubscript {
		t.Errorf("expected no subscripted reference after FromSSA, found one over %v", e.Children[0])
	}
	for _, c := range e.Children {
		assertNoSubscript(t, c)
	}
}

func TestFromSSAReusesExistingSymbolName(t *testing.T) {
	c := cfg.New()
	r3 := expr.RegOf(3)
	entry, err := c.NewBB([]*cfg.RTL{{Addr: 0x200, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(9), r3.Clone(), nil),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.SetEntryBB(entry)
	ssa.Build(c)

	p := proc.NewUserProc("leaf", 0x200, proc.NewSignature("leaf"))
	p.CFG = c
	p.Symbols.Add(r3, expr.Local("arg0"))

	dessa.FromSSA(p)

	got := entry.RTLs[0].Stmts[0].Rhs
	if got.Op != expr.OpLocal || got.Name != "arg0" {
		t.Fatalf("expected reuse of the existing symbol name arg0, got op=%v name=%q", got.Op, got.Name)
	}
	if len(entry.Implicits) != 0 {
		t.Errorf("expected the unreferenced ImplicitAssign for r3 to be removed, got %d left", len(entry.Implicits))
	}
}

func TestFromSSAKeepsImplicitsPromotedToParameters(t *testing.T) {
	c := cfg.New()
	r3 := expr.RegOf(3)
	entry, err := c.NewBB([]*cfg.RTL{{Addr: 0x300, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(9), r3.Clone(), nil),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.SetEntryBB(entry)
	ssa.Build(c)

	if len(entry.Implicits) != 1 {
		t.Fatalf("expected exactly one memoized implicit for r3, got %d", len(entry.Implicits))
	}

	p := proc.NewUserProc("leaf", 0x300, proc.NewSignature("leaf"))
	p.CFG = c
	p.AddParameter(entry.Implicits[0])

	dessa.FromSSA(p)

	if len(entry.Implicits) != 1 {
		t.Errorf("expected the parameter-backed implicit to survive, got %d left", len(entry.Implicits))
	}
}
