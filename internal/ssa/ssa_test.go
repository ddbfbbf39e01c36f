package ssa_test

import (
	"testing"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/ssa"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// buildCytronExample builds the classic Cytron et al. Fig.11 CFG: {A->B, A->C, B->D,
// C->D, C->E, D->F, E->F, F->A}, the classic Cytron et al. Fig.11 example,
// with r24 defined in B and E.
func buildCytronExample(t *testing.T) (*cfg.CFG, map[string]*cfg.BasicBlock) {
	t.Helper()
	c := cfg.New()
	mk := func(addr uint64, stmts []*stmt.Stmt) *cfg.BasicBlock {
		b, err := c.NewBB([]*cfg.RTL{{Addr: addr, Stmts: stmts}}, cfg.Fall, 1)
		if err != nil {
			t.Fatalf("NewBB: %v", err)
		}
		return b
	}
	r24 := expr.RegOf(24)
	a := mk(0x1000, nil)
	b := mk(0x1010, []*stmt.Stmt{stmt.NewAssign(r24.Clone(), expr.IntConst(1), nil)})
	cc := mk(0x1020, nil)
	d := mk(0x1030, nil)
	e := mk(0x1040, []*stmt.Stmt{stmt.NewAssign(r24.Clone(), expr.IntConst(2), nil)})
	f := mk(0x1050, nil)

	c.AddOutEdge(a, b)
	c.AddOutEdge(a, cc)
	c.AddOutEdge(b, d)
	c.AddOutEdge(cc, d)
	c.AddOutEdge(cc, e)
	c.AddOutEdge(d, f)
	c.AddOutEdge(e, f)
	c.AddOutEdge(f, a)
	c.SetEntryBB(a)

	return c, map[string]*cfg.BasicBlock{"A": a, "B": b, "C": cc, "D": d, "E": e, "F": f}
}

func TestDominanceFrontierCytronExample(t *testing.T) {
	c, n := buildCytronExample(t)
	idom := c.Dominators()
	tree := ssa.BuildDomTree(c, idom)
	df := ssa.DominanceFrontier(c, idom, tree)

	if !df[n["F"]][n["A"]] {
		t.Errorf("DF(F) should contain A (the back-edge F->A), got %v", df[n["F"]])
	}
	if !df[n["A"]][n["A"]] {
		t.Errorf("DF(A) should contain A itself (loop header on its own frontier), got %v", df[n["A"]])
	}
	if !df[n["B"]][n["D"]] {
		t.Errorf("DF(B) should contain D, got %v", df[n["B"]])
	}
	if !df[n["C"]][n["D"]] || !df[n["C"]][n["F"]] {
		t.Errorf("DF(C) should contain {D,F}, got %v", df[n["C"]])
	}
}

func TestPlacePhiFunctionsCytronExample(t *testing.T) {
	c, n := buildCytronExample(t)
	idom := c.Dominators()
	tree := ssa.BuildDomTree(c, idom)
	df := ssa.DominanceFrontier(c, idom, tree)
	bl := ssa.NewBlacklist()
	ssa.PlacePhiFunctions(c, df, bl)

	hasPhi := func(b *cfg.BasicBlock) bool { return len(b.Phis) == 1 && b.Phis[0].Lhs.Op == expr.OpRegOf && b.Phis[0].Lhs.RegNum == 24 }

	// Spec §8 S1: "phi placement for a variable defined in B and E must
	// appear in D and F and the loop header A."
	for _, name := range []string{"A", "D", "F"} {
		if !hasPhi(n[name]) {
			t.Errorf("expected a phi for r24 in %s, got %d phis", name, len(n[name].Phis))
		}
	}
	for _, name := range []string{"B", "C", "E"} {
		if hasPhi(n[name]) {
			t.Errorf("did not expect a phi for r24 in %s", name)
		}
	}
}

func TestRenameBlockVarsSubscriptsUses(t *testing.T) {
	c := cfg.New()
	r1 := expr.RegOf(1)
	def, err := c.NewBB([]*cfg.RTL{{Addr: 0x100, Stmts: []*stmt.Stmt{
		stmt.NewAssign(r1.Clone(), expr.IntConst(5), nil),
	}}}, cfg.Fall, 1)
	if err != nil {
		t.Fatal(err)
	}
	use, err := c.NewBB([]*cfg.RTL{{Addr: 0x110, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(2), r1.Clone(), nil),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.AddOutEdge(def, use)
	c.SetEntryBB(def)

	ssa.Build(c)

	useStmt := use.RTLs[0].Stmts[0]
	defStmt := def.RTLs[0].Stmts[0]
	if useStmt.Rhs.Op != expr.OpSubscript {
		t.Fatalf("expected rhs to be subscripted after SSA build, got %v", useStmt.Rhs.Op)
	}
	if useStmt.Rhs.Def != defStmt {
		t.Fatalf("expected r1's use to resolve to its defining statement")
	}
	if useStmt.Rhs.Children[0].RegNum != 1 {
		t.Fatalf("expected the subscripted location to still be r1, got reg %d", useStmt.Rhs.Children[0].RegNum)
	}
}

func TestMaterializeImplicitsForUnresolvedUse(t *testing.T) {
	c := cfg.New()
	entry, err := c.NewBB([]*cfg.RTL{{Addr: 0x200, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(9), expr.RegOf(3), nil), // r9 := r3, r3 never defined
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.SetEntryBB(entry)

	ssa.Build(c)

	s := entry.RTLs[0].Stmts[0]
	if s.Rhs.Op != expr.OpSubscript {
		t.Fatalf("expected r3 use to be subscripted, got %v", s.Rhs.Op)
	}
	if s.Rhs.Def == nil {
		t.Fatalf("expected r3's dangling subscript to be resolved to an ImplicitAssign")
	}
	if !s.Rhs.Def.IsImplicit() {
		t.Errorf("expected r3's resolved def to be an ImplicitAssign")
	}
	if len(entry.Implicits) != 1 {
		t.Fatalf("expected exactly one memoized ImplicitAssign for r3, got %d", len(entry.Implicits))
	}
}
