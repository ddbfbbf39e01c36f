package typeanalysis_test

import (
	"testing"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
	"github.com/boomerang-decompiler/boomerang/internal/typeanalysis"
	"github.com/boomerang-decompiler/boomerang/internal/types"
)

const spReg = 14

func TestMapStackLocalsDereferenceBecomesLocal(t *testing.T) {
	c := cfg.New()
	rhs := expr.MemOf(expr.Binary(expr.OpPlus, expr.RegOf(spReg), expr.IntConst(8)))
	b, err := c.NewBB([]*cfg.RTL{{Addr: 0x100, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(0), rhs, types.Integer(32, types.Signed)),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}

	locals := typeanalysis.NewLocalsTable()
	typeanalysis.Run(c, spReg, locals, typeanalysis.DefaultMaxIterations)

	got := b.RTLs[0].Stmts[0].Rhs
	if got.Op != expr.OpLocal || got.Name != "local1" {
		t.Fatalf("expected memOf(sp+8) to become local1, got %v/%s", got.Op, got.Name)
	}
	if locals.Len() != 1 {
		t.Errorf("expected exactly one local recorded, got %d", locals.Len())
	}
}

func TestMapStackLocalsBareAddressBecomesAddrOf(t *testing.T) {
	c := cfg.New()
	addr := expr.Binary(expr.OpMinus, expr.RegOf(spReg), expr.IntConst(4))
	b, err := c.NewBB([]*cfg.RTL{{Addr: 0x100, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(1), addr, nil),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}

	locals := typeanalysis.NewLocalsTable()
	typeanalysis.Run(c, spReg, locals, typeanalysis.DefaultMaxIterations)

	got := b.RTLs[0].Stmts[0].Rhs
	if got.Op != expr.OpAddrOf {
		t.Fatalf("expected bare sp-4 to become addrOf(local), got %v", got.Op)
	}
	if inner := got.Children[0]; inner.Op != expr.OpLocal || inner.Name != "local1" {
		t.Fatalf("expected addrOf(local1), got addrOf(%v/%s)", inner.Op, inner.Name)
	}
}
