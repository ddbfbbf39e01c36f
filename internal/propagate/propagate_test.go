package propagate_test

import (
	"testing"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/propagate"
	"github.com/boomerang-decompiler/boomerang/internal/ssa"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

func TestPropagateConstantIntoSingleUse(t *testing.T) {
	c := cfg.New()
	b, err := c.NewBB([]*cfg.RTL{{Addr: 0x100, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(1), expr.IntConst(5), nil),
		stmt.NewAssign(expr.RegOf(2), expr.RegOf(1), nil),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.SetEntryBB(b)

	bl := ssa.Build(c)
	convert := propagate.Run(c, bl, propagate.DefaultMaxDepth)
	if convert {
		t.Errorf("did not expect a convert signal for a non-call propagation")
	}

	r2 := b.RTLs[0].Stmts[1]
	if r2.Rhs.Op != expr.OpIntConst || r2.Rhs.Const.Int != 5 {
		t.Fatalf("expected r2's rhs to be propagated to 5, got %v", r2.Rhs)
	}
}

func TestPropagateRespectsDepthCap(t *testing.T) {
	c := cfg.New()
	deep := expr.Binary(expr.OpPlus, expr.RegOf(9),
		expr.Binary(expr.OpMult, expr.RegOf(8), expr.IntConst(4)))
	b, err := c.NewBB([]*cfg.RTL{{Addr: 0x100, Stmts: []*stmt.Stmt{
		stmt.NewAssign(expr.RegOf(1), deep, nil),
		stmt.NewAssign(expr.RegOf(2), expr.RegOf(1), nil),
	}}}, cfg.Return, 0)
	if err != nil {
		t.Fatal(err)
	}
	c.SetEntryBB(b)

	bl := ssa.Build(c)
	propagate.Run(c, bl, 1) // deep nests two operators, over a cap of 1

	r2 := b.RTLs[0].Stmts[1]
	if r2.Rhs.Op != expr.OpSubscript {
		t.Fatalf("expected propagation to be blocked by the depth cap, got %v", r2.Rhs)
	}
}
