// Package propagate implements statement propagation and simplification
// over SSA form: substituting a subscripted use l{d} by
// d's right-hand side when d is propagable, then re-simplifying, including
// the Localiser that makes propagation visible across call boundaries.
package propagate

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/ssa"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// DefaultMaxDepth is the default propagation-depth cap.
const DefaultMaxDepth = 3

// Run iterates propagate_statements(proc) to a fixed point,
// returning whether any replacement turned an indirect call into a direct
// one ("Flag convert ..."), which tells the caller to rerun name-dependent
// passes (parameter discovery, argument maps).
func Run(c *cfg.CFG, bl *ssa.Blacklist, maxDepth int) bool {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	convert := false
	for {
		counts := countSubscriptUses(c)
		changed := false
		for _, b := range c.Blocks() {
			for _, s := range b.Stmts() {
				if rewriteStmt(s, counts, bl, maxDepth, &convert) {
					changed = true
				}
			}
		}
		if !changed {
			return convert
		}
	}
}

// countSubscriptUses counts, for every defining statement d, how many
// subscript nodes l{d} occur across the whole procedure, the check for
// whether lhs appears on the rhs of exactly one use.
func countSubscriptUses(c *cfg.CFG) map[*stmt.Stmt]int {
	counts := map[*stmt.Stmt]int{}
	var walk func(e *expr.Expr)
	walk = func(e *expr.Expr) {
		if e == nil {
			return
		}
		if e.Op == expr.OpSubscript {
			if d, ok := e.Def.(*stmt.Stmt); ok && d != nil {
				counts[d]++
			}
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			for _, e := range exprFields(s) {
				walk(e)
			}
		}
	}
	return counts
}

// exprFields lists every expression field a statement owns, mirroring the
// per-Kind field lists in stmt/ops.go.
func exprFields(s *stmt.Stmt) []*expr.Expr {
	var out []*expr.Expr
	add := func(e *expr.Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	add(s.Lhs)
	add(s.Rhs)
	add(s.Guard)
	add(s.Cond)
	add(s.SwitchExpr)
	add(s.CallDest)
	add(s.RefAddr)
	for _, op := range s.PhiOperands {
		add(op.Operand)
	}
	for _, e := range s.RetExprs {
		add(e)
	}
	for _, a := range s.Args {
		add(a.Rhs)
	}
	return out
}

// rewriteStmt propagates into every use field of s in place — statements
// are shared by pointer identity via Subscript.Def, so this mutates s
// rather than cloning it.
func rewriteStmt(s *stmt.Stmt, counts map[*stmt.Stmt]int, bl *ssa.Blacklist, maxDepth int, convert *bool) bool {
	changed := false
	rewrite := func(e *expr.Expr, isCallDest bool) *expr.Expr {
		return propagateExpr(e, counts, bl, maxDepth, &changed, convert, isCallDest)
	}
	switch s.Kind {
	case stmt.KindAssign:
		s.Rhs = rewrite(s.Rhs, false)
		s.Lhs = rewriteLhsChildren(s.Lhs, counts, bl, maxDepth, convert, &changed)
		s.Guard = rewrite(s.Guard, false)
	case stmt.KindBoolAssign:
		s.Cond = rewrite(s.Cond, false)
	case stmt.KindBranch:
		s.Cond = rewrite(s.Cond, false)
	case stmt.KindCaseStatement:
		s.SwitchExpr = rewrite(s.SwitchExpr, false)
	case stmt.KindCall:
		s.CallDest = rewrite(s.CallDest, true)
		for _, a := range s.Args {
			a.Rhs = rewrite(a.Rhs, false)
		}
	case stmt.KindReturn:
		for i, e := range s.RetExprs {
			s.RetExprs[i] = rewrite(e, false)
		}
	case stmt.KindImpRef:
		s.RefAddr = rewrite(s.RefAddr, false)
	}
	if changed {
		simplifyFields(s)
	}
	return changed
}

func rewriteLhsChildren(lhs *expr.Expr, counts map[*stmt.Stmt]int, bl *ssa.Blacklist, maxDepth int, convert, changed *bool) *expr.Expr {
	if lhs == nil || len(lhs.Children) == 0 {
		return lhs
	}
	cl := *lhs
	cl.Children = make([]*expr.Expr, len(lhs.Children))
	for i, c := range lhs.Children {
		cl.Children[i] = propagateExpr(c, counts, bl, maxDepth, changed, convert, false)
	}
	return &cl
}

// simplifyFields re-simplifies every expression field after a
// substitution.
func simplifyFields(s *stmt.Stmt) {
	simp := func(e *expr.Expr) *expr.Expr {
		if e == nil {
			return nil
		}
		return e.Simplify()
	}
	switch s.Kind {
	case stmt.KindAssign:
		s.Rhs = simp(s.Rhs)
		s.Guard = simp(s.Guard)
	case stmt.KindBoolAssign:
		s.Cond = simp(s.Cond)
	case stmt.KindBranch:
		s.Cond = simp(s.Cond)
	case stmt.KindCaseStatement:
		s.SwitchExpr = simp(s.SwitchExpr)
	case stmt.KindCall:
		s.CallDest = simp(s.CallDest)
		for _, a := range s.Args {
			a.Rhs = simp(a.Rhs)
		}
	case stmt.KindReturn:
		for i, e := range s.RetExprs {
			s.RetExprs[i] = simp(e)
		}
	case stmt.KindImpRef:
		s.RefAddr = simp(s.RefAddr)
	}
}

// propagateExpr rewrites every propagable subscript l{d} under e by d's
// localised right-hand side.
func propagateExpr(e *expr.Expr, counts map[*stmt.Stmt]int, bl *ssa.Blacklist, maxDepth int, changed *bool, convert *bool, isCallDest bool) *expr.Expr {
	if e == nil {
		return nil
	}
	if e.Op == expr.OpSubscript {
		loc := e.Children[0]
		d, _ := e.Def.(*stmt.Stmt)
		if !isPropagable(d, loc, counts, bl, maxDepth) {
			return e
		}
		repl := Localise(d, loc).Clone()
		*changed = true
		if isCallDest && isKnownProcExpr(repl) {
			*convert = true
		}
		return repl
	}
	if len(e.Children) == 0 {
		return e
	}
	localChanged := false
	newChildren := make([]*expr.Expr, len(e.Children))
	for i, c := range e.Children {
		nc := propagateExpr(c, counts, bl, maxDepth, changed, convert, false)
		newChildren[i] = nc
		if nc != c {
			localChanged = true
		}
	}
	if !localChanged {
		return e
	}
	cl := *e
	cl.Children = newChildren
	return &cl
}

// isKnownProcExpr reports whether e now names a fixed procedure address.
func isKnownProcExpr(e *expr.Expr) bool {
	return e != nil && (e.Op == expr.OpAddrConst || e.Op == expr.OpIntConst)
}
