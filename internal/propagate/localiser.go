package propagate

import (
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/ssa"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// isPropagable checks the three propagability conditions for a
// use l{d}:
//
//	(i) d.Lhs appears on the rhs of exactly one use, or d.Rhs is a
//	 constant or a single register reference;
//	(ii) propagation does not erase an address-escaped variable;
//	(iii) the nesting depth of d.Rhs is within maxDepth.
func isPropagable(d *stmt.Stmt, use *expr.Expr, counts map[*stmt.Stmt]int, bl *ssa.Blacklist, maxDepth int) bool {
	if d == nil || d.IsImplicit() || d.Kind == stmt.KindPhiAssign {
		return false
	}
	rhs := d.Rhs
	if rhs == nil {
		return false
	}
	if counts[d] > 1 && !isConstOrSingleRegister(rhs) {
		return false
	}
	if bl != nil && bl.Contains(use) {
		return false
	}
	if depthOf(rhs) > maxDepth {
		return false
	}
	return true
}

func isConstOrSingleRegister(e *expr.Expr) bool {
	if e.IsConst() {
		return true
	}
	if e.Op == expr.OpRegOf {
		return true
	}
	if e.Op == expr.OpSubscript && len(e.Children) == 1 {
		return e.Children[0].Op == expr.OpRegOf
	}
	return false
}

// depthOf is the nesting depth of operators in e; subscripts are transparent, and
// locations/constants are depth 0.
func depthOf(e *expr.Expr) int {
	if e == nil {
		return 0
	}
	if e.Op == expr.OpSubscript {
		return depthOf(e.Children[0])
	}
	if e.IsLocation() || e.IsConst() {
		return 0
	}
	max := 0
	for _, c := range e.Children {
		if d := depthOf(c); d > max {
			max = d
		}
	}
	return max + 1
}

// Localise implements the C6 call-bypass Localiser: when d is a Call statement, a location the
// call defines is rewritten via the call's definition-collector; a
// location the call leaves untouched is rewritten to the caller-side
// reaching definition recorded in the call's use-collector. Any other d
// localises to its own right-hand side.
func Localise(d *stmt.Stmt, use *expr.Expr) *expr.Expr {
	if d == nil {
		return use
	}
	if d.Kind == stmt.KindCall {
		if val, ok := d.Defs_.Lookup(use); ok {
			return val
		}
		for _, live := range d.Uses_.Live().Items() {
			if expr.Equal(live.Loc(), use) {
				return live
			}
		}
		return use
	}
	return d.Rhs
}
