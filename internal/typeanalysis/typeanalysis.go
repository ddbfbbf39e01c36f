// Package typeanalysis implements the data-flow type-inference fixed point
//: meeting lhs/rhs types at every assign, propagating
// types bidirectionally through SSA subscripts, and mapping naked sp±K
// memory-of expressions into named stack locals.
package typeanalysis

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
	"github.com/boomerang-decompiler/boomerang/internal/types"
)

// DefaultMaxIterations is the fixed-point iteration cap.
const DefaultMaxIterations = 20

// Run meets lhs/rhs types to a fixed point, propagates types through
// subscripts, and maps sp±K stack references into named locals on every
// iteration. It returns the iteration count actually used; a
// return equal to maxIter signals the cap was hit (a PassCapReached soft
// failure).
func Run(c *cfg.CFG, spRegNum int, locals *LocalsTable, maxIter int) int {
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	iter := 0
	for ; iter < maxIter; iter++ {
		changed := false
		for _, b := range c.Blocks() {
			for _, s := range b.Stmts() {
				if meetAssignType(s) {
					changed = true
				}
			}
		}
		if propagateSubscriptTypes(c) {
			changed = true
		}
		if mapStackLocalsPass(c, spRegNum, locals) {
			changed = true
		}
		if !changed {
			iter++
			break
		}
	}
	return iter
}

// meetAssignType meets an Assign/BoolAssign/ImplicitAssign's declared type
// with its rhs's inferred type.
func meetAssignType(s *stmt.Stmt) bool {
	switch s.Kind {
	case stmt.KindAssign, stmt.KindImplicitAssign:
		rhsType := inferredType(s.Rhs)
		merged, changed := types.Meet(s.Type, rhsType, false)
		if changed {
			s.Type = merged
			if s.Lhs != nil {
				s.Lhs.Type = merged
			}
		}
		return changed
	}
	return false
}

// propagateSubscriptTypes implements "types flow bidirectionally through
// subscripts — a subscripted reference has the same type as its defining
// statement's lhs": meeting each subscript's type into its
// def's lhs type, and vice versa.
func propagateSubscriptTypes(c *cfg.CFG) bool {
	changed := false
	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			for _, e := range exprFields(s) {
				if walkSubscripts(e, &changed) {
					changed = true
				}
			}
		}
	}
	return changed
}

func walkSubscripts(e *expr.Expr, changed *bool) bool {
	if e == nil {
		return false
	}
	any := false
	if e.Op == expr.OpSubscript {
		loc := e.Children[0]
		if d, ok := e.Def.(*stmt.Stmt); ok && d != nil && d.Lhs != nil {
			merged, ch := types.Meet(loc.Type, d.Lhs.Type, false)
			if ch {
				loc.Type = merged
				d.Lhs.Type = merged
				d.Type = merged
				any = true
			}
		}
	}
	for _, c := range e.Children {
		if walkSubscripts(c, changed) {
			any = true
		}
	}
	return any
}

func inferredType(e *expr.Expr) *types.Type {
	if e == nil {
		return nil
	}
	if e.Op == expr.OpSubscript {
		return inferredType(e.Children[0])
	}
	return e.Type
}

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
