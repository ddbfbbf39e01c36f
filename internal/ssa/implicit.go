package ssa

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// MaterializeImplicits resolves every subscript l{nil} RenameBlockVars left
// behind into l{imp}, where imp is an ImplicitAssign for l memoized per
// location at the entry block.
func MaterializeImplicits(c *cfg.CFG) {
	entry := c.EntryBB()
	if entry == nil {
		return
	}
	implicits := map[string]*stmt.Stmt{}
	getImplicit := func(loc *expr.Expr) *stmt.Stmt {
		key := stmt.LocKey(loc)
		if s, ok := implicits[key]; ok {
			return s
		}
		s := stmt.NewImplicitAssign(loc.Clone(), loc.Type)
		implicits[key] = s
		entry.Implicits = append(entry.Implicits, s)
		return s
	}

	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			resolveUnresolved(s, getImplicit)
		}
	}
}

func resolveUnresolved(s *stmt.Stmt, getImplicit func(*expr.Expr) *stmt.Stmt) {
	fix := func(e *expr.Expr) *expr.Expr { return fixUnresolved(e, getImplicit) }
	switch s.Kind {
	case stmt.KindAssign:
		s.Rhs = fix(s.Rhs)
		s.Lhs = fixChildren(s.Lhs, getImplicit)
		s.Guard = fix(s.Guard)
	case stmt.KindBoolAssign:
		s.Cond = fix(s.Cond)
	case stmt.KindPhiAssign:
		for i := range s.PhiOperands {
			s.PhiOperands[i].Operand = fix(s.PhiOperands[i].Operand)
		}
	case stmt.KindBranch:
		s.Cond = fix(s.Cond)
	case stmt.KindCaseStatement:
		s.SwitchExpr = fix(s.SwitchExpr)
	case stmt.KindCall:
		s.CallDest = fix(s.CallDest)
		for _, a := range s.Args {
			a.Rhs = fix(a.Rhs)
		}
	case stmt.KindReturn:
		for i, e := range s.RetExprs {
			s.RetExprs[i] = fix(e)
		}
	case stmt.KindImpRef:
		s.RefAddr = fix(s.RefAddr)
	}
}

func fixChildren(e *expr.Expr, getImplicit func(*expr.Expr) *stmt.Stmt) *expr.Expr {
	if e == nil || len(e.Children) == 0 {
		return e
	}
	cl := *e
	cl.Children = make([]*expr.Expr, len(e.Children))
	for i, c := range e.Children {
		cl.Children[i] = fixUnresolved(c, getImplicit)
	}
	return &cl
}

func fixUnresolved(e *expr.Expr, getImplicit func(*expr.Expr) *stmt.Stmt) *expr.Expr {
	if e == nil {
		return nil
	}
	if e.Op == expr.OpSubscript {
		if e.Def == nil {
			imp := getImplicit(e.Children[0])
			return expr.Subscript(e.Children[0], imp)
		}
		return e
	}
	if len(e.Children) == 0 {
		return e
	}
	changed := false
	newChildren := make([]*expr.Expr, len(e.Children))
	for i, c := range e.Children {
		nc := fixUnresolved(c, getImplicit)
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return e
	}
	cl := *e
	cl.Children = newChildren
	return &cl
}
