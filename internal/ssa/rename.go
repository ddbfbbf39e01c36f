package ssa

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// RenameBlockVars is the dominator-tree renaming walk: a depth-first walk
// of the dominator tree that subscripts every
// renameable use with the current reaching definition, fills in phi
// operands on successors, and pops on the way back out of n.
func RenameBlockVars(tree DomTree, entry *cfg.BasicBlock, bl *Blacklist) {
	stacks := map[string][]*stmt.Stmt{}
	var walk func(n *cfg.BasicBlock)
	walk = func(n *cfg.BasicBlock) {
		pushed := map[string]int{}

		for _, s := range n.Phis {
			key := stmt.LocKey(s.Lhs)
			stacks[key] = append(stacks[key], s)
			pushed[key]++
		}
		for _, rtl := range n.RTLs {
			for _, s := range rtl.Stmts {
				renameStmtUses(s, stacks, bl)
				for _, d := range s.Defines().Items() {
					key := stmt.LocKey(d)
					stacks[key] = append(stacks[key], s)
					pushed[key]++
				}
			}
		}

		for _, succ := range n.Out {
			for _, phi := range succ.Phis {
				key := stmt.LocKey(phi.Lhs)
				top := topOf(stacks, key)
				for i := range phi.PhiOperands {
					if phi.PhiOperands[i].Pred == stmt.BBRef(n) {
						phi.PhiOperands[i].Def = top
						if top != nil {
							phi.PhiOperands[i].Operand = expr.Subscript(phi.Lhs.Clone(), top)
						} else {
							phi.PhiOperands[i].Operand = expr.Subscript(phi.Lhs.Clone(), nil)
						}
					}
				}
			}
		}

		for _, child := range tree[n] {
			walk(child)
		}

		for key, count := range pushed {
			s := stacks[key]
			stacks[key] = s[:len(s)-count]
		}
	}
	if entry != nil {
		walk(entry)
	}
}

func topOf(stacks map[string][]*stmt.Stmt, key string) *stmt.Stmt {
	s := stacks[key]
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// renameStmtUses rewrites every renameable use in s's expression fields to
// a subscripted reference in place, mirroring the per-Kind field list of
// stmt.Uses but never touching a definition's own outermost
// location.
func renameStmtUses(s *stmt.Stmt, stacks map[string][]*stmt.Stmt, bl *Blacklist) {
	switch s.Kind {
	case stmt.KindAssign:
		s.Rhs = renameUses(s.Rhs, stacks, bl)
		s.Lhs = renameLhsChildren(s.Lhs, stacks, bl)
		s.Guard = renameUses(s.Guard, stacks, bl)
	case stmt.KindBoolAssign:
		s.Cond = renameUses(s.Cond, stacks, bl)
	case stmt.KindBranch:
		s.Cond = renameUses(s.Cond, stacks, bl)
	case stmt.KindCaseStatement:
		s.SwitchExpr = renameUses(s.SwitchExpr, stacks, bl)
	case stmt.KindCall:
		s.CallDest = renameUses(s.CallDest, stacks, bl)
		for _, a := range s.Args {
			a.Rhs = renameUses(a.Rhs, stacks, bl)
		}
	case stmt.KindReturn:
		for i, e := range s.RetExprs {
			s.RetExprs[i] = renameUses(e, stacks, bl)
		}
	case stmt.KindImpRef:
		s.RefAddr = renameUses(s.RefAddr, stacks, bl)
	}
}

// renameLhsChildren renames the sub-expressions of a Lhs location (e.g.
// memOf(addr)'s addr) without subscripting the outermost location itself,
// since that location is being defined here, not used.
func renameLhsChildren(lhs *expr.Expr, stacks map[string][]*stmt.Stmt, bl *Blacklist) *expr.Expr {
	if lhs == nil || len(lhs.Children) == 0 {
		return lhs
	}
	cl := *lhs
	cl.Children = make([]*expr.Expr, len(lhs.Children))
	for i, c := range lhs.Children {
		cl.Children[i] = renameUses(c, stacks, bl)
	}
	return &cl
}

// renameUses replaces every renameable bare location in e with its
// subscripted reference l{top(stacks[l])}, leaving
// already-subscripted sub-trees untouched. An empty stack yields l{nil},
// materialised as an ImplicitAssign at the entry block by a later pass.
func renameUses(e *expr.Expr, stacks map[string][]*stmt.Stmt, bl *Blacklist) *expr.Expr {
	if e == nil {
		return nil
	}
	if e.Op == expr.OpSubscript {
		return e
	}
	if e.IsLocation() {
		loc := e
		if len(e.Children) > 0 {
			cl := *e
			cl.Children = make([]*expr.Expr, len(e.Children))
			for i, c := range e.Children {
				cl.Children[i] = renameUses(c, stacks, bl)
			}
			loc = &cl
		}
		if !CanRename(loc, bl) {
			return loc
		}
		top := topOf(stacks, stmt.LocKey(loc))
		if top == nil {
			return expr.Subscript(loc, nil)
		}
		return expr.Subscript(loc, top)
	}
	if len(e.Children) == 0 {
		return e
	}
	changed := false
	newChildren := make([]*expr.Expr, len(e.Children))
	for i, c := range e.Children {
		nc := renameUses(c, stacks, bl)
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
