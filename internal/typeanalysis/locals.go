package typeanalysis

import (
	"fmt"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// LocalsTable maps stack-frame offsets to stable local-variable names.
type LocalsTable struct {
	byOffset map[int64]string
	next int
}

func NewLocalsTable() *LocalsTable { return &LocalsTable{byOffset: map[int64]string{}} }

// NameFor returns the local name for offset, minting localN on first sight.
func (lt *LocalsTable) NameFor(offset int64) string {
	if name, ok := lt.byOffset[offset]; ok {
		return name
	}
	lt.next++
	name := fmt.Sprintf("local%d", lt.next)
	lt.byOffset[offset] = name
	return name
}

func (lt *LocalsTable) Len() int { return len(lt.byOffset) }

// mapStackLocalsPass rewrites every naked sp±K expression across the
// procedure: dereferenced (memOf(sp±K)) becomes the local's value;
// used bare (the address itself, e.g. as an argument) becomes
// addrOf(localN), except when the type says the value itself is the
// pointer, in which case the addrOf form is retained.
func mapStackLocalsPass(c *cfg.CFG, spRegNum int, locals *LocalsTable) bool {
	changed := false
	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			rewriteStmtStackLocals(s, spRegNum, locals, &changed)
		}
	}
	return changed
}

func rewriteStmtStackLocals(s *stmt.Stmt, sp int, locals *LocalsTable, changed *bool) {
	rewrite := func(e *expr.Expr) *expr.Expr { return mapStackLocals(e, sp, locals, changed) }
	switch s.Kind {
	case stmt.KindAssign:
		s.Rhs = rewrite(s.Rhs)
		s.Lhs = rewriteLhsChildren(s.Lhs, sp, locals, changed)
		s.Guard = rewrite(s.Guard)
	case stmt.KindBoolAssign:
		s.Cond = rewrite(s.Cond)
	case stmt.KindBranch:
		s.Cond = rewrite(s.Cond)
	case stmt.KindCaseStatement:
		s.SwitchExpr = rewrite(s.SwitchExpr)
	case stmt.KindCall:
		s.CallDest = rewrite(s.CallDest)
		for _, a := range s.Args {
			a.Rhs = rewrite(a.Rhs)
		}
	case stmt.KindReturn:
		for i, e := range s.RetExprs {
			s.RetExprs[i] = rewrite(e)
		}
	case stmt.KindImpRef:
		s.RefAddr = rewrite(s.RefAddr)
	}
}

func rewriteLhsChildren(lhs *expr.Expr, sp int, locals *LocalsTable, changed *bool) *expr.Expr {
	if lhs == nil || len(lhs.Children) == 0 {
		return lhs
	}
	cl := *lhs
	cl.Children = make([]*expr.Expr, len(lhs.Children))
	for i, c := range lhs.Children {
		cl.Children[i] = mapStackLocals(c, sp, locals, changed)
	}
	return &cl
}

func mapStackLocals(e *expr.Expr, sp int, locals *LocalsTable, changed *bool) *expr.Expr {
	if e == nil {
		return nil
	}
	if e.Op == expr.OpMemOf {
		if off, ok := spOffset(e.Children[0], sp); ok {
			*changed = true
			return expr.Local(locals.NameFor(off))
		}
	}
	if off, ok := spOffset(e, sp); ok {
		*changed = true
		return expr.Unary(expr.OpAddrOf, expr.Local(locals.NameFor(off)))
	}
	if len(e.Children) == 0 {
		return e
	}
	localChanged := false
	children := make([]*expr.Expr, len(e.Children))
	for i, c := range e.Children {
		nc := mapStackLocals(c, sp, locals, changed)
		children[i] = nc
		if nc != c {
			localChanged = true
		}
	}
	if !localChanged {
		return e
	}
	cl := *e
	cl.Children = children
	return &cl
}

// spOffset reports whether e is exactly sp, sp+K or sp-K, returning the
// signed offset K (0 for bare sp).
func spOffset(e *expr.Expr, sp int) (int64, bool) {
	if e.Op == expr.OpRegOf && e.RegNum == sp {
		return 0, true
	}
	if (e.Op == expr.OpPlus || e.Op == expr.OpMinus) && len(e.Children) == 2 {
		a, b := e.Children[0], e.Children[1]
		if a.Op == expr.OpRegOf && a.RegNum == sp && b.IsConst() {
			off := b.Const.AsInt64()
			if e.Op == expr.OpMinus {
				off = -off
			}
			return off, true
		}
	}
	return 0, false
}
