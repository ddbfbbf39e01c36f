package stmt

import "github.com/boomerang-decompiler/boomerang/internal/expr"

// Uses returns every location s reads.
func (s *Stmt) Uses() *LocationSet {
	out := NewLocationSet()
	switch s.Kind {
	case KindAssign:
		addLocsIn(out, s.Rhs)
		// lhs uses its sub-expressions except its outermost operator,
		// e.g. memOf(expr) := rhs uses expr.
		for _, c := range s.Lhs.Children {
			addLocsIn(out, c)
		}
		addLocsIn(out, s.Guard)
	case KindBoolAssign:
		addLocsIn(out, s.Cond)
	case KindPhiAssign:
		for _, op := range s.PhiOperands {
			addLocsIn(out, op.Operand)
		}
	case KindBranch:
		addLocsIn(out, s.Cond)
	case KindCaseStatement:
		addLocsIn(out, s.SwitchExpr)
	case KindCall:
		addLocsIn(out, s.CallDest)
		for _, a := range s.Args {
			addLocsIn(out, a.Rhs)
		}
		if s.Uses_ != nil {
			for _, l := range s.Uses_.Live().Items() {
				out.Add(l)
			}
		}
	case KindReturn:
		if s.Modifieds != nil {
			for _, l := range s.Modifieds.Items() {
				out.Add(l)
			}
		}
		for _, e := range s.RetExprs {
			addLocsIn(out, e)
		}
	case KindImpRef:
		addLocsIn(out, s.RefAddr)
	}
	return out
}

// Defines returns every location s writes.
func (s *Stmt) Defines() *LocationSet {
	out := NewLocationSet()
	switch s.Kind {
	case KindAssign, KindBoolAssign, KindImplicitAssign:
		if s.Lhs != nil {
			out.Add(s.Lhs)
		}
	case KindPhiAssign:
		if s.Lhs != nil {
			out.Add(s.Lhs)
		}
	case KindCall:
		for _, r := range s.Returns {
			if r.Lhs != nil {
				out.Add(r.Lhs)
			}
		}
	}
	return out
}

// addLocsIn walks e and adds every location sub-expression to out
// (constants and operators themselves are not locations).
func addLocsIn(out *LocationSet, e *expr.Expr) {
	if e == nil {
		return
	}
	if e.IsLocation() {
		out.Add(e)
		// A location's own address sub-expression (e.g. memOf(x+4)) is
		// itself walked for nested locations, matching how the original
		// finds uses recursively through memory expressions.
		for _, c := range e.Children {
			addLocsIn(out, c)
		}
		return
	}
	if e.Op == expr.OpSubscript {
		out.Add(e)
		return
	}
	for _, c := range e.Children {
		addLocsIn(out, c)
	}
}

// GetDefinitions appends this statement's definitions into out, the
// multi-target-friendly variant of Defines (useful for Call, which
// can define many locations at once).
func (s *Stmt) GetDefinitions(out *LocationSet) {
	for _, l := range s.Defines().Items() {
		out.Add(l)
	}
}

// Simplify simplifies every expression a statement carries
// (returns a new Stmt, never mutates s, consistent with Expr's
// by-convention immutability).
func (s *Stmt) Simplify() *Stmt {
	c := s.Clone()
	switch c.Kind {
	case KindAssign:
		c.Lhs = simp(c.Lhs)
		c.Rhs = simp(c.Rhs)
		c.Guard = simp(c.Guard)
	case KindBoolAssign:
		c.Lhs = simp(c.Lhs)
		c.Cond = simp(c.Cond)
	case KindImplicitAssign:
		c.Lhs = simp(c.Lhs)
	case KindPhiAssign:
		c.Lhs = simp(c.Lhs)
		for i := range c.PhiOperands {
			c.PhiOperands[i].Operand = simp(c.PhiOperands[i].Operand)
		}
		collapsePhiIfUniform(c)
	case KindBranch:
		c.Cond = simp(c.Cond)
	case KindCaseStatement:
		c.SwitchExpr = simp(c.SwitchExpr)
	case KindCall:
		c.CallDest = simp(c.CallDest)
		for _, a := range c.Args {
			a.Rhs = simp(a.Rhs)
		}
	case KindReturn:
		for i, e := range c.RetExprs {
			c.RetExprs[i] = simp(e)
		}
	case KindImpRef:
		c.RefAddr = simp(c.RefAddr)
	}
	return c
}

func simp(e *expr.Expr) *expr.Expr {
	if e == nil {
		return nil
	}
	return e.Simplify()
}

// collapsePhiIfUniform turns a PhiAssign whose operands all refer to the
// same definition into a plain Assign.
func collapsePhiIfUniform(c *Stmt) {
	if len(c.PhiOperands) == 0 {
		return
	}
	first := c.PhiOperands[0].Def
	for _, op := range c.PhiOperands[1:] {
		if op.Def != first {
			return
		}
	}
	c.Kind = KindAssign
	c.Rhs = expr.Subscript(c.Lhs.Clone(), first)
	c.PhiOperands = nil
}

// Search/SearchAndReplace thread through to every expression a statement
// owns.
func (s *Stmt) Search(pattern *expr.Expr) (*expr.Expr, bool) {
	for _, e := range s.exprs() {
		if found, ok := expr.Search(e, pattern); ok {
			return found, true
		}
	}
	return nil, false
}

func (s *Stmt) SearchAndReplace(pattern, replacement *expr.Expr) *Stmt {
	c := s.Clone()
	rewrite := func(e *expr.Expr) *expr.Expr {
		if e == nil {
			return nil
		}
		return expr.SearchAndReplace(e, pattern, replacement)
	}
	switch c.Kind {
	case KindAssign:
		c.Lhs, c.Rhs, c.Guard = rewrite(c.Lhs), rewrite(c.Rhs), rewrite(c.Guard)
	case KindBoolAssign:
		c.Lhs, c.Cond = rewrite(c.Lhs), rewrite(c.Cond)
	case KindImplicitAssign:
		c.Lhs = rewrite(c.Lhs)
	case KindPhiAssign:
		c.Lhs = rewrite(c.Lhs)
		for i := range c.PhiOperands {
			c.PhiOperands[i].Operand = rewrite(c.PhiOperands[i].Operand)
		}
	case KindBranch:
		c.Cond = rewrite(c.Cond)
	case KindCaseStatement:
		c.SwitchExpr = rewrite(c.SwitchExpr)
	case KindCall:
		c.CallDest = rewrite(c.CallDest)
		for _, a := range c.Args {
			a.Rhs = rewrite(a.Rhs)
		}
	case KindReturn:
		for i, e := range c.RetExprs {
			c.RetExprs[i] = rewrite(e)
		}
	case KindImpRef:
		c.RefAddr = rewrite(c.RefAddr)
	}
	return c
}

func (s *Stmt) exprs() []*expr.Expr {
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
	return out
}
