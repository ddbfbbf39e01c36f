package expr

// Visitor is the read-only traversal interface.
type Visitor interface {
	// PreVisit is called before descending into e's children. Returning
	// descend=false prunes the subtree (children are not visited).
	PreVisit(e *Expr) (descend bool)
	// PostVisit is called after all children have been visited.
	PostVisit(e *Expr)
}

// Accept runs v over e in pre/post order.
func (e *Expr) Accept(v Visitor) {
	if e == nil {
		return
	}
	if !v.PreVisit(e) {
		return
	}
	for _, c := range e.Children {
		c.Accept(v)
	}
	v.PostVisit(e)
}

// Modifier may replace a node during a post-order rewrite.
type Modifier interface {
	// PreModify is called before descending; returning descend == false
	// skips descent into the original children and installs replacement
	// (or e itself when replacement is nil).
	PreModify(e *Expr) (replacement *Expr, descend bool)
	// PostModify is called with e already having had its children
	// rewritten; it returns the (possibly new) node to install.
	PostModify(e *Expr) *Expr
}

// Modify rewrites e bottom-up via m, returning the new tree. e itself is
// never mutated in place.
func (e *Expr) Modify(m Modifier) *Expr {
	if e == nil {
		return nil
	}
	if repl, descend := m.PreModify(e); !descend {
		if repl != nil {
			return repl
		}
		return e
	}
	if len(e.Children) == 0 {
		return m.PostModify(e)
	}
	newChildren := make([]*Expr, len(e.Children))
	for i, c := range e.Children {
		newChildren[i] = c.Modify(m)
	}
	rebuilt := &Expr{
		Op: e.Op, Const: e.Const, Type: e.Type, RegNum: e.RegNum,
		Name: e.Name, Def: e.Def, WildPattern: e.WildPattern, Children: newChildren,
	}
	return m.PostModify(rebuilt)
}

// SimpExpModifier is a base Modifier that re-simplifies only ancestors of
// an actually-mutated child, which is what keeps propagation cheap: each level remembers whether
// anything changed below, and calls Simplify only on the nodes where it
// would have an effect.
//
// Embedders override Rewrite, which is tried on every node bottom-up; they
// should not override PreModify/PostModify.
type SimpExpModifier struct {
	Rewrite func(e *Expr) (replacement *Expr, changed bool)
	changed []bool // stack of "something changed in this subtree" flags
}

func (m *SimpExpModifier) PreModify(e *Expr) (*Expr, bool) {
	m.changed = append(m.changed, false)
	return nil, true
}

func (m *SimpExpModifier) PostModify(e *Expr) *Expr {
	childChanged := m.changed[len(m.changed)-1]
	m.changed = m.changed[:len(m.changed)-1]

	result, changedHere := m.Rewrite(e)
	if result == nil {
		result = e
	}
	if changedHere || childChanged {
		if len(m.changed) > 0 {
			m.changed[len(m.changed)-1] = true
		}
		result = result.Simplify()
	}
	return result
}
