package expr

// Match is wildcard-tolerant equality used only by the SSL pattern library.
// An OpWild node matches anything when WildPattern is
// nil, or anything that itself Matches WildPattern.
func Match(pattern, candidate *Expr) bool {
	if pattern == nil {
		return candidate == nil
	}
	if pattern.Op == OpWild {
		if pattern.WildPattern == nil {
			return true
		}
		return Match(pattern.WildPattern, candidate)
	}
	if candidate == nil || pattern.Op != candidate.Op {
		return false
	}
	if !Equal(&Expr{Op: pattern.Op, Const: pattern.Const, RegNum: pattern.RegNum, Name: pattern.Name, Type: pattern.Type, Def: pattern.Def},
		&Expr{Op: candidate.Op, Const: candidate.Const, RegNum: candidate.RegNum, Name: candidate.Name, Type: candidate.Type, Def: candidate.Def}) {
		return false
	}
	if len(pattern.Children) != len(candidate.Children) {
		return false
	}
	for i := range pattern.Children {
		if !Match(pattern.Children[i], candidate.Children[i]) {
			return false
		}
	}
	return true
}

type searchVisitor struct {
	pattern *Expr
	results []*Expr
	first bool
}

func (s *searchVisitor) PreVisit(e *Expr) bool {
	if s.first && len(s.results) > 0 {
		return false
	}
	if Match(s.pattern, e) {
		s.results = append(s.results, e)
	}
	return true
}
func (s *searchVisitor) PostVisit(e *Expr) {}

// Search finds the first sub-expression of e matching pattern under
// wildcard semantics.
func Search(e, pattern *Expr) (*Expr, bool) {
	v := &searchVisitor{pattern: pattern, first: true}
	e.Accept(v)
	if len(v.results) == 0 {
		return nil, false
	}
	return v.results[0], true
}

// SearchAll finds every sub-expression of e matching pattern.
func SearchAll(e, pattern *Expr) []*Expr {
	v := &searchVisitor{pattern: pattern}
	e.Accept(v)
	return v.results
}

type replaceModifier struct {
	pattern *Expr
	replacement *Expr
}

func (r *replaceModifier) PreModify(e *Expr) (*Expr, bool) {
	if Match(r.pattern, e) {
		return r.replacement.Clone(), false
	}
	return nil, true
}
func (r *replaceModifier) PostModify(e *Expr) *Expr { return e }

// SearchAndReplace returns a new tree with every sub-expression matching
// pattern replaced by replacement.
func SearchAndReplace(e, pattern, replacement *Expr) *Expr {
	return e.Modify(&replaceModifier{pattern: pattern, replacement: replacement})
}
