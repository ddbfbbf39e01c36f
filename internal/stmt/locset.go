// Package stmt implements the statement set: Assign, PhiAssign, ImplicitAssign, BoolAssign, Branch, Goto,
// CaseStatement, Call, Return, Junction and ImpRef, plus the
// UseCollector/DefCollector pair Call statements carry.
package stmt

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/boomerang-decompiler/boomerang/internal/expr"
)

// LocationSet is a set of locations keyed by structural equality, used for
// uses/defines/modifieds/live-at-call bookkeeping throughout C3/C5/C6/C8.
type LocationSet struct {
	items []*expr.Expr
}

func NewLocationSet() *LocationSet { return &LocationSet{} }

func (s *LocationSet) Add(e *expr.Expr) {
	if s.Contains(e) {
		return
	}
	s.items = append(s.items, e)
}

func (s *LocationSet) Contains(e *expr.Expr) bool {
	for _, it := range s.items {
		if expr.Equal(it, e) {
			return true
		}
	}
	return false
}

func (s *LocationSet) Remove(e *expr.Expr) {
	for i, it := range s.items {
		if expr.Equal(it, e) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *LocationSet) Items() []*expr.Expr { return s.items }

func (s *LocationSet) Len() int { return len(s.items) }

// Union returns a new set with the elements of s and other.
func (s *LocationSet) Union(other *LocationSet) *LocationSet {
	out := NewLocationSet()
	for _, it := range s.items {
		out.Add(it)
	}
	if other != nil {
		for _, it := range other.items {
			out.Add(it)
		}
	}
	return out
}

// Intersect returns a new set with the elements in both s and other.
func (s *LocationSet) Intersect(other *LocationSet) *LocationSet {
	out := NewLocationSet()
	if other == nil {
		return out
	}
	for _, it := range s.items {
		if other.Contains(it) {
			out.Add(it)
		}
	}
	return out
}

// Sorted returns the elements in a deterministic order, for stable iteration in dataflow passes.
func (s *LocationSet) Sorted() []*expr.Expr {
	out := append([]*expr.Expr(nil), s.items...)
	slices.SortFunc(out, expr.Compare)
	return out
}

// UseCollector caches the locations live in the caller across a call site.
// It is populated once by dataflow and consulted repeatedly by the
// localiser.
type UseCollector struct {
	live *LocationSet
}

func NewUseCollector() *UseCollector { return &UseCollector{live: NewLocationSet()} }

func (u *UseCollector) Record(loc *expr.Expr) { u.live.Add(loc) }
func (u *UseCollector) Live() *LocationSet { return u.live }

// DefCollector caches a callee's modifieds, localised to the caller's
// context.
type DefCollector struct {
	defs map[string]*expr.Expr // keyed by the Loc's canonical string for O(1)-ish lookup
	locs *LocationSet
}

func NewDefCollector() *DefCollector {
	return &DefCollector{defs: map[string]*expr.Expr{}, locs: NewLocationSet()}
}

func (d *DefCollector) Record(loc, value *expr.Expr) {
	key := exprKey(loc)
	if _, exists := d.defs[key]; !exists {
		d.locs.Add(loc)
	}
	d.defs[key] = value
}

// Lookup returns the localised definition for loc, if the callee defines
// it.
func (d *DefCollector) Lookup(loc *expr.Expr) (*expr.Expr, bool) {
	v, ok := d.defs[exprKey(loc)]
	return v, ok
}

func (d *DefCollector) Locations() *LocationSet { return d.locs }

// LocKey is exprKey exported for other dataflow passes (C5 phi placement,
// C8 call-site bookkeeping) that need the same cheap discriminated key
// without duplicating the switch.
func LocKey(e *expr.Expr) string { return exprKey(e) }

func exprKey(e *expr.Expr) string {
	// Two structurally-equal locations must hash the same; round-tripping
	// through Compare's total order via a sorted dump is overkill here, a
	// cheap discriminated string is enough since locations are small.
	switch e.Op {
	case expr.OpRegOf:
		return "r:" + itoa(e.RegNum)
	case expr.OpParam, expr.OpGlobal, expr.OpLocal, expr.OpTemp:
		return opPrefix(e.Op) + e.Name
	default:
		return "x:" + dumpExpr(e)
	}
}

func opPrefix(op expr.Op) string {
	switch op {
	case expr.OpParam:
		return "p:"
	case expr.OpGlobal:
		return "g:"
	case expr.OpLocal:
		return "l:"
	case expr.OpTemp:
		return "t:"
	}
	return "?:"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// dumpExpr is a structural string encoding good enough for map keys; it is
// not meant for display.
func dumpExpr(e *expr.Expr) string {
	if e == nil {
		return "nil"
	}
	s := itoa(int(e.Op))
	switch {
	case e.Op == expr.OpRegOf:
		s += "r" + itoa(e.RegNum)
	case e.Name != "":
		s += "n" + e.Name
	case e.IsConst():
		s += "c" + fmt.Sprint(e.Const)
	}
	if e.IsLocation() && e.Op == expr.OpMemOf {
		s += "(" + dumpExpr(e.Children[0]) + ")"
		return s
	}
	for _, c := range e.Children {
		s += "," + dumpExpr(c)
	}
	return s
}
