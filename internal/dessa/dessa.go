// Package dessa lowers a procedure out of SSA form: phi-connected
// definitions are united into one variable, each unit is given a single
// representative name, every subscripted reference is rewritten to that
// name, and the PhiAssigns together with any now-unreferenced
// ImplicitAssigns are dropped. Grounded on
// original_source/include/proc.h's fromSSAform/findPhiUnites/
// removeSubscriptsFromSymbols/removeSubscriptsFromParameters/mapParameters
// declarations.
package dessa

import (
	"fmt"
	"sort"

	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
	"github.com/boomerang-decompiler/boomerang/internal/types"
)

// ssaName identifies one SSA definition occurrence: a machine location
// together with the statement that defines it. Two occurrences with the
// same name denote the same underlying SSA value.
type ssaName struct {
	loc string
	def *stmt.Stmt
}

// unionFind is the connection graph findPhiUnites builds over a
// procedure's phi web: names connected through any chain of phi operands
// end up sharing a root and therefore a representative.
type unionFind struct {
	parent map[ssaName]ssaName
}

func newUnionFind() *unionFind { return &unionFind{parent: map[ssaName]ssaName{}} }

func (u *unionFind) find(n ssaName) ssaName {
	p, ok := u.parent[n]
	if !ok {
		u.parent[n] = n
		return n
	}
	if p == n {
		return n
	}
	root := u.find(p)
	u.parent[n] = root
	return root
}

func (u *unionFind) union(a, b ssaName) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// FromSSA lowers p out of SSA form in place. It is idempotent: running it
// a second time over a procedure with no PhiAssigns and no subscripted
// references left is a no-op.
func FromSSA(p *proc.UserProc) {
	c := p.CFG
	if c == nil {
		return
	}

	uf := newUnionFind()
	phis := collectPhis(c)
	for _, ph := range phis {
		dst := ssaName{loc: stmt.LocKey(ph.Lhs), def: ph}
		for _, op := range ph.PhiOperands {
			if op.Def == nil || op.Operand == nil {
				continue
			}
			src := ssaName{loc: stmt.LocKey(op.Operand.Loc()), def: op.Def}
			uf.union(dst, src)
		}
	}

	reps := nameRepresentatives(p, uf, c)
	rewriteSubscripts(c, uf, reps)

	removePhis(c)
	removeDeadImplicits(p)
}

func collectPhis(c *cfg.CFG) []*stmt.Stmt {
	var out []*stmt.Stmt
	for _, b := range c.Blocks() {
		out = append(out, b.Phis...)
	}
	return out
}

func removePhis(c *cfg.CFG) {
	for _, b := range c.Blocks() {
		b.Phis = nil
	}
}

// removeDeadImplicits drops every entry-block ImplicitAssign that did not
// end up backing a discovered parameter: once rewriteSubscripts runs, an
// implicit's only possible surviving reference is through
// UserProc.Parameters, since every subscripted use of it has already been
// replaced by a representative expression.
func removeDeadImplicits(p *proc.UserProc) {
	entry := p.CFG.EntryBB()
	if entry == nil {
		return
	}
	isParam := map[*stmt.Stmt]bool{}
	for _, param := range p.Parameters {
		isParam[param] = true
	}
	kept := entry.Implicits[:0]
	for _, imp := range entry.Implicits {
		if isParam[imp] {
			kept = append(kept, imp)
		}
	}
	entry.Implicits = kept
}

// locOccurrence pairs an ssaName with one concrete location expression
// observed under that name, used only to pick/synthesize a representative.
type locOccurrence struct {
	name ssaName
	loc *expr.Expr
}

// nameRepresentatives assigns one representative expression per
// equivalence class root. A parameter or global keeps its own name; an
// already-named local (proc.Symbols) is reused; anything else gets a
// freshly synthesized local.
func nameRepresentatives(p *proc.UserProc, uf *unionFind, c *cfg.CFG) map[ssaName]*expr.Expr {
	occurrences := collectOccurrences(c)

	byRoot := map[ssaName][]locOccurrence{}
	for _, occ := range occurrences {
		root := uf.find(occ.name)
		byRoot[root] = append(byRoot[root], occ)
	}

	roots := make([]ssaName, 0, len(byRoot))
	for root := range byRoot {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return sortKey(byRoot[roots[i]]) < sortKey(byRoot[roots[j]])
	})

	reps := map[ssaName]*expr.Expr{}
	localNum := 0
	for _, root := range roots {
		reps[root] = chooseRepresentative(p, byRoot[root], &localNum)
	}
	return reps
}

func sortKey(members []locOccurrence) string {
	best := ""
	for _, m := range members {
		k := fmt.Sprintf("%s#%d", m.name.loc, defNum(m.name.def))
		if best == "" || k < best {
			best = k
		}
	}
	return best
}

func defNum(d *stmt.Stmt) int {
	if d == nil {
		return -1
	}
	return d.Num
}

func chooseRepresentative(p *proc.UserProc, members []locOccurrence, localNum *int) *expr.Expr {
	for _, m := range members {
		if m.loc.Op == expr.OpParam || m.loc.Op == expr.OpGlobal {
			return m.loc
		}
	}
	for _, m := range members {
		if named, ok := p.Symbols.Lookup(m.loc); ok {
			return named
		}
	}
	name := fmt.Sprintf("local%d", *localNum)
	*localNum++
	rep := expr.Local(name)
	p.Symbols.Add(members[0].loc, rep)
	p.Locals[name] = localType(members)
	return rep
}

// localType picks a type for a freshly synthesized local from whichever
// member's defining statement carries one, defaulting to a generic
// machine word when type analysis never ran or inferred nothing.
func localType(members []locOccurrence) *types.Type {
	for _, m := range members {
		if m.name.def != nil && m.name.def.Type != nil {
			return m.name.def.Type
		}
	}
	return types.Size(32)
}

// collectOccurrences finds every distinct (location, definition) pair
// subscripted anywhere in c, keeping one sample location expression per
// pair for naming purposes.
func collectOccurrences(c *cfg.CFG) []locOccurrence {
	var out []locOccurrence
	seen := map[ssaName]bool{}
	var walk func(e *expr.Expr)
	walk = func(e *expr.Expr) {
		if e == nil {
			return
		}
		if e.Op == expr.OpSubscript {
			if d, ok := e.Def.(*stmt.Stmt); ok && d != nil {
				n := ssaName{loc: stmt.LocKey(e.Children[0]), def: d}
				if !seen[n] {
					seen[n] = true
					out = append(out, locOccurrence{name: n, loc: e.Children[0]})
				}
			}
		}
		for _, ch := range e.Children {
			walk(ch)
		}
	}
	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			for _, f := range exprFieldsOf(s) {
				walk(f)
			}
		}
	}
	return out
}

// exprFieldsOf lists every expression field a statement owns, including
// its nested Args/Returns assigns, mirroring the per-Kind field lists in
// stmt/ops.go.
func exprFieldsOf(s *stmt.Stmt) []*expr.Expr {
	if s == nil {
		return nil
	}
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
	out = append(out, s.RetExprs...)
	for _, a := range s.Args {
		out = append(out, exprFieldsOf(a)...)
	}
	for _, ret := range s.Returns {
		out = append(out, exprFieldsOf(ret)...)
	}
	return out
}

// rewriter is an expr.Modifier that replaces every subscripted reference
// with its equivalence class's representative, and strips any subscript
// that never resolved to a definition down to its bare location.
type rewriter struct {
	uf *unionFind
	reps map[ssaName]*expr.Expr
}

func (r *rewriter) PreModify(e *expr.Expr) (*expr.Expr, bool) {
	if e.Op != expr.OpSubscript {
		return nil, true
	}
	d, ok := e.Def.(*stmt.Stmt)
	if !ok || d == nil {
		return e.Children[0], false
	}
	root := r.uf.find(ssaName{loc: stmt.LocKey(e.Children[0]), def: d})
	if rep, ok := r.reps[root]; ok {
		return rep, false
	}
	return e.Children[0], false
}

func (r *rewriter) PostModify(e *expr.Expr) *expr.Expr { return e }

func rewriteSubscripts(c *cfg.CFG, uf *unionFind, reps map[ssaName]*expr.Expr) {
	r := &rewriter{uf: uf, reps: reps}
	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			rewriteStmt(s, r)
		}
	}
}

func rewriteStmt(s *stmt.Stmt, r *rewriter) {
	if s == nil {
		return
	}
	s.Lhs = s.Lhs.Modify(r)
	s.Rhs = s.Rhs.Modify(r)
	s.Guard = s.Guard.Modify(r)
	s.Cond = s.Cond.Modify(r)
	s.SwitchExpr = s.SwitchExpr.Modify(r)
	s.CallDest = s.CallDest.Modify(r)
	s.RefAddr = s.RefAddr.Modify(r)
	for i, e := range s.RetExprs {
		s.RetExprs[i] = e.Modify(r)
	}
	for _, a := range s.Args {
		rewriteStmt(a, r)
	}
	for _, ret := range s.Returns {
		rewriteStmt(ret, r)
	}
}
