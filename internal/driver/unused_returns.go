package driver

import (
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// RemoveUnusedReturns is the whole-program post-pass: for every decoded
// user procedure it recomputes returns := modifieds ∩ union(live-at-call
// of every caller), worklisted because shrinking one procedure's
// returns can shrink a caller's own live-at-call sets in turn. It
// terminates because the set of (proc, return) pairs is finite and only
// shrinks; maxPasses is a defensive cap on top of that guarantee.
func RemoveUnusedReturns(pr *proc.Program, maxPasses int, log *logging.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithPass("driver.unused-returns")

	queued := map[*proc.UserProc]bool{}
	var worklist []*proc.UserProc
	for _, p := range pr.UserProcs() {
		if p.ReturnStmt == nil {
			continue
		}
		worklist = append(worklist, p)
		queued[p] = true
	}

	passes := 0
	for len(worklist) > 0 {
		passes++
		if maxPasses > 0 && passes > maxPasses {
			log.Warn("unused-return removal hit its %d-pass cap with %d procedures still queued", maxPasses, len(worklist))
			return
		}

		p := worklist[0]
		worklist = worklist[1:]
		delete(queued, p)

		removed := shrinkReturns(p)
		for _, loc := range removed {
			log.Debug("removed unused return %s from %s", stmt.LocKey(loc), p.ProcName())
		}
		if len(removed) == 0 {
			continue
		}

		for _, call := range p.Callers() {
			caller := callerProc(pr, call)
			if caller == nil || caller.ReturnStmt == nil || queued[caller] {
				continue
			}
			worklist = append(worklist, caller)
			queued[caller] = true
		}
	}
}

// shrinkReturns intersects p's modifieds with the union of what every
// call site to p actually keeps live, and reports the locations dropped.
func shrinkReturns(p *proc.UserProc) []*expr.Expr {
	live := stmt.NewLocationSet()
	for _, call := range p.Callers() {
		if call.Uses_ == nil {
			continue
		}
		live = live.Union(call.Uses_.Live())
	}

	kept := p.ReturnStmt.Modifieds.Intersect(live)
	var removed []*expr.Expr
	for _, loc := range p.ReturnStmt.Modifieds.Items() {
		if !kept.Contains(loc) {
			removed = append(removed, loc)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	p.ReturnStmt.Modifieds = kept
	p.ReturnStmt.RetExprs = filterRetExprs(p.ReturnStmt.RetExprs, kept)
	return removed
}

func filterRetExprs(exprs []*expr.Expr, kept *stmt.LocationSet) []*expr.Expr {
	var out []*expr.Expr
	for _, e := range exprs {
		loc := e
		if loc.Op == expr.OpSubscript {
			loc = loc.Children[0]
		}
		if kept.Contains(loc) {
			out = append(out, e)
		}
	}
	return out
}

// callerProc resolves a call statement's enclosing procedure back to its
// *proc.UserProc via the program's name index, since stmt.ProcRef only
// exposes the name to avoid an import cycle.
func callerProc(pr *proc.Program, call *stmt.Stmt) *proc.UserProc {
	if call.Proc == nil {
		return nil
	}
	p, ok := pr.FindByName(call.Proc.ProcName())
	if !ok {
		return nil
	}
	up, ok := p.(*proc.UserProc)
	if !ok {
		return nil
	}
	return up
}
