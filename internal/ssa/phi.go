package ssa

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// PlacePhiFunctions computes phi placement: for every renameable
// location defined anywhere in the procedure, compute DF+(defs(a)) and
// insert a PhiAssign for a at the top of each block in that set, with one
// operand slot per predecessor, initially pointing to no statement.
func PlacePhiFunctions(c *cfg.CFG, df Frontier, bl *Blacklist) {
	defSites := map[string][]*cfg.BasicBlock{}
	rep := map[string]*expr.Expr{}

	for _, b := range c.Blocks() {
		for _, s := range b.Stmts() {
			for _, loc := range s.Defines().Items() {
				if !CanRename(loc, bl) {
					continue
				}
				key := stmt.LocKey(loc)
				if _, ok := rep[key]; !ok {
					rep[key] = loc
				}
				defSites[key] = append(defSites[key], b)
			}
		}
	}

	for key, sites := range defSites {
		for target := range df.Iterated(sites) {
			if hasPhiFor(target, rep[key]) {
				continue
			}
			preds := make([]stmt.BBRef, len(target.In))
			for i, p := range target.In {
				preds[i] = p
			}
			target.Phis = append(target.Phis, stmt.NewPhiAssign(rep[key].Clone(), preds))
		}
	}
}

func hasPhiFor(b *cfg.BasicBlock, loc *expr.Expr) bool {
	key := stmt.LocKey(loc)
	for _, p := range b.Phis {
		if stmt.LocKey(p.Lhs) == key {
			return true
		}
	}
	return false
}
