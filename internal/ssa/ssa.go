package ssa

import "github.com/boomerang-decompiler/boomerang/internal/cfg"

// Build runs the full C5 pipeline on c: dominators,
// dominance frontiers, phi placement, block-local renaming, then
// materialises every dangling l{nil} left by renaming into an
// ImplicitAssign at the entry block. Returns the blacklist renaming
// consulted, so later passes can add address-escaped locations to it.
func Build(c *cfg.CFG) *Blacklist {
	bl := NewBlacklist()
	idom := c.Dominators()
	tree := BuildDomTree(c, idom)
	df := DominanceFrontier(c, idom, tree)
	PlacePhiFunctions(c, df, bl)
	RenameBlockVars(tree, c.EntryBB(), bl)
	MaterializeImplicits(c)
	return bl
}
