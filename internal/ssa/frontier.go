// Package ssa implements dominance-frontier-driven phi placement and
// block-local renaming to SSA form, after Cytron,
// Ferrante, Rosen, Wegman and Zadeck.
package ssa

import "github.com/boomerang-decompiler/boomerang/internal/cfg"

// DomTree is the dominator tree's children adjacency.
type DomTree map[*cfg.BasicBlock][]*cfg.BasicBlock

// BuildDomTree turns cfg.Dominators' idom map into a children adjacency.
func BuildDomTree(c *cfg.CFG, idom map[*cfg.BasicBlock]*cfg.BasicBlock) DomTree {
	tree := DomTree{}
	for _, b := range c.Blocks() {
		if _, ok := tree[b]; !ok {
			tree[b] = nil
		}
	}
	for n, d := range idom {
		tree[d] = append(tree[d], n)
	}
	return tree
}

// Frontier maps each node to its dominance frontier set.
type Frontier map[*cfg.BasicBlock]map[*cfg.BasicBlock]bool

// DominanceFrontier computes compute_DF(n) for every node: local DF from successors not strictly dominated by n, plus up-DF
// from children in the dominator tree. Nodes are processed in dominator-
// tree post-order so each child's DF is complete before its parent's.
func DominanceFrontier(c *cfg.CFG, idom map[*cfg.BasicBlock]*cfg.BasicBlock, tree DomTree) Frontier {
	df := Frontier{}
	for _, b := range c.Blocks() {
		df[b] = map[*cfg.BasicBlock]bool{}
	}

	var order []*cfg.BasicBlock
	visited := map[*cfg.BasicBlock]bool{}
	var visit func(n *cfg.BasicBlock)
	visit = func(n *cfg.BasicBlock) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, ch := range tree[n] {
			visit(ch)
		}
		order = append(order, n)
	}
	if entry := c.EntryBB(); entry != nil {
		visit(entry)
	}

	for _, n := range order {
		set := df[n]
		for _, s := range n.Out {
			if idom[s] != n {
				set[s] = true
			}
		}
		for _, child := range tree[n] {
			for s := range df[child] {
				if idom[s] != n {
					set[s] = true
				}
			}
		}
	}
	return df
}

// Iterated computes DF+(defs), the iterated dominance frontier, by worklist closure over DominanceFrontier.
func (df Frontier) Iterated(defs []*cfg.BasicBlock) map[*cfg.BasicBlock]bool {
	result := map[*cfg.BasicBlock]bool{}
	inWorklist := map[*cfg.BasicBlock]bool{}
	worklist := append([]*cfg.BasicBlock(nil), defs...)
	for _, d := range defs {
		inWorklist[d] = true
	}
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for y := range df[n] {
			if !result[y] {
				result[y] = true
				if !inWorklist[y] {
					inWorklist[y] = true
					worklist = append(worklist, y)
				}
			}
		}
	}
	return result
}
