package cfg

// Dominators computes, for every BB reachable from the entry, its
// immediate dominator.
func (c *CFG) Dominators() map[*BasicBlock]*BasicBlock {
	order := c.reversePostorder(c.entry, forward)
	idom := map[*BasicBlock]*BasicBlock{c.entry: c.entry}
	rpoIndex := map[*BasicBlock]int{}
	for i, b := range order {
		rpoIndex[b] = i
	}

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == c.entry {
				continue
			}
			var newIdom *BasicBlock
			for _, p := range b.In {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	delete(idom, c.entry) // entry has no strict dominator
	return idom
}

func intersect(a, b *BasicBlock, idom map[*BasicBlock]*BasicBlock, rpo map[*BasicBlock]int) *BasicBlock {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[a]
		}
		for rpo[b] > rpo[a] {
			b = idom[b]
		}
	}
	return a
}

type direction int

const (
	forward direction = iota
	backward
)

func (c *CFG) reversePostorder(start *BasicBlock, dir direction) []*BasicBlock {
	if start == nil {
		return nil
	}
	visited := map[*BasicBlock]bool{}
	var post []*BasicBlock
	var dfs func(b *BasicBlock)
	dfs = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		next := b.Out
		if dir == backward {
			next = b.In
		}
		for _, n := range next {
			dfs(n)
		}
		post = append(post, b)
	}
	dfs(start)
	// reverse
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// FindImmedPDom computes immediate post-dominators by the same
// intersect-walk algorithm run over the reverse graph from the exit node.
// Results are stored directly on each BB's ImmPDom field.
func (c *CFG) FindImmedPDom() {
	exit := c.FindRetNode()
	if exit == nil {
		return
	}
	order := c.reversePostorder(exit, backward)
	ipdom := map[*BasicBlock]*BasicBlock{exit: exit}
	rpoIndex := map[*BasicBlock]int{}
	for i, b := range order {
		rpoIndex[b] = i
	}
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == exit {
				continue
			}
			var newIPDom *BasicBlock
			for _, s := range b.Out {
				if ipdom[s] == nil {
					continue
				}
				if newIPDom == nil {
					newIPDom = s
					continue
				}
				newIPDom = intersect(newIPDom, s, ipdom, rpoIndex)
			}
			if newIPDom != nil && ipdom[b] != newIPDom {
				ipdom[b] = newIPDom
				changed = true
			}
		}
	}
	for b, p := range ipdom {
		if b != exit {
			b.ImmPDom = p
		}
	}
}

// IsReducible reports whether the CFG is reducible (every back-edge target
// dominates its source), the precondition structuring requires.
func (c *CFG) IsReducible() bool {
	dom := c.Dominators()
	c.SetTimeStamps()
	for _, b := range c.blocks {
		for _, succ := range b.Out {
			if isBackEdge(b, succ) && !dominates(succ, b, dom) {
				return false
			}
		}
	}
	return true
}

func isBackEdge(from, to *BasicBlock) bool {
	return to.DFSFirst != 0 && from.DFSFirst != 0 && to.DFSFirst <= from.DFSFirst && from.DFSLast <= to.DFSLast
}

func dominates(dom, node *BasicBlock, idom map[*BasicBlock]*BasicBlock) bool {
	if dom == node {
		return true
	}
	for n := idom[node]; n != nil; n = idom[n] {
		if n == dom {
			return true
		}
		if idom[n] == n {
			break
		}
	}
	return false
}
