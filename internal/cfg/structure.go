package cfg

import "sort"

// Structure runs the full structuring pipeline: FindRetNode,
// SetTimeStamps, FindImmedPDom, StructLoops, StructConds, CheckConds. It
// is a no-op (logged by the caller) if the CFG is irreducible.
func (c *CFG) Structure() bool {
	if c.FindRetNode() == nil {
		return false
	}
	if !c.IsReducible() {
		return false
	}
	c.SetTimeStamps()
	c.FindImmedPDom()
	c.structLoops()
	c.structConds()
	c.checkConds()
	return true
}

// structConds tags each conditional header with its post-dominator follow.
// Case headers additionally tag every member with the case head.
func (c *CFG) structConds() {
	for _, b := range c.blocks {
		if b.Struct == StructLoop || b.Struct == StructLoopCond {
			continue
		}
		switch b.Kind {
		case TwoWay:
			b.Struct = StructCond
			b.CondFollow = b.ImmPDom
		case Nway:
			b.Struct = StructCond
			b.CondFollow = b.ImmPDom
			for _, member := range c.Reachable() {
				if member.LoopHead == nil && dominatesBB(b, member) && member != b {
					member.CaseHead = b
				}
			}
		}
	}
}

// dominatesBB approximates case-body membership by DFS interval
// containment (computed by SetTimeStamps) rather than true dominance,
// since ImmPDom only carries post-dominance here.
func dominatesBB(a, b *BasicBlock) bool {
	return a.DFSFirst <= b.DFSFirst && b.DFSLast <= a.DFSLast
}

// structLoops identifies each loop by its latching node, using the latch-selection criteria (i)-(vi).
func (c *CFG) structLoops() {
	for _, header := range c.blocks {
		latch := c.findLatch(header)
		if latch == nil {
			continue
		}
		loopNodes := c.tagNodesInLoop(header, latch)
		header.Struct = StructLoop
		header.LoopLatch = latch
		for n := range loopNodes {
			n.LoopHead = header
		}
		c.determineLoopType(header, latch, loopNodes)
	}
}

// findLatch picks, among header's predecessors reachable by a back-edge,
// the one satisfying the standard latch-selection criteria.
func (c *CFG) findLatch(header *BasicBlock) *BasicBlock {
	var candidates []*BasicBlock
	for _, p := range header.In {
		if !isBackEdgeByStamps(p, header) {
			continue
		}
		if p.CaseHead != header.CaseHead { // (ii)
			continue
		}
		if p.LoopHead != nil && p.LoopHead != header { // (iii)
			continue
		}
		if p.Kind == Nway { // (iv)
			continue
		}
		if isEnclosingLatch(p) { // (v)
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].DFSFirst < candidates[j].DFSFirst }) // (vi) smallest ordering
	return candidates[0]
}

func isBackEdgeByStamps(from, to *BasicBlock) bool {
	return to.DFSFirst != 0 && to.DFSFirst <= from.DFSFirst && from.DFSLast <= to.DFSLast
}

func isEnclosingLatch(p *BasicBlock) bool {
	for lh := p.LoopHead; lh != nil; lh = lh.LoopHead {
		if lh.LoopLatch == p {
			return true
		}
	}
	return false
}

// tagNodesInLoop returns the set of BBs between header and latch along
// forward edges that stay within the DFS interval [header, latch].
func (c *CFG) tagNodesInLoop(header, latch *BasicBlock) map[*BasicBlock]bool {
	in := map[*BasicBlock]bool{header: true}
	var walk func(b *BasicBlock)
	walk = func(b *BasicBlock) {
		for _, s := range b.Out {
			if in[s] {
				continue
			}
			if s.DFSFirst >= header.DFSFirst && s.DFSLast <= header.DFSLast {
				in[s] = true
				if s != latch {
					walk(s)
				}
			}
		}
	}
	walk(header)
	in[latch] = true
	return in
}

// determineLoopType classifies a loop by its header/latch shape and picks
// the follow node: PreTested if the header is TwoWay and its
// taken child is inside the loop (follow = the other, false, child);
// PostTested if the latch is TwoWay (follow = latch's non-back successor);
// otherwise Endless, whose follow is the conditional-inside-loop with the
// highest ordering whose own follow lies outside the loop.
func (c *CFG) determineLoopType(header, latch *BasicBlock, loopNodes map[*BasicBlock]bool) {
	if header.Kind == TwoWay {
		taken := header.Out[0]
		if loopNodes[taken] {
			header.LoopType = PreTested
			header.LoopFollow = header.Out[1]
			return
		}
	}
	if latch.Kind == TwoWay {
		header.LoopType = PostTested
		for _, s := range latch.Out {
			if !loopNodes[s] {
				header.LoopFollow = s
				return
			}
		}
		header.LoopFollow = latch.Out[1]
		return
	}
	header.LoopType = Endless
	var best *BasicBlock
	for n := range loopNodes {
		if n.Struct == StructLoop || n.Struct == StructLoopCond || (n.Kind != TwoWay && n.Kind != Nway) {
			continue
		}
		if n.ImmPDom != nil && !loopNodes[n.ImmPDom] {
			if best == nil || n.DFSFirst > best.DFSFirst {
				best = n
			}
		}
	}
	if best != nil {
		header.LoopFollow = best.ImmPDom
	}
}

// checkConds rewrites branches that jump into/out of loops or case bodies
// as unstructured conditionals: any out-edge that
// crosses a loop or case-body boundary without being the header's own
// follow/latch edge is marked unstructured so the emitter falls back to a
// goto instead of pretending it is a structured if/while.
func (c *CFG) checkConds() {
	for _, b := range c.blocks {
		if b.Struct != StructCond && b.Struct != StructLoopCond {
			continue
		}
		for _, s := range b.Out {
			if b.LoopHead != nil && s.LoopHead != b.LoopHead && s != b.LoopHead.LoopFollow {
				b.Struct = StructSeq // degrade: emit as goto, not structured
			}
		}
	}
}
