package cfg

// NumberStatements assigns the stable, dense per-procedure statement
// numbers that stay stable and dense across structural edits,
// walking BBs in address order so renumbering after a structural change is
// deterministic.
func (c *CFG) NumberStatements(start int) int {
	n := start
	c.SortByAddress()
	for _, b := range c.blocks {
		for _, s := range b.Implicits {
			n++
			s.Num = n
			s.BB = b
		}
		for _, s := range b.Phis {
			n++
			s.Num = n
			s.BB = b
		}
		for _, rtl := range b.RTLs {
			for _, s := range rtl.Stmts {
				n++
				s.Num = n
				s.BB = b
			}
		}
	}
	return n
}

// SetTimeStamps runs a depth-first traversal from the entry BB computing
// forward Ordering (DFSFirst/DFSLast) and, from the exit BB over the
// reverse graph, RevDFSFirst/RevDFSLast.
func (c *CFG) SetTimeStamps() {
	clock := 0
	visited := map[*BasicBlock]bool{}
	var dfs func(b *BasicBlock)
	dfs = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		clock++
		b.DFSFirst = clock
		for _, o := range b.Out {
			dfs(o)
		}
		clock++
		b.DFSLast = clock
	}
	if c.entry != nil {
		dfs(c.entry)
	}

	clock = 0
	visited = map[*BasicBlock]bool{}
	var rdfs func(b *BasicBlock)
	rdfs = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		clock++
		b.RevDFSFirst = clock
		for _, i := range b.In {
			rdfs(i)
		}
		clock++
		b.RevDFSLast = clock
	}
	ret := c.FindRetNode()
	if ret != nil {
		rdfs(ret)
	}
}

// Reachable returns every BB reachable from the entry, in breadth-first
// order from the entry (used by passes that must skip dead/incomplete leftovers
// without rebuilding the CFG).
func (c *CFG) Reachable() []*BasicBlock {
	if c.entry == nil {
		return nil
	}
	visited := map[*BasicBlock]bool{c.entry: true}
	queue := []*BasicBlock{c.entry}
	var out []*BasicBlock
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		out = append(out, b)
		for _, o := range b.Out {
			if !visited[o] {
				visited[o] = true
				queue = append(queue, o)
			}
		}
	}
	return out
}
