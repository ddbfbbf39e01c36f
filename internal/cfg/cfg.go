package cfg

import (
	"sort"

	"github.com/boomerang-decompiler/boomerang/internal/derrors"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// AlreadyExistsError is signalled out of NewBB when a completed BB already
// exists at the target address.
type AlreadyExistsError struct {
	BB *BasicBlock
}

func (e *AlreadyExistsError) Error() string { return "cfg: basic block already exists at " + e.BB.String() }

// CFG is the control-flow graph of one procedure.
type CFG struct {
	byAddr map[uint64]*BasicBlock
	blocks []*BasicBlock // insertion order; sorted by SortByAddress
	entry *BasicBlock
	exit *BasicBlock
	callSites []*stmt.Stmt // every call statement in the CFG, in discovery order
	wellFormed bool
}

func New() *CFG {
	return &CFG{byAddr: map[uint64]*BasicBlock{}}
}

func (c *CFG) NumBBs() int { return len(c.blocks) }

func (c *CFG) Blocks() []*BasicBlock { return c.blocks }

func (c *CFG) EntryBB() *BasicBlock { return c.entry }
func (c *CFG) ExitBB() *BasicBlock { return c.exit }

func (c *CFG) SetEntryBB(b *BasicBlock) { c.entry = b }
func (c *CFG) SetExitBB(b *BasicBlock) { c.exit = b }

func (c *CFG) BBAt(addr uint64) *BasicBlock { return c.byAddr[addr] }

// Label resolves a branch target address to a BasicBlock: if no BB starts
// at addr, record a forward-reference placeholder; if addr falls inside an
// already-decoded BB, split that BB there. Returns the BB addr now labels,
// and curBB, replaced by the new tail piece when curBB itself was split.
func (c *CFG) Label(addr uint64, curBB *BasicBlock) (*BasicBlock, *BasicBlock) {
	if existing, ok := c.byAddr[addr]; ok {
		return existing, curBB
	}
	// Does addr fall inside an already-decoded BB?
	for _, b := range c.blocks {
		if !b.IsComplete() || len(b.RTLs) == 0 {
			continue
		}
		if addr > b.FirstAddr() && addr <= b.LastAddr() {
			tail := c.splitAt(b, addr)
			if curBB == b {
				curBB = tail
			}
			return tail, curBB
		}
	}
	placeholder := &BasicBlock{label: labelFor(addr), Addr: addr, Kind: Incomplete}
	c.byAddr[addr] = placeholder
	c.blocks = append(c.blocks, placeholder)
	return placeholder, curBB
}

// splitAt splits b into two BBs at addr: the first keeps RTLs up to (not
// including) addr, the new tail BB owns the rest and inherits b's out
// edges.
func (c *CFG) splitAt(b *BasicBlock, addr uint64) *BasicBlock {
	idx := -1
	for i, rtl := range b.RTLs {
		if rtl.Addr == addr {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return b // nothing to split, or addr is b's own first RTL
	}
	tail := &BasicBlock{
		label: labelFor(addr), Addr: addr,
		RTLs: b.RTLs[idx:], Kind: b.Kind, Out: b.Out, complete: b.complete,
	}
	for _, succ := range tail.Out {
		replaceIn(succ.In, b, tail)
	}
	b.RTLs = b.RTLs[:idx]
	b.Kind = Fall
	b.Out = []*BasicBlock{tail}
	tail.In = []*BasicBlock{b}
	c.byAddr[addr] = tail
	c.blocks = append(c.blocks, tail)
	return tail
}

func replaceIn(list []*BasicBlock, old, new *BasicBlock) {
	for i, b := range list {
		if b == old {
			list[i] = new
		}
	}
}

// NewBB completes a placeholder at rtls[0]'s address if one exists,
// otherwise creates a fresh BB. If a *complete* BB
// already exists there, it returns an AlreadyExistsError wrapping it. If
// the new range overlaps an existing higher-addressed BB, the new BB is
// truncated at the overlap and falls through to it.
func (c *CFG) NewBB(rtls []*RTL, kind Kind, numOut int) (*BasicBlock, error) {
	if len(rtls) == 0 {
		derrors.Panic("cfg", "NewBB called with no RTLs")
	}
	addr := rtls[0].Addr
	if existing, ok := c.byAddr[addr]; ok && existing.IsComplete() {
		return nil, &AlreadyExistsError{BB: existing}
	}

	b := c.byAddr[addr]
	if b == nil {
		b = &BasicBlock{label: labelFor(addr), Addr: addr}
		c.byAddr[addr] = b
		c.blocks = append(c.blocks, b)
	}
	b.RTLs = rtls
	b.Kind = kind
	b.complete = true

	// Truncate at overlap with a higher BB that starts mid-range.
	last := b.LastAddr()
	for _, other := range c.blocks {
		if other == b || !other.IsComplete() {
			continue
		}
		if other.FirstAddr() > addr && other.FirstAddr() <= last {
			c.truncateAt(b, other.FirstAddr(), other)
			break
		}
	}
	return b, nil
}

func (c *CFG) truncateAt(b *BasicBlock, addr uint64, fallTo *BasicBlock) {
	idx := len(b.RTLs)
	for i, rtl := range b.RTLs {
		if rtl.Addr >= addr {
			idx = i
			break
		}
	}
	b.RTLs = b.RTLs[:idx]
	b.Kind = Fall
	b.Out = []*BasicBlock{fallTo}
	fallTo.In = append(fallTo.In, b)
}

// AddOutEdge links from -> to, maintaining the in-edge on to.
func (c *CFG) AddOutEdge(from, to *BasicBlock) {
	from.Out = append(from.Out, to)
	to.In = append(to.In, from)
}

// AddCall records a call site on the CFG itself (SUPPLEMENTED, see
// original_source/include/cfg.h's callSites set), giving the driver a
// stable, explicitly recorded static-call order.
func (c *CFG) AddCall(call *stmt.Stmt) { c.callSites = append(c.callSites, call) }

func (c *CFG) CallSites() []*stmt.Stmt { return c.callSites }

// SortByAddress orders c.blocks by FirstAddr, the deterministic ordering
// guarantee that must hold after every structural transform.
func (c *CFG) SortByAddress() {
	sort.SliceStable(c.blocks, func(i, j int) bool {
		return c.blocks[i].FirstAddr() < c.blocks[j].FirstAddr()
	})
}

// IsWellFormed checks the CFG's structural invariants: no incomplete BBs, every
// out-edge's destination lists this BB in its in-edges and vice versa, and
// at most one Entry/Exit.
func (c *CFG) IsWellFormed() bool {
	for _, b := range c.blocks {
		if !b.IsComplete() {
			return false
		}
		for _, o := range b.Out {
			if !contains(o.In, b) {
				return false
			}
		}
		for _, i := range b.In {
			if !contains(i.Out, b) {
				return false
			}
		}
	}
	c.wellFormed = true
	return true
}

func contains(list []*BasicBlock, b *BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// Compress folds chains of BBs whose only content is an unconditional
// goto, and merges a BB into its single predecessor when that predecessor
// has exactly one out-edge and this BB has exactly one in-edge
// (mirrors the original decompiler's mergeBBs/joinBB behavior
// "compress() folds chains of BBs whose only content is an unconditional
// goto").
func (c *CFG) Compress() {
	changed := true
	for changed {
		changed = false
		for _, b := range append([]*BasicBlock(nil), c.blocks...) {
			if c.tryFoldGotoChain(b) || c.tryMerge(b) {
				changed = true
			}
		}
	}
	c.SortByAddress()
}

func (c *CFG) tryFoldGotoChain(b *BasicBlock) bool {
	if b.Kind != OneWay && b.Kind != Fall {
		return false
	}
	if len(b.Out) != 1 {
		return false
	}
	for _, rtl := range b.RTLs {
		for _, s := range rtl.Stmts {
			if s.Kind != stmt.KindGoto {
				return false
			}
		}
	}
	target := b.Out[0]
	if target == b {
		return false
	}
	for _, pred := range b.In {
		replaceIn(pred.Out, b, target)
	}
	in := make([]*BasicBlock, 0, len(target.In)+len(b.In))
	for _, x := range target.In {
		if x != b {
			in = append(in, x)
		}
	}
	target.In = append(in, b.In...)
	if c.entry == b {
		c.entry = target
	}
	c.remove(b)
	return true
}

func (c *CFG) tryMerge(b *BasicBlock) bool {
	if len(b.In) != 1 {
		return false
	}
	pred := b.In[0]
	if len(pred.Out) != 1 || pred == b {
		return false
	}
	pred.RTLs = append(pred.RTLs, b.RTLs...)
	pred.Kind = b.Kind
	pred.Out = b.Out
	for _, succ := range pred.Out {
		replaceIn(succ.In, b, pred)
	}
	if c.exit == b {
		c.exit = pred
	}
	c.remove(b)
	return true
}

func (c *CFG) remove(b *BasicBlock) {
	delete(c.byAddr, b.FirstAddr())
	for i, x := range c.blocks {
		if x == b {
			c.blocks = append(c.blocks[:i], c.blocks[i+1:]...)
			break
		}
	}
}

// FindRetNode returns the canonical Return BB, used as the single exit for
// dominator/post-dominator analysis.
func (c *CFG) FindRetNode() *BasicBlock {
	if c.exit != nil {
		return c.exit
	}
	for _, b := range c.blocks {
		if b.Kind == Return {
			c.exit = b
			return b
		}
	}
	return nil
}
