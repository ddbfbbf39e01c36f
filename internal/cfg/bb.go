// Package cfg implements the control-flow graph: basic blocks, edges, dominators and loop/conditional
// structuring, grounded on original_source/include/cfg.h and
// original_source/db/cfg.cpp.
package cfg

import (
	"fmt"

	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// Kind is a basic block's shape.
type Kind int

const (
	Fall Kind = iota
	OneWay
	TwoWay
	Nway
	Call
	Return
	CompJump
	CompCall
	Invalid
	Incomplete
)

// StructTag is the structuring classification a BB accumulates during
// cfg.Structure.
type StructTag int

const (
	StructNone StructTag = iota
	StructSeq
	StructCond
	StructLoop
	StructLoopCond
)

// LoopType classifies a StructLoop/StructLoopCond header.
type LoopType int

const (
	LoopNone LoopType = iota
	PreTested
	PostTested
	Endless
)

// RTL is one decoded instruction's statement list.
type RTL struct {
	Addr uint64
	Stmts []*stmt.Stmt
}

// BasicBlock is a CFG node. It is exclusively owned by its CFG; cross-BB
// edges are non-owning references into the same CFG's arena.
type BasicBlock struct {
	label string // "bb_<hex addr>", assigned at creation, doubles as BBLabel() for stmt.BBRef
	Addr uint64
	RTLs []*RTL
	Kind Kind

	// Phis holds the PhiAssign statements C5 inserts at the top of this
	// block. They carry no native address, so they
	// live outside the RTL list rather than forcing a synthetic one.
	Phis []*stmt.Stmt

	// Implicits holds the entry block's memoized ImplicitAssign statements
	//, one per distinct location reaching entry unresolved.
	Implicits []*stmt.Stmt

	In []*BasicBlock
	Out []*BasicBlock // for TwoWay: Out[0]=taken, Out[1]=fall

	// Structuring fields.
	Struct StructTag
	LoopType LoopType
	ImmPDom *BasicBlock
	CondFollow *BasicBlock
	CaseHead *BasicBlock
	LoopHead *BasicBlock
	LoopLatch *BasicBlock
	LoopFollow *BasicBlock

	// Reachability time-stamps used by structuring.
	DFSFirst, DFSLast int
	RevDFSFirst, RevDFSLast int

	complete bool
}

// BBLabel implements stmt.BBRef.
func (b *BasicBlock) BBLabel() string { return b.label }

func (b *BasicBlock) String() string { return b.label }

// NumOutEdges is the number of out-edges a complete BB of this Kind must
// have.
func (k Kind) NumOutEdges() int {
	switch k {
	case Fall, OneWay, Call:
		return 1
	case TwoWay:
		return 2
	case Return, Invalid, Incomplete:
		return 0
	case Nway, CompJump, CompCall:
		return -1 // variable, determined by the decoded jump table
	}
	return 0
}

// IsComplete reports whether b has all its out-edges and is not Incomplete.
func (b *BasicBlock) IsComplete() bool { return b.complete && b.Kind != Incomplete }

// FirstAddr is the address of b's first RTL, or b.Addr for an as-yet-empty
// placeholder BB.
func (b *BasicBlock) FirstAddr() uint64 {
	if len(b.RTLs) > 0 {
		return b.RTLs[0].Addr
	}
	return b.Addr
}

// LastAddr is the address of b's last RTL.
func (b *BasicBlock) LastAddr() uint64 {
	if len(b.RTLs) == 0 {
		return b.Addr
	}
	return b.RTLs[len(b.RTLs)-1].Addr
}

// Stmts flattens this block's statements in order — implicits, then phis,
// then each RTL's statements — assigning no numbers (numbering is the
// CFG-level NumberStatements pass, see numbering.go).
func (b *BasicBlock) Stmts() []*stmt.Stmt {
	out := append([]*stmt.Stmt(nil), b.Implicits...)
	out = append(out, b.Phis...)
	for _, rtl := range b.RTLs {
		out = append(out, rtl.Stmts...)
	}
	return out
}

func labelFor(addr uint64) string { return fmt.Sprintf("bb_%x", addr) }
