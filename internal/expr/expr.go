// Package expr implements the expression algebra: a tagged tree of operators, locations, constants and
// subscripted references, with cloning, equality, search/replace and
// simplification.
//
// A virtual-dispatch class hierarchy is re-expressed here as a single
// tagged sum type (Expr) with per-variant data, plus an explicit visitor
// pair for traversal.
package expr

import (
	"fmt"

	"github.com/boomerang-decompiler/boomerang/internal/types"
)

// Op is the closed set of operator tags an Expr can carry.
type Op int

const (
	// Constants
	OpIntConst Op = iota
	OpFloatConst
	OpStrConst
	OpAddrConst

	// Locations
	OpRegOf
	OpMemOf
	OpParam
	OpGlobal
	OpLocal
	OpTemp
	OpFlags
	OpPC

	// Unary
	OpNeg
	OpBitNot
	OpLogNot
	OpAddrOf
	OpTypecast
	OpSizeCast
	OpMachineFunc

	// Binary arithmetic/bitwise/shift
	OpPlus
	OpMinus
	OpMult
	OpMultU
	OpDiv
	OpDivU
	OpMod
	OpModU
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShiftL
	OpShiftR
	OpShiftRA

	// Binary comparison
	OpEquals
	OpNotEqual
	OpLess
	OpLessU
	OpLessEq
	OpLessEqU
	OpGreater
	OpGreaterU
	OpGreaterEq
	OpGreaterEqU

	// Binary logical / list
	OpAnd
	OpOr
	OpListCons

	// Ternary
	OpTernaryCond
	OpBitField // extract(lo, hi, expr)
	OpFSize // float-size conversion(fromSize, toSize, expr)

	// Subscripted reference loc{defStmt}
	OpSubscript

	// Type-value wrapper
	OpTypeVal

	// Terminals
	OpTrue
	OpFalse
	OpWild // wildcard matcher, SSL pattern library only
)

// arity is used by invariant checks.
func (op Op) arity() int {
	switch op {
	case OpIntConst, OpFloatConst, OpStrConst, OpAddrConst, OpTrue, OpFalse, OpPC, OpFlags, OpWild,
		OpRegOf, OpParam, OpGlobal, OpLocal, OpTemp, OpTypeVal:
		return 0
	case OpMemOf, OpNeg, OpBitNot, OpLogNot, OpAddrOf, OpMachineFunc, OpSubscript,
		OpTypecast, OpSizeCast:
		return 1
	case OpPlus, OpMinus, OpMult, OpMultU, OpDiv, OpDivU, OpMod, OpModU,
		OpBitAnd, OpBitOr, OpBitXor, OpShiftL, OpShiftR, OpShiftRA,
		OpEquals, OpNotEqual, OpLess, OpLessU, OpLessEq, OpLessEqU,
		OpGreater, OpGreaterU, OpGreaterEq, OpGreaterEqU,
		OpAnd, OpOr, OpListCons:
		return 2
	case OpTernaryCond, OpBitField, OpFSize:
		return 3
	}
	return -1
}

func (op Op) commutative() bool {
	switch op {
	case OpPlus, OpMult, OpMultU, OpBitAnd, OpBitOr, OpBitXor, OpEquals, OpNotEqual, OpAnd, OpOr:
		return true
	}
	return false
}

// Const is the small tagged union of constant payloads.
type Const struct {
	Int int64
	Float float64
	Str string
	Addr uint64
}

// Expr is the tagged-sum expression node. Exactly the fields relevant to
// Op are populated. Expr trees are shared by value semantics through
// ordinary Go pointer sharing; the convention is that
// no tree is mutated through an alias — every transform that would modify
// a node instead returns a new one.
type Expr struct {
	Op Op
	Children []*Expr // length == Op.arity(), left to right

	Const Const // valid for OpIntConst/OpFloatConst/OpStrConst/OpAddrConst
	Type *types.Type // valid for OpTypeVal, and as a cast target for OpTypecast/OpSizeCast

	// Location-identifying payload: register number, temp/local/global
	// name, parameter index+name as applicable.
	RegNum int
	Name string

	// OpSubscript: the defining statement, held through the StmtRef
	// interface to avoid an import cycle with stmt; *stmt.Stmt
	// implements StmtRef.
	Def StmtRef

	// OpWild: an optional sub-pattern; nil means "match anything".
	WildPattern *Expr
}

// StmtRef is an opaque, comparable handle to the statement that defines a
// subscripted reference. The stmt
// package implements this interface over *stmt.Stmt so expr does not need
// to import stmt (which itself needs to import expr for operands).
type StmtRef interface {
	// StmtNumber returns the stable per-procedure statement number, or 0
	// for a nil/implicit reference.
	StmtNumber() int
	// IsImplicit reports whether this ref is an ImplicitAssign, i.e. the
	// subscripted value is "live on entry" rather than defined in-body.
	IsImplicit() bool
}

func newLeaf(op Op) *Expr { return &Expr{Op: op} }

func IntConst(v int64) *Expr { return &Expr{Op: OpIntConst, Const: Const{Int: v}} }
func FloatConst(v float64) *Expr { return &Expr{Op: OpFloatConst, Const: Const{Float: v}} }
func StrConst(v string) *Expr { return &Expr{Op: OpStrConst, Const: Const{Str: v}} }
func AddrConst(v uint64) *Expr { return &Expr{Op: OpAddrConst, Const: Const{Addr: v}} }
func True() *Expr { return newLeaf(OpTrue) }
func False() *Expr { return newLeaf(OpFalse) }
func PC() *Expr { return newLeaf(OpPC) }
func Flags() *Expr { return newLeaf(OpFlags) }
func Wild(pattern *Expr) *Expr { return &Expr{Op: OpWild, WildPattern: pattern} }

func RegOf(n int) *Expr { return &Expr{Op: OpRegOf, RegNum: n} }
func MemOf(addr *Expr) *Expr { return &Expr{Op: OpMemOf, Children: []*Expr{addr}} }
func Param(name string) *Expr { return &Expr{Op: OpParam, Name: name} }
func Global(name string) *Expr { return &Expr{Op: OpGlobal, Name: name} }
func Local(name string) *Expr { return &Expr{Op: OpLocal, Name: name} }
func Temp(name string) *Expr { return &Expr{Op: OpTemp, Name: name} }

func Unary(op Op, child *Expr) *Expr { return &Expr{Op: op, Children: []*Expr{child}} }
func Binary(op Op, a, b *Expr) *Expr { return &Expr{Op: op, Children: []*Expr{a, b}} }
func Ternary(op Op, a, b, c *Expr) *Expr {
	return &Expr{Op: op, Children: []*Expr{a, b, c}}
}

func TypeVal(t *types.Type) *Expr { return &Expr{Op: OpTypeVal, Type: t} }

func Typecast(t *types.Type, child *Expr) *Expr {
	return &Expr{Op: OpTypecast, Type: t, Children: []*Expr{child}}
}

// Subscript builds loc{def}. def == nil means loc{-} (unresolved, to become an
// ImplicitAssign at the entry block).
func Subscript(loc *Expr, def StmtRef) *Expr {
	return &Expr{Op: OpSubscript, Children: []*Expr{loc}, Def: def}
}

// Loc returns the location under a subscript, or e itself if e is not a
// subscript.
func (e *Expr) Loc() *Expr {
	if e.Op == OpSubscript {
		return e.Children[0]
	}
	return e
}

// IsLocation reports whether e is one of the machine-location operators.
func (e *Expr) IsLocation() bool {
	switch e.Op {
	case OpRegOf, OpMemOf, OpParam, OpGlobal, OpLocal, OpTemp, OpFlags, OpPC:
		return true
	}
	return false
}

// IsConst reports whether e is a constant leaf.
func (e *Expr) IsConst() bool {
	switch e.Op {
	case OpIntConst, OpFloatConst, OpStrConst, OpAddrConst:
		return true
	}
	return false
}

// checkArity panics with an InvariantViolation-shaped message if e's child
// count does not match its operator.
func (e *Expr) checkArity() {
	want := e.Op.arity()
	if want >= 0 && len(e.Children) != want {
		panic(fmt.Sprintf("expr: operator %v expects %d children, got %d", e.Op, want, len(e.Children)))
	}
}

// AsInt64 returns the constant's value interpreted as int64, used by
// simplify's constant folding.
func (c Const) AsInt64() int64 {
	return c.Int
}
