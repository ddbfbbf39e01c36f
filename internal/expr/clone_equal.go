package expr

import "github.com/boomerang-decompiler/boomerang/internal/types"

// Clone deep-copies e; constants and terminals may share underlying data
// since they are immutable.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	clone := &Expr{
		Op: e.Op,
		Const: e.Const,
		Type: e.Type,
		RegNum: e.RegNum,
		Name: e.Name,
		Def: e.Def,
		WildPattern: e.WildPattern,
	}
	if len(e.Children) > 0 {
		clone.Children = make([]*Expr, len(e.Children))
		for i, c := range e.Children {
			clone.Children[i] = c.Clone()
		}
	}
	return clone
}

// Equal is structural equality. Subscripts compare
// their defining statement by StmtNumber, and treat two nil Defs as equal
// implicit references only when both IsImplicit (or both nil).
func Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Op != b.Op {
		return false
	}
	switch a.Op {
	case OpIntConst:
		return a.Const.Int == b.Const.Int
	case OpFloatConst:
		return a.Const.Float == b.Const.Float
	case OpStrConst:
		return a.Const.Str == b.Const.Str
	case OpAddrConst:
		return a.Const.Addr == b.Const.Addr
	case OpRegOf:
		return a.RegNum == b.RegNum
	case OpParam, OpGlobal, OpLocal, OpTemp:
		return a.Name == b.Name
	case OpTypeVal:
		return types.Equal(a.Type, b.Type)
	case OpTypecast, OpSizeCast:
		if !types.Equal(a.Type, b.Type) {
			return false
		}
	case OpSubscript:
		if !stmtRefEqual(a.Def, b.Def) {
			return false
		}
	case OpWild:
		return true // wildcard is equal to any other wildcard as a pattern node
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func stmtRefEqual(a, b StmtRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.IsImplicit() != b.IsImplicit() {
		return false
	}
	return a.StmtNumber() == b.StmtNumber()
}

// Compare gives a, b a total order: lexicographic on operator tag then on
// children/payload, used to sort flattened commutative operands so that
// structurally-equal trees become byte-identical.
func Compare(a, b *Expr) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a.Op != b.Op {
		if a.Op < b.Op {
			return -1
		}
		return 1
	}
	switch a.Op {
	case OpIntConst:
		return cmpInt64(a.Const.Int, b.Const.Int)
	case OpFloatConst:
		return cmpFloat64(a.Const.Float, b.Const.Float)
	case OpStrConst:
		return cmpString(a.Const.Str, b.Const.Str)
	case OpAddrConst:
		return cmpUint64(a.Const.Addr, b.Const.Addr)
	case OpRegOf:
		return cmpInt(a.RegNum, b.RegNum)
	case OpParam, OpGlobal, OpLocal, OpTemp:
		return cmpString(a.Name, b.Name)
	}
	for i := 0; i < len(a.Children) && i < len(b.Children); i++ {
		if c := Compare(a.Children[i], b.Children[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a.Children), len(b.Children))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
