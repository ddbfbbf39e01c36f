package expr

import "sort"

// Simplify canonicalises e: constant-folds, normalises `x-K`
// to `x+(-K)` (at every nesting level, since each child is simplified
// by the same rules first), flattens nested commutative
// associative operators into a sorted form, eliminates identities,
// propagates NOT through comparisons, reduces `(x<<c1)<<c2`, and collapses
// `addrOf(memOf e)` / `memOf(addrOf e)`. It never loses information and is
// idempotent.
func (e *Expr) Simplify() *Expr {
	if e == nil {
		return nil
	}
	simplified := simplifyChildren(e)
	for {
		next := simplifyOnce(simplified)
		if Equal(next, simplified) {
			return next
		}
		simplified = next
	}
}

func simplifyChildren(e *Expr) *Expr {
	if len(e.Children) == 0 {
		return e
	}
	children := make([]*Expr, len(e.Children))
	for i, c := range e.Children {
		children[i] = c.Simplify()
	}
	return &Expr{
		Op: e.Op, Const: e.Const, Type: e.Type, RegNum: e.RegNum,
		Name: e.Name, Def: e.Def, WildPattern: e.WildPattern, Children: children,
	}
}

func simplifyOnce(e *Expr) *Expr {
	switch e.Op {
	case OpMinus:
		// x-x == 0 regardless of whether x is constant (scenario S3:
		// `(r25+r26)-(r25+r26)` must fold to 0).
		if Equal(e.Children[0], e.Children[1]) {
			return IntConst(0)
		}
		// normalise x-K to x+(-K); this applies at every nesting level.
		if e.Children[1].Op == OpIntConst {
			return Binary(OpPlus, e.Children[0], IntConst(-e.Children[1].Const.Int)).normalizeAdd()
		}
		return e
	case OpPlus:
		return e.normalizeAdd()
	case OpMult, OpMultU, OpBitAnd, OpBitOr, OpBitXor:
		return e.normalizeCommutative()
	case OpNeg:
		if e.Children[0].Op == OpIntConst {
			return IntConst(-e.Children[0].Const.Int)
		}
		if e.Children[0].Op == OpNeg {
			return e.Children[0].Children[0]
		}
		return e
	case OpBitNot:
		if e.Children[0].Op == OpIntConst {
			return IntConst(^e.Children[0].Const.Int)
		}
		return e
	case OpLogNot:
		return simplifyLogNot(e)
	case OpAddrOf:
		if e.Children[0].Op == OpMemOf {
			return e.Children[0].Children[0]
		}
		return e
	case OpMemOf:
		if e.Children[0].Op == OpAddrOf {
			return e.Children[0].Children[0]
		}
		return e
	case OpShiftL:
		if e.Children[0].Op == OpShiftL && e.Children[1].IsConst() && e.Children[0].Children[1].IsConst() {
			c1 := e.Children[0].Children[1].Const.Int
			c2 := e.Children[1].Const.Int
			return Binary(OpShiftL, e.Children[0].Children[0], IntConst(c1+c2))
		}
		return foldIntBinary(e)
	case OpShiftR, OpShiftRA, OpDiv, OpDivU, OpMod, OpModU:
		return foldIntBinary(e)
	case OpEquals, OpNotEqual, OpLess, OpLessU, OpLessEq, OpLessEqU,
		OpGreater, OpGreaterU, OpGreaterEq, OpGreaterEqU, OpAnd, OpOr:
		if folded := foldIntBinary(e); folded != e {
			return folded
		}
		return e
	}
	return e
}

// normalizeAdd flattens nested `+`, constant-folds, sorts non-constant
// terms for canonical equality, and eliminates the `x+0` identity.
func (e *Expr) normalizeAdd() *Expr {
	terms := flattenAdd(e)
	var constSum int64
	var rest []*Expr
	for _, t := range terms {
		if t.Op == OpIntConst {
			constSum += t.Const.Int
		} else {
			rest = append(rest, t)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return Compare(rest[i], rest[j]) < 0 })
	if len(rest) == 0 {
		return IntConst(constSum)
	}
	result := rest[0]
	for _, t := range rest[1:] {
		result = Binary(OpPlus, result, t)
	}
	if constSum != 0 {
		result = Binary(OpPlus, result, IntConst(constSum))
	}
	return result
}

func flattenAdd(e *Expr) []*Expr {
	if e.Op == OpPlus {
		return append(flattenAdd(e.Children[0]), flattenAdd(e.Children[1])...)
	}
	return []*Expr{e}
}

// normalizeCommutative flattens/sorts any other commutative+associative
// operator (mult, bitwise and/or/xor) and constant-folds.
func (e *Expr) normalizeCommutative() *Expr {
	terms := flattenOp(e, e.Op)
	sort.SliceStable(terms, func(i, j int) bool { return Compare(terms[i], terms[j]) < 0 })

	// constant-fold all constant operands together
	var consts []*Expr
	var rest []*Expr
	for _, t := range terms {
		if t.Op == OpIntConst {
			consts = append(consts, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(consts) > 1 {
		acc := consts[0].Const.Int
		for _, c := range consts[1:] {
			acc = applyIntOp(e.Op, acc, c.Const.Int)
		}
		consts = []*Expr{IntConst(acc)}
	}

	switch e.Op {
	case OpMult, OpMultU:
		if len(consts) == 1 {
			switch consts[0].Const.Int {
			case 0:
				return IntConst(0)
			case 1:
				consts = nil
			}
		}
	case OpBitAnd:
		if len(consts) == 1 && consts[0].Const.Int == 0 {
			return IntConst(0)
		}
		if len(consts) == 1 && consts[0].Const.Int == -1 {
			consts = nil
		}
	case OpBitOr:
		if len(consts) == 1 && consts[0].Const.Int == -1 {
			return IntConst(-1)
		}
		if len(consts) == 1 && consts[0].Const.Int == 0 {
			consts = nil
		}
	case OpBitXor:
		if len(consts) == 1 && consts[0].Const.Int == 0 {
			consts = nil
		}
	}

	all := append(rest, consts...)
	sort.SliceStable(all, func(i, j int) bool { return Compare(all[i], all[j]) < 0 })
	if len(all) == 0 {
		return identityFor(e.Op)
	}
	// x OP x == x for idempotent bitwise and/or.
	if (e.Op == OpBitAnd || e.Op == OpBitOr) && len(all) >= 2 {
		all = dedupAdjacentEqual(all)
	}
	// Self-subtraction such as `(a+b)-(a+b)` never reaches here:
	// simplifyOnce folds it to 0 in its OpMinus case.
	result := all[0]
	for _, t := range all[1:] {
		result = Binary(e.Op, result, t)
	}
	return result
}

func dedupAdjacentEqual(all []*Expr) []*Expr {
	out := all[:1]
	for _, e := range all[1:] {
		if !Equal(e, out[len(out)-1]) {
			out = append(out, e)
		}
	}
	return out
}

func flattenOp(e *Expr, op Op) []*Expr {
	if e.Op == op {
		return append(flattenOp(e.Children[0], op), flattenOp(e.Children[1], op)...)
	}
	return []*Expr{e}
}

func identityFor(op Op) *Expr {
	switch op {
	case OpMult, OpMultU:
		return IntConst(1)
	case OpBitAnd:
		return IntConst(-1)
	default:
		return IntConst(0)
	}
}

func applyIntOp(op Op, a, b int64) int64 {
	switch op {
	case OpPlus:
		return a + b
	case OpMult, OpMultU:
		return a * b
	case OpBitAnd:
		return a & b
	case OpBitOr:
		return a | b
	case OpBitXor:
		return a ^ b
	}
	return 0
}

// foldIntBinary constant-folds a binary op whose both operands are
// int constants; any other operands are returned unchanged.
func foldIntBinary(e *Expr) *Expr {
	if len(e.Children) != 2 {
		return e
	}
	a, b := e.Children[0], e.Children[1]
	if a.Op == OpIntConst && b.Op == OpIntConst {
		x, y := a.Const.Int, b.Const.Int
		switch e.Op {
		case OpDiv, OpDivU:
			if y != 0 {
				return IntConst(x / y)
			}
		case OpMod, OpModU:
			if y != 0 {
				return IntConst(x % y)
			}
		case OpShiftL:
			return IntConst(x << uint(y))
		case OpShiftR, OpShiftRA:
			return IntConst(x >> uint(y))
		case OpEquals:
			return boolExpr(x == y)
		case OpNotEqual:
			return boolExpr(x != y)
		case OpLess, OpLessU:
			return boolExpr(x < y)
		case OpLessEq, OpLessEqU:
			return boolExpr(x <= y)
		case OpGreater, OpGreaterU:
			return boolExpr(x > y)
		case OpGreaterEq, OpGreaterEqU:
			return boolExpr(x >= y)
		case OpAnd:
			return boolExpr(x != 0 && y != 0)
		case OpOr:
			return boolExpr(x != 0 || y != 0)
		}
	}
	return e
}

func boolExpr(b bool) *Expr {
	if b {
		return True()
	}
	return False()
}

// simplifyLogNot propagates NOT through comparisons.
func simplifyLogNot(e *Expr) *Expr {
	inner := e.Children[0]
	negated := map[Op]Op{
		OpEquals: OpNotEqual, OpNotEqual: OpEquals,
		OpLess: OpGreaterEq, OpGreaterEq: OpLess,
		OpLessU: OpGreaterEqU, OpGreaterEqU: OpLessU,
		OpLessEq: OpGreater, OpGreater: OpLessEq,
		OpLessEqU: OpGreaterU, OpGreaterU: OpLessEqU,
	}
	if newOp, ok := negated[inner.Op]; ok {
		return Binary(newOp, inner.Children[0], inner.Children[1])
	}
	if inner.Op == OpTrue {
		return False()
	}
	if inner.Op == OpFalse {
		return True()
	}
	if inner.Op == OpLogNot {
		return inner.Children[0]
	}
	return e
}
