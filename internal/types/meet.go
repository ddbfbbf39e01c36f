package types

// Meet implements the type lattice join used by C7's fixed-point data-flow
// type analysis. It is commutative, associative and
// idempotent; changed reports whether the result differs structurally
// from a, which is how callers detect that another iteration is needed.
//
// useHighestPtr mirrors the policy flag governing the
// signed+unsigned integer case: when true, a signed/unsigned clash resolves
// to the wider of the two inputs kept as-is rather than collapsing to
// Unknown, matching callers that track a pointer-sized accumulator where
// losing signedness would be wrong.
func Meet(a, b *Type, useHighestPtr bool) (result *Type, changed bool) {
	if a == nil {
		return b, b != nil
	}
	if b == nil {
		return a, false
	}
	if Equal(a, b) {
		return a, false
	}
	if a.Kind == KindVoid {
		return b, true
	}
	if b.Kind == KindVoid {
		return a, false
	}

	switch {
	case a.Kind == KindInteger && b.Kind == KindInteger:
		return meetIntInt(a, b, useHighestPtr)
	case a.Kind == KindInteger && b.Kind == KindSize:
		return &Type{Kind: KindInteger, Bits: maxInt(a.Bits, b.Bits), Sign: a.Sign}, true
	case a.Kind == KindSize && b.Kind == KindInteger:
		return &Type{Kind: KindInteger, Bits: maxInt(a.Bits, b.Bits), Sign: b.Sign}, true
	case a.Kind == KindSize && b.Kind == KindSize:
		return &Type{Kind: KindSize, Bits: maxInt(a.Bits, b.Bits)}, a.Bits != maxInt(a.Bits, b.Bits)
	case a.Kind == KindPointer && b.Kind == KindPointer:
		elem, ch := Meet(a.Elem, b.Elem, useHighestPtr)
		return &Type{Kind: KindPointer, Elem: elem}, ch
	case a.Kind == KindArray && b.Kind == KindArray:
		return meetArrayArray(a, b, useHighestPtr)
	case a.Kind == KindCompound && b.Kind == KindCompound:
		return meetCompoundCompound(a, b, useHighestPtr)
	case a.Kind == KindUnion:
		return meetUnionAny(a, b, useHighestPtr)
	case b.Kind == KindUnion:
		return meetUnionAny(b, a, useHighestPtr)
	default:
		// Incompatible kinds produce a Union of the two.
		return &Type{Kind: KindUnion, Fields: []Field{{Type: a}, {Type: b}}}, true
	}
}

func meetIntInt(a, b *Type, useHighestPtr bool) (*Type, bool) {
	bits := maxInt(a.Bits, b.Bits)
	sign := a.Sign
	switch {
	case a.Sign == Unknown:
		sign = b.Sign
	case b.Sign == Unknown:
		sign = a.Sign
	case a.Sign != b.Sign:
		if useHighestPtr {
			if a.Bits >= b.Bits {
				sign = a.Sign
			} else {
				sign = b.Sign
			}
		} else {
			sign = Unknown
		}
	default:
		sign = a.Sign
	}
	result := &Type{Kind: KindInteger, Bits: bits, Sign: sign}
	return result, !Equal(result, a)
}

func meetArrayArray(a, b *Type, useHighestPtr bool) (*Type, bool) {
	elem, elemChanged := Meet(a.Elem, b.Elem, useHighestPtr)
	unbounded := a.Unbounded || b.Unbounded
	length := a.Length
	if unbounded {
		// "one unbounded ⇒ other's length wins"
		if a.Unbounded && !b.Unbounded {
			length = b.Length
		} else if b.Unbounded && !a.Unbounded {
			length = a.Length
		}
	} else {
		length = maxInt(a.Length, b.Length)
	}
	result := &Type{Kind: KindArray, Elem: elem, Length: length, Unbounded: a.Unbounded && b.Unbounded}
	changed := elemChanged || result.Length != a.Length || result.Unbounded != a.Unbounded
	return result, changed
}

func meetCompoundCompound(a, b *Type, useHighestPtr bool) (*Type, bool) {
	byOffset := map[int]Field{}
	order := []int{}
	for _, f := range a.Fields {
		byOffset[f.Offset] = f
		order = append(order, f.Offset)
	}
	changed := false
	for _, f := range b.Fields {
		if existing, ok := byOffset[f.Offset]; ok {
			merged, ch := Meet(existing.Type, f.Type, useHighestPtr)
			if ch {
				changed = true
			}
			name := existing.Name
			if name == "" {
				name = f.Name
			}
			byOffset[f.Offset] = Field{Offset: f.Offset, Type: merged, Name: name}
		} else {
			byOffset[f.Offset] = f
			order = append(order, f.Offset)
			changed = true
		}
	}
	sortInts(order)
	fields := make([]Field, len(order))
	for i, off := range order {
		fields[i] = byOffset[off]
	}
	return &Type{Kind: KindCompound, Fields: fields}, changed
}

// meetUnionAny adds t to union u, or merges t into the member it meets
// without widening.
func meetUnionAny(u, t *Type, useHighestPtr bool) (*Type, bool) {
	if t.Kind == KindUnion {
		result := u
		changed := false
		for _, m := range t.Fields {
			var ch bool
			result, ch = meetUnionAny(result, m.Type, useHighestPtr)
			changed = changed || ch
		}
		return result, changed
	}
	for i, m := range u.Fields {
		if Equal(m.Type, t) {
			return u, false
		}
		merged, ch := Meet(m.Type, t, useHighestPtr)
		if !ch {
			if Equal(merged, m.Type) {
				return u, false
			}
			fields := append([]Field(nil), u.Fields...)
			fields[i] = Field{Type: merged, Name: m.Name}
			return &Type{Kind: KindUnion, Fields: fields}, true
		}
	}
	fields := append(append([]Field(nil), u.Fields...), Field{Type: t})
	return &Type{Kind: KindUnion, Fields: fields}, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
