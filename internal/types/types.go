// Package types implements the type lattice:
// Void, Boolean, Char, Integer, Float, Pointer, Array, Compound, Union,
// Size, FuncType and NamedType, plus the Meet operation used by C7's
// data-flow type analysis.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the tagged sum of type variants.
type Kind int

const (
	KindVoid Kind = iota
	KindBoolean
	KindChar
	KindInteger
	KindFloat
	KindPointer
	KindArray
	KindCompound
	KindUnion
	KindSize
	KindFunc
	KindNamed
)

// Signedness is Integer's sign interpretation.
type Signedness int

const (
	Unknown Signedness = iota
	Signed
	Unsigned
)

// Field is one member of a Compound or Union type.
type Field struct {
	Offset int // bit offset; Compound fields are strictly increasing
	Type *Type
	Name string
}

// Type is an immutable-by-convention node in the type lattice. Exactly the
// fields relevant to Kind are populated; this mirrors the tagged-union
// discipline used for Expr and Stmt.
type Type struct {
	Kind Kind

	// Integer / Size / Float
	Bits int
	Sign Signedness // Integer only

	// Pointer / Array
	Elem *Type

	// Array
	Length int // element count
	Unbounded bool // true ⇒ Length is meaningless

	// Compound / Union
	Fields []Field

	// FuncType
	Ret *Type
	Params []*Type

	// NamedType
	Name string
}

func Void() *Type { return &Type{Kind: KindVoid} }
func Boolean() *Type { return &Type{Kind: KindBoolean} }
func Char() *Type { return &Type{Kind: KindChar} }
func Integer(bits int, sign Signedness) *Type {
	return &Type{Kind: KindInteger, Bits: bits, Sign: sign}
}
func Float(bits int) *Type { return &Type{Kind: KindFloat, Bits: bits} }
func Pointer(to *Type) *Type { return &Type{Kind: KindPointer, Elem: to} }
func Size(bits int) *Type { return &Type{Kind: KindSize, Bits: bits} }

// Array creates an Array type; pass length < 0 for an unbounded array.
func Array(elem *Type, length int) *Type {
	if length < 0 {
		return &Type{Kind: KindArray, Elem: elem, Unbounded: true}
	}
	return &Type{Kind: KindArray, Elem: elem, Length: length}
}

// Compound creates a struct-like type. Fields must be sorted by
// strictly-increasing offset; Compound does not reorder them.
func Compound(fields ...Field) *Type {
	return &Type{Kind: KindCompound, Fields: fields}
}

// Union creates a union type. Duplicate members under structural equality
// are rejected by the invariant, enforced by meetUnionAny during Meet
// rather than here (a literal Union() call trusts its caller, same as the
// original's constructor).
func Union(members ...Field) *Type {
	return &Type{Kind: KindUnion, Fields: members}
}

func FuncType(ret *Type, params ...*Type) *Type {
	return &Type{Kind: KindFunc, Ret: ret, Params: params}
}

// Named returns an unresolved reference by name; it resolves through a
// TypeRegistry (see registry.go).
func Named(name string) *Type { return &Type{Kind: KindNamed, Name: name} }

// Equal is structural equality, resolving named types is the caller's
// responsibility (TypeRegistry.Deresolve resolves a named type first).
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid, KindBoolean, KindChar:
		return true
	case KindInteger:
		return a.Bits == b.Bits && a.Sign == b.Sign
	case KindFloat, KindSize:
		return a.Bits == b.Bits
	case KindPointer:
		return Equal(a.Elem, b.Elem)
	case KindArray:
		if a.Unbounded != b.Unbounded {
			return false
		}
		return (a.Unbounded || a.Length == b.Length) && Equal(a.Elem, b.Elem)
	case KindCompound:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Offset != b.Fields[i].Offset || !Equal(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindUnion:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		// unions are unordered; structural equality needs a multiset match
		used := make([]bool, len(b.Fields))
		for _, fa := range a.Fields {
			found := false
			for i, fb := range b.Fields {
				if !used[i] && Equal(fa.Type, fb.Type) {
					used[i] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case KindFunc:
		if !Equal(a.Ret, b.Ret) || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case KindNamed:
		return a.Name == b.Name
	}
	return false
}

// String renders a Type for debug output (kr/pretty-friendly via
// fmt.Stringer).
func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindBoolean:
		return "bool"
	case KindChar:
		return "char"
	case KindInteger:
		sign := ""
		switch t.Sign {
		case Signed:
			sign = "signed "
		case Unsigned:
			sign = "unsigned "
		}
		return fmt.Sprintf("%sint%d", sign, t.Bits)
	case KindFloat:
		return fmt.Sprintf("float%d", t.Bits)
	case KindSize:
		return fmt.Sprintf("size%d", t.Bits)
	case KindPointer:
		return t.Elem.String() + "*"
	case KindArray:
		if t.Unbounded {
			return t.Elem.String() + "[]"
		}
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Length)
	case KindCompound:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = fmt.Sprintf("%s@%d:%s", f.Name, f.Offset, f.Type)
		}
		return "struct{" + strings.Join(parts, ", ") + "}"
	case KindUnion:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Type.String()
		}
		sort.Strings(parts)
		return "union{" + strings.Join(parts, "|") + "}"
	case KindFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("%s(%s)", t.Ret, strings.Join(parts, ", "))
	case KindNamed:
		return t.Name
	}
	return "<?>"
}
