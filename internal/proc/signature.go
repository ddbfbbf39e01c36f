// Package proc implements the procedure and program model: the Library/User procedure split, the
// status chain a user procedure advances through during decompilation,
// and the module tree + name/address indices a Program keeps over its
// procedures.
package proc

import "github.com/boomerang-decompiler/boomerang/internal/types"

// Param is one formal parameter of a Signature.
type Param struct {
	Name string
	Type *types.Type
}

// Signature is a procedure's calling convention: its formal parameters
// and return types, independent of whether a body is known.
type Signature struct {
	Name string
	Params []Param
	Returns []*types.Type

	// Preferred marks a signature recovered from a header/import table
	// rather than inferred; inference must not widen a Preferred
	// signature's parameter count, only its types.
	Preferred bool
}

func NewSignature(name string) *Signature {
	return &Signature{Name: name}
}

func (s *Signature) AddParam(name string, t *types.Type) {
	s.Params = append(s.Params, Param{Name: name, Type: t})
}

func (s *Signature) AddReturn(t *types.Type) {
	s.Returns = append(s.Returns, t)
}

// Clone returns a deep-enough copy for a callee's signature to be
// refined independently of callers still holding the original pointer
// during recursion_group_analysis.
func (s *Signature) Clone() *Signature {
	if s == nil {
		return nil
	}
	c := &Signature{Name: s.Name, Preferred: s.Preferred}
	c.Params = append([]Param(nil), s.Params...)
	c.Returns = append([]*types.Type(nil), s.Returns...)
	return c
}
