package ssa

import (
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
)

// Blacklist accumulates address-escaped locations discovered during
// analysis; CanRename refuses to rename a blacklisted location. Uses
// already renamed before a location is added stay in SSA form.
type Blacklist struct {
	keys map[string]bool
}

func NewBlacklist() *Blacklist { return &Blacklist{keys: map[string]bool{}} }

func (bl *Blacklist) Add(loc *expr.Expr) { bl.keys[stmt.LocKey(loc)] = true }

func (bl *Blacklist) Contains(loc *expr.Expr) bool { return bl.keys[stmt.LocKey(loc)] }

// CanRename implements the C5 rename policy: registers and temporaries may always be renamed.
// Memory-of expressions may be renamed iff their address expression is
// primitive — no unsubscripted memory-of, and no unresolved call-bypass
// candidate (an OpSubscript whose Def is nil, i.e. "loc{-}" still awaiting
// localisation). Address-escaped locations are vetoed via bl.
func CanRename(loc *expr.Expr, bl *Blacklist) bool {
	if loc == nil {
		return false
	}
	if bl != nil && bl.Contains(loc) {
		return false
	}
	switch loc.Op {
	case expr.OpRegOf, expr.OpTemp:
		return true
	case expr.OpMemOf:
		return isPrimitiveAddr(loc.Children[0])
	}
	return false
}

// isPrimitiveAddr reports whether addr contains no bare (unsubscripted)
// memory-of and no unresolved subscript.
func isPrimitiveAddr(addr *expr.Expr) bool {
	if addr == nil {
		return true
	}
	if addr.Op == expr.OpMemOf {
		return false
	}
	if addr.Op == expr.OpSubscript && addr.Def == nil {
		return false
	}
	for _, c := range addr.Children {
		if !isPrimitiveAddr(c) {
			return false
		}
	}
	return true
}
