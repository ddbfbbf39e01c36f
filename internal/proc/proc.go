package proc

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
	"github.com/boomerang-decompiler/boomerang/internal/types"
)

// Status is the state chain a UserProc advances through during
// decompile(): Undecoded → Decoded → Sorted → Visited → InCycle →
// Preserveds → EarlyDone → Final → CodeGenerated. The chain is monotone
// except for the Visited/InCycle pair, which a procedure may revisit on
// every cycle it's rediscovered inside until its SCC resolves.
type Status int

const (
	Undecoded Status = iota
	Decoded
	Sorted
	Visited
	InCycle
	Preserveds
	EarlyDone
	Final
	CodeGenerated
)

func (s Status) String() string {
	switch s {
	case Undecoded:
		return "Undecoded"
	case Decoded:
		return "Decoded"
	case Sorted:
		return "Sorted"
	case Visited:
		return "Visited"
	case InCycle:
		return "InCycle"
	case Preserveds:
		return "Preserveds"
	case EarlyDone:
		return "EarlyDone"
	case Final:
		return "Final"
	case CodeGenerated:
		return "CodeGenerated"
	}
	return "Status(?)"
}

// SymbolMap records, per machine location, the symbolic name assigned
// to it after De-SSA: e.g. r28 -> local5. It is a multimap because one
// location can carry several default names differentiated by type.
type SymbolMap struct {
	entries []SymbolEntry
}

type SymbolEntry struct {
	From *expr.Expr
	To *expr.Expr
}

func (m *SymbolMap) Add(from, to *expr.Expr) {
	m.entries = append(m.entries, SymbolEntry{From: from, To: to})
}

func (m *SymbolMap) Lookup(from *expr.Expr) (*expr.Expr, bool) {
	for _, e := range m.entries {
		if expr.Equal(e.From, from) {
			return e.To, true
		}
	}
	return nil, false
}

func (m *SymbolMap) Entries() []SymbolEntry { return m.entries }

// Procedure is the common interface of LibProc and UserProc.
// stmt.ProcRef is satisfied by any Procedure through ProcName, so a
// *stmt.Stmt can carry a non-owning back-reference to its enclosing
// procedure without stmt importing proc.
type Procedure interface {
	ProcName() string
	Address() uint64
	Signature() *Signature
	IsLibrary() bool
	Callers() []*stmt.Stmt
	AddCaller(call *stmt.Stmt)
}

// base holds the fields common to both variants: name, native address,
// signature, parent module, caller set.
type base struct {
	name string
	addr uint64
	sig *Signature
	parent *Module
	callers []*stmt.Stmt
	firstCall *stmt.Stmt // first discovered caller, fixed once set
}

func (b *base) ProcName() string { return b.name }
func (b *base) Address() uint64 { return b.addr }
func (b *base) Signature() *Signature { return b.sig }
func (b *base) Parent() *Module { return b.parent }
func (b *base) Callers() []*stmt.Stmt { return b.callers }

func (b *base) AddCaller(call *stmt.Stmt) {
	for _, c := range b.callers {
		if c == call {
			return
		}
	}
	b.callers = append(b.callers, call)
	if b.firstCall == nil {
		b.firstCall = call
	}
}

// LibProc is a procedure with a known signature and no recovered body.
type LibProc struct {
	base
	NoReturn bool
}

func NewLibProc(name string, addr uint64, sig *Signature) *LibProc {
	return &LibProc{base: base{name: name, addr: addr, sig: sig}}
}

func (p *LibProc) IsLibrary() bool { return true }

// Set is a set of UserProcs, used for strongly-connected "cycle group"
// membership during interprocedural analysis.
type Set map[*UserProc]bool

func NewSet(procs ...*UserProc) Set {
	s := make(Set, len(procs))
	for _, p := range procs {
		s[p] = true
	}
	return s
}

// Union returns a new set holding the members of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for p := range s {
		out[p] = true
	}
	for p := range other {
		out[p] = true
	}
	return out
}

func (s Set) Contains(p *UserProc) bool { return s[p] }

// UserProc is a decompiled procedure: it owns a CFG, a signature, a
// symbol map, a locals table, a parameter list, the return statement,
// a callee list, a caller set, and a status.
type UserProc struct {
	base

	CFG *cfg.CFG
	Status Status

	// Symbols/locals (§3 "a symbol map, a locals table"): filled in by
	// dessa's phi-unite pass, kept here because they are
	// procedure-lifetime state, not pass-local.
	Symbols SymbolMap
	Locals map[string]*types.Type // local name -> type, for dump/debug output

	Parameters []*stmt.Stmt // each a formal, an Assign-shaped definition
	ReturnStmt *stmt.Stmt // the procedure's single ReturnStatement, if any

	Callees []Procedure

	// ProcUseCollector records locations used before defined anywhere
	// in the body; this is the initial-parameter evidence the driver's
	// early_decompile phase seeds parameters from.
	ProcUseCollector *stmt.UseCollector

	// CycleGrp is set once this proc is found to be a member of a
	// strongly-connected component, and stays set after the component
	// settles at Final.
	CycleGrp Set

	AddressEscaped *stmt.LocationSet

	// Preserved holds the locations findPreserveds has shown unchanged
	// across a call to this procedure (e.g. a frame pointer restored
	// before return). Preserved locations are excluded from the
	// procedure's recovered return set.
	Preserved *stmt.LocationSet
}

func NewUserProc(name string, addr uint64, sig *Signature) *UserProc {
	return &UserProc{
		base: base{name: name, addr: addr, sig: sig},
		CFG: cfg.New(),
		Status: Undecoded,
		ProcUseCollector: stmt.NewUseCollector(),
		AddressEscaped: stmt.NewLocationSet(),
		Preserved: stmt.NewLocationSet(),
		Locals: map[string]*types.Type{},
	}
}

func (p *UserProc) IsLibrary() bool { return false }

func (p *UserProc) SetCFG(c *cfg.CFG) {
	p.CFG = c
	if p.Status < Decoded {
		p.Status = Decoded
	}
}

func (p *UserProc) IsDecoded() bool { return p.Status >= Decoded }
func (p *UserProc) IsSorted() bool { return p.Status >= Sorted }
func (p *UserProc) IsDecompiled() bool { return p.Status >= Final }

// IsEarlyRecursive reports whether p is still an unresolved member of a
// cycle: cycleGrp set and status not yet past InCycle.
func (p *UserProc) IsEarlyRecursive() bool {
	return p.CycleGrp != nil && p.Status <= InCycle
}

func (p *UserProc) DoesRecurseTo(other *UserProc) bool {
	return p.CycleGrp != nil && p.CycleGrp.Contains(other)
}

func (p *UserProc) AddCallee(c Procedure) {
	for _, existing := range p.Callees {
		if existing == c {
			return
		}
	}
	p.Callees = append(p.Callees, c)
}

// AddParameter appends a formal parameter definition; duplicates by
// location are the caller's responsibility to avoid, matching the
// original's bare list.
func (p *UserProc) AddParameter(s *stmt.Stmt) {
	p.Parameters = append(p.Parameters, s)
}
