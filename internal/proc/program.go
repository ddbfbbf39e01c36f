package proc

import "github.com/boomerang-decompiler/boomerang/internal/types"

// Module is a named cluster of procedures, arranged in a tree (e.g.
// mirroring object/section structure in the loaded binary).
type Module struct {
	Name string
	Parent *Module
	Children []*Module
	Procs []Procedure
}

func NewModule(name string, parent *Module) *Module {
	m := &Module{Name: name, Parent: parent}
	if parent != nil {
		parent.Children = append(parent.Children, m)
	}
	return m
}

func (m *Module) AddProc(p Procedure) {
	m.Procs = append(m.Procs, p)
	switch pp := p.(type) {
	case *LibProc:
		pp.parent = m
	case *UserProc:
		pp.parent = m
	}
}

// Global is one entry in the Program's global-variable table: an
// (address, type, name) triple.
type Global struct {
	Addr uint64
	Type *types.Type
	Name string
}

// Program owns the module tree, the name/address procedure indices, the
// global table and a read-only view of the loaded image.
type Program struct {
	Root *Module

	byName map[string]Procedure
	byAddr map[uint64]Procedure
	deleted map[uint64]bool // addresses marked "deleted, do not redecode"

	Globals []Global
	Image Image
}

// Image is the read-only view of the loaded binary a Program consults
// to resolve string literals, jump tables and global initial values.
// Implementations backing a real loader (ELF/PE/Mach-O) live outside
// this package; tests and the CLI's smoke fixtures use a flat byte
// slice under this same interface.
type Image interface {
	ReadAt(addr uint64, buf []byte) (int, error)
	Contains(addr uint64) bool
}

func NewProgram() *Program {
	root := &Module{Name: "root"}
	return &Program{
		Root: root,
		byName: map[string]Procedure{},
		byAddr: map[uint64]Procedure{},
		deleted: map[uint64]bool{},
	}
}

// AddProcedure registers p under its name and address, in addition to
// the module tree's own bookkeeping.
func (pr *Program) AddProcedure(m *Module, p Procedure) {
	if m == nil {
		m = pr.Root
	}
	m.AddProc(p)
	pr.byName[p.ProcName()] = p
	pr.byAddr[p.Address()] = p
}

func (pr *Program) FindByName(name string) (Procedure, bool) {
	p, ok := pr.byName[name]
	return p, ok
}

func (pr *Program) FindByAddr(addr uint64) (Procedure, bool) {
	p, ok := pr.byAddr[addr]
	return p, ok
}

// MarkDeleted removes addr from the address index and records that it
// must never be redecoded.
func (pr *Program) MarkDeleted(addr uint64) {
	delete(pr.byAddr, addr)
	pr.deleted[addr] = true
}

func (pr *Program) IsDeleted(addr uint64) bool { return pr.deleted[addr] }

// UserProcs returns every UserProc registered in the program, in
// name-index iteration order (non-deterministic; callers that need a
// stable order sort the result themselves, e.g. internal/build sorts by
// address).
func (pr *Program) UserProcs() []*UserProc {
	var out []*UserProc
	for _, p := range pr.byName {
		if up, ok := p.(*UserProc); ok {
			out = append(out, up)
		}
	}
	return out
}

func (pr *Program) AddGlobal(addr uint64, t *types.Type, name string) {
	pr.Globals = append(pr.Globals, Global{Addr: addr, Type: t, Name: name})
}

// FindGlobal returns the global whose address equals addr, if any; an
// address inside an array or compound global does not match it.
func (pr *Program) FindGlobal(addr uint64) (Global, bool) {
	for _, g := range pr.Globals {
		if g.Addr == addr {
			return g, true
		}
	}
	return Global{}, false
}
