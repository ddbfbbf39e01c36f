package driver

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/derrors"
	"github.com/boomerang-decompiler/boomerang/internal/dessa"
	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/propagate"
	"github.com/boomerang-decompiler/boomerang/internal/session"
	"github.com/boomerang-decompiler/boomerang/internal/ssa"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
	"github.com/boomerang-decompiler/boomerang/internal/typeanalysis"
)

// Driver walks the call graph, decoding and decompiling each reachable
// procedure. It does not run the whole-program unused-return pass;
// RemoveUnusedReturns is a separate call.
type Driver struct {
	Program *proc.Program
	Decoder Decoder
	Session *session.Session
	SPRegNum int
	Hook Hook

	blacklists map[*proc.UserProc]*ssa.Blacklist
	locals map[*proc.UserProc]*typeanalysis.LocalsTable
}

func New(pr *proc.Program, dec Decoder, sess *session.Session, spRegNum int) *Driver {
	return &Driver{
		Program: pr,
		Decoder: dec,
		Session: sess,
		SPRegNum: spRegNum,
		Hook: NopHook{},
		blacklists: map[*proc.UserProc]*ssa.Blacklist{},
		locals: map[*proc.UserProc]*typeanalysis.LocalsTable{},
	}
}

// path is the current call stack of the depth-first walk; a procedure
// found on path a second time closes a cycle.
type path struct {
	stack []*proc.UserProc
	index map[*proc.UserProc]int
}

func newPath() *path { return &path{index: map[*proc.UserProc]int{}} }

func (p *path) push(up *proc.UserProc) {
	p.index[up] = len(p.stack)
	p.stack = append(p.stack, up)
}

func (p *path) pop() {
	top := p.stack[len(p.stack)-1]
	delete(p.index, top)
	p.stack = p.stack[:len(p.stack)-1]
}

// onPath returns the suffix of the stack from up (inclusive) to the top,
// the set of procedures a rediscovery of up closes into one cycle.
func (p *path) onPath(up *proc.UserProc) ([]*proc.UserProc, bool) {
	i, ok := p.index[up]
	if !ok {
		return nil, false
	}
	return p.stack[i:], true
}

// ancestorsOf returns the portion of the stack from the root up to, but
// not including, up itself: up's active callers on this walk.
func (p *path) ancestorsOf(up *proc.UserProc) []*proc.UserProc {
	i, ok := p.index[up]
	if !ok {
		return nil
	}
	return p.stack[:i]
}

// Decompile is the top-level entry point: it walks entry's call graph
// depth-first, decoding procedures on demand and running their phase
// sequence, until entry and everything it reaches (directly or through
// recursion) has settled at Final. A second sweep then picks up any
// procedure the call graph from entry never reached at all, decompiling
// each from a fresh path until a full sweep makes no further progress.
// Once the session's RequestStop has been called, no further procedure
// is started.
func (d *Driver) Decompile(entry *proc.UserProc) error {
	d.decompile(entry, newPath())

	for {
		progressed := false
		for _, p := range d.Program.UserProcs() {
			if p.IsDecompiled() {
				continue
			}
			d.decompile(p, newPath())
			if p.IsDecompiled() {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return nil
}

// decompile implements the state machine: Undecoded -> Decoded -> Sorted
// -> (cycle check) -> Visited -> initialise/early -> callees ->
// middle -> (cycle?) -> recursion group -> Final.
func (d *Driver) decompile(p *proc.UserProc, pth *path) proc.Set {
	if d.Session != nil && d.Session.StopRequested() {
		return proc.Set{}
	}
	if err := d.ensureDecodedAndSorted(p); err != nil {
		d.Session.Log.WithPass("driver").Warn("giving up on %s: %v", p.ProcName(), err)
		return proc.Set{}
	}

	if closed, found := pth.onPath(p); found {
		grp := proc.NewSet(closed...)
		p.Status = proc.InCycle
		p.CycleGrp = grp
		return grp
	}

	pth.push(p)
	p.Status = proc.Visited
	d.hook().OnPhase(p, "visit")

	d.initialiseDecompile(p)
	d.earlyDecompile(p)

	cycleGrp := proc.Set{}
	for _, callee := range p.Callees {
		child, ok := callee.(*proc.UserProc)
		if !ok {
			continue // library callees have no body to recurse into
		}
		childGrp := d.decompile(child, pth)
		cycleGrp = cycleGrp.Union(childGrp)
	}

	d.hook().OnPhase(p, "middle")
	d.middleDecompile(p)

	if cycleGrp.Contains(p) {
		p.CycleGrp = cycleGrp

		// Whichever member of the cycle has no other member still active
		// above it on the path is the one that closes the loop: every
		// other member defers to it rather than resolving the group
		// itself, or the group would never settle past InCycle.
		leader := true
		for _, anc := range pth.ancestorsOf(p) {
			if cycleGrp.Contains(anc) {
				leader = false
				break
			}
		}
		if !leader {
			p.Status = proc.InCycle
			pth.pop()
			return cycleGrp
		}

		d.hook().OnCycleDetected(cycleGrp)
		d.recursionGroupAnalysis(cycleGrp)
		for member := range cycleGrp {
			d.hook().OnPhase(member, "dessa")
			dessa.FromSSA(member)
			member.Status = proc.Final
			d.hook().OnDecompiled(member)
		}
		pth.pop()
		return proc.Set{}
	}

	d.recursionGroupAnalysis(proc.NewSet(p))
	d.hook().OnPhase(p, "dessa")
	dessa.FromSSA(p)
	p.Status = proc.Final
	d.hook().OnDecompiled(p)
	pth.pop()
	return proc.Set{}
}

// hook returns d.Hook, falling back to a no-op for a Driver built without
// New (e.g. a zero-value Driver{} in a test).
func (d *Driver) hook() Hook {
	if d.Hook == nil {
		return NopHook{}
	}
	return d.Hook
}

func (d *Driver) ensureDecodedAndSorted(p *proc.UserProc) error {
	if p.Status == proc.Undecoded {
		c, err := decodeOrFail(d.Decoder, p.Address(), p.ProcName())
		if err != nil {
			return err
		}
		p.SetCFG(c)
	}
	if p.Status == proc.Decoded {
		if !p.CFG.IsWellFormed() {
			return derrors.New(derrors.IncompleteCfg, p.ProcName(), p.Address(), nil)
		}
		p.CFG.SortByAddress()
		p.Status = proc.Sorted
	}
	return nil
}

// initialiseDecompile makes the CFG well-formed for analysis, numbers
// every statement densely, builds SSA form (dominance frontier, phi
// placement, renaming, implicit-assign materialisation) and resolves
// call destinations to callee procedures.
func (d *Driver) initialiseDecompile(p *proc.UserProc) {
	p.CFG.Compress()
	p.CFG.NumberStatements(0)
	d.blacklists[p] = ssa.Build(p.CFG)
	d.locals[p] = typeanalysis.NewLocalsTable()
	d.resolveCallees(p)
}

// earlyDecompile seeds the procedure's initial parameters from every
// location an implicit assign had to be materialised for at the entry
// block: a use reaching the entry with no local definition is, by
// construction, used-before-defined and hence a candidate parameter.
func (d *Driver) earlyDecompile(p *proc.UserProc) {
	entry := p.CFG.EntryBB()
	if entry == nil {
		return
	}
	for _, imp := range entry.Implicits {
		if imp.Lhs == nil {
			continue
		}
		p.ProcUseCollector.Record(imp.Lhs)
		p.AddParameter(imp)
	}
}

// middleDecompile runs one pass of propagation, type analysis and
// preservation analysis; recursionGroupAnalysis calls this repeatedly
// over a strongly-connected component until it stops changing anything.
func (d *Driver) middleDecompile(p *proc.UserProc) bool {
	bl := d.blacklists[p]
	locals := d.locals[p]
	maxDepth := 3
	maxIter := 20
	if d.Session != nil {
		maxDepth = d.Session.Config.MaxPropagationDepth
		maxIter = d.Session.Config.MaxTypeIterations
	}

	changed := propagate.Run(p.CFG, bl, maxDepth)
	before := localsCount(locals)
	typeanalysis.Run(p.CFG, d.SPRegNum, locals, maxIter)
	if localsCount(locals) != before {
		changed = true
	}
	if d.findPreserveds(p) {
		changed = true
	}
	return changed
}

func localsCount(lt *typeanalysis.LocalsTable) int {
	if lt == nil {
		return 0
	}
	return lt.Len()
}

// findPreserveds marks a return value preserved when it is exactly the
// subscripted reference to its own entry-block implicit assign: the
// procedure reaches its return with that location unchanged.
func (d *Driver) findPreserveds(p *proc.UserProc) bool {
	if p.ReturnStmt == nil {
		return false
	}
	changed := false
	for _, ret := range p.ReturnStmt.RetExprs {
		if ret == nil || ret.Op != expr.OpSubscript {
			continue
		}
		def, ok := ret.Def.(*stmt.Stmt)
		if !ok || def == nil || def.Kind != stmt.KindImplicitAssign {
			continue
		}
		if !expr.Equal(def.Lhs, ret.Children[0]) {
			continue
		}
		if !p.Preserved.Contains(ret.Children[0]) {
			p.Preserved.Add(ret.Children[0])
			changed = true
		}
	}
	if changed {
		kept := p.ReturnStmt.RetExprs[:0:0]
		for _, ret := range p.ReturnStmt.RetExprs {
			if ret == nil || !p.Preserved.Contains(ret.Loc()) {
				kept = append(kept, ret)
			}
		}
		p.ReturnStmt.RetExprs = kept
		if p.ReturnStmt.Modifieds != nil {
			for _, loc := range p.Preserved.Items() {
				p.ReturnStmt.Modifieds.Remove(loc)
			}
		}
	}
	return changed
}

// resolveCallees walks the CFG's call sites, resolving each direct
// callee by address or name against the program index and wiring
// caller/callee bookkeeping both ways.
func (d *Driver) resolveCallees(p *proc.UserProc) {
	for _, call := range p.CFG.CallSites() {
		addr, ok := constAddr(call.CallDest)
		if !ok {
			continue // indirect call, resolved later if at all
		}
		callee, ok := d.Program.FindByAddr(addr)
		if !ok {
			continue
		}
		call.CallProc = callee
		p.AddCallee(callee)
		callee.AddCaller(call)
	}
}

func constAddr(e *expr.Expr) (uint64, bool) {
	if e == nil {
		return 0, false
	}
	switch e.Op {
	case expr.OpAddrConst:
		return e.Const.Addr, true
	case expr.OpIntConst:
		return uint64(e.Const.AsInt64()), true
	}
	return 0, false
}

// recursionGroupAnalysis runs middleDecompile on every member of a
// strongly-connected component until a pass leaves every member
// unchanged, relying on type meet and the locals table both being
// monotone: they only add information, never retract it.
func (d *Driver) recursionGroupAnalysis(group proc.Set) {
	maxPasses := 50
	if d.Session != nil && d.Session.Config.MaxRecursionGroupPasses > 0 {
		maxPasses = d.Session.Config.MaxRecursionGroupPasses
	}
	for pass := 0; pass < maxPasses; pass++ {
		anyChanged := false
		for member := range group {
			if d.middleDecompile(member) {
				anyChanged = true
			}
		}
		if !anyChanged {
			return
		}
	}
	if d.Session != nil {
		d.Session.Log.WithPass("driver").Warn(
			"recursion group analysis hit its %d-pass cap without converging", maxPasses)
	}
}
