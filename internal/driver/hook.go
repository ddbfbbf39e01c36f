package driver

import "github.com/boomerang-decompiler/boomerang/internal/proc"

// Hook observes the decompile walk's phase transitions. It mirrors the
// VM's instruction-level debug-hook pattern, but at procedure rather than
// instruction granularity: OnPhase fires as a procedure enters each named
// stage of its own decompile sequence. The driver does not act on
// OnPhase's return value: an interactive hook pauses the walk by blocking
// inside the call until it is resumed (a broadcasting hook never needs to).
type Hook interface {
	// OnPhase fires when p enters phase ("visit", "middle", "dessa").
	// The driver ignores the result; a false return only makes a
	// MultiHook skip the hooks after this one.
	OnPhase(p *proc.UserProc, phase string) bool
	// OnCycleDetected fires once, when a strongly-connected component's
	// leader is chosen and about to run recursionGroupAnalysis over it.
	OnCycleDetected(group proc.Set)
	// OnDecompiled fires once p reaches proc.Final.
	OnDecompiled(p *proc.UserProc)
}

// NopHook is the zero-cost default: every phase proceeds immediately and
// nothing is recorded.
type NopHook struct{}

func (NopHook) OnPhase(*proc.UserProc, string) bool { return true }
func (NopHook) OnCycleDetected(proc.Set) {}
func (NopHook) OnDecompiled(*proc.UserProc) {}

// MultiHook fans every call out to a fixed list of hooks in order. Its
// OnPhase stops at the first hook that returns false, without calling the
// remaining hooks, and returns false.
type MultiHook []Hook

func (m MultiHook) OnPhase(p *proc.UserProc, phase string) bool {
	for _, h := range m {
		if !h.OnPhase(p, phase) {
			return false
		}
	}
	return true
}

func (m MultiHook) OnCycleDetected(group proc.Set) {
	for _, h := range m {
		h.OnCycleDetected(group)
	}
}

func (m MultiHook) OnDecompiled(p *proc.UserProc) {
	for _, h := range m {
		h.OnDecompiled(p)
	}
}
