// internal/debugger/vm_hook.go
package debugger

import (
	"fmt"
	"strings"

	"github.com/boomerang-decompiler/boomerang/internal/proc"
)

// ProcHook implements driver.Hook for the console: the decompiler-domain
// analog of VMDebugHook, which implemented the VM's per-instruction
// DebugHook interface over the same Debugger console. Here the callback
// granularity is a procedure entering a named decompile phase instead of
// a single VM instruction.
type ProcHook struct {
	debugger *Debugger
	stepping bool
}

// NewProcHook creates a hook that drives debugger's console loop from
// the driver's phase callbacks.
func NewProcHook(debugger *Debugger) *ProcHook {
	return &ProcHook{
		debugger: debugger,
		stepping: false,
	}
}

// OnPhase is called before the driver runs phase's work on p.
func (h *ProcHook) OnPhase(p *proc.UserProc, phase string) bool {
	h.recordStep(p, phase)

	if h.debugger.matches(p, phase) {
		h.debugger.ShowCurrentLocation(p, phase)
		h.debugger.RunDebugger()
		return h.debugger.GetState() == Running
	}

	switch h.debugger.GetState() {
	case StepPhase:
		h.debugger.ShowCurrentLocation(p, phase)
		h.debugger.SetState(Paused)
		h.debugger.RunDebugger()
		return h.debugger.GetState() == Running

	case StepProc:
		if h.shouldStepProc(phase) {
			h.debugger.ShowCurrentLocation(p, phase)
			h.debugger.SetState(Paused)
			h.debugger.RunDebugger()
		}
		return h.debugger.GetState() == Running

	case Paused:
		return false

	case Terminated:
		return false

	default:
		return true
	}
}

// OnCycleDetected is called once a strongly-connected component's
// leader has been chosen and is about to run its recursion-group pass.
func (h *ProcHook) OnCycleDetected(group proc.Set) {
	names := make([]string, 0, len(group))
	for member := range group {
		names = append(names, member.ProcName())
	}
	fmt.Printf("\n🔁 cycle resolved: %s\n", strings.Join(names, ", "))
}

// OnDecompiled is called once p reaches its final status.
func (h *ProcHook) OnDecompiled(p *proc.UserProc) {
	h.recordStep(p, "final:"+p.Status.String())
}

// recordStep appends to the debugger's phase history.
func (h *ProcHook) recordStep(p *proc.UserProc, phase string) {
	h.debugger.current = p
	h.debugger.history = append(h.debugger.history, Step{
		ProcName: p.ProcName(),
		Address: p.Address(),
		Phase: phase,
	})
}

// shouldStepProc determines whether a step-over-procedure command should
// pause here: only at the start of a new procedure's phase sequence.
func (h *ProcHook) shouldStepProc(phase string) bool {
	return phase == "visit"
}
