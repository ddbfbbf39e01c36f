// Package debugger provides an interactive, breakpoint-driven console for
// stepping through a driver.Driver's decompilation of a call graph one
// phase at a time. Grounded on internal/debugger/debugger.go's
// Breakpoint/DebugState/command-loop shape, retargeted from VM
// file:line execution to procedure/phase decompilation steps.
package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/boomerang-decompiler/boomerang/internal/proc"
)

// BreakpointKind distinguishes what a Breakpoint matches against.
type BreakpointKind int

const (
	AddressBreakpoint BreakpointKind = iota
	NameBreakpoint
	PhaseBreakpoint
)

// Breakpoint pauses the decompile walk when a procedure's address, name,
// or current phase matches.
type Breakpoint struct {
	ID int
	Kind BreakpointKind
	Address uint64
	Name string
	Phase string
	Enabled bool
	HitCount int
}

// DebugState is the console's run mode between phase callbacks.
type DebugState int

const (
	Running DebugState = iota
	Paused
	StepPhase
	StepProc
	Terminated
)

// Step records one OnPhase/OnDecompiled callback for "where" display.
type Step struct {
	ProcName string
	Address uint64
	Phase string
}

// Debugger implements driver.Hook, pausing the decompile walk at
// breakpoints and phase/procedure step boundaries and giving the user
// an interactive console to inspect state before resuming.
type Debugger struct {
	breakpoints map[int]*Breakpoint
	nextBpID int
	state DebugState
	reader *bufio.Reader
	watches map[string]bool
	history []Step
	current *proc.UserProc
}

// NewDebugger creates a debugger console whose state starts as Paused.
func NewDebugger() *Debugger {
	return &Debugger{
		breakpoints: make(map[int]*Breakpoint),
		nextBpID: 1,
		state: Paused,
		reader: bufio.NewReader(os.Stdin),
		watches: make(map[string]bool),
	}
}

// AddBreakpointAddress breaks when the procedure at addr enters any phase.
func (d *Debugger) AddBreakpointAddress(addr uint64) int {
	bp := &Breakpoint{ID: d.nextBpID, Kind: AddressBreakpoint, Address: addr, Enabled: true}
	d.breakpoints[bp.ID] = bp
	d.nextBpID++
	fmt.Printf("✓ breakpoint %d set at address %#x\n", bp.ID, addr)
	return bp.ID
}

// AddBreakpointName breaks when the named procedure enters any phase.
func (d *Debugger) AddBreakpointName(name string) int {
	bp := &Breakpoint{ID: d.nextBpID, Kind: NameBreakpoint, Name: name, Enabled: true}
	d.breakpoints[bp.ID] = bp
	d.nextBpID++
	fmt.Printf("✓ breakpoint %d set at procedure %s\n", bp.ID, name)
	return bp.ID
}

// AddBreakpointPhase breaks whenever any procedure enters phase.
func (d *Debugger) AddBreakpointPhase(phase string) int {
	bp := &Breakpoint{ID: d.nextBpID, Kind: PhaseBreakpoint, Phase: phase, Enabled: true}
	d.breakpoints[bp.ID] = bp
	d.nextBpID++
	fmt.Printf("✓ breakpoint %d set at phase %q\n", bp.ID, phase)
	return bp.ID
}

func (d *Debugger) RemoveBreakpoint(id int) bool {
	if bp, exists := d.breakpoints[id]; exists {
		delete(d.breakpoints, id)
		fmt.Printf("✓ breakpoint %d removed\n", bp.ID)
		return true
	}
	fmt.Printf("✗ breakpoint %d not found\n", id)
	return false
}

func (d *Debugger) ListBreakpoints() {
	if len(d.breakpoints) == 0 {
		fmt.Println("no breakpoints set")
		return
	}
	fmt.Println("breakpoints:")
	for _, bp := range d.breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		switch bp.Kind {
		case AddressBreakpoint:
			fmt.Printf(" %d: address %#x (%s) hits: %d\n", bp.ID, bp.Address, status, bp.HitCount)
		case NameBreakpoint:
			fmt.Printf(" %d: proc %s (%s) hits: %d\n", bp.ID, bp.Name, status, bp.HitCount)
		case PhaseBreakpoint:
			fmt.Printf(" %d: phase %q (%s) hits: %d\n", bp.ID, bp.Phase, status, bp.HitCount)
		}
	}
}

// matches reports whether p entering phase should pause the walk, and
// bumps the matching breakpoints' hit counts as a side effect.
func (d *Debugger) matches(p *proc.UserProc, phase string) bool {
	hit := false
	for _, bp := range d.breakpoints {
		if !bp.Enabled {
			continue
		}
		m := false
		switch bp.Kind {
		case AddressBreakpoint:
			m = bp.Address == p.Address()
		case NameBreakpoint:
			m = bp.Name == p.ProcName()
		case PhaseBreakpoint:
			m = bp.Phase == phase
		}
		if m {
			bp.HitCount++
			hit = true
		}
	}
	return hit
}

// ShowCurrentLocation prints where the walk is paused.
func (d *Debugger) ShowCurrentLocation(p *proc.UserProc, phase string) {
	fmt.Printf("\n📍 %s (%#x) entering phase %q\n", p.ProcName(), p.Address(), phase)
}

func (d *Debugger) AddWatch(name string) {
	d.watches[name] = true
	fmt.Printf("✓ added watch: %s\n", name)
}

func (d *Debugger) RemoveWatch(name string) {
	if _, exists := d.watches[name]; exists {
		delete(d.watches, name)
		fmt.Printf("✓ removed watch: %s\n", name)
	} else {
		fmt.Printf("✗ watch not found: %s\n", name)
	}
}

// ShowWatches prints every watched expression's current value against
// the procedure the walk is paused on.
func (d *Debugger) ShowWatches() {
	if len(d.watches) == 0 {
		fmt.Println("no watches set")
		return
	}
	if d.current == nil {
		fmt.Println("watches:")
		for name := range d.watches {
			fmt.Printf(" %s = <no active procedure>\n", name)
		}
		return
	}
	fmt.Println("watches:")
	for name := range d.watches {
		switch name {
		case "status":
			fmt.Printf(" status = %s\n", d.current.Status)
		case "parameters":
			fmt.Printf(" parameters = %d\n", len(d.current.Parameters))
		case "callees":
			fmt.Printf(" callees = %d\n", len(d.current.Callees))
		case "callers":
			fmt.Printf(" callers = %d\n", len(d.current.Callers()))
		default:
			fmt.Printf(" %s = <unknown watch expression>\n", name)
		}
	}
}

// ShowCallStack prints the recent phase history, the closest analog to
// a VM call stack available during decompilation.
func (d *Debugger) ShowCallStack() {
	fmt.Println("phase history:")
	start := 0
	if len(d.history) > 10 {
		start = len(d.history) - 10
	}
	for i := start; i < len(d.history); i++ {
		s := d.history[i]
		marker := " "
		if i == len(d.history)-1 {
			marker = "-> "
		}
		fmt.Printf("%s%s (%#x): %s\n", marker, s.ProcName, s.Address, s.Phase)
	}
}

func (d *Debugger) showCallees() {
	if d.current == nil || len(d.current.Callees) == 0 {
		fmt.Println("no callees")
		return
	}
	fmt.Println("callees:")
	for _, c := range d.current.Callees {
		fmt.Printf(" %s (%#x)\n", c.ProcName(), c.Address())
	}
}

// RunDebugger drives the interactive console loop while paused.
func (d *Debugger) RunDebugger() {
	fmt.Println("🐛 boomerang debugger")
	fmt.Println("type 'help' for available commands")

	for d.state == Paused {
		fmt.Print("(boomerang-debug) ")
		command, err := d.reader.ReadString('\n')
		if err != nil {
			fmt.Printf("error reading command: %v\n", err)
			d.state = Running
			return
		}
		d.executeCommand(strings.TrimSpace(command))
	}
}

// executeCommand processes one console command line.
func (d *Debugger) executeCommand(command string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "help", "h":
		d.showHelp()

	case "break", "b":
		if len(args) < 1 {
			fmt.Println("usage: break <addr|name|phase:PHASE>")
			return
		}
		d.handleBreak(args[0])

	case "delete", "d":
		if len(args) >= 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("invalid breakpoint id: %s\n", args[0])
				return
			}
			d.RemoveBreakpoint(id)
		} else {
			fmt.Println("usage: delete <breakpoint_id>")
		}

	case "list", "l":
		d.ListBreakpoints()

	case "continue", "c":
		d.state = Running
		fmt.Println("continuing decompilation...")

	case "step", "s":
		d.state = StepPhase
		fmt.Println("stepping to next phase...")

	case "next", "n":
		d.state = StepProc
		fmt.Println("stepping to next procedure...")

	case "where", "w":
		d.ShowCallStack()

	case "callees":
		d.showCallees()

	case "watch":
		if len(args) >= 1 {
			d.AddWatch(args[0])
		} else {
			d.ShowWatches()
		}

	case "unwatch":
		if len(args) >= 1 {
			d.RemoveWatch(args[0])
		} else {
			fmt.Println("usage: unwatch <name>")
		}

	case "print", "p":
		d.ShowWatches()

	case "quit", "q":
		d.state = Terminated
		fmt.Println("debugging session terminated")

	default:
		fmt.Printf("unknown command: %s (type 'help' for available commands)\n", cmd)
	}
}

func (d *Debugger) handleBreak(arg string) {
	switch {
	case strings.HasPrefix(arg, "phase:"):
		d.AddBreakpointPhase(strings.TrimPrefix(arg, "phase:"))
	case strings.HasPrefix(arg, "0x"):
		addr, err := strconv.ParseUint(arg[2:], 16, 64)
		if err != nil {
			fmt.Printf("invalid address: %s\n", arg)
			return
		}
		d.AddBreakpointAddress(addr)
	default:
		d.AddBreakpointName(arg)
	}
}

// showHelp displays available debugger commands
func (d *Debugger) showHelp() {
	fmt.Println("available commands:")
	fmt.Println(" help, h - show this help")
	fmt.Println(" break <addr|name|phase:P> - set a breakpoint")
	fmt.Println(" delete <id> - remove breakpoint by id")
	fmt.Println(" list, l - list breakpoints")
	fmt.Println(" continue, c - resume decompilation")
	fmt.Println(" step, s - stop at the next phase")
	fmt.Println(" next, n - stop at the next procedure")
	fmt.Println(" where, w - show recent phase history")
	fmt.Println(" callees - list current procedure's callees")
	fmt.Println(" watch <name> - watch status|parameters|callees|callers")
	fmt.Println(" unwatch <name> - stop watching a name")
	fmt.Println(" print, p - print current watches")
	fmt.Println(" quit, q - end the debug session")
}

// GetState returns the current debug state
func (d *Debugger) GetState() DebugState {
	return d.state
}

// SetState sets the debug state
func (d *Debugger) SetState(state DebugState) {
	d.state = state
}
