// Package derrors defines the structured error kinds raised by the
// decompilation core.
package derrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a decompilation error so callers can decide whether to
// recover locally or abort the whole run.
type Kind string

const (
	// LoadFailure means the binary could not be loaded at all. Fatal.
	LoadFailure Kind = "LoadFailure"
	// DecodeFailure means the bytes at an address matched no SSL pattern.
	// The enclosing basic block is marked Invalid and decoding continues.
	DecodeFailure Kind = "DecodeFailure"
	// IncompleteCfg means a procedure's CFG still has incomplete BBs when
	// an analysis pass needs a well-formed graph. The procedure is skipped.
	IncompleteCfg Kind = "IncompleteCfg"
	// BBAlreadyExists is signalled out of Cfg.NewBB, not a user error.
	BBAlreadyExists Kind = "BBAlreadyExists"
	// PassCapReached means a fixed-point loop hit its iteration cap.
	PassCapReached Kind = "PassCapReached"
	// InvariantViolation is a programming error (assertion failure).
	InvariantViolation Kind = "InvariantViolation"
)

// DecompileError is the structured error value every component returns.
type DecompileError struct {
	Kind Kind
	Proc string // enclosing procedure name, if any
	Addr uint64 // native address, if any
	cause error
}

func (e *DecompileError) Error() string {
	if e.Proc == "" && e.Addr == 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	if e.Addr == 0 {
		return fmt.Sprintf("%s in %s: %v", e.Kind, e.Proc, e.cause)
	}
	return fmt.Sprintf("%s in %s at 0x%x: %v", e.Kind, e.Proc, e.Addr, e.cause)
}

func (e *DecompileError) Unwrap() error { return e.cause }

// Cause implements github.com/pkg/errors' causer interface so %+v on a
// wrapped DecompileError still prints the originating stack trace.
func (e *DecompileError) Cause() error { return e.cause }

// New builds a DecompileError of the given kind, wrapping cause with a
// stack trace captured at the call site.
func New(kind Kind, proc string, addr uint64, cause error) *DecompileError {
	if cause == nil {
		cause = errors.New(string(kind))
	} else {
		cause = errors.WithStack(cause)
	}
	return &DecompileError{Kind: kind, Proc: proc, Addr: addr, cause: cause}
}

// Newf is New with a formatted message instead of a wrapped cause.
func Newf(kind Kind, proc string, addr uint64, format string, args ...interface{}) *DecompileError {
	return New(kind, proc, addr, errors.Errorf(format, args...))
}

// Is reports whether err is a DecompileError of the given kind, unwrapping
// as needed.
func Is(err error, kind Kind) bool {
	var de *DecompileError
	for err != nil {
		if d, ok := err.(*DecompileError); ok {
			de = d
			break
		}
		err = errors.Unwrap(err)
	}
	return de != nil && de.Kind == kind
}

// Fatal reports whether a Kind must abort the whole run rather than being
// locally recovered.
func (k Kind) Fatal() bool {
	return k == LoadFailure || k == InvariantViolation
}

// Panic raises an InvariantViolation as a panic carrying a DecompileError,
// for assertion failures that are programming errors rather than user
// errors.
func Panic(proc string, format string, args ...interface{}) {
	panic(New(InvariantViolation, proc, 0, errors.Errorf(format, args...)))
}

// Recover turns a panic raised by Panic (or any panic) into a
// DecompileError of kind InvariantViolation, for use at the per-procedure
// boundary in the interprocedural driver so one corrupt procedure does not
// abort the whole program.
//
// Recover must be deferred directly — `defer derrors.Recover(proc, &err)` —
// because recover() only stops a panic when called directly by the
// deferred function itself, not by a function that function calls.
func Recover(proc string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if de, ok := r.(*DecompileError); ok {
		*errp = de
		return
	}
	*errp = New(InvariantViolation, proc, 0, errors.Errorf("panic: %v", r))
}
