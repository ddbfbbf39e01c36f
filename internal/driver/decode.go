// Package driver implements the interprocedural driver: the top-level
// decompile(entry) call-graph walk, its per-procedure phase sequence,
// the strongly-connected-component fixed point, and the whole-program
// unused-return removal pass (RemoveUnusedReturns), which the walk in
// Decompile does not call.
package driver

import (
	"github.com/boomerang-decompiler/boomerang/internal/cfg"
	"github.com/boomerang-decompiler/boomerang/internal/derrors"
)

// Decoder turns the bytes at a native address into a control-flow graph.
// The actual instruction decoder (SSL-pattern matching, disassembly) is
// external to the core and is supplied by the frontend wiring this
// driver up to a concrete architecture; Decoder is the seam.
type Decoder interface {
	Decode(addr uint64) (*cfg.CFG, error)
}

// DecodeFunc adapts a plain function to Decoder.
type DecodeFunc func(addr uint64) (*cfg.CFG, error)

func (f DecodeFunc) Decode(addr uint64) (*cfg.CFG, error) { return f(addr) }

// decodeOrFail wraps a Decoder failure as a DecodeFailure DecompileError
// attributed to the procedure, matching the failure semantics every
// other component in this module uses.
func decodeOrFail(d Decoder, addr uint64, procName string) (*cfg.CFG, error) {
	c, err := d.Decode(addr)
	if err != nil {
		return nil, derrors.New(derrors.DecodeFailure, procName, addr, err)
	}
	return c, nil
}
