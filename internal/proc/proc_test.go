package proc_test

import (
	"testing"

	"github.com/boomerang-decompiler/boomerang/internal/expr"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/stmt"
	"github.com/boomerang-decompiler/boomerang/internal/types"
)

func TestProgramIndexesByNameAndAddress(t *testing.T) {
	pr := proc.NewProgram()
	sig := proc.NewSignature("memcpy")
	sig.AddParam("dst", types.Pointer(types.Void()))
	sig.AddParam("src", types.Pointer(types.Void()))
	sig.AddReturn(types.Pointer(types.Void()))

	lib := proc.NewLibProc("memcpy", 0x401000, sig)
	pr.AddProcedure(nil, lib)

	found, ok := pr.FindByName("memcpy")
	if !ok || found.Address() != 0x401000 {
		t.Fatalf("expected memcpy to be found by name at 0x401000, got %v ok=%v", found, ok)
	}
	if _, ok := pr.FindByAddr(0x401000); !ok {
		t.Fatalf("expected memcpy to be found by address")
	}
	if !lib.IsLibrary() {
		t.Errorf("expected LibProc.IsLibrary() == true")
	}
}

func TestMarkDeletedAddressIsNotRedecoded(t *testing.T) {
	pr := proc.NewProgram()
	up := proc.NewUserProc("sub_402000", 0x402000, proc.NewSignature("sub_402000"))
	pr.AddProcedure(nil, up)

	pr.MarkDeleted(0x402000)
	if !pr.IsDeleted(0x402000) {
		t.Fatalf("expected 0x402000 to be marked deleted")
	}
	if _, ok := pr.FindByAddr(0x402000); ok {
		t.Fatalf("expected a deleted address to no longer resolve via FindByAddr")
	}
}

func TestUserProcStatusChainAndCycleGroup(t *testing.T) {
	a := proc.NewUserProc("a", 0x1000, proc.NewSignature("a"))
	b := proc.NewUserProc("b", 0x2000, proc.NewSignature("b"))

	if a.IsDecoded() || a.IsSorted() || a.IsDecompiled() {
		t.Fatalf("a fresh UserProc should start Undecoded")
	}

	a.SetCFG(a.CFG)
	if !a.IsDecoded() {
		t.Errorf("expected SetCFG to advance status to at least Decoded")
	}

	a.Status = proc.InCycle
	a.CycleGrp = proc.NewSet(a, b)
	if !a.IsEarlyRecursive() {
		t.Errorf("expected IsEarlyRecursive() true while status == InCycle and cycleGrp is set")
	}
	if !a.DoesRecurseTo(b) {
		t.Errorf("expected a to recurse to b via the shared cycle group")
	}

	a.Status = proc.Final
	if a.IsEarlyRecursive() {
		t.Errorf("expected IsEarlyRecursive() false once status has advanced past InCycle")
	}
}

func TestCallerSetDeduplicatesByStatementIdentity(t *testing.T) {
	callee := proc.NewUserProc("callee", 0x3000, proc.NewSignature("callee"))
	call := stmt.NewCall(nil)

	callee.AddCaller(call)
	callee.AddCaller(call)

	if got := len(callee.Callers()); got != 1 {
		t.Fatalf("expected a repeated AddCaller of the same statement to dedupe, got %d callers", got)
	}
}

func TestSymbolMapLookupByStructuralEquality(t *testing.T) {
	var m proc.SymbolMap
	m.Add(expr.RegOf(28), expr.Local("local5"))

	got, ok := m.Lookup(expr.RegOf(28))
	if !ok || got.Op != expr.OpLocal || got.Name != "local5" {
		t.Fatalf("expected r28 to map to local5, got %v ok=%v", got, ok)
	}
	if _, ok := m.Lookup(expr.RegOf(29)); ok {
		t.Fatalf("expected r29 to be absent from the symbol map")
	}
}
