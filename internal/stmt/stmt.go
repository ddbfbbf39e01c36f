package stmt

import "github.com/boomerang-decompiler/boomerang/internal/expr"
import "github.com/boomerang-decompiler/boomerang/internal/types"

// Kind discriminates the statement tagged sum.
type Kind int

const (
	KindAssign Kind = iota
	KindPhiAssign
	KindImplicitAssign
	KindBoolAssign
	KindBranch
	KindGoto
	KindCaseStatement
	KindCall
	KindReturn
	KindJunction
	KindImpRef
)

// BBRef is an opaque, non-owning back-reference to the enclosing basic
// block. The cfg package implements this over *cfg.BasicBlock;
// stmt cannot import cfg without a cycle (cfg's RTLs own Stmts).
type BBRef interface {
	BBLabel() string
}

// ProcRef is the analogous back-reference to the enclosing procedure.
type ProcRef interface {
	ProcName() string
}

// PhiOperand is one predecessor slot of a PhiAssign.
type PhiOperand struct {
	Pred BBRef
	Def *Stmt // nil until renaming fills it in
	Operand *expr.Expr
}

// CaseTable is the decoded jump-table descriptor a CaseStatement carries.
type CaseTable struct {
	Targets []uint64 // native addresses, index == case value - offset
	Offset int64
}

// Stmt is the tagged-sum statement node.
type Stmt struct {
	Kind Kind
	Num int // stable, assigned once per procedure
	BB BBRef
	Proc ProcRef

	// Assign / BoolAssign
	Lhs *expr.Expr
	Rhs *expr.Expr
	Type *types.Type
	Guard *expr.Expr // optional guard on Assign

	// PhiAssign
	PhiOperands []PhiOperand

	// Branch
	Cond *expr.Expr
	DestAddr uint64
	Fallthru uint64

	// Goto
	Dest uint64

	// CaseStatement
	SwitchExpr *expr.Expr
	Table CaseTable

	// Call
	CallDest *expr.Expr // direct callee expr (a proc reference) or indirect
	CallProc ProcRef // resolved callee, if direct/known
	Args []*Stmt // each an Assign into the callee's formal
	Returns []*Stmt // each an Assign defining a caller-side location
	Uses_ *UseCollector
	Defs_ *DefCollector

	// Return
	Modifieds *LocationSet
	RetExprs []*expr.Expr

	// ImpRef
	RefAddr *expr.Expr
	Hint *types.Type
}

// StmtNumber/IsImplicit implement expr.StmtRef so Stmt can back a
// subscripted reference without expr importing stmt.
func (s *Stmt) StmtNumber() int { return s.Num }
func (s *Stmt) IsImplicit() bool { return s.Kind == KindImplicitAssign }

// NewAssign builds an Assign statement.
func NewAssign(lhs, rhs *expr.Expr, t *types.Type) *Stmt {
	return &Stmt{Kind: KindAssign, Lhs: lhs, Rhs: rhs, Type: t}
}

func NewImplicitAssign(lhs *expr.Expr, t *types.Type) *Stmt {
	return &Stmt{Kind: KindImplicitAssign, Lhs: lhs, Type: t}
}

func NewBoolAssign(lhs, cond *expr.Expr) *Stmt {
	return &Stmt{Kind: KindBoolAssign, Lhs: lhs, Cond: cond}
}

func NewPhiAssign(lhs *expr.Expr, preds []BBRef) *Stmt {
	ops := make([]PhiOperand, len(preds))
	for i, p := range preds {
		ops[i] = PhiOperand{Pred: p}
	}
	return &Stmt{Kind: KindPhiAssign, Lhs: lhs, PhiOperands: ops}
}

func NewBranch(cond *expr.Expr, dest, fallthru uint64) *Stmt {
	return &Stmt{Kind: KindBranch, Cond: cond, DestAddr: dest, Fallthru: fallthru}
}

func NewGoto(dest uint64) *Stmt { return &Stmt{Kind: KindGoto, Dest: dest} }

func NewCase(switchExpr *expr.Expr, table CaseTable) *Stmt {
	return &Stmt{Kind: KindCaseStatement, SwitchExpr: switchExpr, Table: table}
}

func NewCall(dest *expr.Expr) *Stmt {
	return &Stmt{Kind: KindCall, CallDest: dest, Uses_: NewUseCollector(), Defs_: NewDefCollector()}
}

func NewReturn() *Stmt { return &Stmt{Kind: KindReturn, Modifieds: NewLocationSet()} }

func NewJunction() *Stmt { return &Stmt{Kind: KindJunction} }

func NewImpRef(addr *expr.Expr, hint *types.Type) *Stmt {
	return &Stmt{Kind: KindImpRef, RefAddr: addr, Hint: hint}
}

// Clone copies a statement: its expressions, phi operands, return
// expressions and call arguments are copied, while a Call's Returns and
// collectors and a Return's Modifieds set are shared with s. Statements
// are exclusively owned by the RTL that contains them, so Clone is used
// whenever a statement must be duplicated into a different RTL (e.g.
// inlining a phi source during localisation).
func (s *Stmt) Clone() *Stmt {
	if s == nil {
		return nil
	}
	c := *s
	c.Lhs = s.Lhs.Clone()
	c.Rhs = s.Rhs.Clone()
	c.Guard = s.Guard.Clone()
	c.Cond = s.Cond.Clone()
	c.SwitchExpr = s.SwitchExpr.Clone()
	c.CallDest = s.CallDest.Clone()
	c.RefAddr = s.RefAddr.Clone()
	if s.PhiOperands != nil {
		c.PhiOperands = append([]PhiOperand(nil), s.PhiOperands...)
		for i := range c.PhiOperands {
			c.PhiOperands[i].Operand = s.PhiOperands[i].Operand.Clone()
		}
	}
	if s.RetExprs != nil {
		c.RetExprs = make([]*expr.Expr, len(s.RetExprs))
		for i, e := range s.RetExprs {
			c.RetExprs[i] = e.Clone()
		}
	}
	if s.Args != nil {
		c.Args = make([]*Stmt, len(s.Args))
		for i, a := range s.Args {
			c.Args[i] = a.Clone()
		}
	}
	return &c
}
