// Package cps defines the seven continuation-expression node kinds of
// §4.6: Record, Select, Offset, Apply, Fix, Switch, and PrimOp. These are
// pure data — package eval walks them.
package cps

import (
	"cpsi/internal/machine"
	"cpsi/internal/primitive"
)

// CExpr is a continuation expression: one of Record, Select, Offset,
// Apply, Fix, Switch, PrimOp.
type CExpr interface {
	isCExpr()
}

// RecordField pairs an atomic value with the access path used to resolve
// it while a Record expression is being built.
type RecordField struct {
	Value machine.Value
	Path  machine.AccessPath
}

// Record binds Var, in the scope of Body only, to a freshly built record
// whose fields are the resolved RecordFields.
type Record struct {
	Fields []RecordField
	Var    machine.Variable
	Body   CExpr
}

// Select binds Var, in the scope of Body only, to field Index of the
// record named by Value.
type Select struct {
	Index int
	Value machine.Value
	Var   machine.Variable
	Body  CExpr
}

// Offset binds Var, in the scope of Body only, to the record named by
// Value re-viewed with its offset advanced by Index.
type Offset struct {
	Index int
	Value machine.Value
	Var   machine.Variable
	Body  CExpr
}

// Apply invokes the function named by Func with Args. Binds no
// variables.
type Apply struct {
	Func machine.Value
	Args []machine.Value
}

// FunctionDef is one function of a (possibly mutually recursive) Fix
// binding: a name, its formal parameters, and its body.
type FunctionDef struct {
	Name   machine.Variable
	Params []machine.Variable
	Body   CExpr
}

// Fix defines a list of (possibly mutually recursive) functions, each
// able to see every other in Defs, then evaluates Body under that
// extended environment.
type Fix struct {
	Defs []FunctionDef
	Body CExpr
}

// Switch evaluates Value, which must be an Integer i with 0 <= i <
// len(Arms), then evaluates Arms[i] under the same environment. Binds no
// variables.
type Switch struct {
	Value machine.Value
	Arms  []CExpr
}

// PrimOp invokes a primitive operation with the atomic operands Args. It
// builds one continuation per entry in Arms; whichever continuation the
// primitive selects binds Vars to that continuation's result list before
// evaluating the corresponding arm.
type PrimOp struct {
	Op   primitive.Op
	Args []machine.Value
	Vars []machine.Variable
	Arms []CExpr
}

func (Record) isCExpr() {}
func (Select) isCExpr() {}
func (Offset) isCExpr() {}
func (Apply) isCExpr()  {}
func (Fix) isCExpr()    {}
func (Switch) isCExpr() {}
func (PrimOp) isCExpr() {}
