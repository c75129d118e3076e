// Package machine implements the CPS abstract machine's value, store, and
// continuation model (Appel, Compiling with Continuations, ch. 3). Value,
// DValue, Store, and Continuation are defined together because they refer
// to each other: a DValue can be a Function wrapping a Continuation, a
// Continuation takes a Store as an argument, and raising an exception reads the
// Store's handler cell and applies it to a DValue.
package machine

// Variable is an interned identifier. Two Variables are equal, and hash
// equal, iff they name the same identifier.
type Variable string

// Value is an atomic operand of a CPS term: a literal or a name. Values
// appear only inside CExpr nodes; they are never held in the environment
// or the store directly (see DValue for that).
type Value interface {
	isValue()
}

// VarRef names a variable to be looked up in the environment.
type VarRef struct{ Name Variable }

// LabelRef names a function label. Semantically identical to VarRef; kept
// distinct so that later compiler phases can tell the two apart.
type LabelRef struct{ Name Variable }

// IntLit is an integer literal.
type IntLit struct{ N int64 }

// RealLit is a floating point literal.
type RealLit struct{ N float64 }

// StrLit is a string literal.
type StrLit struct{ S string }

func (VarRef) isValue()   {}
func (LabelRef) isValue() {}
func (IntLit) isValue()   {}
func (RealLit) isValue()  {}
func (StrLit) isValue()   {}
