// internal/cpserrors/errors.go
//
// Package cpserrors implements the internal/interpreter-bug half of §7's
// error model: unbound variables, evaluate() arity mismatches, comparing
// two Functions, a malformed AccessPath, a store index out of range.
// These are bugs, not program exceptions — they are not routed through
// the handler cell (package exception does that); they abort the
// interpreter with a diagnostic, the same way the teacher's own
// SentraError/ErrorType pair distinguishes error categories.
package cpserrors

import (
	"fmt"
	"strings"
)

// Kind classifies the internal error.
type Kind string

const (
	UnboundVariable Kind = "UnboundVariable"
	ArityMismatch   Kind = "ArityMismatch"
	InvalidPath     Kind = "InvalidPath"
	StoreOutOfRange Kind = "StoreOutOfRange"
	Unreachable     Kind = "Unreachable"
)

// Frame is a single entry in an InternalError's call stack, recording
// which evaluator rule was active when the bug surfaced.
type Frame struct {
	Rule   string // e.g. "Apply", "Fix", "PrimOp(Subscript)"
	Detail string
}

// InternalError reports an interpreter bug — never a program-level
// exception. Its shape (kind + message + call stack + pretty Error())
// follows the teacher's SentraError.
type InternalError struct {
	Kind      Kind
	Message   string
	CallStack []Frame
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	for _, f := range e.CallStack {
		if f.Detail != "" {
			fmt.Fprintf(&sb, "\n  at %s (%s)", f.Rule, f.Detail)
		} else {
			fmt.Fprintf(&sb, "\n  at %s", f.Rule)
		}
	}
	return sb.String()
}

// New constructs an InternalError of the given kind.
func New(kind Kind, format string, args ...any) *InternalError {
	return &InternalError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithFrame appends a call-stack frame and returns the receiver, so errors
// can be annotated on the way back up through the evaluator's recursion.
func (e *InternalError) WithFrame(rule, detail string) *InternalError {
	e.CallStack = append(e.CallStack, Frame{Rule: rule, Detail: detail})
	return e
}

// Fatalf panics with a new InternalError. Used at the handful of places
// in the evaluator where a condition genuinely cannot occur without a bug
// in the interpreter itself — matching the teacher's own panic(fmt.
// Sprintf(...)) convention in internal/vm/vm.go for the same situations.
func Fatalf(kind Kind, format string, args ...any) {
	panic(New(kind, format, args...))
}
