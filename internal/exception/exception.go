// Package exception provides the program-exception half of §7's error
// model: raising Overflow, DivideByZero, InvalidAccess, Undefined, and
// IndexOutOfBounds as Answers that, once given a store, invoke the
// store's installed handler. See package cpserrors for the other half —
// internal interpreter bugs, which panic instead.
package exception

import "cpsi/internal/machine"

// Re-exported so callers need not import machine just to name a kind.
const (
	Overflow         = machine.Overflow
	DivideByZero     = machine.DivideByZero
	InvalidAccess    = machine.InvalidAccess
	Undefined        = machine.Undefined
	IndexOutOfBounds = machine.IndexOutOfBounds
)

// AsAnswer packages kind as an Answer that, once resumed with a Store,
// raises it through that store's handler. This is the rule every §4.6
// evaluation case uses when it says "raises E."
func AsAnswer(kind machine.ExceptionKind) machine.Answer {
	return machine.NewContinuation(
		func(_ []machine.DValue, store *machine.Store) machine.Answer {
			return store.Raise(machine.DException{Kind: kind})
		},
	).Bind(nil)
}
