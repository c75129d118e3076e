package machine

// RawContinuation is the uncurried shape of a continuation: given the
// arguments it was applied to and the store in force at that point, it
// produces the next Answer in the trampoline (§4.4).
type RawContinuation func(args []DValue, store *Store) Answer

// Continuation is a callable reified "rest of the computation." Equality
// is reference identity only — two Continuations built from separate
// closures are never equal even if they would behave the same.
type Continuation struct {
	f RawContinuation
}

// NewContinuation wraps a raw (args, store) -> Answer function.
func NewContinuation(f RawContinuation) Continuation {
	return Continuation{f: f}
}

// Bind curries a Continuation with its arguments, producing an Answer that
// is still waiting for a Store. This lets the evaluator return an Answer
// without forcing every recursive call to thread a store through (§4.4,
// §9 "store threading").
func (c Continuation) Bind(args []DValue) Answer {
	return Answer{f: c.f, args: args}
}

// Answer is a continuation paired with its already-bound argument list,
// awaiting a Store. Applying an Answer to a Store resumes evaluation and
// produces the next Answer in the trampoline.
type Answer struct {
	f    RawContinuation
	args []DValue
}

// Resume applies the Answer to a Store, producing the next Answer. The
// driver repeatedly calls Resume until it reaches a halting Answer (§2,
// §6).
func (a Answer) Resume(store *Store) Answer {
	return a.f(a.args, store)
}
