// Package primitive implements the ~35 primitive operations of §4.5: the
// leaves of CPS evaluation that do actual arithmetic, compare, poke the
// store, or manipulate the exception handler. Each primitive is invoked
// with its already-evaluated DValue arguments and the continuations its
// PrimOp arm supplied; the number of continuations (1 for a producer, 2
// for a predicate) is part of the dispatch, matching the original
// PrimitiveOp::eval match on (op, args, continuation count).
package primitive

import (
	"cpsi/internal/cpserrors"
	"cpsi/internal/exception"
	"cpsi/internal/machine"
)

// Op names a primitive operation.
type Op int

const (
	Mul Op = iota
	Add
	Sub
	Div
	Neg // `~`, unary negation

	IEql
	INeq

	Lt
	Le
	Gt
	Ge

	RangeChk

	Bang // `!`, alias for Subscript a 0
	Subscript
	Ordof

	Assign         // `:=`, alias for Update a 0 v
	UnboxedAssign  // alias for UnboxedUpdate a 0 v
	Update
	UnboxedUpdate
	Store

	MakeRef
	MakeRefUnboxed

	ALength
	SLength

	GetHdlr
	SetHdlr

	Boxed

	FAdd
	FSub
	FMul
	FDiv

	FEql
	FNeq
	FGe
	FGt
	FLe
	FLt
)

func empty() []machine.DValue { return nil }

// Eval dispatches op against args, invoking the matching conts entry (or
// entries) to produce the resulting Answer. An operand shape or
// continuation-count mismatch is an interpreter bug (§4.5 "any
// operand-shape / cont-count mismatch is an interpreter bug"), not a
// program exception, so it reports via cpserrors.Fatalf.
func Eval(op Op, args []machine.DValue, conts []machine.Continuation) machine.Answer {
	switch op {
	case Mul, Add, Sub, Div:
		return evalIntArith(op, args, conts)
	case Neg:
		return evalNeg(args, conts)
	case IEql, INeq:
		return evalIEq(op, args, conts)
	case Lt, Le, Gt, Ge:
		return evalIntCompare(op, args, conts)
	case RangeChk:
		return evalRangeChk(args, conts)
	case Bang:
		return evalBang(args, conts)
	case Subscript:
		return evalSubscript(args, conts)
	case Ordof:
		return evalOrdof(args, conts)
	case Assign:
		return evalAssign(args, conts)
	case UnboxedAssign:
		return evalUnboxedAssign(args, conts)
	case Update:
		return evalUpdate(args, conts)
	case UnboxedUpdate:
		return evalUnboxedUpdate(args, conts)
	case Store:
		return evalStore(args, conts)
	case MakeRef:
		return evalMakeRef(args, conts)
	case MakeRefUnboxed:
		return evalMakeRefUnboxed(args, conts)
	case ALength:
		return evalALength(args, conts)
	case SLength:
		return evalSLength(args, conts)
	case GetHdlr:
		return evalGetHdlr(args, conts)
	case SetHdlr:
		return evalSetHdlr(args, conts)
	case Boxed:
		return evalBoxed(args, conts)
	case FAdd, FSub, FMul, FDiv:
		return evalRealArith(op, args, conts)
	case FEql, FNeq, FGe, FGt, FLe, FLt:
		return evalRealCompare(op, args, conts)
	default:
		cpserrors.Fatalf(cpserrors.Unreachable, "primitive: Eval: unknown op %d", op)
		panic("unreachable")
	}
}

func one(conts []machine.Continuation) machine.Continuation {
	if len(conts) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: expected 1 continuation, got %d", len(conts))
	}
	return conts[0]
}

func thenElse(conts []machine.Continuation) (then, els machine.Continuation) {
	if len(conts) != 2 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: expected 2 continuations, got %d", len(conts))
	}
	return conts[0], conts[1]
}

func ints(args []machine.DValue, n int) []int64 {
	if len(args) != n {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: expected %d integer args, got %d", n, len(args))
	}
	out := make([]int64, n)
	for i, a := range args {
		v, ok := a.(machine.DInteger)
		if !ok {
			cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: argument %d is not an Integer", i)
		}
		out[i] = v.N
	}
	return out
}

func reals(args []machine.DValue, n int) []float64 {
	if len(args) != n {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: expected %d real args, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, ok := a.(machine.DReal)
		if !ok {
			cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: argument %d is not a Real", i)
		}
		out[i] = v.N
	}
	return out
}

func evalIntArith(op Op, args []machine.DValue, conts []machine.Continuation) machine.Answer {
	c := one(conts)
	ij := ints(args, 2)
	i, j := ij[0], ij[1]
	switch op {
	case Mul:
		const minInt64 = int64(-1) << 63
		if (i == -1 && j == minInt64) || (j == -1 && i == minInt64) {
			return exception.AsAnswer(exception.Overflow)
		}
		k := i * j
		if i != 0 && k/i != j {
			return exception.AsAnswer(exception.Overflow)
		}
		return c.Bind([]machine.DValue{machine.DInteger{N: k}})
	case Add:
		k := i + j
		if (j > 0 && k < i) || (j < 0 && k > i) {
			return exception.AsAnswer(exception.Overflow)
		}
		return c.Bind([]machine.DValue{machine.DInteger{N: k}})
	case Sub:
		k := i - j
		if (j < 0 && k < i) || (j > 0 && k > i) {
			return exception.AsAnswer(exception.Overflow)
		}
		return c.Bind([]machine.DValue{machine.DInteger{N: k}})
	case Div:
		if j == 0 {
			return exception.AsAnswer(exception.DivideByZero)
		}
		return c.Bind([]machine.DValue{machine.DInteger{N: i / j}})
	default:
		cpserrors.Fatalf(cpserrors.Unreachable, "primitive: evalIntArith: bad op %d", op)
		panic("unreachable")
	}
}

func evalNeg(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	c := one(conts)
	i := ints(args, 1)[0]
	if i == int64(-1)<<63 { // negating the most negative value overflows
		return exception.AsAnswer(exception.Overflow)
	}
	return c.Bind([]machine.DValue{machine.DInteger{N: -i}})
}

func evalIEq(op Op, args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 2 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: ieql/ineq: expected 2 args, got %d", len(args))
	}
	t, f := thenElse(conts)
	equal, ok := machine.Eq(args[0], args[1])
	if !ok {
		cpserrors.Fatalf(cpserrors.Unreachable, "primitive: ieql/ineq: comparing two Functions is undefined")
	}
	takeT := equal
	if op == INeq {
		takeT = !equal
	}
	if takeT {
		return t.Bind(empty())
	}
	return f.Bind(empty())
}

func evalIntCompare(op Op, args []machine.DValue, conts []machine.Continuation) machine.Answer {
	ij := ints(args, 2)
	i, j := ij[0], ij[1]
	t, f := thenElse(conts)
	var take bool
	switch op {
	case Lt:
		take = i < j
	case Le:
		take = i <= j
	case Gt:
		take = i > j
	case Ge:
		take = i >= j
	}
	if take {
		return t.Bind(empty())
	}
	return f.Bind(empty())
}

func evalRangeChk(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	ij := ints(args, 2)
	i, j := ij[0], ij[1]
	t, f := thenElse(conts)
	var take bool
	if j < 0 {
		if i < 0 {
			take = i < j
		} else {
			take = true
		}
	} else if i < 0 {
		take = false
	} else {
		take = i < j
	}
	if take {
		return t.Bind(empty())
	}
	return f.Bind(empty())
}

func evalBang(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: bang: expected 1 arg, got %d", len(args))
	}
	return evalSubscript([]machine.DValue{args[0], machine.DInteger{N: 0}}, conts)
}

func evalSubscript(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 2 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: subscript: expected 2 args, got %d", len(args))
	}
	c := one(conts)
	n, ok := args[1].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: subscript: index is not an Integer")
	}
	switch a := args[0].(type) {
	case machine.DArray:
		loc := a.Range.Start + machine.Location(n.N)
		return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
			return c.Bind([]machine.DValue{store.Fetch(loc)}).Resume(store)
		}).Bind(nil)

	case machine.DUnboxedArray:
		loc := a.Range.Start + machine.Location(n.N)
		return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
			return c.Bind([]machine.DValue{store.FetchInt(loc)}).Resume(store)
		}).Bind(nil)

	case machine.DRecord:
		idx := a.Offset + int(n.N)
		if idx < 0 || idx >= len(a.Fields) {
			return exception.AsAnswer(exception.IndexOutOfBounds)
		}
		return c.Bind([]machine.DValue{a.Fields[idx]})

	default:
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: subscript: operand is not Array/UnboxedArray/Record")
		panic("unreachable")
	}
}

func evalOrdof(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 2 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: ordof: expected 2 args, got %d", len(args))
	}
	c := one(conts)
	s, ok := args[0].(machine.DString)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: ordof: first operand is not a String")
	}
	i, ok := args[1].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: ordof: second operand is not an Integer")
	}
	if i.N < 0 || int(i.N) >= len(s.S) {
		return exception.AsAnswer(exception.IndexOutOfBounds)
	}
	return c.Bind([]machine.DValue{machine.DInteger{N: int64(s.S[i.N])}})
}

func evalAssign(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 2 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: assign: expected 2 args, got %d", len(args))
	}
	return evalUpdate([]machine.DValue{args[0], machine.DInteger{N: 0}, args[1]}, conts)
}

func evalUnboxedAssign(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 2 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: unboxedassign: expected 2 args, got %d", len(args))
	}
	return evalUnboxedUpdate([]machine.DValue{args[0], machine.DInteger{N: 0}, args[1]}, conts)
}

func evalUpdate(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 3 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: update: expected 3 args, got %d", len(args))
	}
	c := one(conts)
	n, ok := args[1].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: update: index is not an Integer")
	}
	value := args[2]

	switch a := args[0].(type) {
	case machine.DArray:
		loc := a.Range.Start + machine.Location(n.N)
		return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
			newStore := store.UpdateTagged(loc, value)
			return c.Bind(empty()).Resume(newStore)
		}).Bind(nil)

	case machine.DUnboxedArray:
		iv, ok := value.(machine.DInteger)
		if !ok {
			cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: update: UnboxedArray requires an Integer value")
		}
		loc := a.Range.Start + machine.Location(n.N)
		return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
			newStore := store.UpdateInt(loc, iv.N)
			return c.Bind(empty()).Resume(newStore)
		}).Bind(nil)

	default:
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: update: operand is not Array/UnboxedArray")
		panic("unreachable")
	}
}

func evalUnboxedUpdate(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 3 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: unboxedupdate: expected 3 args, got %d", len(args))
	}
	c := one(conts)
	n, ok := args[1].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: unboxedupdate: index is not an Integer")
	}
	iv, ok := args[2].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: unboxedupdate: value is not an Integer")
	}

	switch a := args[0].(type) {
	case machine.DArray:
		loc := a.Range.Start + machine.Location(n.N)
		return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
			newStore := store.UpdateTagged(loc, iv)
			return c.Bind(empty()).Resume(newStore)
		}).Bind(nil)

	case machine.DUnboxedArray:
		loc := a.Range.Start + machine.Location(n.N)
		return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
			newStore := store.UpdateInt(loc, iv.N)
			return c.Bind(empty()).Resume(newStore)
		}).Bind(nil)

	default:
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: unboxedupdate: operand is not Array/UnboxedArray")
		panic("unreachable")
	}
}

func evalStore(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 3 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: store: expected 3 args, got %d", len(args))
	}
	c := one(conts)
	a, ok := args[0].(machine.DByteArray)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: store: operand is not a ByteArray")
	}
	i, ok := args[1].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: store: index is not an Integer")
	}
	v, ok := args[2].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: store: value is not an Integer")
	}
	if v.N < 0 || v.N >= 256 {
		return exception.AsAnswer(exception.Overflow)
	}
	loc := a.Range.Start + machine.Location(i.N)
	return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		newStore := store.UpdateInt(loc, v.N)
		return c.Bind(empty()).Resume(newStore)
	}).Bind(nil)
}

func evalMakeRef(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: makeref: expected 1 arg, got %d", len(args))
	}
	c := one(conts)
	value := args[0]
	return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		next, rng := store.Allocate(1)
		next = next.UpdateTagged(rng.Start, value)
		return c.Bind([]machine.DValue{machine.DArray{Range: rng}}).Resume(next)
	}).Bind(nil)
}

func evalMakeRefUnboxed(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: makerefunboxed: expected 1 arg, got %d", len(args))
	}
	c := one(conts)
	i, ok := args[0].(machine.DInteger)
	if !ok {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: makerefunboxed: operand is not an Integer")
	}
	return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		next, rng := store.Allocate(1)
		next = next.UpdateInt(rng.Start, i.N)
		return c.Bind([]machine.DValue{machine.DArray{Range: rng}}).Resume(next)
	}).Bind(nil)
}

func evalALength(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: alength: expected 1 arg, got %d", len(args))
	}
	c := one(conts)
	switch a := args[0].(type) {
	case machine.DArray:
		return c.Bind([]machine.DValue{machine.DInteger{N: a.Range.Len()}})
	case machine.DUnboxedArray:
		return c.Bind([]machine.DValue{machine.DInteger{N: a.Range.Len()}})
	default:
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: alength: operand is not Array/UnboxedArray")
		panic("unreachable")
	}
}

func evalSLength(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: slength: expected 1 arg, got %d", len(args))
	}
	c := one(conts)
	switch a := args[0].(type) {
	case machine.DByteArray:
		return c.Bind([]machine.DValue{machine.DInteger{N: a.Range.Len()}})
	case machine.DString:
		return c.Bind([]machine.DValue{machine.DInteger{N: int64(len(a.S))}})
	default:
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: slength: operand is not ByteArray/String")
		panic("unreachable")
	}
}

func evalGetHdlr(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 0 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: gethdlr: expected 0 args, got %d", len(args))
	}
	c := one(conts)
	return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		return c.Bind([]machine.DValue{store.Fetch(store.Handler())}).Resume(store)
	}).Bind(nil)
}

func evalSetHdlr(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: sethdlr: expected 1 arg, got %d", len(args))
	}
	c := one(conts)
	newHandler := args[0]
	return machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		next := store.Update(store.Handler(), newHandler)
		return c.Bind(empty()).Resume(next)
	}).Bind(nil)
}

func evalBoxed(args []machine.DValue, conts []machine.Continuation) machine.Answer {
	if len(args) != 1 {
		cpserrors.Fatalf(cpserrors.ArityMismatch, "primitive: boxed: expected 1 arg, got %d", len(args))
	}
	t, f := thenElse(conts)
	switch args[0].(type) {
	case machine.DInteger, machine.DReal:
		return f.Bind(empty())
	default:
		return t.Bind(empty())
	}
}

func evalRealArith(op Op, args []machine.DValue, conts []machine.Continuation) machine.Answer {
	c := one(conts)
	ab := reals(args, 2)
	a, b := ab[0], ab[1]
	switch op {
	case FAdd:
		return c.Bind([]machine.DValue{machine.DReal{N: a + b}})
	case FSub:
		return c.Bind([]machine.DValue{machine.DReal{N: a - b}})
	case FMul:
		return c.Bind([]machine.DValue{machine.DReal{N: a * b}})
	case FDiv:
		if b == 0.0 {
			return exception.AsAnswer(exception.DivideByZero)
		}
		return c.Bind([]machine.DValue{machine.DReal{N: a / b}})
	default:
		cpserrors.Fatalf(cpserrors.Unreachable, "primitive: evalRealArith: bad op %d", op)
		panic("unreachable")
	}
}

func evalRealCompare(op Op, args []machine.DValue, conts []machine.Continuation) machine.Answer {
	ab := reals(args, 2)
	a, b := ab[0], ab[1]
	t, f := thenElse(conts)
	var take bool
	switch op {
	case FEql:
		take = a == b
	case FNeq:
		take = a != b
	case FGe:
		take = a >= b
	case FGt:
		take = a > b
	case FLe:
		take = a <= b
	case FLt:
		take = a < b
	}
	if take {
		return t.Bind(empty())
	}
	return f.Bind(empty())
}
