// Package scenario builds and runs the six golden end-to-end terms
// named S1-S6: arithmetic, overflow, record/select, mutual recursion,
// reference cells, and handler override. Each is a literal in-memory
// CExpr tree, constructed directly (there is no front-end to parse one
// from source), and driven to completion by applying its Evaluate
// Answer to a fresh Store exactly once — every store-touching primitive
// in internal/primitive tail-invokes the next step itself rather than
// suspending back to an external loop, so one Resume closes out a
// closed term.
package scenario

import (
	"fmt"
	"time"

	"cpsi/internal/cps"
	"cpsi/internal/eval"
	"cpsi/internal/machine"
	"cpsi/internal/primitive"
)

// Result is the outcome of running one scenario.
type Result struct {
	Name     string
	Passed   bool
	Got      string
	Want     string
	Duration time.Duration
}

// haltSink is a terminal continuation: it records whatever it is called
// with and returns a fixed-point Answer, so a driver that resumes it
// again (it shouldn't need to) doesn't loop into undefined behavior.
type haltSink struct {
	got []machine.DValue
}

func (h *haltSink) continuation() machine.Continuation {
	return machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		h.got = args
		return terminalAnswer()
	})
}

func terminalAnswer() machine.Answer {
	return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
		return terminalAnswer()
	}).Bind(nil)
}

func v(name string) machine.Value   { return machine.VarRef{Name: machine.Variable(name)} }
func iv(n int64) machine.Value      { return machine.IntLit{N: n} }
func variable(name string) machine.Variable { return machine.Variable(name) }

// S1Arithmetic: PrimOp(+, [40, 2], [x], [Apply(halt, [x])]) -> halt receives 42.
func S1Arithmetic() Result {
	halt := &haltSink{}
	expr := cps.PrimOp{
		Op:   primitive.Add,
		Args: []machine.Value{iv(40), iv(2)},
		Vars: []machine.Variable{variable("x")},
		Arms: []cps.CExpr{
			cps.Apply{Func: v("halt"), Args: []machine.Value{v("x")}},
		},
	}
	run(halt, expr)
	return verify("S1-arithmetic", halt, machine.DInteger{N: 42})
}

// S2Overflow: PrimOp(*, [MaxInt64, 2], [x], [...]) with a handler bound
// as the store's initial handler -> the handler receives Exception(Overflow).
func S2Overflow() Result {
	halt := &haltSink{}
	handler := &haltSink{}
	expr := cps.PrimOp{
		Op:   primitive.Mul,
		Args: []machine.Value{iv(1<<63 - 1), iv(2)},
		Vars: []machine.Variable{variable("x")},
		Arms: []cps.CExpr{
			cps.Apply{Func: v("halt"), Args: []machine.Value{v("x")}},
		},
	}
	runWithHandler(halt, handler, expr)
	if len(handler.got) != 1 {
		return Result{Name: "S2-overflow", Passed: false, Got: "handler not invoked", Want: "Exception(Overflow)"}
	}
	exc, ok := handler.got[0].(machine.DException)
	want := ok && exc.Kind == machine.Overflow
	return Result{
		Name:   "S2-overflow",
		Passed: want,
		Got:    fmt.Sprintf("%#v", handler.got[0]),
		Want:   "Exception(Overflow)",
	}
}

// S3RecordSelect: Record([(10,Offset 0),(20,Offset 0)], r,
// Select(1, r, y, Apply(halt, [y]))) -> halt receives 20.
func S3RecordSelect() Result {
	halt := &haltSink{}
	expr := cps.Record{
		Fields: []cps.RecordField{
			{Value: iv(10), Path: machine.PathOffset{K: 0}},
			{Value: iv(20), Path: machine.PathOffset{K: 0}},
		},
		Var: variable("r"),
		Body: cps.Select{
			Index: 1,
			Value: v("r"),
			Var:   variable("y"),
			Body:  cps.Apply{Func: v("halt"), Args: []machine.Value{v("y")}},
		},
	}
	run(halt, expr)
	return verify("S3-record-select", halt, machine.DInteger{N: 20})
}

// S4MutualRecursion: Fix([(even,[n],...odd...),(odd,[n],...even...)],
// Apply(even, [6])) -> halt receives 1 (true).
func S4MutualRecursion() Result {
	halt := &haltSink{}

	evenBody := cps.PrimOp{
		Op:   primitive.IEql,
		Args: []machine.Value{v("n"), iv(0)},
		Vars: nil,
		Arms: []cps.CExpr{
			cps.Apply{Func: v("halt"), Args: []machine.Value{iv(1)}},
			cps.PrimOp{
				Op:   primitive.Sub,
				Args: []machine.Value{v("n"), iv(1)},
				Vars: []machine.Variable{variable("n1")},
				Arms: []cps.CExpr{
					cps.Apply{Func: v("odd"), Args: []machine.Value{v("n1")}},
				},
			},
		},
	}
	oddBody := cps.PrimOp{
		Op:   primitive.IEql,
		Args: []machine.Value{v("n"), iv(0)},
		Vars: nil,
		Arms: []cps.CExpr{
			cps.Apply{Func: v("halt"), Args: []machine.Value{iv(0)}},
			cps.PrimOp{
				Op:   primitive.Sub,
				Args: []machine.Value{v("n"), iv(1)},
				Vars: []machine.Variable{variable("n1")},
				Arms: []cps.CExpr{
					cps.Apply{Func: v("even"), Args: []machine.Value{v("n1")}},
				},
			},
		},
	}

	expr := cps.Fix{
		Defs: []cps.FunctionDef{
			{Name: variable("even"), Params: []machine.Variable{variable("n")}, Body: evenBody},
			{Name: variable("odd"), Params: []machine.Variable{variable("n")}, Body: oddBody},
		},
		Body: cps.Apply{Func: v("even"), Args: []machine.Value{iv(6)}},
	}
	run(halt, expr)
	return verify("S4-mutual-recursion", halt, machine.DInteger{N: 1})
}

// S5ReferenceCell: PrimOp(makeref,[0],[r],[PrimOp(:=,[r,7],[],
// [PrimOp(!,[r],[x],[Apply(halt,[x])])])]) -> halt receives 7.
func S5ReferenceCell() Result {
	halt := &haltSink{}
	expr := cps.PrimOp{
		Op:   primitive.MakeRef,
		Args: []machine.Value{iv(0)},
		Vars: []machine.Variable{variable("r")},
		Arms: []cps.CExpr{
			cps.PrimOp{
				Op:   primitive.Assign,
				Args: []machine.Value{v("r"), iv(7)},
				Vars: nil,
				Arms: []cps.CExpr{
					cps.PrimOp{
						Op:   primitive.Bang,
						Args: []machine.Value{v("r")},
						Vars: []machine.Variable{variable("x")},
						Arms: []cps.CExpr{
							cps.Apply{Func: v("halt"), Args: []machine.Value{v("x")}},
						},
					},
				},
			},
		},
	}
	run(halt, expr)
	return verify("S5-reference-cell", halt, machine.DInteger{N: 7})
}

// S6Handler: PrimOp(sethdlr,[myHandler],[],[PrimOp(div,[1,0],[x],
// [Apply(halt,[x])])]) -> myHandler receives Exception(DivideByZero), not halt.
func S6Handler() Result {
	halt := &haltSink{}
	myHandler := &haltSink{}

	expr := cps.PrimOp{
		Op:   primitive.SetHdlr,
		Args: []machine.Value{v("myHandler")},
		Vars: nil,
		Arms: []cps.CExpr{
			cps.PrimOp{
				Op:   primitive.Div,
				Args: []machine.Value{iv(1), iv(0)},
				Vars: []machine.Variable{variable("x")},
				Arms: []cps.CExpr{
					cps.Apply{Func: v("halt"), Args: []machine.Value{v("x")}},
				},
			},
		},
	}

	vars := []machine.Variable{variable("halt"), variable("myHandler")}
	vals := []machine.DValue{
		machine.DFunction{Continuation: halt.continuation()},
		machine.DFunction{Continuation: myHandler.continuation()},
	}
	answer := eval.Evaluate(vars, vals, expr)
	store := machine.NewStore(fallbackHandler())
	answer.Resume(store)

	if len(halt.got) != 0 {
		return Result{Name: "S6-handler", Passed: false, Got: "halt was invoked", Want: "myHandler invoked, not halt"}
	}
	if len(myHandler.got) != 1 {
		return Result{Name: "S6-handler", Passed: false, Got: "myHandler not invoked", Want: "Exception(DivideByZero)"}
	}
	exc, ok := myHandler.got[0].(machine.DException)
	want := ok && exc.Kind == machine.DivideByZero
	return Result{
		Name:   "S6-handler",
		Passed: want,
		Got:    fmt.Sprintf("%#v", myHandler.got[0]),
		Want:   "Exception(DivideByZero)",
	}
}

func run(halt *haltSink, expr cps.CExpr) {
	vars := []machine.Variable{variable("halt")}
	vals := []machine.DValue{machine.DFunction{Continuation: halt.continuation()}}
	answer := eval.Evaluate(vars, vals, expr)
	store := machine.NewStore(fallbackHandler())
	answer.Resume(store)
}

func runWithHandler(halt, handler *haltSink, expr cps.CExpr) {
	vars := []machine.Variable{variable("halt")}
	vals := []machine.DValue{machine.DFunction{Continuation: halt.continuation()}}
	answer := eval.Evaluate(vars, vals, expr)
	store := machine.NewStore(handler.continuation())
	answer.Resume(store)
}

// fallbackHandler is installed as a store's initial handler when a
// scenario does not itself exercise handler behavior; it should never
// be invoked by a passing scenario.
func fallbackHandler() machine.Continuation {
	return machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		return terminalAnswer()
	})
}

func verify(name string, halt *haltSink, want machine.DValue) Result {
	if len(halt.got) != 1 {
		return Result{Name: name, Passed: false, Got: "halt not invoked", Want: fmt.Sprintf("%#v", want)}
	}
	equal, ok := machine.Eq(halt.got[0], want)
	return Result{
		Name:   name,
		Passed: ok && equal,
		Got:    fmt.Sprintf("%#v", halt.got[0]),
		Want:   fmt.Sprintf("%#v", want),
	}
}

// All runs every golden scenario in order.
func All() []Result {
	return []Result{
		S1Arithmetic(),
		S2Overflow(),
		S3RecordSelect(),
		S4MutualRecursion(),
		S5ReferenceCell(),
		S6Handler(),
	}
}
