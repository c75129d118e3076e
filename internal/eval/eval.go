// Package eval implements the external interface of §6 and the seven
// mutually-recursive evaluation rules of §4.6.
package eval

import (
	"cpsi/internal/cps"
	"cpsi/internal/cpsenv"
	"cpsi/internal/cpserrors"
	"cpsi/internal/exception"
	"cpsi/internal/machine"
	"cpsi/internal/primitive"
)

// Evaluate is the external interface of §6: bind vars to vals in a fresh
// environment and evaluate expr to an Answer.
func Evaluate(vars []machine.Variable, vals []machine.DValue, expr cps.CExpr) machine.Answer {
	env := cpsenv.New().BindN(vars, vals)
	return evalExpr(expr, env)
}

func evalExpr(expr cps.CExpr, env cpsenv.Env) machine.Answer {
	switch e := expr.(type) {
	case cps.Record:
		return evalRecord(e, env)
	case cps.Select:
		return evalSelect(e, env)
	case cps.Offset:
		return evalOffset(e, env)
	case cps.Apply:
		return evalApply(e, env)
	case cps.Fix:
		return evalFix(e, env)
	case cps.Switch:
		return evalSwitch(e, env)
	case cps.PrimOp:
		return evalPrimOp(e, env)
	default:
		cpserrors.Fatalf(cpserrors.Unreachable, "eval: evalExpr: unknown CExpr variant %T", expr)
		panic("unreachable")
	}
}

func evalRecord(e cps.Record, env cpsenv.Env) machine.Answer {
	fields := make([]machine.DValue, len(e.Fields))
	for i, f := range e.Fields {
		d := env.ValueOf(f.Value)
		resolved := machine.Resolve(d, f.Path)
		if exc, ok := resolved.(machine.DException); ok {
			return exception.AsAnswer(exc.Kind)
		}
		fields[i] = resolved
	}
	record := machine.DRecord{Fields: fields, Offset: 0}
	return evalExpr(e.Body, env.Bind(e.Var, record))
}

func evalSelect(e cps.Select, env cpsenv.Env) machine.Answer {
	d := env.ValueOf(e.Value)
	rec, ok := d.(machine.DRecord)
	if !ok {
		return exception.AsAnswer(exception.InvalidAccess)
	}
	idx := rec.Offset + e.Index
	if idx < 0 || idx >= len(rec.Fields) {
		return exception.AsAnswer(exception.InvalidAccess)
	}
	return evalExpr(e.Body, env.Bind(e.Var, rec.Fields[idx]))
}

func evalOffset(e cps.Offset, env cpsenv.Env) machine.Answer {
	d := env.ValueOf(e.Value)
	rec, ok := d.(machine.DRecord)
	if !ok {
		return exception.AsAnswer(exception.InvalidAccess)
	}
	bound := machine.DRecord{Fields: rec.Fields, Offset: rec.Offset + e.Index}
	return evalExpr(e.Body, env.Bind(e.Var, bound))
}

func evalApply(e cps.Apply, env cpsenv.Env) machine.Answer {
	d := env.ValueOf(e.Func)
	fn, ok := d.(machine.DFunction)
	if !ok {
		return exception.AsAnswer(exception.Undefined)
	}
	args := make([]machine.DValue, len(e.Args))
	for i, a := range e.Args {
		args[i] = env.ValueOf(a)
	}
	return fn.Continuation.Bind(args)
}

// evalFix ties the knot of §4.6's mutual-recursion rule: every C_i must
// see the same extended environment R', including every other f_j. The
// original source recomputes R' inside each invocation of C_i (its h/g
// helper pair), because its Environment is reference-counted and cannot
// be assigned into a cell before it exists. Go's *cpsenv.Env can: a
// single pointer is declared, each C_i's closure captures that pointer
// (not its current value), and the pointee is set once after all the
// DFunctions are built. Every invocation of every C_i then reads the same
// already-built R' through the pointer — equivalent to recomputing it,
// since R' is immutable once built, but built only once.
func evalFix(e cps.Fix, env cpsenv.Env) machine.Answer {
	extended := bindFix(e.Defs, env)
	return evalExpr(e.Body, extended)
}

func bindFix(defs []cps.FunctionDef, base cpsenv.Env) cpsenv.Env {
	names := make([]machine.Variable, len(defs))
	vals := make([]machine.DValue, len(defs))
	extended := new(cpsenv.Env)

	for i, def := range defs {
		names[i] = def.Name
		def := def
		cont := machine.NewContinuation(func(actualArgs []machine.DValue, store *machine.Store) machine.Answer {
			callEnv := extended.BindN(def.Params, actualArgs)
			return evalExpr(def.Body, callEnv).Resume(store)
		})
		vals[i] = machine.DFunction{Continuation: cont}
	}

	*extended = base.BindN(names, vals)
	return *extended
}

func evalSwitch(e cps.Switch, env cpsenv.Env) machine.Answer {
	d := env.ValueOf(e.Value)
	i, ok := d.(machine.DInteger)
	if !ok || i.N < 0 || int(i.N) >= len(e.Arms) {
		return exception.AsAnswer(exception.IndexOutOfBounds)
	}
	return evalExpr(e.Arms[i.N], env)
}

func evalPrimOp(e cps.PrimOp, env cpsenv.Env) machine.Answer {
	ds := make([]machine.DValue, len(e.Args))
	for i, v := range e.Args {
		ds[i] = env.ValueOf(v)
	}

	conts := make([]machine.Continuation, len(e.Arms))
	for i, arm := range e.Arms {
		arm := arm
		conts[i] = machine.NewContinuation(func(rs []machine.DValue, store *machine.Store) machine.Answer {
			callEnv := env.BindN(e.Vars, rs)
			return evalExpr(arm, callEnv).Resume(store)
		})
	}

	return primitive.Eval(e.Op, ds, conts)
}
