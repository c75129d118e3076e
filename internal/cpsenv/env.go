// Package cpsenv implements the variable environment of §4.3: an
// immutable mapping from machine.Variable to machine.DValue. Every Bind,
// BindN or Unbind that changes a binding copies the whole map, so
// successive environments share no storage; the only sharing is that
// Bind and Unbind return the receiver itself when nothing changes.
package cpsenv

import "cpsi/internal/machine"

// Env is an immutable variable environment. The zero value is the empty
// environment.
type Env struct {
	bindings map[machine.Variable]machine.DValue
}

// New returns the empty environment.
func New() Env {
	return Env{}
}

// Bind returns a new environment in which v is bound to d. If v is
// already bound to an equal DValue, Bind returns the receiver unchanged
// (the sharing optimization of §4.3) rather than copying the map.
func (e Env) Bind(v machine.Variable, d machine.DValue) Env {
	if existing, found := e.bindings[v]; found {
		if eq, ok := machine.Eq(existing, d); ok && eq {
			return e
		}
	}
	next := make(map[machine.Variable]machine.DValue, len(e.bindings)+1)
	for k, val := range e.bindings {
		next[k] = val
	}
	next[v] = d
	return Env{bindings: next}
}

// BindN batch-binds vars to vals. len(vars) must equal len(vals); a
// mismatch is a caller bug and panics rather than returning an error.
func (e Env) BindN(vars []machine.Variable, vals []machine.DValue) Env {
	if len(vars) != len(vals) {
		panic("cpsenv: BindN: variable and value lists have different lengths")
	}
	next := make(map[machine.Variable]machine.DValue, len(e.bindings)+len(vars))
	for k, val := range e.bindings {
		next[k] = val
	}
	for i, v := range vars {
		next[v] = vals[i]
	}
	return Env{bindings: next}
}

// Unbind returns a new environment in which v is free. Present for parity
// with the original source's Environment::unbind (see SPEC_FULL.md);
// unused by the evaluator itself.
func (e Env) Unbind(v machine.Variable) Env {
	if _, found := e.bindings[v]; !found {
		return e
	}
	next := make(map[machine.Variable]machine.DValue, len(e.bindings))
	for k, val := range e.bindings {
		if k != v {
			next[k] = val
		}
	}
	return Env{bindings: next}
}

// Lookup returns the DValue bound to v. An unbound variable is an
// interpreter bug (§4.3): it panics rather than returning an error.
func (e Env) Lookup(v machine.Variable) machine.DValue {
	d, found := e.bindings[v]
	if !found {
		panic("cpsenv: Lookup: unbound variable " + string(v))
	}
	return d
}

// ValueOf is the denotation function V of [Appel]: it maps an atomic
// machine.Value to its machine.DValue, looking up Variable/Label names in
// the environment and converting literals directly.
func (e Env) ValueOf(v machine.Value) machine.DValue {
	switch val := v.(type) {
	case machine.VarRef:
		return e.Lookup(val.Name)
	case machine.LabelRef:
		return e.Lookup(val.Name)
	case machine.IntLit:
		return machine.DInteger{N: val.N}
	case machine.RealLit:
		return machine.DReal{N: val.N}
	case machine.StrLit:
		return machine.DString{S: val.S}
	default:
		panic("cpsenv: ValueOf: unknown Value variant")
	}
}
