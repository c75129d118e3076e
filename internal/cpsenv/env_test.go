package cpsenv

import (
	"reflect"
	"testing"

	"cpsi/internal/machine"
)

func TestBindAndLookup(t *testing.T) {
	e := New().Bind("x", machine.DInteger{N: 1})
	got := e.Lookup("x")
	if got.(machine.DInteger).N != 1 {
		t.Errorf("Lookup(x) = %#v, want DInteger{1}", got)
	}
}

func TestBindSharesWhenValueUnchanged(t *testing.T) {
	e := New().Bind("x", machine.DInteger{N: 1})
	e2 := e.Bind("x", machine.DInteger{N: 1})

	// §4.3 sharing optimization: rebinding to an equal DValue must return
	// the receiver's own map, not a freshly copied one.
	p1 := reflect.ValueOf(e.bindings).Pointer()
	p2 := reflect.ValueOf(e2.bindings).Pointer()
	if p1 != p2 {
		t.Errorf("Bind with unchanged value allocated a new map")
	}
}

func TestBindReplacesDifferentValue(t *testing.T) {
	e := New().Bind("x", machine.DInteger{N: 1})
	e2 := e.Bind("x", machine.DInteger{N: 2})

	if e.Lookup("x").(machine.DInteger).N != 1 {
		t.Errorf("original environment mutated")
	}
	if e2.Lookup("x").(machine.DInteger).N != 2 {
		t.Errorf("Lookup(x) on rebound env = %v, want 2", e2.Lookup("x"))
	}
}

func TestBindNLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("BindN with mismatched lengths did not panic")
		}
	}()
	New().BindN([]machine.Variable{"a", "b"}, []machine.DValue{machine.DInteger{N: 1}})
}

func TestUnbind(t *testing.T) {
	e := New().Bind("x", machine.DInteger{N: 1}).Bind("y", machine.DInteger{N: 2})
	e2 := e.Unbind("x")

	defer func() {
		if recover() == nil {
			t.Errorf("Lookup(x) after Unbind did not panic")
		}
	}()
	e2.Lookup("x")
}

func TestLookupUnboundPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Lookup of unbound variable did not panic")
		}
	}()
	New().Lookup("nope")
}

func TestValueOfLiterals(t *testing.T) {
	e := New()

	if got := e.ValueOf(machine.IntLit{N: 5}); got.(machine.DInteger).N != 5 {
		t.Errorf("ValueOf(IntLit{5}) = %#v, want DInteger{5}", got)
	}
	if got := e.ValueOf(machine.RealLit{N: 1.5}); got.(machine.DReal).N != 1.5 {
		t.Errorf("ValueOf(RealLit{1.5}) = %#v, want DReal{1.5}", got)
	}
	if got := e.ValueOf(machine.StrLit{S: "hi"}); got.(machine.DString).S != "hi" {
		t.Errorf("ValueOf(StrLit{hi}) = %#v, want DString{hi}", got)
	}
}

func TestValueOfVarRefLooksUpEnvironment(t *testing.T) {
	e := New().Bind("x", machine.DInteger{N: 7})
	got := e.ValueOf(machine.VarRef{Name: "x"})
	if got.(machine.DInteger).N != 7 {
		t.Errorf("ValueOf(VarRef x) = %#v, want DInteger{7}", got)
	}
}

func TestValueOfLabelRefLooksUpEnvironment(t *testing.T) {
	e := New().Bind("f", machine.DInteger{N: 3})
	got := e.ValueOf(machine.LabelRef{Name: "f"})
	if got.(machine.DInteger).N != 3 {
		t.Errorf("ValueOf(LabelRef f) = %#v, want DInteger{3}", got)
	}
}
