package primitive

import (
	"testing"

	"cpsi/internal/cpserrors"
	"cpsi/internal/machine"
)

func capture1() (machine.Continuation, *[]machine.DValue) {
	var got []machine.DValue
	return machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		got = args
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
			return machine.Answer{}
		}).Bind(nil)
	}), &got
}

func resume(a machine.Answer) {
	store := machine.NewStore(machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
		return machine.Answer{}
	}))
	a.Resume(store)
}

func TestIntArith(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		a, b int64
		want int64
	}{
		{"add", Add, 40, 2, 42},
		{"sub", Sub, 50, 8, 42},
		{"mul", Mul, 6, 7, 42},
		{"div", Div, 84, 2, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := capture1()
			answer := Eval(tt.op, []machine.DValue{machine.DInteger{N: tt.a}, machine.DInteger{N: tt.b}}, []machine.Continuation{c})
			resume(answer)
			if len(*got) != 1 || (*got)[0].(machine.DInteger).N != tt.want {
				t.Errorf("%v(%d, %d) = %v, want %d", tt.name, tt.a, tt.b, *got, tt.want)
			}
		})
	}
}

func TestAddOverflowRaises(t *testing.T) {
	const maxInt64 = int64(1<<63 - 1)
	c, got := capture1()
	answer := Eval(Add, []machine.DValue{machine.DInteger{N: maxInt64}, machine.DInteger{N: 1}}, []machine.Continuation{c})

	var raised machine.DException
	handler := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		raised = args[0].(machine.DException)
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
			return machine.Answer{}
		}).Bind(nil)
	})
	store := machine.NewStore(handler)
	answer.Resume(store)

	if len(*got) != 0 {
		t.Errorf("continuation was invoked on overflow, want handler invoked instead")
	}
	if raised.Kind != machine.Overflow {
		t.Errorf("raised = %#v, want Exception(Overflow)", raised)
	}
}

func TestMulOverflowRaises(t *testing.T) {
	const maxInt64 = int64(1<<63 - 1)
	c, _ := capture1()
	answer := Eval(Mul, []machine.DValue{machine.DInteger{N: maxInt64}, machine.DInteger{N: 2}}, []machine.Continuation{c})

	var raised machine.DException
	handler := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		raised = args[0].(machine.DException)
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
			return machine.Answer{}
		}).Bind(nil)
	})
	store := machine.NewStore(handler)
	answer.Resume(store)

	if raised.Kind != machine.Overflow {
		t.Errorf("raised = %#v, want Exception(Overflow)", raised)
	}
}

func TestDivByZeroRaises(t *testing.T) {
	c, _ := capture1()
	answer := Eval(Div, []machine.DValue{machine.DInteger{N: 1}, machine.DInteger{N: 0}}, []machine.Continuation{c})

	var raised machine.DException
	handler := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		raised = args[0].(machine.DException)
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
			return machine.Answer{}
		}).Bind(nil)
	})
	store := machine.NewStore(handler)
	answer.Resume(store)

	if raised.Kind != machine.DivideByZero {
		t.Errorf("raised = %#v, want Exception(DivideByZero)", raised)
	}
}

func TestNegOverflowOnMostNegative(t *testing.T) {
	mostNeg := int64(-1) << 63
	c, _ := capture1()
	answer := Eval(Neg, []machine.DValue{machine.DInteger{N: mostNeg}}, []machine.Continuation{c})

	var raised machine.DException
	handler := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		raised = args[0].(machine.DException)
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
			return machine.Answer{}
		}).Bind(nil)
	})
	store := machine.NewStore(handler)
	answer.Resume(store)

	if raised.Kind != machine.Overflow {
		t.Errorf("raised = %#v, want Exception(Overflow)", raised)
	}
}

func TestIEqlTakesThenOnEqual(t *testing.T) {
	var tookThen, tookEls bool
	var thenGot []machine.DValue
	thenC := machine.NewContinuation(func(args []machine.DValue, _ *machine.Store) machine.Answer {
		tookThen = true
		thenGot = args
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})
	elsC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
		tookEls = true
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})
	answer := Eval(IEql, []machine.DValue{machine.DInteger{N: 5}, machine.DInteger{N: 5}}, []machine.Continuation{thenC, elsC})
	resume(answer)

	if !tookThen || tookEls {
		t.Errorf("IEql(5, 5): tookThen=%v tookEls=%v, want tookThen only", tookThen, tookEls)
	}
	if len(thenGot) != 0 {
		t.Errorf("then continuation got args %v, want empty", thenGot)
	}
}

func TestIEqlTakesElseOnUnequal(t *testing.T) {
	then, _ := capture1()
	els, _ := capture1()
	answer := Eval(IEql, []machine.DValue{machine.DInteger{N: 5}, machine.DInteger{N: 6}}, []machine.Continuation{then, els})

	var tookThen, tookEls bool
	thenC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
		tookThen = true
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})
	elsC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
		tookEls = true
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})
	answer = Eval(IEql, []machine.DValue{machine.DInteger{N: 5}, machine.DInteger{N: 6}}, []machine.Continuation{thenC, elsC})
	resume(answer)

	if tookThen || !tookEls {
		t.Errorf("IEql(5, 6): tookThen=%v tookEls=%v, want tookEls only", tookThen, tookEls)
	}
}

func TestIEqlOnFunctionsIsUndefined(t *testing.T) {
	f1 := machine.DFunction{Continuation: machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} })}
	f2 := machine.DFunction{Continuation: machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} })}

	then, _ := capture1()
	els, _ := capture1()

	// Comparing two functions is an interpreter-internal error: it panics
	// with an InternalError instead of reaching the program's handler.
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("IEql on two functions did not panic")
		}
		if _, ok := r.(*cpserrors.InternalError); !ok {
			t.Errorf("panic value = %#v, want *cpserrors.InternalError", r)
		}
	}()
	Eval(IEql, []machine.DValue{f1, f2}, []machine.Continuation{then, els})
}

func TestIntCompare(t *testing.T) {
	tests := []struct {
		name   string
		op     Op
		a, b   int64
		want   bool
	}{
		{"lt true", Lt, 1, 2, true},
		{"lt false", Lt, 2, 1, false},
		{"le equal", Le, 2, 2, true},
		{"gt true", Gt, 3, 2, true},
		{"ge equal", Ge, 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tookThen bool
			thenC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
				tookThen = true
				return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
			})
			elsC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
				return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
			})
			answer := Eval(tt.op, []machine.DValue{machine.DInteger{N: tt.a}, machine.DInteger{N: tt.b}}, []machine.Continuation{thenC, elsC})
			resume(answer)
			if tookThen != tt.want {
				t.Errorf("%s(%d, %d) took then = %v, want %v", tt.name, tt.a, tt.b, tookThen, tt.want)
			}
		})
	}
}

func TestMakeRefThenAssignThenBang(t *testing.T) {
	var ref machine.DValue
	var afterBang machine.DValue

	nullHandler := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} })
	bang := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		afterBang = args[0]
		return nullHandler.Bind(nil)
	})
	assign := machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		return Eval(Bang, []machine.DValue{ref}, []machine.Continuation{bang}).Resume(store)
	})
	makeref := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		ref = args[0]
		return Eval(Assign, []machine.DValue{ref, machine.DInteger{N: 7}}, []machine.Continuation{assign}).Resume(store)
	})

	store := machine.NewStore(nullHandler)
	Eval(MakeRef, []machine.DValue{machine.DInteger{N: 0}}, []machine.Continuation{makeref}).Resume(store)

	if afterBang == nil || afterBang.(machine.DInteger).N != 7 {
		t.Errorf("makeref/assign/bang round trip = %#v, want DInteger{7}", afterBang)
	}
}

func TestSubscriptOnRecord(t *testing.T) {
	rec := machine.DRecord{Fields: []machine.DValue{machine.DInteger{N: 10}, machine.DInteger{N: 20}}, Offset: 0}
	c, got := capture1()
	answer := Eval(Subscript, []machine.DValue{rec, machine.DInteger{N: 1}}, []machine.Continuation{c})
	resume(answer)

	if len(*got) != 1 || (*got)[0].(machine.DInteger).N != 20 {
		t.Errorf("subscript(rec, 1) = %v, want DInteger{20}", *got)
	}
}

func TestSubscriptOutOfBoundsOnRecord(t *testing.T) {
	rec := machine.DRecord{Fields: []machine.DValue{machine.DInteger{N: 10}}, Offset: 0}
	c, _ := capture1()
	answer := Eval(Subscript, []machine.DValue{rec, machine.DInteger{N: 9}}, []machine.Continuation{c})

	var raised machine.DException
	handler := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		raised = args[0].(machine.DException)
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})
	store := machine.NewStore(handler)
	answer.Resume(store)

	if raised.Kind != machine.IndexOutOfBounds {
		t.Errorf("raised = %#v, want Exception(IndexOutOfBounds)", raised)
	}
}

func TestGetHdlrReturnsInstalledHandler(t *testing.T) {
	handlerFn := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} })
	store := machine.NewStore(handlerFn)

	c, got := capture1()
	answer := Eval(GetHdlr, nil, []machine.Continuation{c})
	answer.Resume(store)

	if len(*got) != 1 {
		t.Fatalf("gethdlr: got %d results, want 1", len(*got))
	}
	if _, ok := (*got)[0].(machine.DFunction); !ok {
		t.Errorf("gethdlr result = %#v, want DFunction", (*got)[0])
	}
}

func TestSetHdlrThenRaiseInvokesNewHandler(t *testing.T) {
	oldHandler := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} })

	var newHandlerCalled bool
	newHandler := machine.DFunction{Continuation: machine.NewContinuation(func(args []machine.DValue, s *machine.Store) machine.Answer {
		newHandlerCalled = true
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})}

	afterSet := machine.NewContinuation(func(_ []machine.DValue, store *machine.Store) machine.Answer {
		return store.Raise(machine.DException{Kind: machine.Undefined})
	})

	store := machine.NewStore(oldHandler)
	Eval(SetHdlr, []machine.DValue{newHandler}, []machine.Continuation{afterSet}).Resume(store)

	if !newHandlerCalled {
		t.Errorf("handler was not updated: raise after sethdlr invoked the old handler")
	}
}

func TestBoxedDistinguishesUnboxedFromBoxed(t *testing.T) {
	tests := []struct {
		name    string
		v       machine.DValue
		boxed   bool
	}{
		{"integer", machine.DInteger{N: 1}, false},
		{"real", machine.DReal{N: 1}, false},
		{"record", machine.DRecord{}, true},
		{"string", machine.DString{S: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tookThen bool
			thenC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
				tookThen = true
				return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
			})
			elsC := machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer {
				return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
			})
			answer := Eval(Boxed, []machine.DValue{tt.v}, []machine.Continuation{thenC, elsC})
			resume(answer)
			if tookThen != tt.boxed {
				t.Errorf("Boxed(%#v) took then = %v, want %v", tt.v, tookThen, tt.boxed)
			}
		})
	}
}

func TestRealArith(t *testing.T) {
	c, got := capture1()
	answer := Eval(FMul, []machine.DValue{machine.DReal{N: 2.5}, machine.DReal{N: 4}}, []machine.Continuation{c})
	resume(answer)
	if len(*got) != 1 || (*got)[0].(machine.DReal).N != 10 {
		t.Errorf("FMul(2.5, 4) = %v, want DReal{10}", *got)
	}
}

func TestFDivByZeroRaises(t *testing.T) {
	c, _ := capture1()
	answer := Eval(FDiv, []machine.DValue{machine.DReal{N: 1}, machine.DReal{N: 0}}, []machine.Continuation{c})

	var raised machine.DException
	handler := machine.NewContinuation(func(args []machine.DValue, store *machine.Store) machine.Answer {
		raised = args[0].(machine.DException)
		return machine.NewContinuation(func(_ []machine.DValue, _ *machine.Store) machine.Answer { return machine.Answer{} }).Bind(nil)
	})
	store := machine.NewStore(handler)
	answer.Resume(store)

	if raised.Kind != machine.DivideByZero {
		t.Errorf("raised = %#v, want Exception(DivideByZero)", raised)
	}
}

func TestArityMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Eval with wrong arg count did not panic")
		}
	}()
	c, _ := capture1()
	Eval(Add, []machine.DValue{machine.DInteger{N: 1}}, []machine.Continuation{c})
}
