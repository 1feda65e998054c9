package heap_test

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/krig/LISP/heap"
	"github.com/krig/LISP/symbol"
)

func TestConsCarCdr(t *testing.T) {
	h := heap.New(heap.Capacity(64))
	syms := symbol.New()
	a, err := h.NewAtom(int32(syms.Intern("a")))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := h.NewAtom(int32(syms.Intern("b")))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	p, err := h.NewPair(a, b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if h.Car(p) != a {
		t.Errorf("%+v", errors.Errorf("Car(cons(a,b)) = %v, want %v", h.Car(p), a))
	}
	if h.Cdr(p) != b {
		t.Errorf("%+v", errors.Errorf("Cdr(cons(a,b)) = %v, want %v", h.Cdr(p), b))
	}
}

func TestNilRefIsNotACell(t *testing.T) {
	if heap.NilRef >= 0 {
		t.Errorf("%+v", errors.Errorf("NilRef = %v, want a negative sentinel", heap.NilRef))
	}
}

func TestRetagLambdaIsPairLayout(t *testing.T) {
	h := heap.New(heap.Capacity(64))
	params, _ := h.NewPair(heap.NilRef, heap.NilRef)
	body, _ := h.NewPair(heap.NilRef, heap.NilRef)
	l, err := h.NewPair(params, body)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	h.Retag(l, heap.TagLambda)
	if h.Tag(l) != heap.TagLambda {
		t.Errorf("%+v", errors.Errorf("Tag after Retag = %v, want TagLambda", h.Tag(l)))
	}
	if h.Car(l) != params || h.Cdr(l) != body {
		t.Errorf("%+v", errors.Errorf("Retag changed fields: car=%v cdr=%v", h.Car(l), h.Cdr(l)))
	}
}

func TestPrintDottedAndProper(t *testing.T) {
	h := heap.New(heap.Capacity(64))
	syms := symbol.New()

	one, _ := h.NewAtom(int32(syms.Intern("1")))
	two, _ := h.NewAtom(int32(syms.Intern("2")))
	dotted, _ := h.NewPair(one, two)

	var buf bytes.Buffer
	if err := heap.Fprint(&buf, h, syms, dotted); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := buf.String(); got != "(1 . 2)" {
		t.Errorf("%+v", errors.Errorf("Fprint(dotted) = %q, want %q", got, "(1 . 2)"))
	}

	three, _ := h.NewAtom(int32(syms.Intern("3")))
	tail, _ := h.NewPair(three, heap.NilRef)
	middle, _ := h.NewPair(two, tail)
	proper, _ := h.NewPair(one, middle)

	buf.Reset()
	if err := heap.Fprint(&buf, h, syms, proper); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := buf.String(); got != "(1 2 3)" {
		t.Errorf("%+v", errors.Errorf("Fprint(proper) = %q, want %q", got, "(1 2 3)"))
	}

	buf.Reset()
	if err := heap.Fprint(&buf, h, syms, heap.NilRef); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := buf.String(); got != "()" {
		t.Errorf("%+v", errors.Errorf("Fprint(nil) = %q, want %q", got, "()"))
	}
}

func TestStats(t *testing.T) {
	h := heap.New(heap.Capacity(8))
	st := h.Stats()
	if st.Capacity != 8 {
		t.Errorf("%+v", errors.Errorf("Capacity = %d, want 8", st.Capacity))
	}
	if _, err := h.NewPair(heap.NilRef, heap.NilRef); err != nil {
		t.Fatalf("%+v", err)
	}
	if h.Stats().Allocations != 1 {
		t.Errorf("%+v", errors.Errorf("Allocations = %d, want 1", h.Stats().Allocations))
	}
}
