package eval

import (
	"fmt"
	"strconv"

	"github.com/krig/LISP/heap"
)

// registerPrimitives fills the Evaluator's primitive table. It does not
// bind the primitives into any environment — that's the job of
// (*Evaluator).GlobalEnv, mirroring how the reference interpreter's main
// builds its env separately from defining the builtin_* functions
// themselves.
func (e *Evaluator) registerPrimitives() {
	e.prims = []primitive{
		{"car", primCar},
		{"cdr", primCdr},
		{"cons", primCons},
		{"list", primList},
		{"equal?", primEqual},
		{"pair?", primPair},
		{"null?", primNull},
		{"+", primSum},
		{"-", primSub},
		{"*", primMul},
		{"display", primDisplay},
		{"newline", primNewline},
		{"read", primRead},
	}
}

// GlobalEnv builds the initial environment: a single frame binding #t to
// itself, #f to null, and every registered primitive to a TagPrimitive
// cell wrapping its table index. The true atom is also kept on the
// Evaluator so the primitives (via e.boolAtom) can produce it without a
// second lookup; that field is registered as a root whose guard is never
// popped, so collection keeps it current for the heap's lifetime.
func (e *Evaluator) GlobalEnv() (env heap.Ref, err error) {
	h := e.h
	h.Protect(&e.trueAtom)
	env, err = h.NewPair(heap.NilRef, heap.NilRef)
	if err != nil {
		return heap.NilRef, err
	}
	en := env
	g := h.Protect(&en)
	defer g.Pop()

	trueAtom, err := h.NewAtom(int32(e.syms.Intern("#t")))
	if err != nil {
		return heap.NilRef, err
	}
	e.trueAtom = trueAtom
	t := trueAtom
	g2 := h.Protect(&t)
	if err := envSet(h, en, t, t); err != nil {
		g2.Pop()
		return heap.NilRef, err
	}
	g2.Pop()

	falseAtom, err := h.NewAtom(int32(e.syms.Intern("#f")))
	if err != nil {
		return heap.NilRef, err
	}
	f := falseAtom
	g3 := h.Protect(&f)
	err = envSet(h, en, f, heap.NilRef)
	g3.Pop()
	if err != nil {
		return heap.NilRef, err
	}

	for i, p := range e.prims {
		if err := e.defun(en, p.name, i); err != nil {
			return heap.NilRef, err
		}
	}
	return en, nil
}

// defun binds name to a TagPrimitive cell wrapping index idx into
// e.prims, the Go-native sibling of the reference interpreter's defun
// helper.
func (e *Evaluator) defun(env heap.Ref, name string, idx int) error {
	h := e.h
	en := env
	g := h.Protect(&en)
	defer g.Pop()

	key, err := h.NewAtom(int32(e.syms.Intern(name)))
	if err != nil {
		return err
	}
	k := key
	g2 := h.Protect(&k)
	defer g2.Pop()

	val, err := h.NewPrimitive(int32(idx))
	if err != nil {
		return err
	}
	v := val
	g3 := h.Protect(&v)
	defer g3.Pop()

	return envSet(h, en, k, v)
}

// boolAtom returns the canonical true value for a predicate result, or
// NilRef for false — the true atom is whatever was bound to #t when
// GlobalEnv built the initial environment.
func (e *Evaluator) boolAtom(cond bool) heap.Ref {
	if cond {
		return e.trueAtom
	}
	return heap.NilRef
}

func primCar(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	return e.h.Car(e.h.Car(args)), nil
}

func primCdr(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	return e.h.Cdr(e.h.Car(args)), nil
}

func primCons(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	return e.h.NewPair(e.h.Car(args), e.h.Car(e.h.Cdr(args)))
}

func primList(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	return args, nil
}

func primEqual(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	h := e.h
	if args == heap.NilRef {
		return e.boolAtom(true), nil
	}
	cmp := h.Car(args)
	for rest := h.Cdr(args); rest != heap.NilRef; rest = h.Cdr(rest) {
		if !lispEqual(h, cmp, h.Car(rest)) {
			return heap.NilRef, nil
		}
	}
	return e.boolAtom(true), nil
}

func primPair(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	first := e.h.Car(args)
	return e.boolAtom(first != heap.NilRef && e.h.Tag(first) == heap.TagPair), nil
}

func primNull(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	return e.boolAtom(e.h.Car(args) == heap.NilRef), nil
}

// atoi mirrors the reference interpreter's atol: unparsable text is
// silently treated as zero rather than reported as an error, since a
// primitive only ever sees text produced by this interpreter's own
// reader and printer.
func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (e *Evaluator) newNumber(n int64) (heap.Ref, error) {
	return e.h.NewAtom(int32(e.syms.Intern(strconv.FormatInt(n, 10))))
}

func primSum(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	h := e.h
	var sum int64
	for a := args; a != heap.NilRef; a = h.Cdr(a) {
		sum += atoi(e.text(h.Car(a)))
	}
	return e.newNumber(sum)
}

func primSub(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	h := e.h
	if args == heap.NilRef {
		return e.newNumber(0)
	}
	if h.Cdr(args) == heap.NilRef {
		return e.newNumber(-atoi(e.text(h.Car(args))))
	}
	n := atoi(e.text(h.Car(args)))
	for a := h.Cdr(args); a != heap.NilRef; a = h.Cdr(a) {
		n -= atoi(e.text(h.Car(a)))
	}
	return e.newNumber(n)
}

func primMul(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	h := e.h
	sum := int64(1)
	for a := args; a != heap.NilRef; a = h.Cdr(a) {
		sum *= atoi(e.text(h.Car(a)))
	}
	return e.newNumber(sum)
}

func primDisplay(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	if e.out == nil {
		return heap.NilRef, nil
	}
	if err := heap.Fprint(e.out, e.h, e.syms, e.h.Car(args)); err != nil {
		return heap.NilRef, err
	}
	return heap.NilRef, nil
}

func primNewline(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	if e.out == nil {
		return heap.NilRef, nil
	}
	if _, err := fmt.Fprintln(e.out); err != nil {
		return heap.NilRef, err
	}
	return heap.NilRef, nil
}

func primRead(e *Evaluator, args heap.Ref) (heap.Ref, error) {
	if e.stdin == nil {
		return heap.NilRef, nil
	}
	ref, err := e.stdin.Read()
	if err != nil {
		return heap.NilRef, err
	}
	return ref, nil
}
