// Package eval implements the metacircular evaluator: special-form
// dispatch, tail-call trampolining, and primitive/lambda application.
//
// Grounded on lisp_eval in the reference C interpreter this module
// implements, and on the opcode-dispatch loop in vm/run.go in this
// module's teacher for the Go rendition of a restart-by-reassignment
// loop instead of a recursive call or a goto.
package eval

import (
	"io"

	"github.com/pkg/errors"

	"github.com/krig/LISP/heap"
	"github.com/krig/LISP/symbol"
)

// Reader is the minimal capability the `read` primitive needs: parse one
// expression, returning io.EOF once the underlying stream is exhausted.
// Accepting this instead of a concrete *reader.Reader keeps eval from
// depending on reader's tokenizer internals.
type Reader interface {
	Read() (heap.Ref, error)
}

// Option configures an Evaluator at construction, in the same
// functional-options shape heap.Option uses.
type Option func(*Evaluator)

// Stdout directs display/newline output to w. Without it, those
// primitives are no-ops, matching a headless evaluation that only cares
// about return values.
func Stdout(w io.Writer) Option {
	return func(e *Evaluator) { e.out = w }
}

// Stdin supplies the source `read` parses from. Without it, `read`
// always returns null.
func Stdin(r Reader) Option {
	return func(e *Evaluator) { e.stdin = r }
}

// Evaluator owns the heap and symbol table an evaluation runs against,
// plus the interned identities of the special forms and the primitive
// table built at startup.
type Evaluator struct {
	h    *heap.Heap
	syms *symbol.Table

	quoteID  symbol.ID
	condID   symbol.ID
	beginID  symbol.ID
	orID     symbol.ID
	defineID symbol.ID
	lambdaID symbol.ID

	prims    []primitive
	steps    int64
	trueAtom heap.Ref
	out      io.Writer
	stdin    Reader
}

type primitive struct {
	name string
	fn   func(e *Evaluator, args heap.Ref) (heap.Ref, error)
}

// New builds an Evaluator over h and syms, interning the special-form
// keywords it recognizes by pointer (symbol ID) equality.
func New(h *heap.Heap, syms *symbol.Table, opts ...Option) *Evaluator {
	e := &Evaluator{
		h:        h,
		syms:     syms,
		quoteID:  syms.Intern("quote"),
		condID:   syms.Intern("cond"),
		beginID:  syms.Intern("begin"),
		orID:     syms.Intern("or"),
		defineID: syms.Intern("define"),
		lambdaID: syms.Intern("lambda"),
		trueAtom: heap.NilRef,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerPrimitives()
	return e
}

// Steps returns the number of evaluation-loop iterations taken so far,
// the eval-side sibling of the heap's allocation/collection counters.
func (e *Evaluator) Steps() int64 {
	return e.steps
}

// text returns the interned text of an atom cell, or "" for anything
// else — the Go-native TEXT() macro from the reference interpreter.
func (e *Evaluator) text(r heap.Ref) string {
	if r == heap.NilRef || e.h.Tag(r) != heap.TagAtom {
		return ""
	}
	return e.syms.Text(symbol.ID(e.h.First(r)))
}

// matchNumber reports whether s looks like an optionally-signed run of
// decimal digits, mirroring match_number in the reference interpreter
// exactly (including that a bare sign with no digits does not match).
func matchNumber(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Eval evaluates expr in env. Tail positions are handled by reassigning
// expr/env and looping rather than recursing, so tail-recursive Lisp
// programs run in bounded Go stack depth — the Go-native rendition of the
// reference interpreter's `restart:` goto target.
func (e *Evaluator) Eval(expr, env heap.Ref) (heap.Ref, error) {
	h := e.h
	g := h.Protect(&expr, &env)
	defer g.Pop()
	for {
		e.steps++

		if expr == heap.NilRef {
			return heap.NilRef, nil
		}
		if h.Tag(expr) == heap.TagAtom {
			if matchNumber(e.text(expr)) {
				return expr, nil
			}
			return envLookup(h, expr, env), nil
		}
		if h.Tag(expr) != heap.TagPair {
			return expr, nil
		}

		head := h.Car(expr)
		headID, isAtom := e.atomID(head)

		switch {
		case isAtom && headID == e.quoteID:
			return h.Car(h.Cdr(expr)), nil

		case isAtom && headID == e.condID:
			nextExpr, matched, err := e.evalCond(expr, env)
			if err != nil {
				return heap.NilRef, err
			}
			if !matched {
				return heap.NilRef, nil
			}
			expr = nextExpr
			continue

		case isAtom && headID == e.beginID:
			nextExpr, err := e.evalBeginTail(h.Cdr(expr), env)
			if err != nil {
				return heap.NilRef, err
			}
			expr = nextExpr
			continue

		case isAtom && headID == e.orID:
			val, done, err := e.evalOr(h.Cdr(expr), env)
			if err != nil {
				return heap.NilRef, err
			}
			if done {
				return val, nil
			}
			return heap.NilRef, nil

		case isAtom && headID == e.defineID:
			return e.evalDefine(expr, env)

		case isAtom && headID == e.lambdaID:
			body := h.Cdr(expr)
			h.Retag(body, heap.TagLambda)
			return body, nil
		}

		nextExpr, nextEnv, result, tail, err := e.apply(expr, env)
		if err != nil {
			return heap.NilRef, err
		}
		if !tail {
			return result, nil
		}
		expr, env = nextExpr, nextEnv
	}
}

func (e *Evaluator) atomID(r heap.Ref) (symbol.ID, bool) {
	if r == heap.NilRef || e.h.Tag(r) != heap.TagAtom {
		return 0, false
	}
	return symbol.ID(e.h.First(r)), true
}

// evalCond evaluates `cond` clause conditions left to right. A matching
// clause's consequent is returned as the new tail expression (matched =
// true); no match returns matched = false, which becomes null.
func (e *Evaluator) evalCond(expr, env heap.Ref) (heap.Ref, bool, error) {
	h := e.h
	clauses, en := h.Cdr(expr), env
	var clause heap.Ref = heap.NilRef
	g := h.Protect(&clauses, &en, &clause)
	defer g.Pop()

	for clauses != heap.NilRef {
		clause = h.Car(clauses)
		test, err := e.Eval(h.Car(clause), en)
		if err != nil {
			return heap.NilRef, false, err
		}
		if test != heap.NilRef {
			return h.Car(h.Cdr(clause)), true, nil
		}
		clauses = h.Cdr(clauses)
	}
	return heap.NilRef, false, nil
}

// evalBeginTail evaluates every expression in body except the last for
// effect, and returns the last as the new tail expression. `begin` and
// `or` are not present in the reference interpreter's special-form set;
// they are added here in the same idiom (an atom-identity switch in the
// dispatch loop) spec.md calls for.
func (e *Evaluator) evalBeginTail(body, env heap.Ref) (heap.Ref, error) {
	h := e.h
	if body == heap.NilRef {
		return heap.NilRef, nil
	}
	b, en := body, env
	g := h.Protect(&b, &en)
	defer g.Pop()

	for h.Cdr(b) != heap.NilRef {
		if _, err := e.Eval(h.Car(b), en); err != nil {
			return heap.NilRef, err
		}
		b = h.Cdr(b)
	}
	return h.Car(b), nil
}

// evalOr evaluates each argument in turn, stopping at the first non-null
// result. done reports whether a non-null result was found; if not, the
// caller returns null.
func (e *Evaluator) evalOr(args, env heap.Ref) (heap.Ref, bool, error) {
	h := e.h
	a, en := args, env
	g := h.Protect(&a, &en)
	defer g.Pop()

	for a != heap.NilRef {
		val, err := e.Eval(h.Car(a), en)
		if err != nil {
			return heap.NilRef, false, err
		}
		if val != heap.NilRef {
			return val, true, nil
		}
		a = h.Cdr(a)
	}
	return heap.NilRef, false, nil
}

// evalDefine evaluates the value expression and binds it in env's own
// frame, returning the bound value.
func (e *Evaluator) evalDefine(expr, env heap.Ref) (heap.Ref, error) {
	h := e.h
	en, ex := env, expr
	g := h.Protect(&en, &ex)
	defer g.Pop()

	value, err := e.Eval(h.Car(h.Cdr(h.Cdr(ex))), en)
	if err != nil {
		return heap.NilRef, err
	}
	name := h.Car(h.Cdr(ex))
	n, v := name, value
	g2 := h.Protect(&n, &v)
	defer g2.Pop()
	if err := envSet(h, en, n, v); err != nil {
		return heap.NilRef, err
	}
	return v, nil
}

// apply evaluates expr as a function application. If fn is a lambda and
// its last body expression is reached, apply returns tail = true with
// the next expr/env for the caller's loop to continue with instead of
// recursing — this is where the trampoline actually avoids growing the
// Go stack across a lambda call in tail position.
func (e *Evaluator) apply(expr, env heap.Ref) (nextExpr, nextEnv, result heap.Ref, tail bool, err error) {
	h := e.h
	ex, en := expr, env
	g := h.Protect(&ex, &en)
	defer g.Pop()

	fn, err := e.Eval(h.Car(ex), en)
	if err != nil {
		return heap.NilRef, heap.NilRef, heap.NilRef, false, err
	}
	f := fn
	g2 := h.Protect(&f)
	defer g2.Pop()

	if f == heap.NilRef {
		return heap.NilRef, heap.NilRef, heap.NilRef, false, nil
	}

	switch h.Tag(f) {
	case heap.TagPrimitive:
		args, err := e.evalArgs(h.Cdr(ex), en)
		if err != nil {
			return heap.NilRef, heap.NilRef, heap.NilRef, false, err
		}
		idx := h.First(f)
		if idx < 0 || int(idx) >= len(e.prims) {
			return heap.NilRef, heap.NilRef, heap.NilRef, false, errors.Errorf("eval: invalid primitive index %d", idx)
		}
		res, err := e.prims[idx].fn(e, args)
		if err != nil {
			return heap.NilRef, heap.NilRef, heap.NilRef, false, err
		}
		return heap.NilRef, heap.NilRef, res, false, nil

	case heap.TagLambda:
		callEnv, err := e.bindLambdaArgs(f, h.Cdr(ex), en)
		if err != nil {
			return heap.NilRef, heap.NilRef, heap.NilRef, false, err
		}
		ce := callEnv
		body := h.Cdr(f)
		g3 := h.Protect(&ce, &body)
		defer g3.Pop()

		for body != heap.NilRef {
			if h.Cdr(body) == heap.NilRef {
				return h.Car(body), ce, heap.NilRef, true, nil
			}
			if _, err := e.Eval(h.Car(body), ce); err != nil {
				return heap.NilRef, heap.NilRef, heap.NilRef, false, err
			}
			body = h.Cdr(body)
		}
		return heap.NilRef, heap.NilRef, heap.NilRef, false, nil

	default:
		// Not a primitive or lambda: the reference interpreter's
		// lisp_eval falls through to `return NULL;` here rather than
		// treating it as an error, so applying a non-callable head
		// (e.g. (1 2), or a primitive used as data) is a silent null
		// result, not a fatal one.
		return heap.NilRef, heap.NilRef, heap.NilRef, false, nil
	}
}

// evalArgs evaluates each argument expression left to right and returns
// them as a freshly allocated proper list in the original order
// (arguments are consed in reverse as they're evaluated, then reversed
// once, matching the reference interpreter's primitive-call path).
func (e *Evaluator) evalArgs(params, env heap.Ref) (heap.Ref, error) {
	h := e.h
	p, en := params, env
	var args heap.Ref = heap.NilRef
	g := h.Protect(&p, &en, &args)
	defer g.Pop()

	for p != heap.NilRef {
		val, err := e.Eval(h.Car(p), en)
		if err != nil {
			return heap.NilRef, err
		}
		v := val
		g2 := h.Protect(&v)
		next, err := h.NewPair(v, args)
		g2.Pop()
		if err != nil {
			return heap.NilRef, err
		}
		args = next
		p = h.Cdr(p)
	}
	return listReverse(h, args), nil
}

// bindLambdaArgs builds a new frame on top of callerEnv (not the
// lambda's definition environment — dynamic scoping is deliberate) and
// binds each parameter name to its evaluated argument.
func (e *Evaluator) bindLambdaArgs(fn, params, callerEnv heap.Ref) (heap.Ref, error) {
	h := e.h
	ce, f, ps := callerEnv, fn, params
	g := h.Protect(&ce, &f, &ps)
	defer g.Pop()

	callEnv, err := h.NewPair(heap.NilRef, ce)
	if err != nil {
		return heap.NilRef, err
	}

	env := callEnv
	names, p := h.Car(f), ps
	g2 := h.Protect(&env, &names, &p)
	defer g2.Pop()

	for names != heap.NilRef {
		val, err := e.Eval(h.Car(p), ce)
		if err != nil {
			return heap.NilRef, err
		}
		v := val
		g3 := h.Protect(&v)
		err = envSet(h, env, h.Car(names), v)
		g3.Pop()
		if err != nil {
			return heap.NilRef, err
		}
		names = h.Cdr(names)
		p = h.Cdr(p)
	}
	return env, nil
}
