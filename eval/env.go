package eval

import "github.com/krig/LISP/heap"

// An environment is a chain of frames: each frame is a pair whose car is
// an alist of (key . value) pairs and whose cdr is the parent frame, down
// to NilRef at the outermost frame. Binding a new name in a frame
// prepends to that frame's alist; it never touches the parent.
//
// Lambda application builds its frame on top of the *call-site*
// environment, not the environment the lambda was defined in — the
// dynamic-scoping rule this interpreter deliberately keeps, grounded on
// env_set/env_lookup/callenv construction in the reference C interpreter.

func lispEqual(h *heap.Heap, a, b heap.Ref) bool {
	if a == b {
		return true
	}
	if a == heap.NilRef || b == heap.NilRef {
		return false
	}
	ta, tb := h.Tag(a), h.Tag(b)
	if ta != tb {
		return false
	}
	switch ta {
	case heap.TagPair:
		return lispEqual(h, h.Car(a), h.Car(b)) && lispEqual(h, h.Cdr(a), h.Cdr(b))
	case heap.TagAtom:
		return h.First(a) == h.First(b)
	default:
		// TagPrimitive and TagLambda are already handled by the identity
		// check above; reaching here means they are distinct objects.
		return false
	}
}

// listFindPair searches one frame's alist for a pair whose key is equal
// to needle.
func listFindPair(h *heap.Heap, needle, alist heap.Ref) heap.Ref {
	for alist != heap.NilRef {
		pair := h.Car(alist)
		if pair != heap.NilRef && lispEqual(h, needle, h.Car(pair)) {
			return pair
		}
		alist = h.Cdr(alist)
	}
	return heap.NilRef
}

// envLookup walks the frame chain outward from env, returning the bound
// value or NilRef if needle is unbound anywhere in it.
func envLookup(h *heap.Heap, needle, env heap.Ref) heap.Ref {
	for env != heap.NilRef {
		if pair := listFindPair(h, needle, h.Car(env)); pair != heap.NilRef {
			return h.Cdr(pair)
		}
		env = h.Cdr(env)
	}
	return heap.NilRef
}

// envSet prepends a new (key . value) binding to env's own frame.
func envSet(h *heap.Heap, env, key, value heap.Ref) error {
	k, v, e := key, value, env
	g := h.Protect(&k, &v, &e)
	defer g.Pop()

	pair, err := h.NewPair(k, v)
	if err != nil {
		return err
	}
	frame, err := h.NewPair(pair, h.Car(e))
	if err != nil {
		return err
	}
	h.SetFirst(e, int32(frame))
	return nil
}

// listReverse destructively reverses a proper list in place, as the
// reference interpreter's list_reverse does, and as this interpreter's
// primitive-call argument collection relies on (arguments accumulate in
// reverse evaluation order, then get reversed once).
func listReverse(h *heap.Heap, lst heap.Ref) heap.Ref {
	var prev heap.Ref = heap.NilRef
	curr := lst
	for curr != heap.NilRef {
		next := h.Cdr(curr)
		h.SetRest(curr, prev)
		prev = curr
		curr = next
	}
	return prev
}
