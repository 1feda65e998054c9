package heap_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/krig/LISP/heap"
	"github.com/krig/LISP/symbol"
)

// TestCollectPreservesRootedGraph exercises the central GC invariant: a
// cell reachable through a registered root before collection has an
// equal-tag, equal-shape cell reachable after collection, and the root's
// Ref has been rewritten to point at it.
func TestCollectPreservesRootedGraph(t *testing.T) {
	h := heap.New(heap.Capacity(16))
	syms := symbol.New()

	a, _ := h.NewAtom(int32(syms.Intern("a")))
	b, _ := h.NewAtom(int32(syms.Intern("b")))
	root, _ := h.NewPair(a, b)

	g := h.Protect(&root)
	h.Collect()
	g.Pop()

	if h.Tag(root) != heap.TagPair {
		t.Fatalf("%+v", errors.Errorf("Tag(root) after GC = %v, want TagPair", h.Tag(root)))
	}
	car, cdr := h.Car(root), h.Cdr(root)
	if h.Tag(car) != heap.TagAtom || syms.Text(symbol.ID(h.First(car))) != "a" {
		t.Errorf("%+v", errors.Errorf("car survived as wrong cell"))
	}
	if h.Tag(cdr) != heap.TagAtom || syms.Text(symbol.ID(h.First(cdr))) != "b" {
		t.Errorf("%+v", errors.Errorf("cdr survived as wrong cell"))
	}
}

// TestCollectDropsUnrooted verifies that an allocation made and then
// abandoned (never registered as a root) does not keep the heap from
// reclaiming its cell: after an explicit collection, no cells are live.
func TestCollectDropsUnrooted(t *testing.T) {
	h := heap.New(heap.Capacity(4))

	// Allocate and discard cells with nothing protecting them.
	for i := 0; i < 3; i++ {
		if _, err := h.NewPair(heap.NilRef, heap.NilRef); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	h.Collect()
	if live := h.Stats().LiveCells; live != 0 {
		t.Errorf("%+v", errors.Errorf("LiveCells after collecting all-garbage heap = %d, want 0", live))
	}
}

// TestCollectTriggersOnFullHeap checks that allocation past capacity
// triggers an implicit collection rather than failing outright, as long as
// space can be reclaimed.
func TestCollectTriggersOnFullHeap(t *testing.T) {
	h := heap.New(heap.Capacity(2))
	var keep heap.Ref = heap.NilRef
	g := h.Protect(&keep)
	defer g.Pop()

	var err error
	keep, err = h.NewPair(heap.NilRef, heap.NilRef)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	before := h.Stats().Collections
	for i := 0; i < 5; i++ {
		if _, err := h.NewPair(heap.NilRef, heap.NilRef); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if h.Stats().Collections <= before {
		t.Errorf("%+v", errors.Errorf("expected at least one collection, got %d", h.Stats().Collections-before))
	}
	if h.Tag(keep) != heap.TagPair {
		t.Errorf("%+v", errors.Errorf("protected cell did not survive repeated collection"))
	}
}

func TestOutOfMemoryIsFatalWhenNothingCanBeFreed(t *testing.T) {
	h := heap.New(heap.Capacity(2))
	refs := make([]heap.Ref, 2)
	handles := []*heap.Ref{&refs[0], &refs[1]}
	g := h.Protect(handles...)
	defer g.Pop()

	var err error
	for i := range refs {
		refs[i], err = h.NewPair(heap.NilRef, heap.NilRef)
		if err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if _, err := h.NewPair(heap.NilRef, heap.NilRef); errors.Cause(err) != heap.ErrOutOfMemory {
		t.Errorf("%+v", errors.Errorf("expected ErrOutOfMemory, got %v", err))
	}
}
