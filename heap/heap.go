// Package heap implements the object heap: a two-space copying (Cheney
// style) allocator of fixed-size cells, plus the root registry that lets a
// Go call stack survive collection.
//
// Every live cell is reachable either through a registered root (see
// Guard) or through another live cell's fields. Collection moves every
// reachable cell into the other half-heap and rewrites every registered
// root and every surviving cell's fields to the new addresses; anything
// not reachable that way is gone. Code that holds a Ref across any call
// that might allocate (NewPair, NewAtom, NewPrimitive) and has not protected that Ref
// with Protect is holding a pointer collection is free to invalidate.
package heap

import "github.com/pkg/errors"

// Ref addresses a cell within the heap's current half-heap. It is the
// Go-native rendition of a relocatable pointer: an index, not an address,
// because collection needs to rewrite it in place wherever it is
// registered as a root.
type Ref int32

// NilRef is the empty list — spec's "null" — which is not a heap cell at
// all, merely a distinguished Ref value.
const NilRef Ref = -1

// Tag identifies what a cell's fields mean.
type Tag uint8

const (
	// TagPair is an ordinary cons cell; both fields are Refs.
	TagPair Tag = iota
	// TagAtom carries an interned symbol ID in its first field.
	TagAtom
	// TagPrimitive carries an opaque native-callable identity in its
	// first field.
	TagPrimitive
	// TagLambda has the same layout as TagPair (params, body) but is
	// distinguished for dispatch.
	TagLambda
	// tagForwarded marks a cell that has already been relocated by the
	// current collection; its rest field holds the new Ref. This is the
	// Go-native sibling of spec's address-sentinel forwarding marker:
	// a reserved tag value can no more collide with a live tag than a
	// reserved non-heap address can collide with a live first field.
	tagForwarded
)

func (t Tag) String() string {
	switch t {
	case TagPair:
		return "pair"
	case TagAtom:
		return "atom"
	case TagPrimitive:
		return "primitive"
	case TagLambda:
		return "lambda"
	default:
		return "forwarded"
	}
}

// object is the fixed-size cell. first is reinterpreted by tag: a Ref for
// TagPair/TagLambda, a symbol ID for TagAtom, a primitive table index for
// TagPrimitive. rest is a Ref for TagPair/TagLambda and unused otherwise,
// except for tagForwarded where it holds the forwarding target.
type object struct {
	tag   Tag
	first int32
	rest  Ref
}

// Option configures a Heap at construction, in the same functional-options
// shape as this module's teacher uses for VM construction.
type Option func(*Heap)

// Capacity sets the number of cells in each half-heap. The default is
// small; real programs should set this explicitly.
func Capacity(n int) Option {
	return func(h *Heap) { h.capacity = int32(n) }
}

const defaultCapacity = 1 << 16

// Heap is a two-space copying allocator.
type Heap struct {
	from, to []object
	next     int32
	capacity int32

	guards     [][]*Ref
	allocCount int64
	gcCount    int64
	liveAfterGC int32
}

// New creates a Heap with the given options applied.
func New(opts ...Option) *Heap {
	h := &Heap{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(h)
	}
	h.from = make([]object, h.capacity)
	h.to = make([]object, h.capacity)
	return h
}

// ErrOutOfMemory is returned (and is always fatal, per spec) when a
// collection fails to free enough space for a pending allocation.
var ErrOutOfMemory = errors.New("heap: out of memory")

// reserve runs a collection if the half-heap is full and fails with
// ErrOutOfMemory if that doesn't free enough space. Callers that hold live
// Refs across the possible collection must have already protected them
// (via Protect, or by passing them through reserve's own root-handle
// list) — the collection rewrites registered Refs in place, so ordinary
// local variables come back valid, but only if they were registered.
func (h *Heap) reserve(roots ...*Ref) error {
	if h.next < h.capacity {
		return nil
	}
	if len(roots) > 0 {
		g := h.Protect(roots...)
		h.collect()
		g.Pop()
	} else {
		h.collect()
	}
	if h.next >= h.capacity {
		return ErrOutOfMemory
	}
	return nil
}

func (h *Heap) place(tag Tag, first int32, rest Ref) Ref {
	r := Ref(h.next)
	h.from[r] = object{tag: tag, first: first, rest: rest}
	h.next++
	h.allocCount++
	return r
}

// NewPair allocates a TagPair cell (car . cdr). car and cdr are protected
// across the allocation, so callers need not pre-protect them solely for
// this call.
func (h *Heap) NewPair(car, cdr Ref) (Ref, error) {
	if err := h.reserve(&car, &cdr); err != nil {
		return NilRef, err
	}
	return h.place(TagPair, int32(car), cdr), nil
}

// NewAtom allocates a TagAtom cell for the given interned symbol ID. A
// symbol ID is a scalar identity, not a heap Ref, so it needs no
// protection across the allocation's possible collection.
func (h *Heap) NewAtom(id int32) (Ref, error) {
	if err := h.reserve(); err != nil {
		return NilRef, err
	}
	return h.place(TagAtom, id, NilRef), nil
}

// NewPrimitive allocates a TagPrimitive cell wrapping the given opaque
// native-callable identity (an index into whatever table the caller — the
// eval package — maintains; the heap itself attaches no meaning to it).
func (h *Heap) NewPrimitive(id int32) (Ref, error) {
	if err := h.reserve(); err != nil {
		return NilRef, err
	}
	return h.place(TagPrimitive, id, NilRef), nil
}

// Retag turns an existing TagPair cell into a TagLambda cell in place,
// without copying — the O(1) operation spec requires for reading a
// `lambda` form.
func (h *Heap) Retag(r Ref, tag Tag) {
	h.from[r].tag = tag
}

// Tag returns r's tag. NilRef has no tag; callers must check for it first.
func (h *Heap) Tag(r Ref) Tag {
	return h.from[r].tag
}

// First returns r's raw first field, reinterpreted by the caller according
// to Tag(r).
func (h *Heap) First(r Ref) int32 {
	return h.from[r].first
}

// Rest returns r's rest field as a Ref. Valid for TagPair and TagLambda.
func (h *Heap) Rest(r Ref) Ref {
	return h.from[r].rest
}

// SetFirst overwrites r's first field (used by the eval package to prepend
// a binding to an environment frame's alist).
func (h *Heap) SetFirst(r Ref, v int32) {
	h.from[r].first = v
}

// SetRest overwrites r's rest field.
func (h *Heap) SetRest(r Ref, v Ref) {
	h.from[r].rest = v
}

// Car returns First(r) as a Ref. Valid for TagPair/TagLambda.
func (h *Heap) Car(r Ref) Ref {
	return Ref(h.from[r].first)
}

// Cdr is an alias for Rest, named to match spec's pair vocabulary.
func (h *Heap) Cdr(r Ref) Ref {
	return h.Rest(r)
}

// Stats reports allocator counters, the Go-native sibling of the teacher's
// InstructionCount and the Ngaro VM's memory-introspection ports.
type Stats struct {
	Allocations int64
	Collections int64
	LiveCells   int32
	Capacity    int32
}

// Stats returns a snapshot of the heap's counters.
func (h *Heap) Stats() Stats {
	return Stats{
		Allocations: h.allocCount,
		Collections: h.gcCount,
		LiveCells:   h.liveAfterGC,
		Capacity:    h.capacity,
	}
}
