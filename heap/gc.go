package heap

// collect runs one full Cheney-style copying collection: swap from/to,
// copy every root, then scan the new from-space forward copying every
// field of every traversable cell encountered, until the scan cursor
// catches up with the allocation cursor.
//
// Grounded on gc_collect/gc_copy in the reference C interpreter: roots
// first, then a scan-forward cursor that trails the allocation cursor
// until they meet.
func (h *Heap) collect() {
	h.from, h.to = h.to, h.from
	h.next = 0

	for _, frame := range h.guards {
		for _, root := range frame {
			*root = h.copy(*root)
		}
	}

	var scan int32
	for scan < h.next {
		o := &h.from[scan]
		if o.tag == TagPair || o.tag == TagLambda {
			o.first = int32(h.copy(Ref(o.first)))
			o.rest = h.copy(o.rest)
		}
		scan++
	}

	h.gcCount++
	h.liveAfterGC = h.next
}

// copy relocates the cell at ptr (which lives in the old from-space, now
// h.to) into the new from-space if it hasn't already been moved by this
// collection, and returns its new location.
func (h *Heap) copy(ptr Ref) Ref {
	if ptr == NilRef {
		return NilRef
	}
	old := &h.to[ptr]
	if old.tag == tagForwarded {
		return old.rest
	}
	dst := Ref(h.next)
	h.from[dst] = *old
	h.next++
	old.tag = tagForwarded
	old.rest = dst
	return dst
}

// Collect forces a collection outside of an allocation. Exposed for tests;
// ordinary evaluation never needs to call it directly.
func (h *Heap) Collect() {
	h.collect()
}
