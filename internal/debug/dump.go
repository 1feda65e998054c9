// Package debug prints diagnostic snapshots of heap and evaluator state,
// grounded on lang/retro.DumpVM in this module's teacher.
package debug

import (
	"fmt"
	"io"

	"github.com/krig/LISP/eval"
	"github.com/krig/LISP/heap"
)

// DumpHeap writes the heap's allocator counters to w.
func DumpHeap(w io.Writer, h *heap.Heap) error {
	st := h.Stats()
	_, err := fmt.Fprintf(w, "heap: %d/%d cells live, %d allocations, %d collections\n",
		st.LiveCells, st.Capacity, st.Allocations, st.Collections)
	return err
}

// DumpEval writes the evaluator's step counter to w.
func DumpEval(w io.Writer, e *eval.Evaluator) error {
	_, err := fmt.Fprintf(w, "eval: %d steps\n", e.Steps())
	return err
}
