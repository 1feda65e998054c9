package heap

import (
	"fmt"
	"io"

	"github.com/krig/LISP/symbol"
)

// Fprint writes r's external representation to w, per spec's printing
// rules: null as "()", an atom as its symbol text, a primitive as
// "<C@hex>", a lambda as "<lambda params>", and a pair with standard or
// dotted-tail list notation. syms resolves atom symbol IDs to text.
//
// Grounded on lisp_print in the reference C interpreter; diverges only in
// plumbing (an explicit io.Writer instead of stdio, and returned write
// errors instead of unchecked printf).
func Fprint(w io.Writer, h *Heap, syms *symbol.Table, r Ref) error {
	if r == NilRef {
		_, err := io.WriteString(w, "()")
		return err
	}
	switch h.Tag(r) {
	case TagAtom:
		_, err := io.WriteString(w, syms.Text(symbol.ID(h.First(r))))
		return err
	case TagPrimitive:
		_, err := fmt.Fprintf(w, "<C@%x>", h.First(r))
		return err
	case TagLambda:
		if _, err := io.WriteString(w, "<lambda "); err != nil {
			return err
		}
		if err := Fprint(w, h, syms, h.Car(r)); err != nil {
			return err
		}
		_, err := io.WriteString(w, ">")
		return err
	default: // TagPair
		return fprintPair(w, h, syms, r)
	}
}

func fprintPair(w io.Writer, h *Heap, syms *symbol.Table, r Ref) error {
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	for {
		if err := Fprint(w, h, syms, h.Car(r)); err != nil {
			return err
		}
		rest := h.Cdr(r)
		if rest == NilRef {
			break
		}
		if rest != NilRef && (h.Tag(rest) == TagPair) {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
			r = rest
			continue
		}
		// Non-pair, non-nil tail: dotted notation.
		if _, err := io.WriteString(w, " . "); err != nil {
			return err
		}
		if err := Fprint(w, h, syms, rest); err != nil {
			return err
		}
		break
	}
	_, err := io.WriteString(w, ")")
	return err
}
