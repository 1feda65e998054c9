package symbol_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/krig/LISP/symbol"
)

func TestInternEquality(t *testing.T) {
	tbl := symbol.New()
	a := tbl.Intern("hello")
	b := tbl.Intern("hello")
	if a != b {
		t.Errorf("%+v", errors.Errorf("Intern(\"hello\") returned distinct IDs %d and %d", a, b))
	}
	c := tbl.Intern("world")
	if a == c {
		t.Errorf("%+v", errors.Errorf("Intern returned same ID %d for distinct text", a))
	}
}

func TestInternText(t *testing.T) {
	tbl := symbol.New()
	id := tbl.Intern("quote")
	if got := tbl.Text(id); got != "quote" {
		t.Errorf("%+v", errors.Errorf("Text(%d) = %q, want %q", id, got, "quote"))
	}
}

func TestInternManyBuckets(t *testing.T) {
	tbl := symbol.New()
	names := []string{"a", "b", "c", "abc", "+", "-", "*", "cond", "lambda", "define"}
	ids := make(map[string]symbol.ID)
	for _, n := range names {
		ids[n] = tbl.Intern(n)
	}
	for _, n := range names {
		if tbl.Intern(n) != ids[n] {
			t.Errorf("%+v", errors.Errorf("re-intern of %q changed ID", n))
		}
	}
	if tbl.Len() != len(names) {
		t.Errorf("%+v", errors.Errorf("Len() = %d, want %d", tbl.Len(), len(names)))
	}
}
