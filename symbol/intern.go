// Package symbol interns symbol text into canonical IDs.
//
// Two calls to Table.Intern with equal byte content always return the same
// ID, so symbol equality reduces to an int32 comparison instead of a byte
// compare — the Go-native analogue of pointer-equality on interned C
// strings. The table is append-only: entries are never removed, matching
// the process-lifetime interner spec.md describes.
package symbol

// ID identifies one canonical symbol. Two IDs are equal iff the underlying
// text was interned from equal byte sequences.
type ID int32

const bucketCount = 1024

type entry struct {
	text string
	id   ID
	next *entry
}

// Table is a DJB2-hashed, append-only string interner.
//
// The hash function is pinned to DJB2 (not whatever Go's map uses
// internally) because the source interpreter this module is modeled on
// specifies it explicitly; a plain map[string]ID would intern just as
// correctly but would silently drop that grounding.
type Table struct {
	buckets [bucketCount]*entry
	strings []string
}

// New returns an empty interner.
func New() *Table {
	return &Table{}
}

// djb2 hashes str the way the reference interner does: hash = hash*33 + c,
// seeded at 5381.
func djb2(str string) uint32 {
	var hash uint32 = 5381
	for i := 0; i < len(str); i++ {
		hash = hash*33 + uint32(str[i])
	}
	return hash
}

// Intern returns the canonical ID for str, allocating a new entry if str
// has not been seen before.
func (t *Table) Intern(str string) ID {
	h := djb2(str) % bucketCount
	for e := t.buckets[h]; e != nil; e = e.next {
		if e.text == str {
			return e.id
		}
	}
	id := ID(len(t.strings))
	t.strings = append(t.strings, str)
	t.buckets[h] = &entry{text: str, id: id, next: t.buckets[h]}
	return id
}

// Text returns the canonical text for id. id must have come from Intern on
// this table.
func (t *Table) Text(id ID) string {
	return t.strings[id]
}

// Len returns the number of distinct symbols interned so far.
func (t *Table) Len() int {
	return len(t.strings)
}
