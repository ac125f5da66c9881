// Package table holds the result of a search: for every discovered
// Transformation, the shortest program known to realize it.
package table

import (
	"cmp"
	"math"
	"sort"
	"sync"

	"github.com/deepnoodle-ai/shortprog/vm"
)

// TiePolicy decides which witness is kept when a new program is exactly as
// long as the stored one.
type TiePolicy int

const (
	// TieLast replaces on equal length, so the most recently discovered
	// witness wins. The outcome depends on enumeration order.
	TieLast TiePolicy = iota
	// TieFirst keeps the first witness of a given length.
	TieFirst
)

// String returns the policy name used in flags and config.
func (p TiePolicy) String() string {
	if p == TieFirst {
		return "first"
	}
	return "last"
}

// Entry is a single row of a Table.
type Entry struct {
	vm.Transformation
	Program string
}

// key identifies a Transformation by the bit patterns of its values. NaN
// never equals itself, so float64 fields cannot key a map directly; every
// NaN is folded into one pattern and negative zero into positive zero.
type key struct {
	start uint64
	end   uint64
}

var nanBits = math.Float64bits(math.NaN())

func bits(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return nanBits
	case f == 0:
		return 0
	}
	return math.Float64bits(f)
}

func keyOf(tr vm.Transformation) key {
	return key{start: bits(tr.Start), end: bits(tr.End)}
}

// Table maps each Transformation to its shortest known witness. It is safe
// for concurrent use.
type Table struct {
	mu        sync.Mutex
	tie       TiePolicy
	witnesses map[key]Entry
}

// New creates an empty Table using the given tie policy.
func New(tie TiePolicy) *Table {
	return &Table{
		tie:       tie,
		witnesses: map[key]Entry{},
	}
}

// TiePolicy returns the table's tie policy.
func (t *Table) TiePolicy() TiePolicy {
	return t.tie
}

// Update records program as a witness for tr. A new Transformation is always
// inserted. An existing witness is replaced by a shorter program, and by one
// of equal length under TieLast. Update reports whether the table changed.
func (t *Table) Update(tr vm.Transformation, program string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.update(tr, program)
}

func (t *Table) update(tr vm.Transformation, program string) bool {
	k := keyOf(tr)
	stored, exists := t.witnesses[k]
	if exists {
		if len(program) > len(stored.Program) {
			return false
		}
		if len(program) == len(stored.Program) && t.tie == TieFirst {
			return false
		}
	}
	t.witnesses[k] = Entry{Transformation: tr, Program: program}
	return true
}

// Accepts reports whether Update would store a witness of the given length
// for tr. It lets callers skip building a program string that would be
// discarded.
func (t *Table) Accepts(tr vm.Transformation, length int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	stored, exists := t.witnesses[keyOf(tr)]
	if !exists {
		return true
	}
	if t.tie == TieFirst {
		return length < len(stored.Program)
	}
	return length <= len(stored.Program)
}

// Merge applies every entry of other to t with the update rule. Merging the
// tables of disjoint enumeration partitions in enumeration order yields the
// same table as a single sequential run.
func (t *Table) Merge(other *Table) {
	if other == t {
		return
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range other.witnesses {
		t.update(e.Transformation, e.Program)
	}
}

// Get returns the witness stored for tr.
func (t *Table) Get(tr vm.Transformation) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.witnesses[keyOf(tr)]
	return e.Program, ok
}

// Delete removes tr from the table.
func (t *Table) Delete(tr vm.Transformation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.witnesses, keyOf(tr))
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.witnesses)
}

// Entries returns a snapshot of the table sorted by start, end and program.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	entries := make([]Entry, 0, len(t.witnesses))
	for _, e := range t.witnesses {
		entries = append(entries, e)
	}
	t.mu.Unlock()
	// cmp.Compare orders NaN before every other value.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c < 0
		}
		if c := cmp.Compare(a.End, b.End); c != 0 {
			return c < 0
		}
		return a.Program < b.Program
	})
	return entries
}
