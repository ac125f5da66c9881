package table

import (
	"math"

	"github.com/deepnoodle-ai/shortprog/op"
)

// Policy configures the domain pass of Curate. Entries whose end value is
// not an integer in [Min, Max] are removed.
type Policy struct {
	Min float64
	Max float64
}

// DefaultPolicy keeps end values in the printable ASCII domain.
func DefaultPolicy() Policy {
	return Policy{Min: 0, Max: 127}
}

// Report counts the entries matched by each curation pass. An entry may
// match several passes, so the counts can add up to more than Removed.
type Report struct {
	Canonical int
	Identity  int
	Domain    int
	Removed   int
	Remaining int
}

// Curate removes canonical witnesses, identity transformations and ends
// outside the policy's domain. The passes are independent of each other.
func (t *Table) Curate(p Policy) Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	for k, e := range t.witnesses {
		tr := e.Transformation
		remove := false
		if IsCanonical(e.Program) {
			r.Canonical++
			remove = true
		}
		if tr.IsIdentity() {
			r.Identity++
			remove = true
		}
		if !p.InDomain(tr.End) {
			r.Domain++
			remove = true
		}
		if remove {
			delete(t.witnesses, k)
			r.Removed++
		}
	}
	r.Remaining = len(t.witnesses)
	return r
}

// InDomain reports whether v is an integer within [Min, Max].
func (p Policy) InDomain(v float64) bool {
	if v != math.Trunc(v) {
		return false
	}
	return v >= p.Min && v <= p.Max
}

// IsCanonical reports whether program is a non-empty run of the unary delta
// instructions, optionally preceded by a single push-zero. Such a witness
// describes a plain constant offset and needs no table entry.
func IsCanonical(program string) bool {
	if len(program) > 1 && op.Code(program[0]) == op.PushZero {
		program = program[1:]
	}
	if program == "" {
		return false
	}
	for i := 0; i < len(program); i++ {
		if !op.Code(program[i]).IsDelta() {
			return false
		}
	}
	return true
}
