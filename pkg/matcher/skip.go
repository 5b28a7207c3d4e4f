package matcher

import "github.com/praetorian-inc/aobscan/pkg/pattern"

// SkipTable holds the masked Horspool shift for every byte value. It is
// immutable once built.
type SkipTable struct {
	shifts [256]int
	def    int
}

// NewSkipTable computes the shift table for p.
//
// A concrete byte at position i (last position excluded) shifts by L-1-i,
// the rightmost occurrence winning. Unseen bytes shift by L. Every shift is
// then capped at L-1-k where k is the rightmost wildcard, since a wildcard
// aligned with the inspected byte could match it. A trailing wildcard makes
// the cap 0 and the search falls back to one byte at a time.
func NewSkipTable(p pattern.Pattern) *SkipTable {
	n := p.Len()
	limit := n
	for i := n - 1; i >= 0; i-- {
		if p.At(i).IsWildcard() {
			limit = n - 1 - i
			break
		}
	}

	t := &SkipTable{def: clampShift(n, limit)}
	for i := range t.shifts {
		t.shifts[i] = t.def
	}
	for i := 0; i < n-1; i++ {
		e := p.At(i)
		if e.IsWildcard() {
			continue
		}
		t.shifts[e.Value()] = clampShift(n-1-i, limit)
	}
	return t
}

// Shift returns how far the window may advance after a failed alignment
// whose last byte is b. It is always at least 1.
func (t *SkipTable) Shift(b byte) int {
	return t.shifts[b]
}

// Default returns the shift used for bytes absent from the pattern.
func (t *SkipTable) Default() int {
	return t.def
}

func clampShift(shift, limit int) int {
	if shift > limit {
		shift = limit
	}
	if shift < 1 {
		shift = 1
	}
	return shift
}
