package matcher

import (
	"iter"
	"sync/atomic"

	"github.com/praetorian-inc/aobscan/pkg/pattern"
)

// Search returns the offsets at which p matches haystack, in increasing
// order. Overlapping matches are all reported. The sequence is lazy and may
// be ranged over any number of times.
func Search(haystack []byte, p pattern.Pattern, t *SkipTable) iter.Seq[int] {
	elems := p.Elements()
	return func(yield func(int) bool) {
		if len(elems) == 0 {
			return
		}
		searchWindows(haystack, elems, t, len(haystack), nil, yield)
	}
}

// searchWindows tests every window start w < limit for which the window
// fits in haystack. It checks stop before each alignment and returns false
// if it ended early, either because stop was set or yield returned false.
func searchWindows(haystack []byte, elems []pattern.Element, t *SkipTable, limit int, stop *atomic.Bool, yield func(int) bool) bool {
	n := len(elems)
	last := n - 1
	for w := 0; w < limit && w+n <= len(haystack); {
		if stop != nil && stop.Load() {
			return false
		}
		if alignedAt(haystack[w:w+n], elems) {
			if !yield(w) {
				return false
			}
			w++
			continue
		}
		w += t.Shift(haystack[w+last])
	}
	return true
}

func alignedAt(window []byte, elems []pattern.Element) bool {
	for i := len(elems) - 1; i >= 0; i-- {
		if !elems[i].Matches(window[i]) {
			return false
		}
	}
	return true
}
