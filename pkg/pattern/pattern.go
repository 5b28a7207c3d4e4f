package pattern

import (
	"fmt"
	"strings"
)

// Element is one position of a compiled pattern: a concrete byte or a wildcard.
type Element struct {
	value    byte
	wildcard bool
}

// Wildcard matches any byte.
var Wildcard = Element{wildcard: true}

// Byte returns a concrete element matching exactly b.
func Byte(b byte) Element {
	return Element{value: b}
}

// IsWildcard reports whether e matches any byte.
func (e Element) IsWildcard() bool {
	return e.wildcard
}

// Value returns the concrete byte. It is zero for wildcards.
func (e Element) Value() byte {
	return e.value
}

// Matches reports whether e accepts b.
func (e Element) Matches(b byte) bool {
	return e.wildcard || e.value == b
}

// String renders e the way IDA-style text does.
func (e Element) String() string {
	if e.wildcard {
		return "?"
	}
	return fmt.Sprintf("%02X", e.value)
}

// Pattern is a compiled, immutable AOB signature.
// The zero value is empty and is rejected by every scanner constructor.
type Pattern struct {
	elems []Element
}

// New builds a pattern from elements. It fails with ErrEmptyPattern when
// elems is empty. The slice is copied.
func New(elems ...Element) (Pattern, error) {
	if len(elems) == 0 {
		return Pattern{}, newError(ErrEmptyPattern, nil, -1, "")
	}
	cp := make([]Element, len(elems))
	copy(cp, elems)
	return Pattern{elems: cp}, nil
}

// Len returns the number of elements.
func (p Pattern) Len() int {
	return len(p.elems)
}

// IsEmpty reports whether p has no elements (only the zero Pattern does).
func (p Pattern) IsEmpty() bool {
	return len(p.elems) == 0
}

// At returns the element at position i.
func (p Pattern) At(i int) Element {
	return p.elems[i]
}

// Elements returns a copy of the elements.
func (p Pattern) Elements() []Element {
	cp := make([]Element, len(p.elems))
	copy(cp, p.elems)
	return cp
}

// Equal reports whether p and q have the same elements.
func (p Pattern) Equal(q Pattern) bool {
	if len(p.elems) != len(q.elems) {
		return false
	}
	for i := range p.elems {
		if p.elems[i] != q.elems[i] {
			return false
		}
	}
	return true
}

// MatchesAt reports whether p matches data starting at offset off.
func (p Pattern) MatchesAt(data []byte, off int) bool {
	if off < 0 || off+len(p.elems) > len(data) {
		return false
	}
	window := data[off : off+len(p.elems)]
	for i, e := range p.elems {
		if !e.wildcard && e.value != window[i] {
			return false
		}
	}
	return true
}

// Bytes returns the signature bytes, with zero at wildcard positions.
func (p Pattern) Bytes() []byte {
	out := make([]byte, len(p.elems))
	for i, e := range p.elems {
		out[i] = e.value
	}
	return out
}

// Mask returns the code-style mask: 'x' for concrete bytes, '?' for wildcards.
func (p Pattern) Mask() string {
	var sb strings.Builder
	sb.Grow(len(p.elems))
	for _, e := range p.elems {
		if e.wildcard {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('x')
		}
	}
	return sb.String()
}

// ConcreteCount returns how many positions are not wildcards.
func (p Pattern) ConcreteCount() int {
	n := 0
	for _, e := range p.elems {
		if !e.wildcard {
			n++
		}
	}
	return n
}

// WildcardBytes returns the bytes of data[off:] that sit under wildcard
// positions, in pattern order. These are usually the interesting part of a
// hit (displacements, immediates). The caller must ensure p matches at off.
func (p Pattern) WildcardBytes(data []byte, off int) []byte {
	var out []byte
	for i, e := range p.elems {
		if e.wildcard {
			out = append(out, data[off+i])
		}
	}
	return out
}

// LongestRun returns the longest run of consecutive concrete bytes and its
// position in the pattern. Ties go to the leftmost run. It returns a nil
// slice for all-wildcard patterns.
func (p Pattern) LongestRun() (run []byte, offset int) {
	bestStart, bestLen := 0, 0
	start := -1
	for i := 0; i <= len(p.elems); i++ {
		if i < len(p.elems) && !p.elems[i].wildcard {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start > bestLen {
				bestStart, bestLen = start, i-start
			}
			start = -1
		}
	}
	if bestLen == 0 {
		return nil, 0
	}
	run = make([]byte, bestLen)
	for i := range run {
		run[i] = p.elems[bestStart+i].value
	}
	return run, bestStart
}

// String renders p as IDA-style text, e.g. "48 8B ? ?".
func (p Pattern) String() string {
	parts := make([]string, len(p.elems))
	for i, e := range p.elems {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
