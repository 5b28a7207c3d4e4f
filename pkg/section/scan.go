package section

import (
	"cmp"
	"slices"
	"sync"

	"github.com/praetorian-inc/aobscan/pkg/matcher"
)

// Match is a hit inside a named section.
type Match struct {
	RawOffset      int    // offset in the whole file
	SectionOffset  int    // offset from the start of the section
	SectionAddress uint64 // load address of the section
	Arch           string // fat Mach-O slice, empty otherwise
}

// Address returns the virtual address of the match.
func (m Match) Address() uint64 {
	return m.SectionAddress + uint64(m.SectionOffset)
}

// Scan resolves the named section in data and scans each of its ranges with
// s. Returning true from cb stops the scan; Scan reports whether that
// happened. The callback contract is the one of matcher.Scanner.Scan.
func Scan(s *matcher.Scanner, data []byte, name string, cb func(Match) bool) (bool, error) {
	ranges, err := Resolve(data, name)
	if err != nil {
		return false, err
	}
	for _, r := range ranges {
		buf, err := r.Slice(data)
		if err != nil {
			return false, err
		}
		base := int(r.Offset)
		stopped := s.Scan(buf, func(off int) bool {
			return cb(Match{
				RawOffset:      base + off,
				SectionOffset:  off,
				SectionAddress: r.Address,
				Arch:           r.Arch,
			})
		})
		if stopped {
			return true, nil
		}
	}
	return false, nil
}

// FindAll returns every match in the named section, ordered by raw offset.
func FindAll(s *matcher.Scanner, data []byte, name string) ([]Match, error) {
	var (
		mu      sync.Mutex
		matches []Match
	)
	_, err := Scan(s, data, name, func(m Match) bool {
		mu.Lock()
		matches = append(matches, m)
		mu.Unlock()
		return false
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(matches, func(a, b Match) int {
		return cmp.Compare(a.RawOffset, b.RawOffset)
	})
	return matches, nil
}

// FindFirst returns the lowest match in the first range of the named
// section that has one. Each range is searched with s.FindFirst, so the
// search ends at the first hit instead of walking the whole section.
func FindFirst(s *matcher.Scanner, data []byte, name string) (Match, bool, error) {
	ranges, err := Resolve(data, name)
	if err != nil {
		return Match{}, false, err
	}
	for _, r := range ranges {
		buf, err := r.Slice(data)
		if err != nil {
			return Match{}, false, err
		}
		if off, ok := s.FindFirst(buf); ok {
			return Match{
				RawOffset:      int(r.Offset) + off,
				SectionOffset:  off,
				SectionAddress: r.Address,
				Arch:           r.Arch,
			}, true, nil
		}
	}
	return Match{}, false, nil
}
