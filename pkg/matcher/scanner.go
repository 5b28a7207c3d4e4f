package matcher

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/praetorian-inc/aobscan/pkg/pattern"
)

// Scanner is a compiled pattern ready to scan buffers. It is immutable,
// keeps no reference to scanned data and is safe for concurrent use.
type Scanner struct {
	pattern pattern.Pattern
	elems   []pattern.Element
	skip    *SkipTable
	threads int
}

// Build validates p and cfg and precomputes the skip table. The zero Pattern
// is rejected with pattern.ErrEmptyPattern.
func Build(p pattern.Pattern, cfg ThreadConfig) (*Scanner, error) {
	if p.IsEmpty() {
		return nil, fmt.Errorf("build scanner: %w", pattern.ErrEmptyPattern)
	}
	return &Scanner{
		pattern: p,
		elems:   p.Elements(),
		skip:    NewSkipTable(p),
		threads: cfg.Threads(),
	}, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(p pattern.Pattern, cfg ThreadConfig) *Scanner {
	s, err := Build(p, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Pattern returns the compiled pattern.
func (s *Scanner) Pattern() pattern.Pattern {
	return s.pattern
}

// Threads returns the configured worker count.
func (s *Scanner) Threads() int {
	return s.threads
}

// SkipTable returns the scanner's shift table.
func (s *Scanner) SkipTable() *SkipTable {
	return s.skip
}

func (s *Scanner) String() string {
	return fmt.Sprintf("[ %s ] [t=%d]", s.pattern, s.threads)
}

// Scan calls cb with the absolute offset of every match in buf. Returning
// true from cb stops the scan. Scan reports whether any call to cb returned
// true.
//
// With one worker, offsets arrive in increasing order and nothing is
// reported after cb asks to stop. With several workers, cb is called
// concurrently from different goroutines and must do its own locking.
// Offsets are increasing within a segment only, and stopping is best
// effort: matches already found by other workers may still be delivered
// after the request.
func (s *Scanner) Scan(buf []byte, cb func(offset int) bool) bool {
	segments := Partition(len(buf), s.threads, len(s.elems))
	if len(segments) <= 1 {
		stopped := false
		searchWindows(buf, s.elems, s.skip, len(buf), nil, func(off int) bool {
			if cb(off) {
				stopped = true
				return false
			}
			return true
		})
		return stopped
	}

	var stop atomic.Bool
	s.eachSegment(buf, segments, &stop, func(seg Segment, off int) bool {
		if cb(seg.Absolute(off)) {
			stop.Store(true)
			return false
		}
		return true
	})
	return stop.Load()
}

// eachSegment searches every segment on its own goroutine. visit returning
// false ends that segment only; stop ends all of them.
func (s *Scanner) eachSegment(buf []byte, segments []Segment, stop *atomic.Bool, visit func(seg Segment, off int) bool) {
	var wg sync.WaitGroup
	for _, seg := range segments {
		wg.Go(func() {
			searchWindows(seg.Visible(buf), s.elems, s.skip, seg.End-seg.Start, stop, func(off int) bool {
				return visit(seg, off)
			})
		})
	}
	wg.Wait()
}

// FindAll returns every match offset in increasing order.
func (s *Scanner) FindAll(buf []byte) []int {
	var (
		mu      sync.Mutex
		offsets []int
	)
	s.Scan(buf, func(off int) bool {
		mu.Lock()
		offsets = append(offsets, off)
		mu.Unlock()
		return false
	})
	slices.Sort(offsets)
	return offsets
}

// FindFirst returns the lowest match offset.
func (s *Scanner) FindFirst(buf []byte) (int, bool) {
	segments := Partition(len(buf), s.threads, len(s.elems))
	if len(segments) <= 1 {
		for off := range Search(buf, s.pattern, s.skip) {
			return off, true
		}
		return 0, false
	}

	// Each segment stops at its own first hit; the lowest segment with a
	// hit holds the answer.
	firsts := make([]int, len(segments))
	for i := range firsts {
		firsts[i] = -1
	}
	s.eachSegment(buf, segments, nil, func(seg Segment, off int) bool {
		firsts[seg.Index] = seg.Absolute(off)
		return false
	})
	for _, off := range firsts {
		if off >= 0 {
			return off, true
		}
	}
	return 0, false
}

// Count returns the number of matches in buf.
func (s *Scanner) Count(buf []byte) int {
	var n atomic.Int64
	s.Scan(buf, func(int) bool {
		n.Add(1)
		return false
	})
	return int(n.Load())
}
