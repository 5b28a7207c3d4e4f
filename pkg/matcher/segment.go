package matcher

// Segment is the part of a buffer owned by one worker.
type Segment struct {
	Start      int // first window start owned by this segment
	End        int // window starts are < End
	VisibleEnd int // End plus up to patternLen-1 bytes of overlap, clamped to the buffer
	Index      int
}

// Partition splits a buffer of size bytes into at most workers contiguous
// segments of ceil(size/workers) bytes. Each segment can see patternLen-1
// bytes past its end so a match straddling a boundary is found by the
// segment where it starts, and only there. Segments that would start at or
// past the end of the buffer are dropped.
func Partition(size, workers, patternLen int) []Segment {
	if size <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if patternLen < 1 {
		patternLen = 1
	}

	segLen := (size + workers - 1) / workers
	segments := make([]Segment, 0, workers)
	for start := 0; start < size; start += segLen {
		end := min(start+segLen, size)
		segments = append(segments, Segment{
			Start:      start,
			End:        end,
			VisibleEnd: min(end+patternLen-1, size),
			Index:      len(segments),
		})
	}
	return segments
}

// Visible returns the bytes this segment searches.
func (s Segment) Visible(buf []byte) []byte {
	return buf[s.Start:s.VisibleEnd]
}

// Owns reports whether a window starting at the segment-relative offset off
// belongs to this segment.
func (s Segment) Owns(off int) bool {
	return off >= 0 && off < s.End-s.Start
}

// Absolute converts a segment-relative offset to a buffer offset.
func (s Segment) Absolute(off int) int {
	return s.Start + off
}
