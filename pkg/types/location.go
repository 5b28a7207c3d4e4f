package types

// OffsetSpan is the byte range [Start, End) of a match in its blob.
type OffsetSpan struct {
	Start int64
	End   int64
}

// Len returns End - Start.
func (s OffsetSpan) Len() int64 {
	return s.End - s.Start
}

// Location places a match in its blob and, when the scan was restricted
// to an object file section, inside that section.
type Location struct {
	Offset        OffsetSpan
	Section       string `json:",omitempty"` // section name, empty for whole-blob scans
	SectionOffset int64  `json:",omitempty"` // offset from the section start
	Address       uint64 `json:",omitempty"` // virtual address of the match
	Arch          string `json:",omitempty"` // fat Mach-O slice
}

// InSection reports whether the match was found in a named section.
func (l Location) InSection() bool {
	return l.Section != ""
}
