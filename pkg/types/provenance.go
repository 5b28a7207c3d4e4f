package types

import "fmt"

// Provenance tracks where a blob was found.
type Provenance interface {
	Kind() string
	// Path returns a displayable location
	Path() string
}

// FileProvenance for files on disk.
type FileProvenance struct {
	FilePath string
}

func (f FileProvenance) Kind() string { return "file" }
func (f FileProvenance) Path() string { return f.FilePath }

// ArchiveProvenance for members of zip and 7z archives.
type ArchiveProvenance struct {
	ArchivePath string
	MemberPath  string
}

func (a ArchiveProvenance) Kind() string { return "archive" }

// Path returns "archive:member".
func (a ArchiveProvenance) Path() string {
	return fmt.Sprintf("%s:%s", a.ArchivePath, a.MemberPath)
}

// ExtendedProvenance for blobs submitted by other tools, e.g. memory dumps
// sent to the streaming server.
type ExtendedProvenance struct {
	Payload map[string]any
}

func (e ExtendedProvenance) Kind() string { return "extended" }

// Path returns the payload's "source" entry when it is a string.
func (e ExtendedProvenance) Path() string {
	if s, ok := e.Payload["source"].(string); ok {
		return s
	}
	return ""
}
