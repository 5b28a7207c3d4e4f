package enum

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// ArchiveKind identifies a supported sample archive format.
type ArchiveKind string

const (
	ArchiveNone     ArchiveKind = ""
	ArchiveZip      ArchiveKind = "zip"
	ArchiveSevenZip ArchiveKind = "7z"
)

var (
	zipMagic      = []byte("PK\x03\x04")
	sevenZipMagic = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
)

// DetectArchive identifies an archive by its magic bytes, falling back to
// the file extension.
func DetectArchive(path string, content []byte) ArchiveKind {
	switch {
	case bytes.HasPrefix(content, zipMagic):
		return ArchiveZip
	case bytes.HasPrefix(content, sevenZipMagic):
		return ArchiveSevenZip
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return ArchiveZip
	case ".7z":
		return ArchiveSevenZip
	}
	return ArchiveNone
}

// ExtractedContent is one member read out of an archive.
type ExtractedContent struct {
	Name    string // path within the archive
	Content []byte
}

// ExtractLimits bounds what is read out of a single archive.
type ExtractLimits struct {
	MaxMemberSize int64 // members larger than this are skipped (0 = no limit)
	MaxMembers    int   // stop after this many members (0 = no limit)
	MaxTotalSize  int64 // stop once this many bytes were extracted (0 = no limit)
}

// SkippedMember records a member that could not be extracted.
type SkippedMember struct {
	Name   string
	Reason string
}

// archiveMember abstracts over zip and 7z entries.
type archiveMember interface {
	name() string
	info() fs.FileInfo
	open() (io.ReadCloser, error)
}

type zipMember struct{ f *zip.File }

func (m zipMember) name() string                 { return m.f.Name }
func (m zipMember) info() fs.FileInfo            { return m.f.FileInfo() }
func (m zipMember) open() (io.ReadCloser, error) { return m.f.Open() }

type sevenZipMember struct{ f *sevenzip.File }

func (m sevenZipMember) name() string                 { return m.f.Name }
func (m sevenZipMember) info() fs.FileInfo            { return m.f.FileInfo() }
func (m sevenZipMember) open() (io.ReadCloser, error) { return m.f.Open() }

// ExtractArchive reads every regular member of a zip or 7z archive held in
// content. Members that fail to open or exceed the size limit are reported
// as skipped rather than failing the whole archive.
func ExtractArchive(kind ArchiveKind, content []byte, password string, limits ExtractLimits) ([]ExtractedContent, []SkippedMember, error) {
	r := bytes.NewReader(content)

	var members []archiveMember
	switch kind {
	case ArchiveZip:
		zr, err := zip.NewReader(r, int64(len(content)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open zip: %w", err)
		}
		for _, f := range zr.File {
			members = append(members, zipMember{f})
		}
	case ArchiveSevenZip:
		sr, err := sevenzip.NewReaderWithPassword(r, int64(len(content)), password)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open 7z: %w", err)
		}
		for _, f := range sr.File {
			members = append(members, sevenZipMember{f})
		}
	default:
		return nil, nil, fmt.Errorf("unsupported archive kind: %q", kind)
	}

	return extractMembers(members, limits)
}

func extractMembers(members []archiveMember, limits ExtractLimits) ([]ExtractedContent, []SkippedMember, error) {
	var (
		results []ExtractedContent
		skipped []SkippedMember
		total   int64
	)
	for _, m := range members {
		info := m.info()
		if !info.Mode().IsRegular() {
			continue
		}
		if limits.MaxMembers > 0 && len(results) >= limits.MaxMembers {
			skipped = append(skipped, SkippedMember{Name: m.name(), Reason: "member limit reached"})
			continue
		}
		if limits.MaxMemberSize > 0 && info.Size() > limits.MaxMemberSize {
			skipped = append(skipped, SkippedMember{Name: m.name(), Reason: "exceeds size limit"})
			continue
		}
		if limits.MaxTotalSize > 0 && total+info.Size() > limits.MaxTotalSize {
			skipped = append(skipped, SkippedMember{Name: m.name(), Reason: "total size limit reached"})
			continue
		}

		data, err := readMember(m, limits.MaxMemberSize)
		if err != nil {
			skipped = append(skipped, SkippedMember{Name: m.name(), Reason: err.Error()})
			continue
		}
		total += int64(len(data))
		results = append(results, ExtractedContent{Name: m.name(), Content: data})
	}
	return results, skipped, nil
}

// readMember reads m, refusing to read past max bytes when max is set. The
// header size is not trusted.
func readMember(m archiveMember, max int64) ([]byte, error) {
	rc, err := m.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if max > 0 {
		r = io.LimitReader(rc, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if max > 0 && int64(len(data)) > max {
		return nil, fmt.Errorf("exceeds size limit")
	}
	return data, nil
}
