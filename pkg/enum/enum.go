// Package enum discovers the blobs to scan: files on disk and the members of
// sample archives.
package enum

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/praetorian-inc/aobscan/pkg/types"
)

// Callback receives one blob. content is only valid until the callback
// returns; it may be backed by a memory-mapped file.
type Callback func(content []byte, blobID types.BlobID, prov types.Provenance) error

// Enumerator discovers content to scan from a source.
type Enumerator interface {
	// Enumerate yields blobs from the source. The callback may be invoked
	// from several goroutines at once.
	Enumerate(ctx context.Context, callback Callback) error
}

// DefaultArchivePassword is the conventional password of malware sample
// archives.
const DefaultArchivePassword = "infected"

// Config for enumeration.
type Config struct {
	// Root is the file or directory to enumerate.
	Root string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file or archive member size (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links to files.
	FollowSymlinks bool

	// ExtractArchives scans the members of .zip and .7z archives as
	// separate blobs instead of the archive itself.
	ExtractArchives bool

	// ArchivePassword opens encrypted 7z archives.
	ArchivePassword string

	// Readers is the number of files read concurrently (0 = NumCPU).
	Readers int

	// Logger receives warnings about skipped files. Nil discards them.
	Logger *log.Logger
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig(root string) Config {
	return Config{
		Root:            root,
		MaxFileSize:     256 << 20,
		ArchivePassword: DefaultArchivePassword,
	}
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}
