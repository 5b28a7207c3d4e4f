// Package datastore keeps copies of scanned content on disk so reports can
// show bytes around a match after the source files are gone.
package datastore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// ErrBlobNotFound is returned by Get for unknown blob IDs.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is a content-addressed directory of blobs.
type BlobStore struct {
	Root string
}

// Open creates the blob directory if needed.
func Open(root string) (*BlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &BlobStore{Root: root}, nil
}

// Store writes content and returns its blob ID. Storing the same content
// twice is a no-op.
func (b *BlobStore) Store(content []byte) (types.BlobID, error) {
	id := types.ComputeBlobID(content)

	path := b.blobPath(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return types.BlobID{}, fmt.Errorf("creating blob directory: %w", err)
	}

	// temp file + rename so readers never see a partial blob
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return types.BlobID{}, fmt.Errorf("writing blob: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return types.BlobID{}, fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return types.BlobID{}, fmt.Errorf("writing blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return types.BlobID{}, fmt.Errorf("renaming blob: %w", err)
	}

	return id, nil
}

// Get reads a stored blob.
func (b *BlobStore) Get(id types.BlobID) ([]byte, error) {
	content, err := os.ReadFile(b.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id.Hex())
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return content, nil
}

// Exists reports whether a blob is stored.
func (b *BlobStore) Exists(id types.BlobID) bool {
	_, err := os.Stat(b.blobPath(id))
	return err == nil
}

// Context returns up to n bytes on each side of [start, end) in a stored
// blob, along with the offset of the first returned byte. Only that window
// is read from disk. A negative n is treated as 0.
func (b *BlobStore) Context(id types.BlobID, start, end, n int) ([]byte, int, error) {
	n = max(n, 0)

	f, err := os.Open(b.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrBlobNotFound, id.Hex())
		}
		return nil, 0, fmt.Errorf("opening blob: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("reading blob: %w", err)
	}
	size := int(info.Size())
	if start < 0 || end < start || end > size {
		return nil, 0, fmt.Errorf("range %d-%d outside blob of %d bytes", start, end, size)
	}

	lo := max(start-n, 0)
	hi := min(end+n, size)
	buf := make([]byte, hi-lo)
	if _, err := f.ReadAt(buf, int64(lo)); err != nil {
		return nil, 0, fmt.Errorf("reading blob: %w", err)
	}
	return buf, lo, nil
}

// blobPath splits the hex ID under a two character prefix directory:
// ab/cdef0123...
func (b *BlobStore) blobPath(id types.BlobID) string {
	hexID := id.Hex()
	return filepath.Join(b.Root, hexID[:2], hexID[2:])
}
