package enum

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinedEnumerator_YieldsEachBlobOnce(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(a, "one.bin"), []byte("same"))
	writeFile(t, filepath.Join(b, "two.bin"), []byte("same"))
	writeFile(t, filepath.Join(b, "three.bin"), []byte("different"))

	c := NewCombinedEnumerator(
		NewFilesystemEnumerator(Config{Root: a}),
		NewFilesystemEnumerator(Config{Root: b}),
	)
	blobs := collectBlobs(t, c)
	require.Len(t, blobs, 2)

	ids := map[types.BlobID]bool{}
	for _, bl := range blobs {
		ids[bl.id] = true
	}
	assert.True(t, ids[types.ComputeBlobID([]byte("same"))])
	assert.True(t, ids[types.ComputeBlobID([]byte("different"))])
}

func TestCombinedEnumerator_ReportsDuplicates(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(a, "one.bin"), []byte("same"))
	dupPath := filepath.Join(b, "two.bin")
	writeFile(t, dupPath, []byte("same"))

	var (
		mu   sync.Mutex
		dups []types.Provenance
	)
	c := NewCombinedEnumerator(
		NewFilesystemEnumerator(Config{Root: a}),
		NewFilesystemEnumerator(Config{Root: b}),
	).OnDuplicate(func(id types.BlobID, prov types.Provenance) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, types.ComputeBlobID([]byte("same")), id)
		dups = append(dups, prov)
		return nil
	})

	require.Len(t, collectBlobs(t, c), 1)
	require.Len(t, dups, 1)
	assert.Equal(t, dupPath, dups[0].Path())
}

func TestCombinedEnumerator_StopsOnError(t *testing.T) {
	c := NewCombinedEnumerator(NewFilesystemEnumerator(Config{Root: filepath.Join(t.TempDir(), "missing")}))
	err := c.Enumerate(context.Background(), func([]byte, types.BlobID, types.Provenance) error { return nil })
	assert.Error(t, err)
}

func TestCombinedEnumerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCombinedEnumerator(NewFilesystemEnumerator(Config{Root: t.TempDir()}))
	err := c.Enumerate(ctx, func([]byte, types.BlobID, types.Provenance) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
