package enum

import (
	"context"
	"sync"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// DuplicateFunc receives a blob already yielded by an earlier target, with
// the provenance it was found at this time.
type DuplicateFunc func(blobID types.BlobID, prov types.Provenance) error

// CombinedEnumerator scans several targets as one. Content seen under more
// than one path is yielded once; later sightings go to the duplicate hook.
type CombinedEnumerator struct {
	enumerators []Enumerator
	onDuplicate DuplicateFunc
}

// NewCombinedEnumerator runs enumerators in the given order.
func NewCombinedEnumerator(enumerators ...Enumerator) *CombinedEnumerator {
	return &CombinedEnumerator{enumerators: enumerators}
}

// OnDuplicate sets the hook for repeated blobs and returns c.
func (c *CombinedEnumerator) OnDuplicate(fn DuplicateFunc) *CombinedEnumerator {
	c.onDuplicate = fn
	return c
}

// Enumerate implements Enumerator.
func (c *CombinedEnumerator) Enumerate(ctx context.Context, callback Callback) error {
	var mu sync.Mutex
	seen := make(map[types.BlobID]struct{})

	yield := func(content []byte, blobID types.BlobID, prov types.Provenance) error {
		mu.Lock()
		_, dup := seen[blobID]
		seen[blobID] = struct{}{}
		mu.Unlock()

		if !dup {
			return callback(content, blobID, prov)
		}
		if c.onDuplicate != nil {
			return c.onDuplicate(blobID, prov)
		}
		return nil
	}

	for _, e := range c.enumerators {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Enumerate(ctx, yield); err != nil {
			return err
		}
	}
	return nil
}
