package prefilter

import (
	"sync"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(id, pattern string) *types.Signature {
	return &types.Signature{ID: id, Name: id, Pattern: pattern}
}

func filteredIDs(sigs []*types.Signature) []string {
	out := make([]string, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, s.ID)
	}
	return out
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, []byte{0x48, 0x8B, 0x05}, Anchor(sig("a", "48 8B 05 ? ? ? ? C3")))
	assert.Equal(t, []byte{0x74, 0x24, 0x08}, Anchor(sig("b", "48 ? 74 24 08 ? 57")))
	assert.Nil(t, Anchor(sig("c", "E8 ? ? ? ?")))
	assert.Nil(t, Anchor(sig("d", "? ? ?")))
	assert.Nil(t, Anchor(sig("e", "not a pattern")))
}

func TestPrefilter_MatchingAnchors(t *testing.T) {
	pf := New([]*types.Signature{
		sig("prologue", "55 48 89 E5"),
		sig("rip-mov", "48 8B 05 ? ? ? ?"),
	})
	assert.Equal(t, 2, pf.Len())

	filtered := pf.Filter([]byte{0x00, 0x55, 0x48, 0x89, 0xE5, 0xC3})
	assert.Equal(t, []string{"prologue"}, filteredIDs(filtered))
}

func TestPrefilter_AnchorlessAlwaysReturned(t *testing.T) {
	pf := New([]*types.Signature{
		sig("call", "E8 ? ? ? ?"),
		sig("prologue", "55 48 89 E5"),
	})

	filtered := pf.Filter([]byte("no code here"))
	assert.Equal(t, []string{"call"}, filteredIDs(filtered))

	filtered = pf.Filter(nil)
	assert.Equal(t, []string{"call"}, filteredIDs(filtered))
}

func TestPrefilter_SeveralAnchorsPresent(t *testing.T) {
	pf := New([]*types.Signature{
		sig("a", "48 8B 05 ? 48 85 C0 90"),
		sig("b", "48 8B 05 ? ? ? ? C3"),
	})
	assert.Equal(t, 2, pf.Len())

	// Both anchors present, repeatedly: each signature is returned once.
	content := []byte{0x48, 0x85, 0xC0, 0x90, 0x48, 0x8B, 0x05, 0x00, 0x48, 0x85, 0xC0, 0x90, 0x48, 0x8B, 0x05}
	filtered := pf.Filter(content)
	assert.ElementsMatch(t, []string{"a", "b"}, filteredIDs(filtered))
}

func TestPrefilter_DuplicateAnchorsDeduplicated(t *testing.T) {
	pf := New([]*types.Signature{
		sig("a", "55 48 89 E5 ? 01"),
		sig("b", "55 48 89 E5 ? 02"),
	})
	assert.Equal(t, 1, pf.Len())

	filtered := pf.Filter([]byte{0x55, 0x48, 0x89, 0xE5, 0x55, 0x48, 0x89, 0xE5})
	require.Len(t, filtered, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, filteredIDs(filtered))
}

func TestPrefilter_Empty(t *testing.T) {
	pf := New(nil)
	assert.Empty(t, pf.Filter([]byte{0x55, 0x48}))
}

func TestPrefilter_ConcurrentFilter(t *testing.T) {
	pf := New([]*types.Signature{
		sig("prologue", "55 48 89 E5"),
		sig("ret", "C3"),
	})
	content := []byte{0x55, 0x48, 0x89, 0xE5, 0xC3}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.ElementsMatch(t, []string{"prologue", "ret"}, filteredIDs(pf.Filter(content)))
		}()
	}
	wg.Wait()
}
