package store

import (
	"cmp"
	"reflect"
	"slices"
	"sync"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[types.BlobID]int64
	signatures map[string]*types.Signature
	matches    []*types.Match
	matchIDs   map[string]bool // structural IDs of stored matches
	findings   map[string]*types.Finding
	provenance map[types.BlobID][]types.Provenance
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[types.BlobID]int64),
		signatures: make(map[string]*types.Signature),
		matches:    make([]*types.Match, 0),
		matchIDs:   make(map[string]bool),
		findings:   make(map[string]*types.Finding),
		provenance: make(map[types.BlobID][]types.Provenance),
	}
}

// AddBlob stores a blob record.
func (m *MemoryStore) AddBlob(id types.BlobID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blobs[id]; !exists {
		m.blobs[id] = size
	}
	return nil
}

// AddSignature records a signature.
func (m *MemoryStore) AddSignature(sig *types.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signatures[sig.ID] = sig
	return nil
}

// AddMatch stores a match record.
func (m *MemoryStore) AddMatch(match *types.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.matchIDs[match.StructuralID] {
		return nil
	}
	m.matchIDs[match.StructuralID] = true
	m.matches = append(m.matches, match)
	return nil
}

// AddFinding stores a finding (deduplicated).
func (m *MemoryStore) AddFinding(f *types.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.findings[f.ID]; exists {
		return nil
	}
	m.findings[f.ID] = &types.Finding{ID: f.ID, SignatureID: f.SignatureID, Wildcards: f.Wildcards}
	return nil
}

// AddProvenance associates provenance with a blob.
func (m *MemoryStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	if _, err := encodeProvenance(prov); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.provenance[blobID] {
		if reflect.DeepEqual(p, prov) {
			return nil
		}
	}
	m.provenance[blobID] = append(m.provenance[blobID], prov)
	return nil
}

// GetMatches retrieves matches for a blob.
func (m *MemoryStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Match, 0)
	for _, match := range m.matches {
		if match.BlobID == blobID {
			result = append(result, match)
		}
	}
	sortMatches(result)
	return result, nil
}

// GetAllMatches retrieves all matches.
func (m *MemoryStore) GetAllMatches() ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := slices.Clone(m.matches)
	sortMatches(result)
	return result, nil
}

// GetFindings retrieves all findings ordered by signature, with matches
// attached.
func (m *MemoryStore) GetFindings() ([]*types.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byFinding := make(map[string][]*types.Match)
	for _, match := range m.matches {
		byFinding[match.FindingID] = append(byFinding[match.FindingID], match)
	}

	result := make([]*types.Finding, 0, len(m.findings))
	for _, f := range m.findings {
		matches := byFinding[f.ID]
		sortMatches(matches)
		result = append(result, &types.Finding{
			ID:          f.ID,
			SignatureID: f.SignatureID,
			Wildcards:   f.Wildcards,
			Matches:     matches,
		})
	}
	slices.SortFunc(result, func(a, b *types.Finding) int {
		return cmp.Or(cmp.Compare(a.SignatureID, b.SignatureID), cmp.Compare(a.ID, b.ID))
	})
	return result, nil
}

// GetSignatures retrieves every recorded signature ordered by ID.
func (m *MemoryStore) GetSignatures() ([]*types.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Signature, 0, len(m.signatures))
	for _, sig := range m.signatures {
		result = append(result, sig)
	}
	slices.SortFunc(result, func(a, b *types.Signature) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// FindingExists checks if a finding with this ID exists.
func (m *MemoryStore) FindingExists(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.findings[id]
	return exists, nil
}

// BlobExists checks if a blob has already been scanned.
func (m *MemoryStore) BlobExists(id types.BlobID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blobs[id]
	return exists, nil
}

// GetProvenance retrieves provenance for a blob in insertion order.
func (m *MemoryStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append(make([]types.Provenance, 0), m.provenance[blobID]...), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// sortMatches orders matches by blob, offset and signature, the order the
// SQLite backend returns.
func sortMatches(matches []*types.Match) {
	slices.SortStableFunc(matches, func(a, b *types.Match) int {
		return cmp.Or(
			cmp.Compare(a.BlobID.Hex(), b.BlobID.Hex()),
			cmp.Compare(a.Location.Offset.Start, b.Location.Offset.Start),
			cmp.Compare(a.SignatureID, b.SignatureID),
		)
	})
}
