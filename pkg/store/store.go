// Package store persists scanned blobs, matches and findings.
package store

import (
	"fmt"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// Store provides persistence for scan results. Implementations are safe for
// concurrent use.
type Store interface {
	// AddBlob stores a blob record. Adding a blob twice is a no-op.
	AddBlob(id types.BlobID, size int64) error

	// AddSignature records a signature used by a scan.
	AddSignature(sig *types.Signature) error

	// AddMatch stores a match, deduplicated by its StructuralID.
	AddMatch(m *types.Match) error

	// AddFinding stores a finding, deduplicated by its ID. The finding's
	// matches are stored separately with AddMatch.
	AddFinding(f *types.Finding) error

	// AddProvenance associates provenance with a blob.
	AddProvenance(blobID types.BlobID, prov types.Provenance) error

	// GetMatches retrieves matches for a blob ordered by offset.
	GetMatches(blobID types.BlobID) ([]*types.Match, error)

	// GetAllMatches retrieves all matches.
	GetAllMatches() ([]*types.Match, error)

	// GetFindings retrieves all findings with their matches attached.
	GetFindings() ([]*types.Finding, error)

	// GetSignatures retrieves every recorded signature.
	GetSignatures() ([]*types.Signature, error)

	// FindingExists checks if a finding with this ID exists.
	FindingExists(id string) (bool, error)

	// BlobExists checks if a blob has already been scanned.
	BlobExists(id types.BlobID) (bool, error)

	// GetProvenance retrieves every provenance recorded for a blob.
	GetProvenance(blobID types.BlobID) ([]types.Provenance, error)

	// Close releases the backend.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path. MemoryPath selects MemoryStore.
	Path string
}

// New creates a Store: MemoryStore for MemoryPath, SQLite otherwise.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}
	return NewSQLite(cfg.Path)
}
