package store

import (
	"database/sql"
	"fmt"

	"github.com/praetorian-inc/aobscan/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store at path, creating the schema if
// needed.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AddBlob stores a blob record.
func (s *SQLiteStore) AddBlob(id types.BlobID, size int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO blobs (id, size) VALUES (?, ?)", id.Hex(), size)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

// AddSignature records a signature. Re-adding an ID replaces it.
func (s *SQLiteStore) AddSignature(sig *types.Signature) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO signatures (id, name, pattern, notation, mask, section, structural_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sig.ID, sig.Name, sig.Pattern, sig.Notation, sig.Mask, sig.Section, sig.StructuralID)
	if err != nil {
		return fmt.Errorf("inserting signature: %w", err)
	}
	return nil
}

// AddMatch stores a match record.
func (s *SQLiteStore) AddMatch(m *types.Match) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO matches
		(blob_id, signature_id, signature_name, structural_id, finding_id,
		 offset_start, offset_end, section, section_offset, address, arch,
		 wildcards, snippet_before, snippet_matching, snippet_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.BlobID.Hex(),
		m.SignatureID,
		m.SignatureName,
		m.StructuralID,
		m.FindingID,
		m.Location.Offset.Start,
		m.Location.Offset.End,
		m.Location.Section,
		m.Location.SectionOffset,
		int64(m.Location.Address),
		m.Location.Arch,
		m.Wildcards,
		m.Snippet.Before,
		m.Snippet.Matching,
		m.Snippet.After,
	)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// AddFinding stores a finding (deduplicated).
func (s *SQLiteStore) AddFinding(f *types.Finding) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO findings (finding_id, signature_id, wildcards)
		VALUES (?, ?, ?)
	`, f.ID, f.SignatureID, f.Wildcards)
	if err != nil {
		return fmt.Errorf("inserting finding: %w", err)
	}
	return nil
}

// AddProvenance associates provenance with a blob.
func (s *SQLiteStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	row, err := encodeProvenance(prov)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO provenance (blob_id, type, path, archive_path, member_path, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, blobID.Hex(), row.kind, row.path, row.archivePath, row.memberPath, row.payloadJSON)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}
	return nil
}

const matchColumns = `
	blob_id, signature_id, signature_name, structural_id, finding_id,
	offset_start, offset_end, section, section_offset, address, arch,
	wildcards, snippet_before, snippet_matching, snippet_after`

// GetMatches retrieves matches for a blob.
func (s *SQLiteStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	return s.queryMatches(`SELECT `+matchColumns+` FROM matches
		WHERE blob_id = ? ORDER BY offset_start, signature_id`, blobID.Hex())
}

// GetAllMatches retrieves all matches.
func (s *SQLiteStore) GetAllMatches() ([]*types.Match, error) {
	return s.queryMatches(`SELECT ` + matchColumns + ` FROM matches
		ORDER BY blob_id, offset_start, signature_id`)
}

func (s *SQLiteStore) queryMatches(query string, args ...any) ([]*types.Match, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*types.Match, 0)
	for rows.Next() {
		var (
			m         types.Match
			blobIDHex string
			address   int64
		)
		err := rows.Scan(
			&blobIDHex,
			&m.SignatureID,
			&m.SignatureName,
			&m.StructuralID,
			&m.FindingID,
			&m.Location.Offset.Start,
			&m.Location.Offset.End,
			&m.Location.Section,
			&m.Location.SectionOffset,
			&address,
			&m.Location.Arch,
			&m.Wildcards,
			&m.Snippet.Before,
			&m.Snippet.Matching,
			&m.Snippet.After,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Location.Address = uint64(address)

		blobID, err := types.ParseBlobID(blobIDHex)
		if err != nil {
			return nil, fmt.Errorf("parsing blob ID: %w", err)
		}
		m.BlobID = blobID
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// GetFindings retrieves all findings ordered by signature, with matches
// attached.
func (s *SQLiteStore) GetFindings() ([]*types.Finding, error) {
	rows, err := s.db.Query(`
		SELECT finding_id, signature_id, wildcards
		FROM findings
		ORDER BY signature_id, finding_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}

	findings := make([]*types.Finding, 0)
	for rows.Next() {
		var f types.Finding
		if err := rows.Scan(&f.ID, &f.SignatureID, &f.Wildcards); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		findings = append(findings, &f)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating findings: %w", err)
	}

	// The single connection is free again once rows is closed.
	for _, f := range findings {
		f.Matches, err = s.queryMatches(`SELECT `+matchColumns+` FROM matches
			WHERE finding_id = ? ORDER BY blob_id, offset_start`, f.ID)
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}

// GetSignatures retrieves every recorded signature.
func (s *SQLiteStore) GetSignatures() ([]*types.Signature, error) {
	rows, err := s.db.Query(`
		SELECT id, name, pattern, notation, mask, section, structural_id
		FROM signatures
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}
	defer rows.Close()

	sigs := make([]*types.Signature, 0)
	for rows.Next() {
		var sig types.Signature
		err := rows.Scan(&sig.ID, &sig.Name, &sig.Pattern, &sig.Notation, &sig.Mask, &sig.Section, &sig.StructuralID)
		if err != nil {
			return nil, fmt.Errorf("scanning signature: %w", err)
		}
		sigs = append(sigs, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signatures: %w", err)
	}
	return sigs, nil
}

// FindingExists checks if a finding with this ID exists.
func (s *SQLiteStore) FindingExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM findings WHERE finding_id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking finding existence: %w", err)
	}
	return count > 0, nil
}

// BlobExists checks if a blob has already been scanned.
func (s *SQLiteStore) BlobExists(id types.BlobID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM blobs WHERE id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking blob existence: %w", err)
	}
	return count > 0, nil
}

// GetProvenance retrieves provenance for a blob in insertion order.
func (s *SQLiteStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	rows, err := s.db.Query(`
		SELECT type, path, archive_path, member_path, payload_json
		FROM provenance
		WHERE blob_id = ?
		ORDER BY id
	`, blobID.Hex())
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	provs := make([]types.Provenance, 0)
	for rows.Next() {
		var row provenanceRow
		if err := rows.Scan(&row.kind, &row.path, &row.archivePath, &row.memberPath, &row.payloadJSON); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}
		prov, err := decodeProvenance(row)
		if err != nil {
			return nil, err
		}
		provs = append(provs, prov)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating provenance: %w", err)
	}
	return provs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
