package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	BlobsMerged      int
	SignaturesMerged int
	MatchesMerged    int
	FindingsMerged   int
	ProvenanceMerged int
	SourcesProcessed int
}

// mergedTable lists the columns copied from each table. Autoincrement keys
// are left out so rows from different sources do not collide.
type mergedTable struct {
	name    string
	columns []string
	count   func(*MergeStats) *int
}

var mergedTables = []mergedTable{
	{"blobs", []string{"id", "size"}, func(s *MergeStats) *int { return &s.BlobsMerged }},
	{"signatures", []string{"id", "name", "pattern", "notation", "mask", "section", "structural_id"},
		func(s *MergeStats) *int { return &s.SignaturesMerged }},
	{"matches", []string{
		"blob_id", "signature_id", "signature_name", "structural_id", "finding_id",
		"offset_start", "offset_end", "section", "section_offset", "address", "arch",
		"wildcards", "snippet_before", "snippet_matching", "snippet_after",
	}, func(s *MergeStats) *int { return &s.MatchesMerged }},
	{"findings", []string{"finding_id", "signature_id", "wildcards"},
		func(s *MergeStats) *int { return &s.FindingsMerged }},
	{"provenance", []string{"blob_id", "type", "path", "archive_path", "member_path", "payload_json"},
		func(s *MergeStats) *int { return &s.ProvenanceMerged }},
}

// Merge combines several aobscan databases into one. Rows already present
// in the destination are skipped through the tables' unique keys.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	dest, err := NewSQLite(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer dest.Close()

	stats := &MergeStats{}
	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(dest.db, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		for _, t := range mergedTables {
			*t.count(stats) += *t.count(sourceStats)
		}
		stats.SourcesProcessed++
	}
	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	// Opening a missing path would create an empty database.
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	sourceDB, err := sql.Open(driverName, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	version, err := ReadSchemaVersion(sourceDB)
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stats := &MergeStats{}
	for _, t := range mergedTables {
		n, err := copyTable(tx, sourceDB, t)
		if err != nil {
			return nil, fmt.Errorf("merging %s: %w", t.name, err)
		}
		*t.count(stats) = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return stats, nil
}

func copyTable(tx *sql.Tx, sourceDB *sql.DB, t mergedTable) (int, error) {
	cols := strings.Join(t.columns, ", ")
	rows, err := sourceDB.Query("SELECT " + cols + " FROM " + t.name)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO " + t.name + " (" + cols + ") VALUES (" + placeholders + ")")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	values := make([]any, len(t.columns))
	ptrs := make([]any, len(t.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}
		result, err := stmt.Exec(values...)
		if err != nil {
			return count, err
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
