package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"blobs", blobsTable},
		{"signatures", signaturesTable},
		{"matches", matchesTable},
		{"findings", findingsTable},
		{"provenance", provenanceTable},
	}
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}

	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_provenance_blob_id ON provenance(blob_id)`)
	if err != nil {
		return fmt.Errorf("creating provenance index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_matches_finding_id ON matches(finding_id)`)
	if err != nil {
		return fmt.Errorf("creating matches index: %w", err)
	}
	return nil
}

// ReadSchemaVersion returns the version stored in db.
func ReadSchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}
	return nil
}

const blobsTable = `
	CREATE TABLE IF NOT EXISTS blobs (
		id TEXT PRIMARY KEY NOT NULL,
		size INTEGER NOT NULL
	)`

const signaturesTable = `
	CREATE TABLE IF NOT EXISTS signatures (
		id TEXT PRIMARY KEY NOT NULL,
		name TEXT NOT NULL,
		pattern TEXT NOT NULL,
		notation TEXT NOT NULL,
		mask TEXT NOT NULL DEFAULT '',
		section TEXT NOT NULL DEFAULT '',
		structural_id TEXT NOT NULL
	)`

const matchesTable = `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blob_id TEXT NOT NULL REFERENCES blobs(id),
		signature_id TEXT NOT NULL,
		signature_name TEXT NOT NULL,
		structural_id TEXT NOT NULL UNIQUE,
		finding_id TEXT NOT NULL,
		offset_start INTEGER NOT NULL,
		offset_end INTEGER NOT NULL,
		section TEXT NOT NULL DEFAULT '',
		section_offset INTEGER NOT NULL DEFAULT 0,
		address INTEGER NOT NULL DEFAULT 0,
		arch TEXT NOT NULL DEFAULT '',
		wildcards BLOB,
		snippet_before BLOB,
		snippet_matching BLOB,
		snippet_after BLOB
	)`

const findingsTable = `
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		finding_id TEXT NOT NULL UNIQUE,
		signature_id TEXT NOT NULL,
		wildcards BLOB
	)`

const provenanceTable = `
	CREATE TABLE IF NOT EXISTS provenance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blob_id TEXT NOT NULL REFERENCES blobs(id),
		type TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		archive_path TEXT NOT NULL DEFAULT '',
		member_path TEXT NOT NULL DEFAULT '',
		payload_json TEXT NOT NULL DEFAULT '',
		UNIQUE(blob_id, type, path, archive_path, member_path, payload_json)
	)`
