package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is stored in catalog_metadata on creation.
const SchemaVersion = "1"

// CreateSchema creates the catalog tables and indexes in one transaction.
// It is a no-op for tables that already exist.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"datasets", createDatasetsTable},
		{"catalog_metadata", createCatalogMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(bootstrapSQL, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap catalog_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the stored schema version, or "0" for a new database.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='catalog_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check catalog_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM catalog_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in catalog_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createDatasetsTable = `
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,                         -- UUID
    spec_version TEXT NOT NULL,
    target_version TEXT NOT NULL,
    primary_path TEXT NOT NULL,
    primary_sha256 TEXT NOT NULL,
    root_count INTEGER NOT NULL,
    class_count INTEGER NOT NULL,
    created_at TEXT NOT NULL,                    -- RFC 3339 with nanoseconds
    payload TEXT NOT NULL                        -- dataset JSON
)
`

const createCatalogMetadataTable = `
CREATE TABLE IF NOT EXISTS catalog_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_datasets_target_version ON datasets(target_version)",
	"CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at)",
}

const bootstrapSQL = `
INSERT INTO catalog_metadata (key, value, updated_at)
VALUES ('schema_version', ?, ?)
ON CONFLICT(key) DO NOTHING
`
