// Package catalog records extracted datasets in a SQLite database.
//
// Every successful run can be appended as an immutable row. Rows are looked up
// by id or by target version, in which case the newest one wins.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/jarmeta/internal/metadata"
)

var (
	// ErrNotFound is returned when no dataset matches an id or version.
	ErrNotFound = errors.New("dataset not found")

	// ErrMissingDigest is returned when a dataset is added without the
	// digest of its primary archive.
	ErrMissingDigest = errors.New("missing primary archive digest")
)

// timeLayout has a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry describes one recorded dataset without its payload.
type Entry struct {
	ID            string
	SpecVersion   string
	TargetVersion string
	PrimaryPath   string
	PrimarySHA256 string
	Roots         int
	Classes       int
	CreatedAt     time.Time
}

// Catalog is a handle on a catalog database.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the catalog at path, creating the file and schema when missing.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return open(db)
}

func open(db *sql.DB) (*Catalog, error) {
	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Catalog{db: db, now: time.Now}, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add records set, extracted from the archive at primaryPath whose bytes hash
// to primarySHA256, and returns the new entry.
func (c *Catalog) Add(ctx context.Context, set *metadata.SourceMetadataSet, primaryPath, primarySHA256 string) (*Entry, error) {
	if primarySHA256 == "" {
		return nil, ErrMissingDigest
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset: %w", err)
	}

	entry := &Entry{
		ID:            uuid.New().String(),
		SpecVersion:   set.SpecVersion().String(),
		TargetVersion: set.TargetVersion(),
		PrimaryPath:   primaryPath,
		PrimarySHA256: primarySHA256,
		Roots:         set.Roots(),
		Classes:       set.Count(),
		CreatedAt:     c.now().UTC(),
	}

	query := `
		INSERT INTO datasets (
			id, spec_version, target_version, primary_path, primary_sha256,
			root_count, class_count, created_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = c.db.ExecContext(ctx, query,
		entry.ID, entry.SpecVersion, entry.TargetVersion, entry.PrimaryPath, entry.PrimarySHA256,
		entry.Roots, entry.Classes, entry.CreatedAt.Format(timeLayout), string(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert dataset: %w", err)
	}
	return entry, nil
}

const entryColumns = `id, spec_version, target_version, primary_path, primary_sha256, root_count, class_count, created_at`

// List returns every entry, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+entryColumns+" FROM datasets ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return entries, nil
}

// Lookup finds the entry whose id is ref, or else the newest entry whose
// target version is ref.
func (c *Catalog) Lookup(ctx context.Context, ref string) (*Entry, error) {
	entry, _, err := c.lookup(ctx, ref, false)
	return entry, err
}

// Load resolves ref like Lookup and decodes the stored dataset.
func (c *Catalog) Load(ctx context.Context, ref string) (*Entry, *metadata.SourceMetadataSet, error) {
	entry, payload, err := c.lookup(ctx, ref, true)
	if err != nil {
		return nil, nil, err
	}
	var set metadata.SourceMetadataSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, nil, fmt.Errorf("dataset %s: %w", entry.ID, err)
	}
	return entry, &set, nil
}

func (c *Catalog) lookup(ctx context.Context, ref string, withPayload bool) (*Entry, []byte, error) {
	columns := entryColumns
	if withPayload {
		columns += ", payload"
	}
	queries := []string{
		"SELECT " + columns + " FROM datasets WHERE id = ?",
		"SELECT " + columns + " FROM datasets WHERE target_version = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
	}

	for _, query := range queries {
		row := c.db.QueryRowContext(ctx, query, ref)
		var (
			entry   *Entry
			payload string
			err     error
		)
		if withPayload {
			entry, err = scanEntry(row, &payload)
		} else {
			entry, err = scanEntry(row)
		}
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return entry, []byte(payload), nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner, extra ...any) (*Entry, error) {
	var (
		entry     Entry
		createdAt string
	)
	dest := append([]any{
		&entry.ID, &entry.SpecVersion, &entry.TargetVersion, &entry.PrimaryPath, &entry.PrimarySHA256,
		&entry.Roots, &entry.Classes, &createdAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("dataset %s has invalid created_at: %w", entry.ID, err)
	}
	entry.CreatedAt = t
	return &entry, nil
}
