package kff

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Entry is one known digest and the disposition applied when it matches.
type Entry struct {
	Digest    string
	Algorithm string
	Form      string
	FileType  string
	Truncate  bool
	Note      string
	AddedAt   time.Time
}

// Store manages known-file persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the known-file database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("kff database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure kff directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Add inserts or replaces an entry.
func (s *Store) Add(ctx context.Context, entry Entry) error {
	digest := strings.ToLower(strings.TrimSpace(entry.Digest))
	if digest == "" {
		return errors.New("entry digest is empty")
	}
	algorithm := entry.Algorithm
	if algorithm == "" {
		algorithm = algorithmFor(digest)
	}
	if !validAlgorithm(algorithm) {
		return fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
	added := entry.AddedAt
	if added.IsZero() {
		added = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO known_files (digest, algorithm, form, file_type, truncate, note, added_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		digest,
		algorithm,
		nullableString(entry.Form),
		nullableString(entry.FileType),
		boolToInt(entry.Truncate),
		nullableString(entry.Note),
		added.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert known file: %w", err)
	}
	return nil
}

// Lookup returns the entry for digest, or nil when it is unknown.
func (s *Store) Lookup(ctx context.Context, digest string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM known_files WHERE digest = ?`,
		strings.ToLower(strings.TrimSpace(digest)),
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup known file: %w", err)
	}
	return entry, nil
}

// List returns every entry ordered by digest.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM known_files ORDER BY digest`)
	if err != nil {
		return nil, fmt.Errorf("list known files: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan known file: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Remove deletes an entry and reports whether it existed.
func (s *Store) Remove(ctx context.Context, digest string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM known_files WHERE digest = ?`,
		strings.ToLower(strings.TrimSpace(digest)))
	if err != nil {
		return false, fmt.Errorf("remove known file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

const entryColumns = "digest, algorithm, form, file_type, truncate, note, added_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry    Entry
		form     sql.NullString
		fileType sql.NullString
		truncate int64
		note     sql.NullString
		addedRaw string
	)
	if err := scanner.Scan(&entry.Digest, &entry.Algorithm, &form, &fileType, &truncate, &note, &addedRaw); err != nil {
		return nil, err
	}
	entry.Form = form.String
	entry.FileType = fileType.String
	entry.Truncate = truncate != 0
	entry.Note = note.String
	if ts, err := time.Parse(time.RFC3339Nano, addedRaw); err == nil {
		entry.AddedAt = ts
	}
	return &entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
