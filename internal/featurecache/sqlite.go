package featurecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLitePool keeps entries on disk so that an offline pass over a long
// recording does not hold every feature in memory. Write-once semantics
// come from the composite primary key: a second insert for the same
// (stream, bucket) violates the constraint and maps to ErrDuplicateKey.
type SQLitePool struct {
	db *sql.DB
}

// NewSQLitePool opens (or creates) the pool database at dbPath.
func NewSQLitePool(dbPath string) (*SQLitePool, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS features (
		stream TEXT NOT NULL,
		bucket INTEGER NOT NULL,
		person BLOB,
		object BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (stream, bucket)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &SQLitePool{db: db}, nil
}

// Put inserts an entry, failing with ErrDuplicateKey if the key is
// already occupied.
func (p *SQLitePool) Put(ctx context.Context, key Key, entry Entry) error {
	if key.Stream == "" {
		return errors.New("stream id cannot be empty")
	}

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO features (stream, bucket, person, object) VALUES (?, ?, ?, ?)`,
		key.Stream, key.Bucket, entry.Person, entry.Object)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put %s: %w", key, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Get returns the entry stored under key, or ErrKeyNotFound.
func (p *SQLitePool) Get(ctx context.Context, key Key) (Entry, error) {
	var entry Entry
	err := p.db.QueryRowContext(ctx,
		`SELECT person, object FROM features WHERE stream = ? AND bucket = ?`,
		key.Stream, key.Bucket).Scan(&entry.Person, &entry.Object)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("get %s: %w", key, ErrKeyNotFound)
		}
		return Entry{}, fmt.Errorf("failed to query entry: %w", err)
	}
	return entry, nil
}

// Len returns the number of stored entries across all streams.
func (p *SQLitePool) Len() int {
	var count int
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM features`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Close closes the database connection.
func (p *SQLitePool) Close() error {
	return p.db.Close()
}

// isUniqueViolation reports whether err is a primary-key constraint
// failure. modernc.org/sqlite surfaces these as formatted errors, so we
// match on the SQLite message rather than a typed error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Pool = (*SQLitePool)(nil)
