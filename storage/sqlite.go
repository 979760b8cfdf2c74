package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite is a Storage implementation backed by a SQLite database, one
// row per key. The stored_at column is the entry's write timestamp,
// stamped at insert time.
type SQLite struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLite opens (or creates) the database at the given filename. An
// empty filename opens a shared in-memory database.
func NewSQLite(filename string) (*SQLite, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			stored_at INTEGER NOT NULL,
			data BLOB NOT NULL
		)`,
		"CREATE INDEX IF NOT EXISTS stored_at_idx ON entries (stored_at)",
		"PRAGMA journal_mode=WAL",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing sqlite database: %w", err)
		}
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the entry for key, or (nil, nil) on a miss.
func (s *SQLite) Get(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var storedAt int64
	var data []byte
	err := s.db.QueryRow("SELECT stored_at, data FROM entries WHERE key = ?", key).
		Scan(&storedAt, &data)
	if err != nil {
		// A query failure is a miss, same as an unreadable file.
		return nil, nil
	}
	return &Entry{Data: data, WrittenAt: time.Unix(storedAt, 0)}, nil
}

// Set stores data under key, replacing any prior row.
func (s *SQLite) Set(key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO entries (key, stored_at, data) VALUES (?, ?, ?)",
		key, time.Now().Unix(), data,
	)
	if err != nil {
		return fmt.Errorf("writing cache row: %w", err)
	}
	return nil
}

// Delete removes the row for key. Missing rows are reported, to match
// the disk backend.
func (s *SQLite) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	result, err := s.db.Exec("DELETE FROM entries WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting cache row: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errMissingEntry(key)
	}
	return nil
}

// Clear removes every row.
func (s *SQLite) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.db.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Clean removes rows older than maxAge. A non-positive maxAge falls
// back to DefaultMaxAge.
func (s *SQLite) Clean(maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	cutoff := time.Now().Add(-maxAge).Unix()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.db.Exec("DELETE FROM entries WHERE stored_at < ?", cutoff); err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return nil
}

// Has reports whether key exists. Racy, advisory only.
func (s *SQLite) Has(key string) bool {
	if err := ValidateKey(key); err != nil {
		return false
	}

	var one int
	err := s.db.QueryRow("SELECT 1 FROM entries WHERE key = ?", key).Scan(&one)
	return err == nil
}

// GetMultiple performs a Get per key.
func (s *SQLite) GetMultiple(keys []string) (map[string]*Entry, error) {
	return bulkGet(s.Get, keys)
}

// SetMultiple performs a Set per entry, attempting every entry.
func (s *SQLite) SetMultiple(entries map[string][]byte) error {
	return bulkSet(s.Set, entries)
}

// DeleteMultiple performs a Delete per key, attempting every key.
func (s *SQLite) DeleteMultiple(keys []string) error {
	return bulkDelete(s.Delete, keys)
}

var _ Storage = (*SQLite)(nil)
