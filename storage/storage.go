// Package storage provides the key/value stores backing the cache
// middleware. Entries are opaque byte blobs stamped with the time the
// medium recorded the write.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a storage key.
const MaxKeyLength = 512

// DefaultMaxAge is the age threshold Clean falls back to when given a
// non-positive max age (7 days).
const DefaultMaxAge = 7 * 24 * time.Hour

var (
	// ErrInvalidKey means a key argument is not usable as a storage
	// identifier. Returned before the medium is touched.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrInvalidArgument means a bulk operation received an unusable
	// collection argument. Returned before any per-item work.
	ErrInvalidArgument = errors.New("storage: invalid argument")
)

// Entry is one stored unit. WrittenAt is recorded implicitly by the
// medium (file mtime, table column, in-process clock), never supplied
// by the caller.
type Entry struct {
	Data      []byte
	WrittenAt time.Time
}

// Age returns how long ago the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.WrittenAt)
}

// Storage is a key/value store with per-entry write timestamps.
//
// Implementations must be safe for concurrent use, but concurrent Set
// calls for the same key race at the medium level (last writer wins).
// Bulk operations are sequences of independent single-key operations,
// not atomic as a group.
type Storage interface {
	// Get returns the entry for key, or (nil, nil) on a miss. Read
	// failures and corrupt entries are misses, not errors.
	Get(key string) (*Entry, error)
	// Set stores data under key, fully replacing any prior entry.
	Set(key string, data []byte) error
	// Delete removes the entry for key. Deleting a missing entry is
	// reported as an error.
	Delete(key string) error
	// Clear removes every entry in the store.
	Clear() error
	// Clean removes every entry older than maxAge. A non-positive
	// maxAge falls back to DefaultMaxAge.
	Clean(maxAge time.Duration) error
	// Has reports whether key exists. Racy by nature: the entry can
	// appear or vanish between Has and the next call. Advisory only,
	// never a get/set guard.
	Has(key string) bool

	// GetMultiple performs a Get per key and aggregates the results.
	// Missing keys are absent from the returned map.
	GetMultiple(keys []string) (map[string]*Entry, error)
	// SetMultiple performs a Set per entry. Every entry is attempted
	// even after a failure; the returned error aggregates all
	// failures.
	SetMultiple(entries map[string][]byte) error
	// DeleteMultiple performs a Delete per key, attempting every key
	// even after a failure.
	DeleteMultiple(keys []string) error
}

func errMissingEntry(key string) error {
	return fmt.Errorf("no entry for key %q", key)
}

// ValidateKey checks that a key is usable as a storage identifier.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrInvalidKey
	}
	// Keys name files directly under the store root, so anything that
	// could escape the directory or break a directory listing is out.
	if strings.ContainsAny(key, "/\\\n\r\x00") {
		return ErrInvalidKey
	}
	if key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
