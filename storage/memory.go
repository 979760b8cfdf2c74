package storage

import (
	"sync"
	"time"
)

// Memory is an in-process Storage implementation. Entries live in a
// map guarded by an RWMutex; write timestamps are taken from the clock
// at insert time.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	writtenAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the entry for key, or (nil, nil) on a miss.
func (m *Memory) Get(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	stored, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return &Entry{Data: stored.data, WrittenAt: stored.writtenAt}, nil
}

// Set stores data under key, replacing any prior entry.
func (m *Memory) Set(key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.entries[key] = memoryEntry{data: buf, writtenAt: time.Now()}
	m.mu.Unlock()
	return nil
}

// Delete removes the entry for key. Missing entries are reported, to
// match the disk backend.
func (m *Memory) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return errMissingEntry(key)
	}
	delete(m.entries, key)
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Clean removes entries older than maxAge. A non-positive maxAge falls
// back to DefaultMaxAge.
func (m *Memory) Clean(maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	cutoff := time.Now().Add(-maxAge)
	m.mu.Lock()
	for key, stored := range m.entries {
		if stored.writtenAt.Before(cutoff) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	return nil
}

// Has reports whether key exists. Racy, advisory only.
func (m *Memory) Has(key string) bool {
	if err := ValidateKey(key); err != nil {
		return false
	}

	m.mu.RLock()
	_, ok := m.entries[key]
	m.mu.RUnlock()
	return ok
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// GetMultiple performs a Get per key.
func (m *Memory) GetMultiple(keys []string) (map[string]*Entry, error) {
	return bulkGet(m.Get, keys)
}

// SetMultiple performs a Set per entry, attempting every entry.
func (m *Memory) SetMultiple(entries map[string][]byte) error {
	return bulkSet(m.Set, entries)
}

// DeleteMultiple performs a Delete per key, attempting every key.
func (m *Memory) DeleteMultiple(keys []string) error {
	return bulkDelete(m.Delete, keys)
}

var _ Storage = (*Memory)(nil)
