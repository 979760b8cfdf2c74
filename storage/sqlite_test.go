package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteSetAndGet(t *testing.T) {
	store := newTestSQLite(t)

	if err := store.Set("key", []byte("data")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := store.Get("key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry == nil {
		t.Fatal("Get() returned nil entry")
	}
	if string(entry.Data) != "data" {
		t.Errorf("Get() data = %s, want data", entry.Data)
	}
	if age := time.Since(entry.WrittenAt); age < 0 || age > time.Minute {
		t.Errorf("Get() WrittenAt = %v, want roughly now", entry.WrittenAt)
	}
}

func TestSQLiteInMemory(t *testing.T) {
	store, err := NewSQLite("")
	if err != nil {
		t.Fatalf("NewSQLite(\"\") error = %v", err)
	}
	defer store.Close()

	if err := store.Set("key", []byte("data")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	entry, err := store.Get("key")
	if err != nil || entry == nil {
		t.Fatalf("Get() = (%v, %v), want hit", entry, err)
	}
}

func TestSQLiteGetMiss(t *testing.T) {
	store := newTestSQLite(t)

	entry, err := store.Get("missing")
	if err != nil || entry != nil {
		t.Errorf("Get() = (%v, %v), want miss", entry, err)
	}
}

func TestSQLiteInvalidKey(t *testing.T) {
	store := newTestSQLite(t)

	if _, err := store.Get(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get(\"\") error = %v, want ErrInvalidKey", err)
	}
	if err := store.Set("a/b", nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set(\"a/b\") error = %v, want ErrInvalidKey", err)
	}
}

func TestSQLiteSetReplacesEntry(t *testing.T) {
	store := newTestSQLite(t)

	if err := store.Set("key", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("key", []byte("second")); err != nil {
		t.Fatal(err)
	}

	entry, err := store.Get("key")
	if err != nil {
		t.Fatal(err)
	}
	if string(entry.Data) != "second" {
		t.Errorf("Get() data = %s, want second", entry.Data)
	}
}

func TestSQLiteDelete(t *testing.T) {
	store := newTestSQLite(t)

	if err := store.Set("key", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Has("key") {
		t.Error("Has() = true after Delete()")
	}
	if err := store.Delete("key"); err == nil {
		t.Error("Delete() of missing row = nil, want error")
	}
}

func TestSQLiteClear(t *testing.T) {
	store := newTestSQLite(t)

	for _, key := range []string{"one", "two"} {
		if err := store.Set(key, []byte(key)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if store.Has("one") || store.Has("two") {
		t.Error("Clear() left rows behind")
	}
}

func TestSQLiteClean(t *testing.T) {
	store := newTestSQLite(t)

	if err := store.Set("recent", []byte("r")); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("old", []byte("o")); err != nil {
		t.Fatal(err)
	}

	// Backdate the old row's write timestamp
	past := time.Now().Add(-10000 * time.Second).Unix()
	if _, err := store.db.Exec("UPDATE entries SET stored_at = ? WHERE key = ?", past, "old"); err != nil {
		t.Fatal(err)
	}

	if err := store.Clean(100 * time.Second); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	if !store.Has("recent") {
		t.Error("Clean() removed the recent entry")
	}
	if store.Has("old") {
		t.Error("Clean() kept the old entry")
	}
}

func TestSQLiteBulk(t *testing.T) {
	store := newTestSQLite(t)

	err := store.SetMultiple(map[string][]byte{
		"one": []byte("1"),
		"two": []byte("2"),
	})
	if err != nil {
		t.Fatalf("SetMultiple() error = %v", err)
	}

	entries, err := store.GetMultiple([]string{"one", "two", "missing"})
	if err != nil {
		t.Fatalf("GetMultiple() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("GetMultiple() returned %d entries, want 2", len(entries))
	}

	if err := store.SetMultiple(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetMultiple(nil) error = %v, want ErrInvalidArgument", err)
	}
}
