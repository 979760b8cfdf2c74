package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Disk is the reference Storage implementation: one file per key
// directly under a root directory, with the file mtime as the entry's
// write timestamp. There is no age index; Clear and Clean scan the
// directory linearly.
type Disk struct {
	root string
}

// NewDisk creates a disk store rooted at dir. The directory itself is
// created on first use.
func NewDisk(dir string) *Disk {
	return &Disk{root: dir}
}

// Init creates the root directory if it is absent.
func (d *Disk) Init() error {
	return os.MkdirAll(d.root, 0755)
}

// Root returns the store's root directory.
func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.root, key)
}

// Get reads the entry for key. Unreadable or missing files are misses.
func (d *Disk) Get(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	path := d.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Debugf("Failed to read cache file %s, treating as miss: %v", path, err)
		return nil, nil
	}

	return &Entry{Data: data, WrittenAt: info.ModTime()}, nil
}

// Set writes data to the key's file, replacing any prior entry. The
// filesystem stamps the write time via mtime.
func (d *Disk) Set(key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.MkdirAll(d.root, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if err := os.WriteFile(d.path(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	logrus.Debugf("Stored cache entry: %s", d.path(key))
	return nil
}

// Delete removes the key's file. Removing a missing entry reports an
// error, matching the medium's own semantics.
func (d *Disk) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.Remove(d.path(key)); err != nil {
		return fmt.Errorf("deleting cache file: %w", err)
	}
	return nil
}

// Clear removes every entry file under the root directory.
func (d *Disk) Clear() error {
	return d.sweep(func(os.FileInfo) bool { return true })
}

// Clean removes entries whose mtime is older than maxAge. A
// non-positive maxAge falls back to DefaultMaxAge.
func (d *Disk) Clean(maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return d.sweep(func(info os.FileInfo) bool {
		return time.Since(info.ModTime()) > maxAge
	})
}

// sweep walks the root directory and removes the files selected by
// match. Subdirectories are skipped; entries are files named by key.
func (d *Disk) sweep(match func(os.FileInfo) bool) error {
	dirents, err := os.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}

	var errs []error
	for _, dirent := range dirents {
		if dirent.IsDir() {
			continue
		}
		info, err := dirent.Info()
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", dirent.Name(), err))
			continue
		}
		if !match(info) {
			continue
		}
		if err := os.Remove(d.path(dirent.Name())); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", dirent.Name(), err))
		}
	}
	return joinErrs(errs)
}

// Has reports whether the key's file exists. Racy, advisory only.
func (d *Disk) Has(key string) bool {
	if err := ValidateKey(key); err != nil {
		return false
	}
	_, err := os.Stat(d.path(key))
	return err == nil
}

// GetMultiple performs a Get per key.
func (d *Disk) GetMultiple(keys []string) (map[string]*Entry, error) {
	return bulkGet(d.Get, keys)
}

// SetMultiple performs a Set per entry, attempting every entry.
func (d *Disk) SetMultiple(entries map[string][]byte) error {
	return bulkSet(d.Set, entries)
}

// DeleteMultiple performs a Delete per key, attempting every key.
func (d *Disk) DeleteMultiple(keys []string) error {
	return bulkDelete(d.Delete, keys)
}

var _ Storage = (*Disk)(nil)
