package storage

import (
	"errors"
	"fmt"
	"sort"
)

// The bulk helpers share the contract of the *Multiple operations:
// validate the collection up front, then run the single-key operation
// for every element even when an earlier one fails, and report all
// failures as one aggregate error.

func bulkGet(get func(string) (*Entry, error), keys []string) (map[string]*Entry, error) {
	if keys == nil {
		return nil, ErrInvalidArgument
	}

	found := make(map[string]*Entry, len(keys))
	var errs []error
	for _, key := range keys {
		entry, err := get(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("get %q: %w", key, err))
			continue
		}
		if entry != nil {
			found[key] = entry
		}
	}
	return found, joinErrs(errs)
}

func bulkSet(set func(string, []byte) error, entries map[string][]byte) error {
	if entries == nil {
		return ErrInvalidArgument
	}

	// Deterministic order keeps error aggregation stable.
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if err := set(key, entries[key]); err != nil {
			errs = append(errs, fmt.Errorf("set %q: %w", key, err))
		}
	}
	return joinErrs(errs)
}

func bulkDelete(del func(string) error, keys []string) error {
	if keys == nil {
		return ErrInvalidArgument
	}

	var errs []error
	for _, key := range keys {
		if err := del(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %q: %w", key, err))
		}
	}
	return joinErrs(errs)
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
