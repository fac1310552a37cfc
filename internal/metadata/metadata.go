// Package metadata persists the cache bookkeeping record: one JSON file
// describing every cached entry across all memoized functions, plus the
// counter used to mint unique artifact file names.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// CounterKey is the reserved top-level key holding the artifact counter.
// The value is kept from the original on-disk format so existing cache
// directories remain readable. No function may be registered under it.
const CounterKey = "total_number_of_cache_to_disks"

// ErrCorrupt is returned when the metadata file exists but cannot be parsed.
// An absent file is not an error; Load initializes it.
var ErrCorrupt = errors.New("cache metadata corrupted")

// Entry describes one persisted function result.
type Entry struct {
	// Args and Kwargs hold the signature of the call that produced the
	// result: the encoded positional and keyword arguments.
	Args   string `json:"args"`
	Kwargs string `json:"kwargs"`

	// FileName is the artifact file holding the serialized value,
	// relative to the cache directory.
	FileName string `json:"file_name"`

	// MaxAgeDays is the retention window. Zero means never expire.
	MaxAgeDays int `json:"max_age_days"`
}

// Store is the root record: entry sets keyed by function name, plus the
// monotonic counter. It is loaded fresh for every cache operation and
// rewritten atomically; there is no long-lived authoritative copy in memory.
type Store struct {
	// Counter counts every artifact ever minted. Filenames are derived
	// from it, so it never decreases.
	Counter int

	// Functions maps a function name to its cache entries. A name with
	// zero entries is removed rather than kept as an empty slice.
	Functions map[string][]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{Functions: make(map[string][]Entry)}
}

// MarshalJSON writes the flat on-disk layout: the counter and the function
// entry sets share a single top-level JSON object.
func (s *Store) MarshalJSON() ([]byte, error) {
	flat := make(map[string]json.RawMessage, len(s.Functions)+1)
	flat[CounterKey] = json.RawMessage(strconv.Itoa(s.Counter))
	for name, entries := range s.Functions {
		if len(entries) == 0 {
			continue
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		flat[name] = raw
	}
	return json.Marshal(flat)
}

// UnmarshalJSON parses the flat layout back into counter and entry sets.
func (s *Store) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	s.Counter = 0
	s.Functions = make(map[string][]Entry, len(flat))
	for key, raw := range flat {
		if key == CounterKey {
			if err := json.Unmarshal(raw, &s.Counter); err != nil {
				return fmt.Errorf("counter value: %w", err)
			}
			continue
		}
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("entries for %q: %w", key, err)
		}
		s.Functions[key] = entries
	}
	return nil
}

// Load reads the store from path. A missing file is initialized to an empty
// store and persisted; an unparseable file fails with ErrCorrupt.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		store := NewStore()
		if err := store.Save(path); err != nil {
			return nil, err
		}
		return store, nil
	}

	store := NewStore()
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return store, nil
}

// Save serializes the full store and atomically replaces the file at path.
// Write to a temp file first, then rename (atomic on most systems).
func (s *Store) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}

// NextFileName increments the counter and returns the artifact name minted
// from the new value. The caller must persist the store before handing the
// name out, or the name may be reused.
func (s *Store) NextFileName(ext string) string {
	s.Counter++
	return strconv.Itoa(s.Counter) + "." + ext
}

// Entries returns the entry set for a function, or nil if it was never cached.
func (s *Store) Entries(name string) []Entry {
	return s.Functions[name]
}

// SetEntries replaces a function's entry set. An empty set removes the key
// entirely; empty arrays are never persisted.
func (s *Store) SetEntries(name string, entries []Entry) {
	if len(entries) == 0 {
		delete(s.Functions, name)
		return
	}
	s.Functions[name] = entries
}

// Append adds one entry to a function's set.
func (s *Store) Append(name string, e Entry) {
	s.Functions[name] = append(s.Functions[name], e)
}

// Delete removes a function's entry set and returns it.
func (s *Store) Delete(name string) []Entry {
	entries := s.Functions[name]
	delete(s.Functions, name)
	return entries
}

// FunctionNames returns all cached function names in sorted order.
func (s *Store) FunctionNames() []string {
	names := make([]string, 0, len(s.Functions))
	for name := range s.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries for a function and whether the function
// has ever been cached.
func (s *Store) Len(name string) (int, bool) {
	entries, ok := s.Functions[name]
	return len(entries), ok
}
