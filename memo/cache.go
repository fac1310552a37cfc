// Package memo is a disk-backed memoization layer. It wraps a computation
// keyed by its name and call arguments, persists the result to the cache
// directory, and serves later identical calls from disk until a per-entry
// retention window elapses.
//
// All state lives in two places: a single metadata record mapping function
// names to their cached entries, and one artifact file per entry holding the
// serialized value. Every operation re-reads the record, mutates a local
// copy, and atomically rewrites it, so a crash mid-operation leaves the
// record in its last fully-written state. Operations hold an advisory file
// lock for their whole read-modify-write, which makes a shared cache
// directory safe across goroutines and across processes.
package memo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	"github.com/dgnsrekt/memodisk/internal/metadata"
)

// ReservedKey is the metadata key holding the artifact counter. No function
// may be memoized under this name.
const ReservedKey = metadata.CounterKey

// Entry is one raw metadata record for a cached result. It is a diagnostic
// surface; its layout follows the persisted format and may change.
type Entry struct {
	Args       string
	Kwargs     string
	FileName   string
	MaxAgeDays int
}

// FunctionStat summarizes the on-disk cache for one function.
type FunctionStat struct {
	Name      string
	Entries   int
	SizeBytes int64
}

// Cache coordinates lookups, inserts, and eviction against one cache
// directory. Construct it with New; the zero value is not usable.
type Cache struct {
	cfg      Config
	dir      string
	metaPath string
	codec    Codec
	logger   *log.Logger

	// mu serializes operations within the process; flk serializes them
	// across processes sharing the cache directory. Both are held across
	// each operation's whole read-modify-write.
	mu  sync.Mutex
	flk *flock.Flock
}

// New builds a Cache from cfg, creates the cache directory, initializes the
// metadata record if absent, and runs one eviction pass over existing
// entries.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dir, err := expandPath(cfg.Dir)
	if err != nil {
		return nil, err
	}
	metaFile, err := expandPath(cfg.MetadataFile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create cache directory: %v", ErrStorage, err)
	}

	codec, err := codecFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	metaPath := filepath.Join(dir, metaFile)
	c := &Cache{
		cfg:      cfg,
		dir:      dir,
		metaPath: metaPath,
		codec:    codec,
		logger:   cfg.logger(),
		flk:      flock.New(metaPath + ".lock"),
	}

	if _, err := c.Prune(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the resolved cache directory.
func (c *Cache) Dir() string { return c.dir }

// Lookup searches for an entry matching sig under name and, on a hit,
// decodes the artifact into out (which must be a pointer). Entries whose
// artifact is missing or expired are pruned during the scan and do not
// count as hits.
func (c *Cache) Lookup(name string, sig Signature, out any) (bool, error) {
	hit := false

	err := c.withLock(func(st *metadata.Store) (bool, error) {
		entries := st.Entries(name)
		if entries == nil {
			return false, nil
		}

		kept := make([]metadata.Entry, 0, len(entries))
		changed := false
		for i, e := range entries {
			if e.Args != sig.Args || e.Kwargs != sig.Kwargs {
				kept = append(kept, e)
				continue
			}

			path := filepath.Join(c.dir, e.FileName)
			info, statErr := os.Stat(path)
			if statErr != nil {
				if !errors.Is(statErr, fs.ErrNotExist) {
					return changed, fmt.Errorf("%w: %v", ErrStorage, statErr)
				}
				// Orphan: drop the entry and keep scanning.
				c.logger.Debug("dropping orphaned cache entry",
					"function", name, "file", e.FileName)
				changed = true
				continue
			}

			if expired(info.ModTime(), e.MaxAgeDays) {
				c.logger.Info("removing stale cache file",
					"file", e.FileName, "maxAgeDays", e.MaxAgeDays)
				if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return changed, fmt.Errorf("%w: %v", ErrStorage, err)
				}
				changed = true
				continue
			}

			data, readErr := readArtifact(path, c.cfg.MaxWriteBytes)
			if readErr != nil {
				// The artifact exists but cannot be read; this is a
				// genuine failure, not a stale entry.
				return changed, fmt.Errorf("%w: %v", ErrStorage, readErr)
			}
			if err := c.codec.Unmarshal(data, out); err != nil {
				return changed, err
			}

			// First exact match wins; the hit and everything after it
			// stay untouched.
			hit = true
			kept = append(kept, entries[i:]...)
			break
		}

		if changed {
			st.SetEntries(name, kept)
		}
		return changed, nil
	})

	return hit, err
}

// Insert serializes value, writes it to a freshly minted artifact file, and
// appends the entry under name. The metadata record is only rewritten after
// the artifact write succeeds, so a serialization or write failure leaves no
// partial state. The name must be non-empty and must not be ReservedKey.
// Negative maxAgeDays is clamped to unlimited retention.
func (c *Cache) Insert(name string, sig Signature, maxAgeDays int, value any) error {
	if name == "" {
		return fmt.Errorf("%w: function name required", ErrConfiguration)
	}
	if name == ReservedKey {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if maxAgeDays < 0 {
		maxAgeDays = UnlimitedCacheAge
	}

	// Serialize before touching any shared state.
	data, err := c.codec.Marshal(value)
	if err != nil {
		return err
	}

	return c.withLock(func(st *metadata.Store) (bool, error) {
		fileName := st.NextFileName(c.codec.Extension())
		if err := writeArtifact(filepath.Join(c.dir, fileName), data, c.cfg.MaxWriteBytes); err != nil {
			return false, fmt.Errorf("%w: failed to write cache file: %v", ErrStorage, err)
		}

		st.Append(name, metadata.Entry{
			Args:       sig.Args,
			Kwargs:     sig.Kwargs,
			FileName:   fileName,
			MaxAgeDays: maxAgeDays,
		})
		c.logger.Debug("added cache entry",
			"function", name, "file", fileName, "bytes", len(data))
		return true, nil
	})
}

// SizeOf returns the number of entries cached for name, and whether the
// function has ever been cached.
func (c *Cache) SizeOf(name string) (int, bool, error) {
	var (
		n  int
		ok bool
	)
	err := c.withLock(func(st *metadata.Store) (bool, error) {
		n, ok = st.Len(name)
		return false, nil
	})
	return n, ok, err
}

// EntriesOf returns the raw metadata entries for name. Diagnostic use only.
func (c *Cache) EntriesOf(name string) ([]Entry, error) {
	var out []Entry
	err := c.withLock(func(st *metadata.Store) (bool, error) {
		for _, e := range st.Entries(name) {
			out = append(out, Entry(e))
		}
		return false, nil
	})
	return out, err
}

// ClearFunction deletes every artifact cached for name and removes its key
// from the metadata record. It returns the number of entries removed.
func (c *Cache) ClearFunction(name string) (int, error) {
	removed := 0
	err := c.withLock(func(st *metadata.Store) (bool, error) {
		entries := st.Delete(name)
		if entries == nil {
			return false, nil
		}
		for _, e := range entries {
			path := filepath.Join(c.dir, e.FileName)
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return true, fmt.Errorf("%w: %v", ErrStorage, err)
			}
			removed++
		}
		c.logger.Debug("removed cache entries", "function", name, "count", removed)
		return true, nil
	})
	return removed, err
}

// Functions returns a summary of every cached function, sorted by name.
// Sizes are the on-disk artifact bytes; missing artifacts count as zero.
func (c *Cache) Functions() ([]FunctionStat, error) {
	var stats []FunctionStat
	err := c.withLock(func(st *metadata.Store) (bool, error) {
		for _, name := range st.FunctionNames() {
			entries := st.Entries(name)
			stat := FunctionStat{Name: name, Entries: len(entries)}
			for _, e := range entries {
				if info, err := os.Stat(filepath.Join(c.dir, e.FileName)); err == nil {
					stat.SizeBytes += info.Size()
				}
			}
			stats = append(stats, stat)
		}
		return false, nil
	})
	return stats, err
}

// withLock runs fn against a freshly loaded metadata record while holding
// both the process mutex and the advisory file lock, and persists the record
// if fn reports a change. Every cache operation funnels through here; none
// of them reuse state loaded by an earlier operation, so concurrent writers
// on the same directory cannot lose updates.
func (c *Cache) withLock(fn func(st *metadata.Store) (bool, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.flk.Lock(); err != nil {
		return fmt.Errorf("%w: failed to acquire cache lock: %v", ErrStorage, err)
	}
	defer c.flk.Unlock() //nolint:errcheck

	st, err := metadata.Load(c.metaPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	changed, err := fn(st)
	if changed {
		// Persist what was already mutated even when fn failed midway;
		// dropped entries must not resurrect on the next load.
		if saveErr := st.Save(c.metaPath); saveErr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrStorage, saveErr)
		}
	}
	return err
}
