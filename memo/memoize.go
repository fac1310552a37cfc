package memo

import (
	"fmt"
	"sync"
)

// Outcome is what a wrapped computation returns: the computed value, tagged
// with whether it may be persisted. Build one with Cached or Skip.
type Outcome[V any] struct {
	value V
	skip  bool
}

// Cached tags v as a normal result eligible for caching.
func Cached[V any](v V) Outcome[V] {
	return Outcome[V]{value: v}
}

// Skip tags v as a no-store result: it is returned to the caller but never
// persisted. Useful when a result is usable yet known to be transient, such
// as a partial response after a network failure.
func Skip[V any](v V) Outcome[V] {
	return Outcome[V]{value: v, skip: true}
}

// Func is a computation eligible for memoization. It receives the call's
// positional and keyword arguments and returns a tagged outcome. An error
// propagates to the caller unchanged and is never cached.
type Func[V any] func(pos []any, kw map[string]any) (Outcome[V], error)

// Stats holds run-time counters for one memoized function. They live for
// the process only and reset on restart.
type Stats struct {
	Hits    int64
	Misses  int64
	NoCache int64
}

// Memoized binds a computation to a Cache under a fixed function name.
// It is safe for concurrent use.
type Memoized[V any] struct {
	cache      *Cache
	name       string
	maxAgeDays int
	fn         Func[V]

	mu    sync.Mutex
	stats Stats
}

// Memoize registers fn under name with the given retention window in days.
// UnlimitedCacheAge (zero) retains entries until orphaned or cleared;
// negative values are clamped to unlimited. The name identifies the cache
// entries, so two different computations must not share one.
func Memoize[V any](cache *Cache, name string, maxAgeDays int, fn Func[V]) (*Memoized[V], error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: cache required", ErrConfiguration)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: function name required", ErrConfiguration)
	}
	if name == ReservedKey {
		return nil, fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: computation required", ErrConfiguration)
	}

	if maxAgeDays < 0 {
		cache.logger.Warn("negative max age clamped to unlimited retention",
			"function", name, "maxAgeDays", maxAgeDays)
		maxAgeDays = UnlimitedCacheAge
	}
	if maxAgeDays == UnlimitedCacheAge {
		cache.logger.Warn("using an unlimited age cache is not recommended",
			"function", name)
	}

	return &Memoized[V]{
		cache:      cache,
		name:       name,
		maxAgeDays: maxAgeDays,
		fn:         fn,
	}, nil
}

// MemoizeDefault registers fn under name with the cache's configured default
// retention window.
func MemoizeDefault[V any](cache *Cache, name string, fn Func[V]) (*Memoized[V], error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: cache required", ErrConfiguration)
	}
	return Memoize(cache, name, cache.cfg.DefaultMaxAgeDays, fn)
}

// Call invokes the memoized computation with positional arguments only.
func (m *Memoized[V]) Call(pos ...any) (V, error) {
	return m.CallKW(pos, nil)
}

// CallKW invokes the memoized computation with positional and keyword
// arguments. On a hit the cached value is returned without running the
// computation; on a miss the computation runs and its result is persisted
// unless it was tagged Skip.
func (m *Memoized[V]) CallKW(pos []any, kw map[string]any) (V, error) {
	sig := NewSignature(pos, kw)

	var value V
	hit, err := m.cache.Lookup(m.name, sig, &value)
	if err != nil {
		return value, err
	}
	if hit {
		m.bump(func(s *Stats) { s.Hits++ })
		m.cache.logger.Debug("cache hit", "function", m.name, "signature", sig.String())
		return value, nil
	}

	m.bump(func(s *Stats) { s.Misses++ })
	m.cache.logger.Debug("cache miss", "function", m.name, "signature", sig.String())

	outcome, err := m.fn(pos, kw)
	if err != nil {
		var zero V
		return zero, err
	}

	if outcome.skip {
		m.bump(func(s *Stats) { s.NoCache++ })
		m.cache.logger.Debug("no-store result, skipping cache entry", "function", m.name)
		return outcome.value, nil
	}

	if err := m.cache.Insert(m.name, sig, m.maxAgeDays, outcome.value); err != nil {
		return outcome.value, err
	}
	return outcome.value, nil
}

// Name returns the registered function name.
func (m *Memoized[V]) Name() string { return m.name }

// Stats reports the process-lifetime hit, miss, and no-store counters.
func (m *Memoized[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Clear permanently removes every cached entry for this function.
func (m *Memoized[V]) Clear() error {
	_, err := m.cache.ClearFunction(m.name)
	return err
}

// Size returns the current on-disk entry count for this function, and false
// if it has never been cached.
func (m *Memoized[V]) Size() (int, bool, error) {
	return m.cache.SizeOf(m.name)
}

// RawEntries returns the raw metadata entries for this function. This is a
// diagnostic interface and should not be used lightly.
func (m *Memoized[V]) RawEntries() ([]Entry, error) {
	return m.cache.EntriesOf(m.name)
}

func (m *Memoized[V]) bump(f func(*Stats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}
