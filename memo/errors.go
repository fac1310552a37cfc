package memo

import "errors"

// Common errors for cache operations.
var (
	// ErrStorage is returned when the metadata file exists but cannot be
	// parsed, or when an artifact backing an expected hit cannot be read.
	// An absent metadata file is not an error; it is auto-initialized.
	ErrStorage = errors.New("cache storage failure")

	// ErrConfiguration is returned for an unusable cache configuration.
	ErrConfiguration = errors.New("invalid cache configuration")

	// ErrReservedName is returned when a function is registered under the
	// metadata counter key, which would corrupt the store.
	ErrReservedName = errors.New("function name is reserved for cache internals")

	// ErrSerialization is returned when the codec fails to encode or
	// decode a cached value.
	ErrSerialization = errors.New("cache value serialization failed")
)
