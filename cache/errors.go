package cache

import "errors"

var (
	// ErrNotFound is returned by Fetch when a key is absent or expired.
	ErrNotFound = errors.New("cachekit: not found")

	// ErrClosed is returned by operations that cannot be satisfied after
	// Close has been called.
	ErrClosed = errors.New("cachekit: cache is closed")

	// ErrInvalidCapacity is returned by New when the configured maximum
	// size is smaller than one entry.
	ErrInvalidCapacity = errors.New("cachekit: max size must be at least 1")
)
