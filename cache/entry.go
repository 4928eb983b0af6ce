package cache

import "time"

// entry is the unit of storage inside a Cache. The key field holds the full
// namespaced key so that eviction from the LRU list can locate the map slot.
// Entries are owned exclusively by the cache and are only touched while its
// mutex is held; callers ever see the value and an EntryInfo projection.
type entry[T any] struct {
	key          string
	value        T
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  uint64
	expiresAt    time.Time // zero means the entry never expires
}

func newEntry[T any](key string, value T, ttl time.Duration, now time.Time) *entry[T] {
	e := &entry[T]{
		key:          key,
		value:        value,
		createdAt:    now,
		lastAccessed: now,
	}
	if ttl != 0 {
		e.expiresAt = now.Add(ttl)
	}
	return e
}

// isExpired reports whether the entry's TTL has elapsed at the given time.
// It never mutates the entry.
func (e *entry[T]) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// access records a successful read and returns the stored value.
func (e *entry[T]) access(now time.Time) T {
	e.lastAccessed = now
	e.accessCount++
	return e.value
}

// EntryInfo is a read-only snapshot of an entry's metadata, as returned by
// Cache.EntryInfo. The Key is the logical key with the namespace stripped.
type EntryInfo struct {
	Key          string        `json:"key"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
	AccessCount  uint64        `json:"access_count"`
	ExpiresAt    time.Time     `json:"expires_at,omitzero"`
	TTLRemaining time.Duration `json:"ttl_remaining"`
	Expired      bool          `json:"expired"`
}

func (e *entry[T]) info(logicalKey string, now time.Time) EntryInfo {
	info := EntryInfo{
		Key:          logicalKey,
		CreatedAt:    e.createdAt,
		LastAccessed: e.lastAccessed,
		AccessCount:  e.accessCount,
		ExpiresAt:    e.expiresAt,
		Expired:      e.isExpired(now),
	}
	if !e.expiresAt.IsZero() && !info.Expired {
		info.TTLRemaining = e.expiresAt.Sub(now)
	}
	return info
}
