package cache

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Cache during construction.
type Option[T any] func(*Cache[T])

// EvictCallback is invoked for every entry removed by eviction, expiration
// or Clear. It runs outside the cache mutex, so it may call back into the
// cache, but it must not assume the key is still absent by the time it runs.
type EvictCallback[T any] func(key string, value T)

// WithMaxSize bounds the number of entries the cache may hold. New rejects
// values smaller than 1 with ErrInvalidCapacity. The default is 1000.
func WithMaxSize[T any](n int) Option[T] {
	return func(c *Cache[T]) { c.maxSize = n }
}

// WithDefaultTTL sets the TTL applied by Set when no explicit TTL is given.
// A zero duration means entries never expire by default.
func WithDefaultTTL[T any](d time.Duration) Option[T] {
	return func(c *Cache[T]) { c.defaultTTL = d }
}

// WithCleanupInterval enables a background sweeper that removes expired
// entries every d. A zero or negative duration disables the sweeper; lazy
// expiration on access still applies.
func WithCleanupInterval[T any](d time.Duration) Option[T] {
	return func(c *Cache[T]) { c.cleanupInterval = d }
}

// WithKeyPrefix namespaces every key under the given prefix. The prefix is
// applied internally and never visible through the public API.
func WithKeyPrefix[T any](prefix string) Option[T] {
	return func(c *Cache[T]) { c.keyPrefix = prefix }
}

// WithName sets the instance name used in metrics labels, trace attributes
// and log records. The default is "cache-" followed by a random UUID, which
// keeps metric registration collision-free when several caches share one
// registerer.
func WithName[T any](name string) Option[T] {
	return func(c *Cache[T]) { c.name = name }
}

// WithoutStats disables the statistics tracker. Stats then returns nil.
func WithoutStats[T any]() Option[T] {
	return func(c *Cache[T]) { c.statsDisabled = true }
}

// WithMetrics exposes hit/miss/eviction/expiration counters, a size gauge
// and an operation latency histogram on the given registerer, labelled with
// the cache name.
func WithMetrics[T any](reg prometheus.Registerer) Option[T] {
	return func(c *Cache[T]) { c.metricsReg = reg }
}

// WithTracing enables OpenTelemetry spans for Get, Set and GetOrSet. The
// cache API carries no context, so the spans are root spans tagged with the
// cache name and operation result.
func WithTracing[T any]() Option[T] {
	return func(c *Cache[T]) { c.traceEnabled = true }
}

// WithLogger sets the logger used by the background sweeper. The default is
// slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *Cache[T]) { c.logger = logger }
}

// WithEvictionCallback registers a callback for removed entries.
func WithEvictionCallback[T any](fn EvictCallback[T]) Option[T] {
	return func(c *Cache[T]) { c.evictFn = fn }
}

// SetOption adjusts the behavior of a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl      time.Duration
	ttlSet   bool
	noExpiry bool
	ifAbsent bool
}

// WithTTL overrides the cache's default TTL for this entry. A zero or
// negative duration produces an entry that is already expired, which the
// next lookup reports as absent.
func WithTTL(d time.Duration) SetOption {
	return func(sc *setConfig) {
		sc.ttl = d
		sc.ttlSet = true
	}
}

// NoExpiry stores the entry without any TTL, overriding the default. The
// entry can then only leave the cache through eviction, Delete or Clear.
func NoExpiry() SetOption {
	return func(sc *setConfig) { sc.noExpiry = true }
}

// IfAbsent turns the Set into a no-op when the key is already physically
// present, even if the existing entry has expired but not yet been swept.
func IfAbsent() SetOption {
	return func(sc *setConfig) { sc.ifAbsent = true }
}

// resolveTTL picks the effective TTL for a Set call. The returned duration
// follows the entry convention: zero means no expiry, negative means the
// entry is created already expired.
func (c *Cache[T]) resolveTTL(sc setConfig) time.Duration {
	switch {
	case sc.noExpiry:
		return 0
	case sc.ttlSet:
		if sc.ttl <= 0 {
			// Normalize so newEntry does not treat it as "no expiry".
			if sc.ttl == 0 {
				return -time.Nanosecond
			}
			return sc.ttl
		}
		return sc.ttl
	default:
		return c.defaultTTL
	}
}
