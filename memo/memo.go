package memo

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quantfeed/cachekit/cache"
)

// Option configures a Memoizer.
type Option func(*config)

type config struct {
	ttl          time.Duration
	ttlSet       bool
	keyFn        KeyFunc
	singleFlight bool
}

// WithTTL overrides the cache's default TTL for every value the memoizer
// stores.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		c.ttl = d
		c.ttlSet = true
	}
}

// WithKeyFunc replaces the default argument-hashing key derivation. Use
// this when arguments have no canonical JSON form, or to exclude arguments
// that should not participate in the key.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) { c.keyFn = fn }
}

// WithSingleFlight coalesces concurrent misses on the same key into one
// invocation of the wrapped function; the other callers wait and share the
// result. Errors are never cached, shared or not.
func WithSingleFlight() Option {
	return func(c *config) { c.singleFlight = true }
}

// Memoizer caches function results in a Cache shared with its owner.
type Memoizer[T any] struct {
	cache  *cache.Cache[T]
	ttl    time.Duration
	ttlSet bool
	keyFn  KeyFunc
	group  *singleflight.Group
}

// New returns a Memoizer bound to c. It panics when c is nil; the cache
// dependency is explicit by design.
func New[T any](c *cache.Cache[T], opts ...Option) *Memoizer[T] {
	if c == nil {
		panic("memo: nil cache")
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &Memoizer[T]{
		cache:  c,
		ttl:    cfg.ttl,
		ttlSet: cfg.ttlSet,
		keyFn:  cfg.keyFn,
	}
	if m.keyFn == nil {
		m.keyFn = Key
	}
	if cfg.singleFlight {
		m.group = new(singleflight.Group)
	}
	return m
}

// Cache exposes the underlying cache for introspection and ops tooling.
func (m *Memoizer[T]) Cache() *cache.Cache[T] { return m.cache }

// Clear drops every entry from the underlying cache and returns the count.
// Note that the cache may be shared with other memoizers.
func (m *Memoizer[T]) Clear() int { return m.cache.Clear() }

// Do returns the cached value for key, or runs fn and caches its result.
// An error from fn propagates unchanged and nothing is cached, so a
// persistently failing fn is re-invoked on every call.
func (m *Memoizer[T]) Do(key string, fn func() (T, error)) (T, error) {
	if v, ok := m.cache.Get(key); ok {
		return v, nil
	}
	if m.group == nil {
		return m.compute(key, fn)
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		// Another flight may have stored the value while we queued.
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		return m.compute(key, fn)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (m *Memoizer[T]) compute(key string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	m.cache.Set(key, v, m.setOpts()...)
	return v, nil
}

func (m *Memoizer[T]) setOpts() []cache.SetOption {
	if m.ttlSet {
		return []cache.SetOption{cache.WithTTL(m.ttl)}
	}
	return nil
}

// Wrap0 memoizes a nullary function under a fixed scope key.
func Wrap0[T any](m *Memoizer[T], scope string, fn func() (T, error)) func() (T, error) {
	return func() (T, error) {
		return m.Do(m.keyFn(scope), fn)
	}
}

// Wrap1 memoizes a single-argument function. The scope, typically the
// function name, separates its keys from other wrapped functions sharing
// the cache.
func Wrap1[A, T any](m *Memoizer[T], scope string, fn func(A) (T, error)) func(A) (T, error) {
	return func(a A) (T, error) {
		return m.Do(m.keyFn(scope, a), func() (T, error) { return fn(a) })
	}
}

// Wrap2 memoizes a two-argument function.
func Wrap2[A, B, T any](m *Memoizer[T], scope string, fn func(A, B) (T, error)) func(A, B) (T, error) {
	return func(a A, b B) (T, error) {
		return m.Do(m.keyFn(scope, a, b), func() (T, error) { return fn(a, b) })
	}
}

// Wrap3 memoizes a three-argument function.
func Wrap3[A, B, C, T any](m *Memoizer[T], scope string, fn func(A, B, C) (T, error)) func(A, B, C) (T, error) {
	return func(a A, b B, c C) (T, error) {
		return m.Do(m.keyFn(scope, a, b, c), func() (T, error) { return fn(a, b, c) })
	}
}
