package cache

import (
	"container/list"
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/quantfeed/cachekit/cache")

// Cache is a bounded key/value store with LRU eviction and TTL expiration.
//
// T is the type of the stored values. The zero value is not usable; create
// instances with New. All methods are safe for concurrent use; a single
// mutex serializes foreground callers and the background sweeper.
type Cache[T any] struct {
	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List // front is most recently used
	closed bool

	maxSize         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	keyPrefix       string
	name            string
	statsDisabled   bool

	stats   *Stats
	logger  *slog.Logger
	evictFn EvictCallback[T]

	metricsReg   prometheus.Registerer
	metrics      *promMetrics
	traceEnabled bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New returns a Cache configured by the given options.
//
// It returns ErrInvalidCapacity when WithMaxSize was given a value below 1,
// and any error from metric registration when WithMetrics is used. When a
// cleanup interval is configured the background sweeper starts immediately;
// callers own the cache and must Close it to stop the sweeper.
func New[T any](opts ...Option[T]) (*Cache[T], error) {
	c := &Cache[T]{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 1000,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxSize < 1 {
		return nil, ErrInvalidCapacity
	}
	if c.name == "" {
		c.name = "cache-" + uuid.NewString()
	}
	if !c.statsDisabled {
		c.stats = newStats()
	}
	if c.metricsReg != nil {
		m, err := newPromMetrics(c.metricsReg, c.name)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	if c.cleanupInterval > 0 {
		c.done = make(chan struct{})
		c.wg.Add(1)
		go c.sweeper()
	}
	return c, nil
}

// Name returns the instance name used in metrics and traces.
func (c *Cache[T]) Name() string { return c.name }

func (c *Cache[T]) fullKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + ":" + key
}

func (c *Cache[T]) logicalKey(full string) string {
	if c.keyPrefix == "" {
		return full
	}
	return strings.TrimPrefix(full, c.keyPrefix+":")
}

// Get retrieves the value for key. The boolean reports whether a live entry
// was found. An expired entry is removed on the spot and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	span, start := c.startOp("Get")

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.endOp(span, start, "closed")
		return zero, false
	}
	elem, ok := c.items[c.fullKey(key)]
	if !ok {
		c.recordMiss()
		c.mu.Unlock()
		c.endOp(span, start, "miss")
		return zero, false
	}
	ent := elem.Value.(*entry[T])
	now := time.Now()
	if ent.isExpired(now) {
		c.removeElement(elem)
		c.recordMiss()
		c.recordExpiration()
		c.updateSizeMetric()
		c.mu.Unlock()
		c.runEvictCallback(ent)
		c.endOp(span, start, "expired")
		return zero, false
	}
	c.order.MoveToFront(elem)
	value := ent.access(now)
	c.recordHit()
	c.mu.Unlock()

	c.endOp(span, start, "hit")
	return value, true
}

// GetDefault is Get with a caller-supplied fallback value.
func (c *Cache[T]) GetDefault(key string, def T) T {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Fetch is the strict variant of Get: it returns ErrNotFound when the key
// is absent or expired, and ErrClosed after Close.
func (c *Cache[T]) Fetch(key string) (T, error) {
	var zero T
	if c.isClosed() {
		return zero, ErrClosed
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	return zero, ErrNotFound
}

// Set stores value under key and reports whether the entry was written.
//
// Without options the cache's default TTL applies; see WithTTL, NoExpiry
// and IfAbsent. A successful Set leaves the entry at the most recently used
// position and immediately evicts from the cold end until the size bound
// holds. Set returns false only for IfAbsent conflicts or a closed cache.
func (c *Cache[T]) Set(key string, value T, opts ...SetOption) bool {
	var sc setConfig
	for _, opt := range opts {
		opt(&sc)
	}
	span, start := c.startOp("Set")

	var evicted []*entry[T]
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.endOp(span, start, "closed")
		return false
	}
	full := c.fullKey(key)
	if elem, ok := c.items[full]; ok {
		if sc.ifAbsent {
			c.mu.Unlock()
			c.endOp(span, start, "conflict")
			return false
		}
		// Replacement builds a fresh entry so creation time and access
		// bookkeeping start over.
		elem.Value = newEntry(full, value, c.resolveTTL(sc), time.Now())
		c.order.MoveToFront(elem)
	} else {
		ent := newEntry(full, value, c.resolveTTL(sc), time.Now())
		c.items[full] = c.order.PushFront(ent)
		evicted = c.evictOverflow()
	}
	c.updateSizeMetric()
	c.mu.Unlock()

	for _, ent := range evicted {
		c.runEvictCallback(ent)
	}
	c.endOp(span, start, "stored")
	return true
}

// evictOverflow removes entries from the cold end of the LRU list until the
// size bound holds. Caller must hold the mutex.
func (c *Cache[T]) evictOverflow() []*entry[T] {
	var evicted []*entry[T]
	for len(c.items) > c.maxSize {
		tail := c.order.Back()
		if tail == nil {
			break
		}
		ent := tail.Value.(*entry[T])
		c.removeElement(tail)
		c.recordEviction()
		evicted = append(evicted, ent)
	}
	return evicted
}

// Delete removes key and reports whether a physical entry existed.
func (c *Cache[T]) Delete(key string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	elem, ok := c.items[c.fullKey(key)]
	if !ok {
		c.mu.Unlock()
		return false
	}
	ent := elem.Value.(*entry[T])
	c.removeElement(elem)
	c.updateSizeMetric()
	c.mu.Unlock()
	c.runEvictCallback(ent)
	return true
}

// Drop is the strict variant of Delete: it returns ErrNotFound when no
// physical entry existed, and ErrClosed after Close.
func (c *Cache[T]) Drop(key string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if !c.Delete(key) {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether key holds a live entry. Expired entries are
// removed on the spot, with the same miss and expiration accounting as Get,
// but a hit does not touch recency or access counts.
func (c *Cache[T]) Exists(key string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	elem, ok := c.items[c.fullKey(key)]
	if !ok {
		c.recordMiss()
		c.mu.Unlock()
		return false
	}
	ent := elem.Value.(*entry[T])
	if ent.isExpired(time.Now()) {
		c.removeElement(elem)
		c.recordMiss()
		c.recordExpiration()
		c.updateSizeMetric()
		c.mu.Unlock()
		c.runEvictCallback(ent)
		return false
	}
	c.recordHit()
	c.mu.Unlock()
	return true
}

// Clear removes every entry and returns how many were dropped.
func (c *Cache[T]) Clear() int {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	dropped := make([]*entry[T], 0, len(c.items))
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		dropped = append(dropped, elem.Value.(*entry[T]))
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.updateSizeMetric()
	c.mu.Unlock()

	for _, ent := range dropped {
		c.runEvictCallback(ent)
	}
	return len(dropped)
}

// GetOrSet returns the cached value for key, or runs factory and caches its
// result. The factory runs without the cache mutex held, so concurrent
// callers missing on the same key may each invoke it; use memo with
// single-flight when that matters. A factory error propagates unchanged and
// nothing is cached.
func (c *Cache[T]) GetOrSet(key string, factory func() (T, error), opts ...SetOption) (T, error) {
	span, start := c.startOp("GetOrSet")
	if v, ok := c.Get(key); ok {
		c.endOp(span, start, "hit")
		return v, nil
	}
	var zero T
	if c.isClosed() {
		c.endOp(span, start, "closed")
		return zero, ErrClosed
	}
	v, err := factory()
	if err != nil {
		c.endOp(span, start, "factory_error")
		return zero, err
	}
	c.Set(key, v, opts...)
	c.endOp(span, start, "stored")
	return v, nil
}

// GetMany looks up all keys and returns the live ones. Per-key semantics
// match Get, including expiration accounting and LRU promotion.
func (c *Cache[T]) GetMany(keys []string) map[string]T {
	out := make(map[string]T, len(keys))
	for _, key := range keys {
		if v, ok := c.Get(key); ok {
			out[key] = v
		}
	}
	return out
}

// SetMany stores every pair in values and returns how many were written.
// Per-key semantics match Set.
func (c *Cache[T]) SetMany(values map[string]T, opts ...SetOption) int {
	var stored int
	for key, value := range values {
		if c.Set(key, value, opts...) {
			stored++
		}
	}
	return stored
}

// Keys returns the physically present keys with the namespace stripped.
// Expired entries that have not yet been swept may appear. A non-empty
// pattern filters with path.Match glob syntax; a malformed pattern matches
// nothing.
func (c *Cache[T]) Keys(pattern string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		key := c.logicalKey(elem.Value.(*entry[T]).key)
		if pattern != "" {
			if ok, err := path.Match(pattern, key); err != nil || !ok {
				continue
			}
		}
		keys = append(keys, key)
	}
	return keys
}

// Size returns the number of physically present entries.
func (c *Cache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired removes every expired entry and returns the count. Each
// removal is recorded as an expiration. The background sweeper calls this
// on its schedule; callers may also invoke it directly.
func (c *Cache[T]) CleanupExpired() int {
	now := time.Now()
	var expired []*entry[T]

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		ent := elem.Value.(*entry[T])
		if ent.isExpired(now) {
			c.removeElement(elem)
			c.recordExpiration()
			expired = append(expired, ent)
		}
		elem = next
	}
	c.updateSizeMetric()
	c.mu.Unlock()

	for _, ent := range expired {
		c.runEvictCallback(ent)
	}
	return len(expired)
}

// Stats returns a snapshot of the cache counters, or nil when statistics
// were disabled with WithoutStats.
func (c *Cache[T]) Stats() *Snapshot {
	if c.stats == nil {
		return nil
	}
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()
	return c.stats.snapshot(size, c.maxSize)
}

// EntryInfo returns metadata for key without promoting the entry or
// touching statistics. The boolean is false when the key is physically
// absent; an expired-but-unswept entry is reported with Expired set.
func (c *Cache[T]) EntryInfo(key string) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[c.fullKey(key)]
	if !ok {
		return EntryInfo{}, false
	}
	return elem.Value.(*entry[T]).info(key, time.Now()), true
}

// Close stops the background sweeper and drops every entry. It is
// idempotent. After Close, Get and Exists report misses without touching
// statistics, Set and Delete are no-ops returning false, and Fetch, Drop
// and GetOrSet return ErrClosed.
func (c *Cache[T]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	if c.done != nil {
		close(c.done)
		c.wg.Wait()
	}
	return nil
}

func (c *Cache[T]) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// removeElement drops an element from both the list and the map. Caller
// must hold the mutex.
func (c *Cache[T]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[T])
	delete(c.items, ent.key)
	c.order.Remove(elem)
}

func (c *Cache[T]) runEvictCallback(ent *entry[T]) {
	if c.evictFn != nil {
		c.evictFn(c.logicalKey(ent.key), ent.value)
	}
}

func (c *Cache[T]) recordHit() {
	if c.stats != nil {
		c.stats.hit()
	}
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
}

func (c *Cache[T]) recordMiss() {
	if c.stats != nil {
		c.stats.miss()
	}
	if c.metrics != nil {
		c.metrics.misses.Inc()
	}
}

func (c *Cache[T]) recordEviction() {
	if c.stats != nil {
		c.stats.eviction()
	}
	if c.metrics != nil {
		c.metrics.evictions.Inc()
	}
}

func (c *Cache[T]) recordExpiration() {
	if c.stats != nil {
		c.stats.expiration()
	}
	if c.metrics != nil {
		c.metrics.expirations.Inc()
	}
}

// updateSizeMetric pushes the current size to the gauge. Caller must hold
// the mutex.
func (c *Cache[T]) updateSizeMetric() {
	if c.metrics != nil {
		c.metrics.size.Set(float64(len(c.items)))
	}
}

// startOp begins span and latency tracking for an operation when tracing or
// metrics are enabled. The returned span is nil when tracing is off.
func (c *Cache[T]) startOp(op string) (trace.Span, time.Time) {
	var span trace.Span
	if c.traceEnabled {
		_, span = tracer.Start(context.Background(), "Cache."+op,
			trace.WithAttributes(attribute.String("cachekit.cache.name", c.name)))
	}
	if c.traceEnabled || c.metrics != nil {
		return span, time.Now()
	}
	return span, time.Time{}
}

func (c *Cache[T]) endOp(span trace.Span, start time.Time, result string) {
	if !start.IsZero() && c.metrics != nil {
		c.metrics.latency.Observe(time.Since(start).Seconds())
	}
	if span != nil {
		span.SetAttributes(attribute.String("cachekit.cache.result", result))
		span.End()
	}
}
