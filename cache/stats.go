package cache

import (
	"sync/atomic"
	"time"
)

// Stats tracks cache effectiveness counters. All counters are monotonic and
// updated atomically, so reads are safe without holding the cache mutex.
type Stats struct {
	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64
	startTime   time.Time
}

func newStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) hit()        { s.hits.Add(1) }
func (s *Stats) miss()       { s.misses.Add(1) }
func (s *Stats) eviction()   { s.evictions.Add(1) }
func (s *Stats) expiration() { s.expirations.Add(1) }

// Hits returns the number of successful lookups.
func (s *Stats) Hits() uint64 { return s.hits.Load() }

// Misses returns the number of lookups that found no live entry.
func (s *Stats) Misses() uint64 { return s.misses.Load() }

// Evictions returns the number of entries removed to satisfy the size bound.
func (s *Stats) Evictions() uint64 { return s.evictions.Load() }

// Expirations returns the number of entries removed because their TTL
// elapsed, whether lazily on access or by the background sweeper.
func (s *Stats) Expirations() uint64 { return s.expirations.Load() }

// TotalRequests returns hits plus misses.
func (s *Stats) TotalRequests() uint64 { return s.Hits() + s.Misses() }

// HitRate returns the percentage of lookups that hit, or 0 when no lookups
// have been recorded.
func (s *Stats) HitRate() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Uptime returns how long ago the owning cache was created.
func (s *Stats) Uptime() time.Duration { return time.Since(s.startTime) }

// Snapshot is a point-in-time view of cache statistics, suitable for
// logging or JSON dumps.
type Snapshot struct {
	Hits          uint64        `json:"hits"`
	Misses        uint64        `json:"misses"`
	Evictions     uint64        `json:"evictions"`
	Expirations   uint64        `json:"expirations"`
	TotalRequests uint64        `json:"total_requests"`
	HitRate       float64       `json:"hit_rate"`
	CurrentSize   int           `json:"current_size"`
	MaxSize       int           `json:"max_size"`
	Utilization   float64       `json:"utilization"`
	Uptime        time.Duration `json:"uptime"`
}

func (s *Stats) snapshot(currentSize, maxSize int) *Snapshot {
	return &Snapshot{
		Hits:          s.Hits(),
		Misses:        s.Misses(),
		Evictions:     s.Evictions(),
		Expirations:   s.Expirations(),
		TotalRequests: s.TotalRequests(),
		HitRate:       s.HitRate(),
		CurrentSize:   currentSize,
		MaxSize:       maxSize,
		Utilization:   float64(currentSize) / float64(maxSize) * 100,
		Uptime:        s.Uptime(),
	}
}
