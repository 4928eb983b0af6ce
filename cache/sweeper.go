package cache

import "time"

// sweeper periodically reclaims expired entries. The timer is reset only
// after a sweep completes, so slow sweeps delay the next one instead of
// overlapping it. Correctness never depends on the sweeper: lookups already
// expire lazily; the sweeper only bounds how long dead entries hold memory.
func (c *Cache[T]) sweeper() {
	defer c.wg.Done()
	timer := time.NewTimer(c.cleanupInterval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			c.sweep()
			timer.Reset(c.cleanupInterval)
		case <-c.done:
			return
		}
	}
}

// sweep runs one cleanup pass. A panic, e.g. from an eviction callback,
// is logged and swallowed so the schedule survives.
func (c *Cache[T]) sweep() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cache sweep failed", "cache", c.name, "panic", r)
		}
	}()
	if n := c.CleanupExpired(); n > 0 {
		c.logger.Debug("cache sweep reclaimed expired entries", "cache", c.name, "count", n)
	}
}
