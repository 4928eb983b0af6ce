package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperReclaimsExpiredEntries(t *testing.T) {
	c := newTestCache(t, WithCleanupInterval[string](5*time.Millisecond))

	c.Set("short", "v", WithTTL(time.Millisecond))
	c.Set("long", "v", WithTTL(time.Hour))

	require.Eventually(t, func() bool {
		return c.Size() == 1
	}, time.Second, 5*time.Millisecond, "sweeper should physically remove the expired entry")

	// Removal happened without any foreground lookup, so it counts as an
	// expiration but not a miss.
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Expirations)
	assert.Equal(t, uint64(0), stats.Misses)
	assert.True(t, c.Exists("long"))
}

func TestSweeperDisabledByDefault(t *testing.T) {
	c := newTestCache(t)
	c.Set("dead", "v", WithTTL(-time.Second))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.Size(), "without a sweeper, dead entries linger until accessed")

	_, ok := c.Get("dead")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "lazy expiration still reclaims on access")
}

func TestSweeperSurvivesCallbackPanic(t *testing.T) {
	c := newTestCache(t,
		WithCleanupInterval[string](2*time.Millisecond),
		WithEvictionCallback[string](func(key, value string) {
			if key == "bomb" {
				panic("callback failure")
			}
		}),
	)

	c.Set("bomb", "v", WithTTL(time.Millisecond))
	require.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 2*time.Millisecond)

	// The schedule must survive the panic and keep sweeping.
	c.Set("second", "v", WithTTL(time.Millisecond))
	require.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 2*time.Millisecond)
}

func TestCloseStopsSweeper(t *testing.T) {
	c, err := New[string](WithCleanupInterval[string](time.Millisecond))
	require.NoError(t, err)
	c.Set("k", "v")

	require.NoError(t, c.Close())
	// Close waits for the sweeper goroutine, so reaching this point means
	// it exited; a second Close must not block or panic.
	require.NoError(t, c.Close())
}
