package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/cachekit/cache"
)

func newTestMemoizer(t *testing.T, opts ...Option) *Memoizer[int] {
	t.Helper()
	c, err := cache.New[int]()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return New(c, opts...)
}

func TestWrappedFunctionInvokedOnce(t *testing.T) {
	m := newTestMemoizer(t)
	var calls int

	double := Wrap1(m, "double", func(n int) (int, error) {
		calls++
		return n * 2, nil
	})

	v, err := double(5)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = double(5)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, calls, "second call with identical arguments must hit the cache")

	_, err = double(6)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different arguments derive a different key")
}

func TestErrorsPropagateUncached(t *testing.T) {
	m := newTestMemoizer(t)
	boom := errors.New("fetch failed")
	var calls int

	flaky := Wrap1(m, "flaky", func(n int) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return n, nil
	})

	_, err := flaky(1)
	require.ErrorIs(t, err, boom)

	v, err := flaky(1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, calls)
}

func TestWrapArities(t *testing.T) {
	m := newTestMemoizer(t)
	var calls int

	zero := Wrap0(m, "zero", func() (int, error) {
		calls++
		return 7, nil
	})
	add := Wrap2(m, "add", func(a, b int) (int, error) {
		calls++
		return a + b, nil
	})
	sum3 := Wrap3(m, "sum3", func(a, b, c int) (int, error) {
		calls++
		return a + b + c, nil
	})

	for i := 0; i < 2; i++ {
		v, err := zero()
		require.NoError(t, err)
		assert.Equal(t, 7, v)

		v, err = add(1, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, v)

		v, err = sum3(1, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 6, v)
	}
	assert.Equal(t, 3, calls)
}

func TestScopesShareOneCacheWithoutColliding(t *testing.T) {
	m := newTestMemoizer(t)

	a := Wrap1(m, "celsius", func(n int) (int, error) { return n, nil })
	b := Wrap1(m, "fahrenheit", func(n int) (int, error) { return n * 100, nil })

	va, err := a(1)
	require.NoError(t, err)
	vb, err := b(1)
	require.NoError(t, err)
	assert.NotEqual(t, va, vb)
	assert.Equal(t, 2, m.Cache().Size())
}

func TestTTLOverride(t *testing.T) {
	m := newTestMemoizer(t, WithTTL(time.Hour))
	var calls int

	f := Wrap1(m, "f", func(n int) (int, error) {
		calls++
		return n, nil
	})
	_, err := f(1)
	require.NoError(t, err)

	keys := m.Cache().Keys("")
	require.Len(t, keys, 1)
	info, ok := m.Cache().EntryInfo(keys[0])
	require.True(t, ok)
	assert.Greater(t, info.TTLRemaining, 59*time.Minute)
}

func TestCustomKeyFunc(t *testing.T) {
	c, err := cache.New[int]()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// Ignore the second argument when deriving the key.
	m := New(c, WithKeyFunc(func(scope string, args ...any) string {
		return Key(scope, args[0])
	}))

	var calls int
	f := Wrap2(m, "f", func(symbol string, requestID int) (int, error) {
		calls++
		return 42, nil
	})

	_, err = f("NVDA", 1)
	require.NoError(t, err)
	_, err = f("NVDA", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "excluded argument must not affect the key")
}

func TestClear(t *testing.T) {
	m := newTestMemoizer(t)
	var calls int

	f := Wrap1(m, "f", func(n int) (int, error) {
		calls++
		return n, nil
	})

	_, _ = f(1)
	assert.Equal(t, 1, m.Clear())
	_, _ = f(1)
	assert.Equal(t, 2, calls)
}

func TestNilCachePanics(t *testing.T) {
	assert.Panics(t, func() { New[int](nil) })
}

func TestDoDelegatesToCache(t *testing.T) {
	m := newTestMemoizer(t)

	v, err := m.Do("manual", func() (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, v)

	cached, ok := m.Cache().Get("manual")
	require.True(t, ok)
	assert.Equal(t, 9, cached)
}

func TestSingleFlightCoalescesConcurrentMisses(t *testing.T) {
	m := newTestMemoizer(t, WithSingleFlight())

	var calls atomic.Int64
	release := make(chan struct{})
	slow := Wrap1(m, "slow", func(n int) (int, error) {
		calls.Add(1)
		<-release
		return n, nil
	})

	const workers = 16
	var wg sync.WaitGroup
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := slow(3)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give every worker time to reach the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent misses must share one invocation")
	for _, v := range results {
		assert.Equal(t, 3, v)
	}
}

func TestWithoutSingleFlightMayRecompute(t *testing.T) {
	m := newTestMemoizer(t)

	var calls atomic.Int64
	release := make(chan struct{})
	slow := Wrap1(m, "slow", func(n int) (int, error) {
		calls.Add(1)
		<-release
		return n, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := slow(3)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// The default contract tolerates redundant computation under races;
	// the cache stays consistent either way.
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
	v, ok := m.Cache().Get(Key("slow", 3))
	require.True(t, ok)
	assert.Equal(t, 3, v)
}
