// Package memo turns expensive functions into cached functions backed by a
// cache.Cache. A Memoizer binds a cache handle to a key derivation strategy
// and an optional TTL; the Wrap helpers then produce drop-in replacements
// for functions of up to three arguments.
//
// The memoizer is deliberately built on explicit dependency injection:
// there is no package-level shared cache. Construct one Cache at startup
// and hand it to every Memoizer that should share the same bounded pool.
//
//	quotes, _ := cache.New[float64](cache.WithMaxSize[float64](500))
//	m := memo.New(quotes, memo.WithTTL(time.Minute))
//	cachedPrice := memo.Wrap1(m, "price", fetchPrice)
//
//	p, err := cachedPrice("NVDA") // fetched
//	p, err = cachedPrice("NVDA")  // served from cache
//
// By default a miss runs the wrapped function without any coordination, so
// concurrent callers racing on one key may each invoke it. WithSingleFlight
// opts into per-key call coalescing for workloads where that recomputation
// is too expensive.
package memo
