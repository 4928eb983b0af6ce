package main

import (
	"flag"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantfeed/cachekit/cache"
)

var (
	concurrency = flag.Int("c", 50, "Number of concurrent workers")
	requests    = flag.Int("n", 1000000, "Total number of operations")
	keys        = flag.Int("k", 1000, "Size of the key space")
	writeRatio  = flag.Int("w", 10, "Percentage of operations that are writes")
)

func main() {
	flag.Parse()

	log.Printf("Starting benchmark: %d ops, %d workers, %d keys, %d%% writes",
		*requests, *concurrency, *keys, *writeRatio)

	c, err := cache.New[string](
		cache.WithMaxSize[string](*keys),
		cache.WithDefaultTTL[string](time.Minute),
		cache.WithCleanupInterval[string](10*time.Second),
	)
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer c.Close()

	for i := 0; i < *keys; i++ {
		c.Set(strconv.Itoa(i), "warm")
	}

	var wg sync.WaitGroup
	var ops int64
	opsPerWorker := *requests / *concurrency

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := strconv.Itoa((seed + i) % *keys)
				if i%100 < *writeRatio {
					c.Set(key, "payload")
				} else {
					c.Get(key)
				}
				atomic.AddInt64(&ops, 1)
			}
		}(w * opsPerWorker)
	}
	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("Finished in %v", elapsed)
	log.Printf("Throughput: %.2f ops/s", float64(ops)/elapsed.Seconds())
	log.Printf("Avg latency: %.2f ns", elapsed.Seconds()/float64(ops)*1e9)

	if stats := c.Stats(); stats != nil {
		log.Printf("hits=%d misses=%d evictions=%d expirations=%d hit_rate=%.1f%%",
			stats.Hits, stats.Misses, stats.Evictions, stats.Expirations, stats.HitRate)
	}
}
