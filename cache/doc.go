// Package cache provides a bounded, in-process key/value cache with LRU
// eviction, per-entry TTL expiration and a background sweeper that reclaims
// expired entries. All operations are safe for concurrent use. Statistics
// are collected by default and can optionally be exposed as Prometheus
// metrics or OpenTelemetry spans through functional options.
package cache
