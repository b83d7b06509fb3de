// Package cache provides generic, thread-safe bounded caches.
//
// Two eviction policies are available:
//   - FIFO: evicts the oldest inserted entry once MaxSize is exceeded. Reads
//     and updates never move an entry. This is the policy used for captured
//     HTTP response bodies.
//   - LRU: evicts the least recently used entry once MaxSize is exceeded.
//
// All caches keep Statistics (always enabled) and can optionally export them
// as Prometheus metrics via WithMetrics.
//
// # Quick Start
//
//	bodies, err := cache.NewFIFO[string](15)
//	if err != nil {
//		return err
//	}
//	bodies.Set("42", "<html>...")
//	body, ok := bodies.Get("42")
//
// Or from configuration:
//
//	c, err := cache.NewFromConfig[string](cache.DefaultConfig(),
//		cache.WithMetrics[string](registry, "network_bodies"))
//
// # Eviction callbacks
//
// WithEvictionCallback registers a function invoked after an entry is
// evicted. Callbacks run outside the cache lock and may call back into the
// cache.
package cache
