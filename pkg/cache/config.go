package cache

import (
	"fmt"

	"github.com/c360/ponybridge/errors"
)

// Strategy defines the eviction strategy for the cache.
type Strategy string

const (
	// StrategyFIFO evicts the oldest inserted entry first.
	StrategyFIFO Strategy = "fifo"

	// StrategyLRU evicts the least recently used entry first.
	StrategyLRU Strategy = "lru"
)

// Config contains configuration for cache creation.
type Config struct {
	// Strategy determines the eviction strategy.
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// MaxSize is the maximum number of entries.
	MaxSize int `json:"max_size" yaml:"max_size"`
}

// DefaultConfig returns a default cache configuration: a FIFO of 15 entries.
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyFIFO,
		MaxSize:  15,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyFIFO, StrategyLRU:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("unknown cache strategy: %s", c.Strategy))
	}

	if c.MaxSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("max_size must be positive, got %d", c.MaxSize))
	}
	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
func NewFromConfig[V any](config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Strategy {
	case StrategyLRU:
		return NewLRU[V](config.MaxSize, options...)
	default:
		return NewFIFO[V](config.MaxSize, options...)
	}
}

// NewFIFO creates a bounded cache that evicts in insertion order.
// Stats are always enabled. Use WithMetrics() to also export as Prometheus metrics.
func NewFIFO[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	return newFIFOCache[V](maxSize, applyOptions(options...))
}

// NewLRU creates a new LRU cache with the specified maximum size.
// Stats are always enabled. Use WithMetrics() to also export as Prometheus metrics.
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	return newLRUCache[V](maxSize, applyOptions(options...))
}
