package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Instance scopes every key to one relay process so a restart starts
	// from zero. Empty means a fresh random id.
	Instance string

	// CounterTTL is refreshed on every increment
	CounterTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		CounterTTL:   24 * time.Hour,
	}
}
