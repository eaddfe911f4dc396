package cacheinfra

import (
	"slices"
	"time"
)

// Backend names.
const (
	BackendSturdyc = "sturdyc"
	BackendGoCache = "gocache"
	BackendNone    = "none"
)

// Config holds the configuration for the cache adapters.
type Config struct {
	// Backend selects the adapter. Empty means sturdyc.
	Backend string

	// Capacity defines the maximum number of entries that the cache can store.
	// Only sturdyc enforces it.
	Capacity int

	// NumShards determines the number of sturdyc shards for concurrent access.
	NumShards int

	// TTL is the absolute lifetime of an entry from the moment it is stored.
	TTL time.Duration

	// SlidingTTL expires an entry that has not been read for this long, even
	// if its absolute TTL has not elapsed. Zero disables sliding expiry.
	// Honoured by the go-cache backend only.
	SlidingTTL time.Duration

	// EvictionPercentage specifies what percentage of entries sturdyc evicts
	// when it reaches capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the backend default.
	EvictionInterval time.Duration
}

// DefaultConfig returns the defaults used for cached list views.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSturdyc,
		Capacity:           10000,
		NumShards:          256,
		TTL:                10 * time.Minute,
		SlidingTTL:         2 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

func (c Config) backend() string {
	if c.Backend == "" {
		return BackendSturdyc
	}
	return c.Backend
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if !slices.Contains([]string{BackendSturdyc, BackendGoCache, BackendNone}, c.backend()) {
		return &ConfigError{Field: "Backend", Message: "must be one of sturdyc, gocache, none"}
	}
	if c.backend() == BackendNone {
		return nil
	}

	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.SlidingTTL < 0 {
		return &ConfigError{Field: "SlidingTTL", Message: "must be non-negative"}
	}

	if c.SlidingTTL > c.TTL {
		return &ConfigError{Field: "SlidingTTL", Message: "must not exceed TTL"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
