package cache

import (
	"time"

	"github.com/goliatone/go-household-store/internal/cacheinfra"
)

// Supported cache backends.
const (
	BackendSturdyc = cacheinfra.BackendSturdyc
	BackendGoCache = cacheinfra.BackendGoCache
	BackendNone    = cacheinfra.BackendNone
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend   string        `yaml:"backend"`
	Capacity  int           `yaml:"capacity"`
	NumShards int           `yaml:"num_shards"`
	TTL       time.Duration `yaml:"ttl"`
	// SlidingTTL is honoured by the gocache backend only; sturdyc entries
	// expire on TTL alone.
	SlidingTTL         time.Duration `yaml:"sliding_ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

// DefaultConfig returns a Config populated with the defaults for list views:
// the sturdyc backend with 10 minute absolute expiry. The 2 minute sliding
// expiry takes effect once Backend is BackendGoCache.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the cache service for the configured backend.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.New(cfg.toInternal())
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		SlidingTTL:         c.SlidingTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		SlidingTTL:         cfg.SlidingTTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
