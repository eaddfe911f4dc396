package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// sturdycService wraps a sturdyc client. Concurrent fetches for the same key
// share one call to fetchFn.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService creates a new sturdyc cache service adapter.
//
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New.
// SlidingTTL is ignored: sturdyc has no per-read expiry, so entries live for
// TTL or until evicted. Early
// refreshes and missing-record storage are left off: a background refresh
// would re-run loaders for keys whose generation may already be superseded,
// and list loaders never report missing records.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		opts...,
	)

	return &sturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key or stores the result of fetchFn.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn FetchFn) (any, error) {
	if fetchFn == nil {
		return nil, errNilFetchFn
	}
	return s.client.GetOrFetch(ctx, key, fetchFn)
}

// Delete removes key.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Size returns the number of stored entries, orphaned ones included.
func (s *sturdycService) Size() int {
	return s.client.Size()
}
