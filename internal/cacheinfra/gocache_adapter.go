package cacheinfra

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type slidingEntry struct {
	value    any
	deadline time.Time
}

// goCacheService stores entries in go-cache with an absolute deadline and a
// sliding window: each hit pushes the expiry out by SlidingTTL, never past
// the deadline set when the entry was stored.
type goCacheService struct {
	items   *gocache.Cache
	group   singleflight.Group
	ttl     time.Duration
	sliding time.Duration
	now     func() time.Time
}

// NewGoCacheService creates the go-cache adapter.
func NewGoCacheService(cfg Config) (*goCacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := cfg.EvictionInterval
	if interval == 0 {
		interval = cfg.TTL
	}

	return &goCacheService{
		items:   gocache.New(cfg.TTL, interval),
		ttl:     cfg.TTL,
		sliding: cfg.SlidingTTL,
		now:     time.Now,
	}, nil
}

func (s *goCacheService) window(remaining time.Duration) time.Duration {
	if s.sliding > 0 && s.sliding < remaining {
		return s.sliding
	}
	return remaining
}

// GetOrFetch returns the cached value for key, refreshing its sliding
// window, or stores the result of fetchFn.
func (s *goCacheService) GetOrFetch(ctx context.Context, key string, fetchFn FetchFn) (any, error) {
	if fetchFn == nil {
		return nil, errNilFetchFn
	}

	if raw, ok := s.items.Get(key); ok {
		if entry, ok := raw.(slidingEntry); ok {
			if remaining := entry.deadline.Sub(s.now()); remaining > 0 {
				s.items.Set(key, entry, s.window(remaining))
				return entry.value, nil
			}
		}
		s.items.Delete(key)
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		value, err := fetchFn(ctx)
		if err != nil {
			return nil, err
		}
		s.items.Set(key, slidingEntry{value: value, deadline: s.now().Add(s.ttl)}, s.window(s.ttl))
		return value, nil
	})
	return value, err
}

// Delete removes key.
func (s *goCacheService) Delete(ctx context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

// Size returns the number of stored entries, expired ones included until
// the janitor runs.
func (s *goCacheService) Size() int {
	return s.items.ItemCount()
}
