package cacheinfra

import (
	"context"
	"errors"
)

// FetchFn loads a value on a cache miss.
type FetchFn = func(ctx context.Context) (any, error)

// Service is implemented by every adapter in this package.
type Service interface {
	GetOrFetch(ctx context.Context, key string, fetchFn FetchFn) (any, error)
	Delete(ctx context.Context, key string) error
}

var errNilFetchFn = &ConfigError{Field: "fetchFn", Message: "cannot be nil"}

// New builds the adapter selected by cfg.Backend.
func New(cfg Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.backend() {
	case BackendGoCache:
		return NewGoCacheService(cfg)
	case BackendNone:
		return NoopService{}, nil
	default:
		return NewSturdycService(cfg)
	}
}

// NoopService never stores anything; every call fetches.
type NoopService struct{}

// GetOrFetch always calls fetchFn.
func (NoopService) GetOrFetch(ctx context.Context, key string, fetchFn FetchFn) (any, error) {
	if fetchFn == nil {
		return nil, errNilFetchFn
	}
	return fetchFn(ctx)
}

// Delete does nothing.
func (NoopService) Delete(ctx context.Context, key string) error { return nil }

// IsConfigError reports whether err came from configuration validation.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
