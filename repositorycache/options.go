package repositorycache

import (
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-household-store/cache"
)

type options struct {
	logger *slog.Logger
	keys   cache.KeySerializer
	now    func() time.Time
	metric *Metrics
}

// Option configures a CachedRepository.
type Option func(*options)

// WithLogger sets the logger used to report cache faults.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the counters updated by the repository.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithClock overrides the time source used for audit stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeySerializer overrides how query suffixes are built.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(o *options) {
		if keys != nil {
			o.keys = keys
		}
	}
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		keys:   cache.NewDefaultKeySerializer(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}
