package di

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-household-store/audit"
	"github.com/goliatone/go-household-store/cache"
	"github.com/goliatone/go-household-store/config"
	"github.com/goliatone/go-household-store/fieldcrypt"
	"github.com/goliatone/go-household-store/household"
	"github.com/goliatone/go-household-store/internal/bunstore"
	"github.com/goliatone/go-household-store/internal/memstore"
	"github.com/goliatone/go-household-store/invalidation"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/repositorycache"
	"github.com/goliatone/go-household-store/store"
)

// Container owns the singletons of one store instance: storage, cache
// service, invalidation registry, codec, audit recorder and the
// repositories built on them.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	db            *bun.DB
	backend       household.Backend
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	tokens        *invalidation.Registry
	codec         *fieldcrypt.Codec
	registry      prometheus.Registerer
	metrics       *repositorycache.Metrics
	recorder      *audit.AsyncRecorder
	kafka         *audit.KafkaSink
	repos         *household.Repositories
}

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	sink       audit.Sink
	keys       cache.KeySerializer
}

// Option configures NewContainer.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer registers the cache and audit metrics on reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithAuditSink replaces the sink selected by the configuration.
func WithAuditSink(sink audit.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithKeySerializer sets the serializer every repository builds query
// suffixes with.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(o *options) {
		if keys != nil {
			o.keys = keys
		}
	}
}

// NewContainer validates cfg and wires every component. SQL schemas are
// created when missing. Call Close to release the database and flush the
// audit recorder.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		keys:   cache.NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		logger:        o.logger,
		keySerializer: o.keys,
		tokens:        invalidation.NewRegistry(),
		registry:      o.registerer,
		metrics:       repositorycache.NewMetrics(o.registerer),
	}

	ok := false
	defer func() {
		if !ok {
			_ = c.Close(context.Background())
		}
	}()

	if err := c.openStorage(ctx); err != nil {
		return nil, err
	}

	var err error
	if c.cacheService, err = cache.NewCacheService(cfg.Cache); err != nil {
		return nil, err
	}
	if c.codec, err = newCodec(cfg.Encryption); err != nil {
		return nil, err
	}

	sink := o.sink
	if sink == nil {
		if sink, err = c.newSink(); err != nil {
			return nil, err
		}
	}
	c.recorder = audit.NewAsyncRecorder(sink,
		audit.WithLogger(c.logger),
		audit.WithBufferSize(cfg.Audit.BufferSize),
		audit.WithRegisterer(o.registerer),
	)

	c.repos, err = household.New(household.Deps{
		Backend: c.backend,
		Cache:   c.cacheService,
		Tokens:  c.tokens,
		Codec:   c.codec,
		Keys:    c.keySerializer,
		Audit:   c.recorder,
		Metrics: c.metrics,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("household store ready",
		"driver", cfg.Database.Driver, "cache", cfg.Cache.Backend, "audit", cfg.Audit.Sink)
	ok = true
	return c, nil
}

// NewContainerWithDefaults creates an in-memory container with a random
// encryption key. Nothing it stores outlives the process.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	cfg := config.Default()
	cfg.Audit.Sink = config.SinkNone
	cfg.Encryption.Key = base64.StdEncoding.EncodeToString(key)
	return NewContainer(ctx, cfg, opts...)
}

func (c *Container) openStorage(ctx context.Context) error {
	if c.config.Database.Driver == config.DriverMemory {
		c.backend = household.MemoryBackend(memstore.New())
		return nil
	}

	db, err := bunstore.Open(c.config.Database.Driver, c.config.Database.DSN)
	if err != nil {
		return store.StorageFailure(err, "open database")
	}
	c.db = db

	if err := bunstore.CreateSchema(ctx, db); err != nil {
		return store.StorageFailure(err, "create schema")
	}
	c.backend = household.SQLBackend(db)
	return nil
}

func newCodec(cfg config.Encryption) (*fieldcrypt.Codec, error) {
	var opts []fieldcrypt.Option
	if cfg.BcryptCost != 0 {
		opts = append(opts, fieldcrypt.WithBcryptCost(cfg.BcryptCost))
	}

	if cfg.Key == "" {
		return fieldcrypt.NewCodecFromPassphrase(cfg.Passphrase, []byte(cfg.Salt), opts...)
	}
	key, err := cfg.KeyBytes()
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	return fieldcrypt.NewCodec(key, opts...)
}

func (c *Container) newSink() (audit.Sink, error) {
	switch c.config.Audit.Sink {
	case config.SinkKafka:
		sink, err := audit.NewKafkaSink(c.config.Audit.Brokers, c.config.Audit.Topic, c.logger)
		if err != nil {
			return nil, err
		}
		c.kafka = sink
		return sink, nil
	case config.SinkNone:
		return discardSink{}, nil
	}
	return audit.NewLogSink(c.logger), nil
}

type discardSink struct{}

func (discardSink) Write(context.Context, audit.Entry) error { return nil }

// Close stops the audit recorder after flushing it, then releases the Kafka
// client and the database. It is safe to call on a partially built
// container.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.recorder != nil {
		errs = append(errs, c.recorder.Close(ctx))
	}
	if c.kafka != nil {
		errs = append(errs, c.kafka.Close(ctx))
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config { return c.config }

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// DB returns the SQL database, or nil for the memory driver.
func (c *Container) DB() *bun.DB { return c.db }

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the serializer used for view suffixes.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Tokens returns the invalidation registry shared by every repository.
func (c *Container) Tokens() *invalidation.Registry { return c.tokens }

// Codec returns the field codec.
func (c *Container) Codec() *fieldcrypt.Codec { return c.codec }

// Metrics returns the repository cache counters.
func (c *Container) Metrics() *repositorycache.Metrics { return c.metrics }

// Repositories returns the per-family repositories.
func (c *Container) Repositories() *household.Repositories { return c.repos }

// Backend returns the tables bound to the container's storage.
func (c *Container) Backend() household.Backend { return c.backend }

// NewCachedRepository creates a cached repository over table that shares the
// container's cache service, registry and metrics.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[*model.Document](container, container.Backend().Documents)
func NewCachedRepository[T model.Entity](container *Container, table store.Table[T]) *repositorycache.CachedRepository[T] {
	return repositorycache.New(table, container.cacheService, container.tokens,
		repositorycache.WithLogger(container.logger),
		repositorycache.WithMetrics(container.metrics),
		repositorycache.WithKeySerializer(container.keySerializer),
	)
}
