package repositorycache

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/goliatone/go-household-store/cache"
	"github.com/goliatone/go-household-store/invalidation"
	"github.com/goliatone/go-household-store/model"
	"github.com/goliatone/go-household-store/store"
)

var tracer = otel.Tracer("repositorycache")

// Loader reads the current rows of a view from the store. It must leave out
// soft-deleted rows.
type Loader[T model.Entity] func(ctx context.Context) ([]T, error)

// loaderError marks errors returned by a Loader so they can be told apart
// from faults of the cache itself.
type loaderError struct {
	err error
}

func (e *loaderError) Error() string { return e.err.Error() }
func (e *loaderError) Unwrap() error { return e.err }

// CachedRepository gives cache-aside reads and invalidating writes over the
// table of one family.
//
// Cached views are keyed by family, query suffix and the generations of the
// families they depend on. Every successful write supersedes the family's
// generation, so later reads compute new keys and never see the old entries.
type CachedRepository[T model.Entity] struct {
	family model.Family
	table  store.Table[T]
	cache  cache.CacheService
	tokens *invalidation.Registry

	logger *slog.Logger
	keys   cache.KeySerializer
	now    func() time.Time
	metric *Metrics
}

// New creates a CachedRepository for the family of T.
func New[T model.Entity](table store.Table[T], cacheService cache.CacheService, tokens *invalidation.Registry, opts ...Option) *CachedRepository[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &CachedRepository[T]{
		family: model.New[T]().Family(),
		table:  table,
		cache:  cacheService,
		tokens: tokens,
		logger: o.logger,
		keys:   o.keys,
		now:    o.now,
		metric: o.metric,
	}
}

// Family returns the family the repository is bound to.
func (c *CachedRepository[T]) Family() model.Family { return c.family }

// Suffix builds a query suffix from a method name and its arguments.
func (c *CachedRepository[T]) Suffix(method string, args ...any) string {
	return c.keys.SerializeKey(method, args...)
}

// Now returns the repository clock.
func (c *CachedRepository[T]) Now() time.Time { return c.now() }

// GetByID reads the live row with id straight from the store.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	ctx, span := tracer.Start(ctx, "RepositoryCache.GetByID")
	defer span.End()
	span.SetAttributes(attribute.String("family", c.family.String()))

	record, err := c.table.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		var zero T
		return zero, err
	}
	return record, nil
}

// GetCached returns the view named by suffix, loading it on a miss.
func (c *CachedRepository[T]) GetCached(ctx context.Context, suffix string, loader Loader[T]) ([]T, error) {
	return c.GetCachedDependent(ctx, suffix, nil, loader)
}

// GetCachedDependent is GetCached for views that also read other families,
// e.g. documents of every member of a household. The entry is bound to the
// generation of each family in deps as well as the repository's own.
func (c *CachedRepository[T]) GetCachedDependent(ctx context.Context, suffix string, deps []model.Family, loader Loader[T]) ([]T, error) {
	ctx, span := tracer.Start(ctx, "RepositoryCache.GetCached")
	defer span.End()
	span.SetAttributes(attribute.String("family", c.family.String()), attribute.String("suffix", suffix))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cacheBypassed(ctx) {
		records, err := loader(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		return records, nil
	}

	key := cache.NewKey(c.family.String(), suffix, c.snapshot(deps)...).String()

	loaded := false
	records, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]T, error) {
		loaded = true
		records, err := loader(ctx)
		if err != nil {
			return nil, &loaderError{err: err}
		}
		if records == nil {
			records = []T{}
		}
		return records, nil
	})

	var lerr *loaderError
	switch {
	case err == nil:
		if loaded {
			c.metric.miss(c.family.String())
		} else {
			c.metric.hit(c.family.String())
		}
		return model.CloneAll(records), nil
	case errors.As(err, &lerr):
		span.RecordError(lerr.err)
		return nil, lerr.err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	c.logger.WarnContext(ctx, "cache fault, loading from store",
		"family", c.family, "key", key, "error", err)
	c.metric.fallback(c.family.String())
	span.RecordError(err)
	if errors.Is(err, cache.ErrInvalidResultType) {
		_ = c.cache.Delete(ctx, key)
	}

	records, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// List returns the live rows matching filters, cached under suffix. The
// suffix must identify the filter values.
func (c *CachedRepository[T]) List(ctx context.Context, suffix string, filters ...store.Filter) ([]T, error) {
	return c.GetCached(ctx, suffix, func(ctx context.Context) ([]T, error) {
		return c.table.Find(ctx, filters...)
	})
}

// Add validates and persists a new record on behalf of actor. A missing id
// is generated. The record passed in is not modified.
func (c *CachedRepository[T]) Add(ctx context.Context, record T, actor string) (T, error) {
	ctx, span := tracer.Start(ctx, "RepositoryCache.Add")
	defer span.End()
	span.SetAttributes(attribute.String("family", c.family.String()))

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	record = model.Clone(record)
	record.GetBase().StampCreated(actor, c.now())
	if err := record.Validate(); err != nil {
		return zero, store.ValidationFailure(c.family, err)
	}

	created, err := c.table.Insert(ctx, record)
	if err != nil {
		span.RecordError(err)
		return zero, err
	}

	c.invalidate()
	return created, nil
}

// Update overwrites the live record with the same id. Creation stamps are
// kept from the stored row. It returns a NotFound error when no live row
// exists.
func (c *CachedRepository[T]) Update(ctx context.Context, record T, actor string) (T, error) {
	ctx, span := tracer.Start(ctx, "RepositoryCache.Update")
	defer span.End()
	span.SetAttributes(attribute.String("family", c.family.String()))

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	existing, err := c.table.FindByID(ctx, record.GetBase().ID)
	if err != nil {
		span.RecordError(err)
		return zero, err
	}

	record = model.Clone(record)
	base := record.GetBase()
	base.CreatedAt = existing.GetBase().CreatedAt
	base.CreatedBy = existing.GetBase().CreatedBy
	base.IsDeleted = false
	base.StampUpdated(actor, c.now())

	if err := record.Validate(); err != nil {
		return zero, store.ValidationFailure(c.family, err)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	updated, err := c.table.Update(ctx, record)
	if err != nil {
		span.RecordError(err)
		return zero, err
	}

	c.invalidate()
	return updated, nil
}

// SoftDelete flags the live record id as deleted. It returns a NotFound
// error when the record is missing or already deleted.
func (c *CachedRepository[T]) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	ctx, span := tracer.Start(ctx, "RepositoryCache.SoftDelete")
	defer span.End()
	span.SetAttributes(attribute.String("family", c.family.String()))

	if err := ctx.Err(); err != nil {
		return err
	}

	existing, err := c.table.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	existing.GetBase().IsDeleted = true
	existing.GetBase().StampUpdated(actor, c.now())
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.table.Update(ctx, existing); err != nil {
		span.RecordError(err)
		return err
	}

	c.invalidate()
	return nil
}

// Invalidate supersedes the generation of the repository's family, e.g.
// after a write made through another path.
func (c *CachedRepository[T]) Invalidate() {
	c.invalidate()
}

func (c *CachedRepository[T]) invalidate() {
	c.tokens.Invalidate(c.family.String())
	c.metric.Invalidated(c.family.String())
}

// snapshot returns the live tokens of the family followed by deps, without
// duplicates.
func (c *CachedRepository[T]) snapshot(deps []model.Family) []invalidation.Token {
	families := make([]string, 0, len(deps)+1)
	families = append(families, c.family.String())
	for _, d := range deps {
		if !slices.Contains(families, d.String()) {
			families = append(families, d.String())
		}
	}
	return c.tokens.Snapshot(families...)
}
