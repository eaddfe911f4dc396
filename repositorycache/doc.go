// Package repositorycache provides the cache-aside repository used by every
// entity family.
//
// # Overview
//
// A CachedRepository wraps the store.Table of one family. Point reads go
// straight to the store. List views are cached through a cache.CacheService
// under keys of the form
//
//	Family::Family@<generation>[,Dep@<generation>]::Suffix
//
// where the generations come from an invalidation.Registry. Add, Update and
// SoftDelete advance the family's generation after the store accepted the
// write. Readers then build a different key, so the superseded entries are
// never returned again and simply age out of the cache.
//
// # Basic Usage
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	tokens := invalidation.NewRegistry()
//	members := repositorycache.New[*model.Member](table, svc, tokens,
//		repositorycache.WithLogger(logger),
//		repositorycache.WithMetrics(repositorycache.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//
//	all, err := members.List(ctx, "All")
//	byHousehold, err := members.List(ctx,
//		members.Suffix("ByHousehold", householdID),
//		store.Eq("household_id", householdID))
//
// Suffixes must identify every argument of the query; Suffix builds them
// with the configured cache.KeySerializer.
//
// # Dependent Views
//
// A view that joins several families is cached with GetCachedDependent and
// is invalidated by writes to any of them:
//
//	docs, err := documents.GetCachedDependent(ctx,
//		documents.Suffix("ByHousehold", householdID),
//		[]model.Family{model.FamilyMember},
//		loadDocumentsOfHousehold)
//
// # Cache Faults
//
// The cache is never required for a correct answer. When the cache service
// fails, or holds a value of the wrong type, the fault is logged and counted
// and the loader runs directly. Errors returned by the loader itself are
// passed to the caller unchanged.
//
// WithoutCache(ctx) skips the cache for a single read.
package repositorycache
