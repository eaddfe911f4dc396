// Package cache defines the read-through cache contract used by the household
// repositories and the keys cached views are stored under.
//
// # Keys
//
// A Key names a cached view by entity family and query suffix and binds it to
// the invalidation tokens that were live when the view was computed:
//
//	tok := registry.Current("Document")
//	key := cache.NewKey("Document", serializer.SerializeKey("ByMember", memberID), tok)
//	// key.String() == "Document::Document@3::ByMember::<uuid>"
//
// Writes never delete cache entries. They advance the family generation, after
// which the old key is simply never asked for again. Views that read more than
// one family carry one token per family and go stale when any of them moves.
//
// # Query suffixes
//
// The default KeySerializer renders arguments deterministically: identifiers
// and timestamps through String(), slices and arrays element by element, maps
// with sorted keys, structs by exported field. Suffixes longer than
// MaxSuffixLength keep the method name and hash the rest with xxhash.
//
// Parametrised queries must always pass their arguments to SerializeKey. A
// constant suffix for "by owner" style queries would let one owner's cached
// list answer for another.
//
// # Backends
//
// NewCacheService builds the backend selected by Config.Backend: sturdyc
// (default), go-cache (absolute plus sliding expiry) or none. The cache is an
// optimisation only; repositories fall back to the store when it misbehaves.
package cache
