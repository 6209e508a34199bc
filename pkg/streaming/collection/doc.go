// Package collection provides cached, replayable collections backed by
// lazy sources.
//
// A Collection is the bridge between one-shot streaming sources and
// repeated access patterns: it pulls elements from its source on demand,
// caches everything it has seen, and serves iteration, indexing and slicing
// from the cache. The source is consumed at most once.
//
//	coll := collection.FromSource(accounts) // no request yet
//	first, err := coll.Get(ctx, 0)          // pulls one element
//	all, err := coll.ToSlice(ctx)           // drains the rest
//	all, err = coll.ToSlice(ctx)            // served from cache
//
// Stream returns an independent handle that replays the cached prefix and
// then continues pulling the shared source, so several consumers can walk
// the same collection concurrently.
package collection
