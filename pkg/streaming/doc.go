/*
Package streaming provides lazy, pull-based sequence primitives.

Two packages build on each other:

  - stream: single-pass pipelines over a Source (Filter, Map, Limit, ...)
  - collection: a caching, re-entrant view over a source, readable many
    times and from several handles while consuming the source only once

Streams are for one-shot traversal:

	total, err := stream.FromSlice(nums).
		Filter(func(v int) bool { return v > 0 }).
		Count(ctx)

Collections are for repeated, indexed or shared access:

	coll := collection.FromSource(src)
	first, err := coll.Get(ctx, 0)
	all, err := coll.ToSlice(ctx) // cached after the first drain

All operations take a context and stop early when it is canceled.
*/
package streaming
