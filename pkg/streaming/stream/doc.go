// Package stream provides lazy, pull-based streams with functional
// operations.
//
// A Stream wraps a Source and defers all work until a terminal operation
// runs. Intermediate operations (Filter, Map, Peek, Skip, Limit) stack
// without consuming elements; terminal operations (ForEach, ToSlice, First,
// Count) pull elements through the chain one at a time and close the stream
// when they finish.
//
//	evens, err := stream.FromSlice([]int{1, 2, 3, 4, 5, 6}).
//		Filter(func(x int) bool { return x%2 == 0 }).
//		Limit(2).
//		ToSlice(ctx)
//
// Streams are themselves Sources, so they can feed collections
// (pkg/streaming/collection) or other streams. Use Transform for
// type-changing maps:
//
//	names := stream.Transform(accounts, func(a *Account) string { return a.Name })
//
// All terminal operations honor context cancellation and return the
// context's error when interrupted. Operating on a closed stream returns
// ErrStreamClosed.
package stream
