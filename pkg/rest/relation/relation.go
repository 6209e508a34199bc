package relation

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/vnykmshr/restflow/pkg/rest/resource"
	"github.com/vnykmshr/restflow/pkg/streaming/collection"
	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

// OneToMany links to a set of related resources. The zero value is an
// empty relation.
type OneToMany[R resource.Resource] struct {
	c *collection.Collection[R]
}

// All returns the related collection. Lazily wired relations fetch on
// first access; an unwired relation is empty.
func (r *OneToMany[R]) All() *collection.Collection[R] {
	if r.c == nil {
		r.c = collection.FromSlice[R](nil)
	}
	return r.c
}

// Set replaces the relation with fixed items.
func (r *OneToMany[R]) Set(items []R) {
	r.c = collection.FromSlice(items)
}

// oneToMany lets the serializer manipulate OneToMany fields without their
// type parameter.
type oneToMany interface {
	targetType() reflect.Type
	setSource(src stream.Source[resource.Resource])
}

func (r *OneToMany[R]) targetType() reflect.Type {
	return reflect.TypeOf((*R)(nil)).Elem()
}

func (r *OneToMany[R]) setSource(src stream.Source[resource.Resource]) {
	r.c = collection.FromSource[R](&typedSource[R]{src: src})
}

// typedSource narrows a Source of resource.Resource to the relation's
// concrete type.
type typedSource[R resource.Resource] struct {
	src stream.Source[resource.Resource]
}

func (s *typedSource[R]) Next(ctx context.Context) (R, bool, error) {
	var zero R
	item, ok, err := s.src.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	v, ok := item.(R)
	if !ok {
		return zero, false, fmt.Errorf("relation: %T is not %s", item, reflect.TypeOf((*R)(nil)).Elem())
	}
	return v, true, nil
}

func (s *typedSource[R]) Close() error { return s.src.Close() }

// deferredSource postpones building the underlying source until the first
// pull, so hydration never fails on relations that are never accessed.
type deferredSource struct {
	resolve func() (stream.Source[resource.Resource], error)
	src     stream.Source[resource.Resource]
}

func (s *deferredSource) Next(ctx context.Context) (resource.Resource, bool, error) {
	if s.src == nil {
		src, err := s.resolve()
		if err != nil {
			return nil, false, err
		}
		s.src = src
	}
	return s.src.Next(ctx)
}

func (s *deferredSource) Close() error {
	if s.src != nil {
		return s.src.Close()
	}
	return nil
}

// ManyToOne links to a single related resource. The zero value resolves
// to the zero R.
type ManyToOne[R resource.Resource] struct {
	mu       sync.Mutex
	resolved bool
	value    R
	fetch    func(ctx context.Context) (resource.Resource, error)
}

// Get resolves the related resource. An unwired relation returns the zero
// R. The fetch runs outside the lock because it re-enters the manager;
// concurrent first Gets may both fetch, and both resolve to the
// identity-mapped instance.
func (r *ManyToOne[R]) Get(ctx context.Context) (R, error) {
	r.mu.Lock()
	if r.resolved {
		v := r.value
		r.mu.Unlock()
		return v, nil
	}
	fetch := r.fetch
	r.mu.Unlock()

	var zero R
	if fetch == nil {
		return zero, nil
	}
	res, err := fetch(ctx)
	if err != nil {
		return zero, err
	}
	v, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("relation: %T is not %s", res, r.targetType())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved {
		r.value = v
		r.resolved = true
		r.fetch = nil
	}
	return r.value, nil
}

// Set replaces the relation with a resolved value.
func (r *ManyToOne[R]) Set(v R) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
	r.resolved = true
	r.fetch = nil
}

type manyToOne interface {
	targetType() reflect.Type
	setFetch(f func(ctx context.Context) (resource.Resource, error))
	reset()
}

func (r *ManyToOne[R]) targetType() reflect.Type {
	return reflect.TypeOf((*R)(nil)).Elem()
}

func (r *ManyToOne[R]) setFetch(f func(ctx context.Context) (resource.Resource, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero R
	r.value = zero
	r.resolved = false
	r.fetch = f
}

func (r *ManyToOne[R]) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero R
	r.value = zero
	r.resolved = true
	r.fetch = nil
}
