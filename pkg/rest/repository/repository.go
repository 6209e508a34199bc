package repository

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	rferrors "github.com/vnykmshr/restflow/pkg/common/errors"
	"github.com/vnykmshr/restflow/pkg/rest/manager"
	"github.com/vnykmshr/restflow/pkg/rest/resource"
	"github.com/vnykmshr/restflow/pkg/scheduling/workerpool"
	"github.com/vnykmshr/restflow/pkg/streaming/collection"
	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

// Repository exposes manager operations for a single resource type R,
// which must be a pointer to struct implementing resource.Resource.
type Repository[R resource.Resource] struct {
	manager *manager.Manager
	pool    *workerpool.Pool
	typ     reflect.Type
}

// New creates a repository. The worker pool is used by GetMany and may be
// nil, in which case fetches run sequentially.
func New[R resource.Resource](m *manager.Manager, pool *workerpool.Pool) *Repository[R] {
	return &Repository[R]{
		manager: m,
		pool:    pool,
		typ:     reflect.TypeOf((*R)(nil)).Elem(),
	}
}

// All returns a lazy collection over the resource's list endpoint.
func (r *Repository[R]) All() *collection.Collection[R] {
	return r.Filter(nil)
}

// Filter returns a lazy collection over the list endpoint with extra query
// params.
func (r *Repository[R]) Filter(params map[string]string) *collection.Collection[R] {
	src := r.manager.List(r.typ, manager.Overrides{Params: params})
	return collection.FromSource[R](&typedSource[R]{src: src})
}

// Get fetches one resource by id.
func (r *Repository[R]) Get(ctx context.Context, id any) (R, error) {
	var zero R
	res, err := r.manager.Get(ctx, r.typ, id, manager.Overrides{})
	if err != nil {
		return zero, err
	}
	v, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("repository: %T is not %s", res, r.typ)
	}
	return v, nil
}

// GetMany fetches several resources, preserving id order in the result.
// With a worker pool the fetches fan out concurrently; the first error
// wins.
func (r *Repository[R]) GetMany(ctx context.Context, ids []any) ([]R, error) {
	out := make([]R, len(ids))
	if r.pool == nil {
		for i, id := range ids {
			v, err := r.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		err := r.pool.SubmitWithContext(ctx, func(ctx context.Context) {
			defer wg.Done()
			out[i], errs[i] = r.Get(ctx, id)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NewResource instantiates a detached resource hydrated from record.
func (r *Repository[R]) NewResource(record map[string]any) (R, error) {
	var zero R
	res, err := r.manager.NewResource(r.typ, record)
	if err != nil {
		return zero, err
	}
	return res.(R), nil
}

// Save persists a resource through the manager. A resource of a different
// dynamic type is a validation error.
func (r *Repository[R]) Save(ctx context.Context, res R) error {
	if reflect.TypeOf(res) != r.typ {
		return rferrors.NewValidationError("repository", "resource",
			fmt.Sprintf("%T", res), "does not belong to this repository")
	}
	return r.manager.Save(ctx, res)
}

// typedSource narrows the manager's untyped list source to R.
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
		return zero, false, fmt.Errorf("repository: %T is not %s", item, reflect.TypeOf((*R)(nil)).Elem())
	}
	return v, true, nil
}

func (s *typedSource[R]) Close() error { return s.src.Close() }
