package relation

import (
	"context"
	"reflect"
	"strings"

	"github.com/vnykmshr/restflow/pkg/rest/hydrate"
	"github.com/vnykmshr/restflow/pkg/rest/manager"
	"github.com/vnykmshr/restflow/pkg/rest/request"
	"github.com/vnykmshr/restflow/pkg/rest/resource"
	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

var (
	oneToManyType = reflect.TypeOf((*oneToMany)(nil)).Elem()
	manyToOneType = reflect.TypeOf((*manyToOne)(nil)).Elem()
)

// overridesFromOpts builds action overrides from a relation field's tag
// opts, expanding {name} templates against the owner's wire record.
func overridesFromOpts(info hydrate.FieldInfo, record map[string]any) (manager.Overrides, error) {
	ov := manager.Overrides{}
	if len(info.Opts) == 0 {
		return ov, nil
	}
	if uri, ok := info.Opts["uri"]; ok {
		expanded, err := request.ExpandTemplate(uri, record)
		if err != nil {
			return ov, err
		}
		ov.URI = expanded
	}
	if key, ok := info.Opts["key"]; ok {
		ov.Key = key
	}
	for k, v := range info.Opts {
		name, ok := strings.CutPrefix(k, "param:")
		if !ok {
			continue
		}
		expanded, err := request.ExpandTemplate(v, record)
		if err != nil {
			return ov, err
		}
		if ov.Params == nil {
			ov.Params = map[string]string{}
		}
		ov.Params[name] = expanded
	}
	return ov, nil
}

// OneToManySerializer hydrates OneToMany fields. Inline arrays materialize
// through the identity map as the collection is pulled; absent or null keys
// wire a lazy list against the related endpoint. Hydration itself never
// re-enters the manager, which holds its hydration lock while serializers
// run. The manager is supplied through a getter because manager and
// serializers reference each other.
type OneToManySerializer struct {
	manager func() *manager.Manager
}

func NewOneToManySerializer(m func() *manager.Manager) *OneToManySerializer {
	return &OneToManySerializer{manager: m}
}

func (s *OneToManySerializer) CanHydrate(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(oneToManyType)
}

// AlwaysHydrate wires lazy lists even when the API omits the key.
func (s *OneToManySerializer) AlwaysHydrate() bool { return true }

func (s *OneToManySerializer) Hydrate(field reflect.Value, info hydrate.FieldInfo, v hydrate.Value) error {
	rel := field.Addr().Interface().(oneToMany)
	switch raw := v.Raw.(type) {
	case nil:
		record := v.Record
		mgr := s.manager
		typ := rel.targetType()
		rel.setSource(&deferredSource{resolve: func() (stream.Source[resource.Resource], error) {
			ov, err := overridesFromOpts(info, record)
			if err != nil {
				return nil, err
			}
			return mgr().List(typ, ov), nil
		}})
		return nil

	case []any:
		rel.setSource(&recordsSource{
			mgr:     s.manager,
			typ:     rel.targetType(),
			records: raw,
		})
		return nil

	default:
		return &hydrate.TypeError{Expected: "array", Actual: v.Raw}
	}
}

func (s *OneToManySerializer) Dehydrate(field reflect.Value, info hydrate.FieldInfo) (any, error) {
	return nil, hydrate.ErrSkipField
}

// ManyToOneSerializer hydrates ManyToOne fields from an inline object, a
// scalar id, or null. Inline objects materialize on first Get, outside the
// manager's hydration lock.
type ManyToOneSerializer struct {
	manager func() *manager.Manager
}

func NewManyToOneSerializer(m func() *manager.Manager) *ManyToOneSerializer {
	return &ManyToOneSerializer{manager: m}
}

func (s *ManyToOneSerializer) CanHydrate(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(manyToOneType)
}

func (s *ManyToOneSerializer) Hydrate(field reflect.Value, info hydrate.FieldInfo, v hydrate.Value) error {
	rel := field.Addr().Interface().(manyToOne)
	switch raw := v.Raw.(type) {
	case nil:
		rel.reset()
		return nil

	case map[string]any:
		mgr := s.manager
		typ := rel.targetType()
		rel.setFetch(func(context.Context) (resource.Resource, error) {
			return mgr().Materialize(typ, raw)
		})
		return nil

	case float64, int, string:
		ov, err := overridesFromOpts(info, v.Record)
		if err != nil {
			return err
		}
		mgr := s.manager
		typ := rel.targetType()
		id := raw
		rel.setFetch(func(ctx context.Context) (resource.Resource, error) {
			return mgr().Get(ctx, typ, id, ov)
		})
		return nil

	default:
		return &hydrate.TypeError{Expected: "object or id", Actual: v.Raw}
	}
}

func (s *ManyToOneSerializer) Dehydrate(field reflect.Value, info hydrate.FieldInfo) (any, error) {
	return nil, hydrate.ErrSkipField
}

// recordsSource materializes inline records one by one as they are pulled.
type recordsSource struct {
	mgr     func() *manager.Manager
	typ     reflect.Type
	records []any
	idx     int
}

func (s *recordsSource) Next(ctx context.Context) (resource.Resource, bool, error) {
	if s.idx >= len(s.records) {
		return nil, false, nil
	}
	res, err := s.mgr().Materialize(s.typ, s.records[s.idx])
	if err != nil {
		return nil, false, err
	}
	s.idx++
	return res, true, nil
}

func (s *recordsSource) Close() error {
	s.idx = len(s.records)
	return nil
}

var _ stream.Source[resource.Resource] = (*recordsSource)(nil)
