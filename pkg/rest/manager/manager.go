package manager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"sync"

	"github.com/vnykmshr/restflow/pkg/metrics"
	"github.com/vnykmshr/restflow/pkg/rest/hydrate"
	"github.com/vnykmshr/restflow/pkg/rest/request"
	"github.com/vnykmshr/restflow/pkg/rest/resource"
	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

var (
	// ErrNotRecord reports a payload that should have been a JSON object.
	ErrNotRecord = errors.New("manager: expected a JSON object")
	// ErrNotList reports a list payload that is not a JSON array.
	ErrNotList = errors.New("manager: expected a JSON array")
	// ErrNotResource reports a type that does not implement
	// resource.Resource on its pointer.
	ErrNotResource = errors.New("manager: type does not implement resource.Resource")
)

// Overrides adjust a resource action for one call.
type Overrides struct {
	URI    string
	Params map[string]string
	Key    string
}

func (o Overrides) action() resource.Action {
	return resource.Action{URI: o.URI, Params: o.Params, Key: o.Key}
}

// Manager coordinates the requester, the hydrator and the identity map.
type Manager struct {
	requester *request.Requester
	hydrator  *hydrate.Hydrator
	metrics   *metrics.Registry

	mu       sync.Mutex
	identity map[reflect.Type]map[string]resource.Resource

	// hmu serializes hydration and dehydration of identity-mapped
	// instances: the same instance may be handed to concurrent callers.
	hmu sync.Mutex
}

// New creates a manager on top of a requester and hydrator.
func New(req *request.Requester, h *hydrate.Hydrator) *Manager {
	return &Manager{
		requester: req,
		hydrator:  h,
		identity:  map[reflect.Type]map[string]resource.Resource{},
	}
}

// Hydrator returns the hydrator resources are loaded through.
func (m *Manager) Hydrator() *hydrate.Hydrator { return m.hydrator }

// SetMetrics enables identity map size gauges on the given registry.
func (m *Manager) SetMetrics(reg *metrics.Registry) { m.metrics = reg }

// trackSize is called with m.mu held.
func (m *Manager) trackSize(typ reflect.Type) {
	m.metrics.SetIdentityMapSize(typ.Name(), len(m.identity[typ]))
}

func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

func metaOf(t reflect.Type) (resource.Meta, error) {
	inst, ok := reflect.New(t).Interface().(resource.Resource)
	if !ok {
		return resource.Meta{}, fmt.Errorf("%w: %s", ErrNotResource, t)
	}
	return inst.RestMeta(), nil
}

// normalizeID folds the JSON and Go spellings of the same identifier onto
// one map key: float64(42), int(42) and "42" from different code paths
// must all find the same instance.
func normalizeID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isUnsetID(id any) bool {
	switch v := id.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	return reflect.ValueOf(id).IsZero()
}

// Get fetches one resource by id, expanding the {id} placeholder in the
// action URI. The same id always returns the same instance.
func (m *Manager) Get(ctx context.Context, typ reflect.Type, id any, ov Overrides) (resource.Resource, error) {
	typ = structType(typ)
	meta, err := metaOf(typ)
	if err != nil {
		return nil, err
	}
	action := meta.Get.Merge(ov.action())
	spec, err := request.ExpandSpec(
		request.Spec{URI: action.URI, Params: action.Params, Key: action.Key},
		map[string]any{meta.ID(): id},
	)
	if err != nil {
		return nil, err
	}
	data, err := m.requester.Get(ctx, spec)
	if err != nil {
		return nil, err
	}
	return m.Materialize(typ, data)
}

// List returns a lazy source over a list endpoint. The request happens on
// the first Next call; each record is materialized through the identity
// map. A payload that is neither a JSON array nor a page source is an
// error.
func (m *Manager) List(typ reflect.Type, ov Overrides) stream.Source[resource.Resource] {
	return &listSource{m: m, typ: structType(typ), ov: ov}
}

type listSource struct {
	m   *Manager
	typ reflect.Type
	ov  Overrides

	// src is assigned only once the list request has succeeded, so a
	// failed first pull can be retried.
	src  stream.Source[any]
	done bool
}

func (s *listSource) Next(ctx context.Context) (resource.Resource, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if s.src == nil {
		meta, err := metaOf(s.typ)
		if err != nil {
			return nil, false, err
		}
		action := meta.List.Merge(s.ov.action())
		data, err := s.m.requester.List(ctx, request.Spec{
			URI:    action.URI,
			Params: action.Params,
			Key:    action.Key,
		})
		if err != nil {
			return nil, false, err
		}
		switch d := data.(type) {
		case []any:
			s.src = stream.FromSlice(d)
		case stream.Source[any]:
			s.src = d
		default:
			return nil, false, fmt.Errorf("%w, got %T", ErrNotList, data)
		}
	}

	item, ok, err := s.src.Next(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.done = true
		return nil, false, nil
	}
	res, err := s.m.Materialize(s.typ, item)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (s *listSource) Close() error {
	s.done = true
	if s.src != nil {
		return s.src.Close()
	}
	return nil
}

// Materialize turns a wire record into a resource instance, reusing the
// identity-mapped instance when the record carries a known id.
func (m *Manager) Materialize(typ reflect.Type, record any) (resource.Resource, error) {
	typ = structType(typ)
	rec, ok := record.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrNotRecord, record)
	}
	meta, err := metaOf(typ)
	if err != nil {
		return nil, err
	}
	key := normalizeID(rec[meta.ID()])

	m.mu.Lock()
	bucket := m.identity[typ]
	if bucket == nil {
		bucket = map[string]resource.Resource{}
		m.identity[typ] = bucket
	}
	var res resource.Resource
	if key != "" {
		res = bucket[key]
	}
	if res == nil {
		res = reflect.New(typ).Interface().(resource.Resource)
		if key != "" {
			bucket[key] = res
			m.trackSize(typ)
		}
	}
	m.mu.Unlock()

	m.hmu.Lock()
	err = m.hydrator.Hydrate(res, rec, false)
	m.hmu.Unlock()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// NewResource instantiates a detached resource hydrated from record. All
// fields absent from the record are reset.
func (m *Manager) NewResource(typ reflect.Type, record map[string]any) (resource.Resource, error) {
	typ = structType(typ)
	if _, err := metaOf(typ); err != nil {
		return nil, err
	}
	if record == nil {
		record = map[string]any{}
	}
	res := reflect.New(typ).Interface().(resource.Resource)
	if err := m.hydrator.Hydrate(res, record, true); err != nil {
		return nil, err
	}
	return res, nil
}

// Save persists a resource: POST to the create action when the id is
// unset, PUT to the update action otherwise. A record in the response
// re-hydrates the resource, and newly assigned ids join the identity map.
func (m *Manager) Save(ctx context.Context, res resource.Resource) error {
	typ := structType(reflect.TypeOf(res))
	meta := res.RestMeta()

	m.hmu.Lock()
	record, err := m.hydrator.Dehydrate(res)
	m.hmu.Unlock()
	if err != nil {
		return err
	}
	id, _ := hydrate.FieldValue(res, meta.ID())

	var action resource.Action
	var method string
	if isUnsetID(id) {
		action, method = meta.Create, http.MethodPost
	} else {
		action, method = meta.Update, http.MethodPut
	}
	if action.URI == "" {
		return fmt.Errorf("manager: %s has no %s action", typ, method)
	}

	spec, err := request.ExpandSpec(
		request.Spec{URI: action.URI, Params: action.Params, Key: action.Key},
		map[string]any{meta.ID(): id},
	)
	if err != nil {
		return err
	}
	data, err := m.requester.Send(ctx, method, spec, record)
	if err != nil {
		return err
	}

	if rec, ok := data.(map[string]any); ok {
		m.hmu.Lock()
		err = m.hydrator.Hydrate(res, rec, false)
		m.hmu.Unlock()
		if err != nil {
			return err
		}
		newID, _ := hydrate.FieldValue(res, meta.ID())
		if key := normalizeID(newID); key != "" {
			m.mu.Lock()
			bucket := m.identity[typ]
			if bucket == nil {
				bucket = map[string]resource.Resource{}
				m.identity[typ] = bucket
			}
			bucket[key] = res
			m.trackSize(typ)
			m.mu.Unlock()
		}
	}
	return nil
}

// Detach removes a resource from the identity map. The next fetch of the
// same id materializes a fresh instance.
func (m *Manager) Detach(res resource.Resource) {
	typ := structType(reflect.TypeOf(res))
	id, _ := hydrate.FieldValue(res, res.RestMeta().ID())
	key := normalizeID(id)
	if key == "" {
		return
	}
	m.mu.Lock()
	if bucket := m.identity[typ]; bucket != nil {
		delete(bucket, key)
		m.trackSize(typ)
	}
	m.mu.Unlock()
}

// Clear empties the identity map for all types.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.identity = map[reflect.Type]map[string]resource.Resource{}
	m.mu.Unlock()
}
