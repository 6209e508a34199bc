package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ErrSkipField may be returned from Serializer.Dehydrate to omit the field
// from the dehydrated record.
var ErrSkipField = errors.New("hydrate: skip field")

// FieldInfo describes one tagged struct field.
type FieldInfo struct {
	Name     string
	Key      string
	ReadOnly bool
	Opts     map[string]string
	Index    []int
	Type     reflect.Type
}

// Value carries the raw wire value for a field together with the whole
// record and the resource being hydrated, so serializers for related
// resources can see their surroundings.
type Value struct {
	Raw    any
	Record map[string]any
	Owner  any
}

// Serializer converts between one field's wire form and its Go value.
type Serializer interface {
	CanHydrate(t reflect.Type) bool
	Hydrate(field reflect.Value, info FieldInfo, v Value) error
	Dehydrate(field reflect.Value, info FieldInfo) (any, error)
}

// AlwaysHydrater marks serializers that want to see their fields even when
// the wire key is absent from the record. Relation serializers use this to
// wire lazy fetches for keys the API never sends inline.
type AlwaysHydrater interface {
	AlwaysHydrate() bool
}

// TypeError reports a wire value that does not fit the target field.
type TypeError struct {
	Expected string
	Actual   any
	Struct   string
	Field    string
	Msg      string // "wrong type" when empty
}

func (e *TypeError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "wrong type"
	}
	loc := ""
	if e.Struct != "" && e.Field != "" {
		loc = fmt.Sprintf(" for %s.%s", e.Struct, e.Field)
	}
	return fmt.Sprintf("%s%s: expected %s, got %.50v", msg, loc, e.Expected, e.Actual)
}

var fieldCache sync.Map // reflect.Type -> []FieldInfo

// Fields returns the tagged fields of a struct type. Pointer types are
// dereferenced. Results are cached per type.
func Fields(t reflect.Type) []FieldInfo {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]FieldInfo)
	}

	var fields []FieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		info, ok := parseTag(sf)
		if !ok {
			continue
		}
		fields = append(fields, info)
	}
	fieldCache.Store(t, fields)
	return fields
}

func parseTag(sf reflect.StructField) (FieldInfo, bool) {
	tag := sf.Tag.Get("rest")
	if tag == "-" {
		return FieldInfo{}, false
	}
	parts := strings.Split(tag, ",")
	info := FieldInfo{
		Name:  sf.Name,
		Key:   parts[0],
		Index: sf.Index,
		Type:  sf.Type,
	}
	if info.Key == "" {
		info.Key = sf.Name
	}
	for _, opt := range parts[1:] {
		if opt == "readonly" {
			info.ReadOnly = true
			continue
		}
		if k, v, ok := strings.Cut(opt, "="); ok {
			if info.Opts == nil {
				info.Opts = map[string]string{}
			}
			info.Opts[k] = v
		}
	}
	return info, true
}

// FieldValue reads the current value of the field mapped to the given wire
// key. The second return is false when no tagged field uses that key.
func FieldValue(res any, key string) (any, bool) {
	rv := reflect.ValueOf(res)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, false
	}
	for _, info := range Fields(rv.Type()) {
		if info.Key == key {
			return rv.Elem().FieldByIndex(info.Index).Interface(), true
		}
	}
	return nil, false
}

type binding struct {
	info FieldInfo
	ser  Serializer
}

// Hydrator dispatches tagged fields to an ordered serializer registry.
// Fields no serializer claims are ignored.
type Hydrator struct {
	mu          sync.Mutex
	serializers []Serializer
	bindings    map[reflect.Type][]binding
}

// NewHydrator creates a hydrator with the given serializers, tried in
// order.
func NewHydrator(serializers ...Serializer) *Hydrator {
	return &Hydrator{
		serializers: serializers,
		bindings:    map[reflect.Type][]binding{},
	}
}

// AddSerializer appends a serializer. Serializers registered earlier take
// precedence for types they both claim.
func (h *Hydrator) AddSerializer(s Serializer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.serializers = append(h.serializers, s)
	h.bindings = map[reflect.Type][]binding{}
}

func (h *Hydrator) bindingsFor(t reflect.Type) []binding {
	h.mu.Lock()
	defer h.mu.Unlock()
	if bs, ok := h.bindings[t]; ok {
		return bs
	}
	var bs []binding
	for _, info := range Fields(t) {
		for _, s := range h.serializers {
			if s.CanHydrate(info.Type) {
				bs = append(bs, binding{info: info, ser: s})
				break
			}
		}
	}
	h.bindings[t] = bs
	return bs
}

func structValue(res any) (reflect.Value, error) {
	rv := reflect.ValueOf(res)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("hydrate: expected pointer to struct, got %T", res)
	}
	return rv, nil
}

// Hydrate loads record values into res, a pointer to struct. Only keys
// present in the record are touched unless clear is set, in which case
// absent keys reset their fields.
func (h *Hydrator) Hydrate(res any, record map[string]any, clear bool) error {
	rv, err := structValue(res)
	if err != nil {
		return err
	}
	elem := rv.Elem()
	for _, b := range h.bindingsFor(elem.Type()) {
		raw, present := record[b.info.Key]
		if !present && !clear {
			aw, ok := b.ser.(AlwaysHydrater)
			if !ok || !aw.AlwaysHydrate() {
				continue
			}
		}
		field := elem.FieldByIndex(b.info.Index)
		err := b.ser.Hydrate(field, b.info, Value{Raw: raw, Record: record, Owner: res})
		if err != nil {
			var te *TypeError
			if errors.As(err, &te) && te.Struct == "" {
				te.Struct = elem.Type().Name()
				te.Field = b.info.Name
			}
			return err
		}
	}
	return nil
}

// Dehydrate collects res's writable fields into a wire record. Readonly
// fields are skipped, as are fields whose serializer returns ErrSkipField.
func (h *Hydrator) Dehydrate(res any) (map[string]any, error) {
	rv, err := structValue(res)
	if err != nil {
		return nil, err
	}
	elem := rv.Elem()
	record := map[string]any{}
	for _, b := range h.bindingsFor(elem.Type()) {
		if b.info.ReadOnly {
			continue
		}
		field := elem.FieldByIndex(b.info.Index)
		val, err := b.ser.Dehydrate(field, b.info)
		if errors.Is(err, ErrSkipField) {
			continue
		}
		if err != nil {
			var te *TypeError
			if errors.As(err, &te) && te.Struct == "" {
				te.Struct = elem.Type().Name()
				te.Field = b.info.Name
			}
			return nil, err
		}
		record[b.info.Key] = val
	}
	return record, nil
}
