package hydrate

import (
	"math"
	"reflect"
)

// ScalarSerializer handles string, bool, int, int64 and float64 fields.
// JSON numbers arrive as float64; integral values are accepted for int
// fields, fractional values are a TypeError. A nil wire value resets the
// field to its zero value.
type ScalarSerializer struct{}

func (ScalarSerializer) CanHydrate(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool, reflect.Int, reflect.Int64, reflect.Float64:
		return true
	}
	return false
}

func (ScalarSerializer) Hydrate(field reflect.Value, info FieldInfo, v Value) error {
	if v.Raw == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		s, ok := v.Raw.(string)
		if !ok {
			return &TypeError{Expected: "string", Actual: v.Raw}
		}
		field.SetString(s)

	case reflect.Bool:
		b, ok := v.Raw.(bool)
		if !ok {
			return &TypeError{Expected: "bool", Actual: v.Raw}
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int64:
		switch n := v.Raw.(type) {
		case float64:
			if n != math.Trunc(n) {
				return &TypeError{Expected: "integer", Actual: v.Raw}
			}
			field.SetInt(int64(n))
		case int:
			field.SetInt(int64(n))
		case int64:
			field.SetInt(n)
		default:
			return &TypeError{Expected: "integer", Actual: v.Raw}
		}

	case reflect.Float64:
		switch n := v.Raw.(type) {
		case float64:
			field.SetFloat(n)
		case int:
			field.SetFloat(float64(n))
		default:
			return &TypeError{Expected: "number", Actual: v.Raw}
		}
	}
	return nil
}

func (ScalarSerializer) Dehydrate(field reflect.Value, info FieldInfo) (any, error) {
	return field.Interface(), nil
}
