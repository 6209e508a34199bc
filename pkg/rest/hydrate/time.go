package hydrate

import (
	"reflect"
	"time"
)

const (
	defaultDateLayout     = "2006-01-02"
	defaultDateTimeLayout = "2006-01-02T15:04:05Z"
)

var timeType = reflect.TypeOf(time.Time{})

// TimeSerializer handles time.Time fields as formatted strings. Fields
// tagged with the opt layout=date use the date-only layout. Unparseable
// values are a "bad format" TypeError; a nil or zero value maps to nil.
type TimeSerializer struct {
	DateLayout     string // defaults to 2006-01-02
	DateTimeLayout string // defaults to 2006-01-02T15:04:05Z
}

func (s *TimeSerializer) layout(info FieldInfo) string {
	if info.Opts["layout"] == "date" {
		if s.DateLayout != "" {
			return s.DateLayout
		}
		return defaultDateLayout
	}
	if s.DateTimeLayout != "" {
		return s.DateTimeLayout
	}
	return defaultDateTimeLayout
}

func (s *TimeSerializer) CanHydrate(t reflect.Type) bool {
	return t == timeType
}

func (s *TimeSerializer) Hydrate(field reflect.Value, info FieldInfo, v Value) error {
	if v.Raw == nil {
		field.Set(reflect.Zero(timeType))
		return nil
	}
	str, ok := v.Raw.(string)
	if !ok {
		return &TypeError{Expected: "string", Actual: v.Raw}
	}
	parsed, err := time.Parse(s.layout(info), str)
	if err != nil {
		return &TypeError{Msg: "bad format", Expected: "time", Actual: v.Raw}
	}
	field.Set(reflect.ValueOf(parsed))
	return nil
}

func (s *TimeSerializer) Dehydrate(field reflect.Value, info FieldInfo) (any, error) {
	t := field.Interface().(time.Time)
	if t.IsZero() {
		return nil, nil
	}
	return t.Format(s.layout(info)), nil
}
