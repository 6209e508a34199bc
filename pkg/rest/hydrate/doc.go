// Package hydrate maps wire records onto struct fields and back, driven by
// `rest` struct tags. A Hydrator dispatches each tagged field to the first
// registered Serializer that can handle its type.
//
// Tag format: `rest:"wirekey,readonly,opt=value"`. An empty wire key uses
// the field name; `rest:"-"` skips the field. Readonly fields hydrate but
// never dehydrate, so server-assigned values are not sent back.
//
// ScalarSerializer covers strings, bools, ints and floats;
// TimeSerializer parses time.Time fields, date-only when the field carries
// the layout=date opt. Type mismatches surface as *TypeError with the
// struct and field that rejected the value.
package hydrate
