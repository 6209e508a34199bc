package resource

// Action describes how to reach one endpoint for a resource: a URI template
// ({name} placeholders), default query params, and an optional envelope key
// naming where the payload sits in the response body.
type Action struct {
	URI    string
	Params map[string]string
	Key    string
}

// Merge returns a copy of a with non-zero fields of o applied on top.
func (a Action) Merge(o Action) Action {
	if o.URI != "" {
		a.URI = o.URI
	}
	if o.Key != "" {
		a.Key = o.Key
	}
	if len(o.Params) > 0 {
		merged := make(map[string]string, len(a.Params)+len(o.Params))
		for k, v := range a.Params {
			merged[k] = v
		}
		for k, v := range o.Params {
			merged[k] = v
		}
		a.Params = merged
	}
	return a
}

// Meta declares how a resource type maps onto the remote API.
type Meta struct {
	// IDField is the wire key of the identifier field. Empty means "id".
	IDField string

	Get    Action
	List   Action
	Create Action
	Update Action
}

// ID returns the identifier wire key, defaulting to "id".
func (m Meta) ID() string {
	if m.IDField == "" {
		return "id"
	}
	return m.IDField
}

// Resource is implemented by pointer types that can be fetched and saved
// through a manager.
type Resource interface {
	RestMeta() Meta
}
