package request

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Spec names an endpoint relative to the requester's base URL, plus default
// query params and an optional envelope key for Unwrap.
type Spec struct {
	URI    string
	Params map[string]string
	Key    string
}

// ExpandTemplate substitutes {name} placeholders in s with values from
// vars. An unknown placeholder is an error.
func ExpandTemplate(s string, vars map[string]any) (string, error) {
	if !strings.Contains(s, "{") {
		return s, nil
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		closing := strings.IndexByte(s[open:], '}')
		if closing < 0 {
			return "", fmt.Errorf("template: unclosed placeholder in %q", s)
		}
		name := s[open+1 : open+closing]
		val, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("template: unknown variable %q", name)
		}
		b.WriteString(s[:open])
		fmt.Fprintf(&b, "%v", val)
		s = s[open+closing+1:]
	}
}

// ExpandSpec expands templates in the spec's URI and param values.
func ExpandSpec(spec Spec, vars map[string]any) (Spec, error) {
	uri, err := ExpandTemplate(spec.URI, vars)
	if err != nil {
		return Spec{}, err
	}
	out := Spec{URI: uri, Key: spec.Key}
	if len(spec.Params) > 0 {
		out.Params = make(map[string]string, len(spec.Params))
		for k, v := range spec.Params {
			ev, err := ExpandTemplate(v, vars)
			if err != nil {
				return Spec{}, err
			}
			out.Params[k] = ev
		}
	}
	return out, nil
}

// Requester issues requests against a base URL through configurable
// handler chains. Single-object fetches use GetHandler; list fetches use
// ListHandler, which typically adds pagination.
type Requester struct {
	BaseURL     string
	GetHandler  Handler
	ListHandler Handler
}

// NewRequester creates a requester with both chains set to handler.
func NewRequester(baseURL string, handler Handler) *Requester {
	return &Requester{
		BaseURL:     baseURL,
		GetHandler:  handler,
		ListHandler: handler,
	}
}

// Get performs a GET through the get chain and returns the response data.
func (r *Requester) Get(ctx context.Context, spec Spec) (any, error) {
	return r.do(ctx, r.GetHandler, http.MethodGet, spec, nil)
}

// List performs a GET through the list chain and returns the response
// data, typically a slice or a lazy page source.
func (r *Requester) List(ctx context.Context, spec Spec) (any, error) {
	return r.do(ctx, r.ListHandler, http.MethodGet, spec, nil)
}

// Send performs a request with the given method and JSON body through the
// get chain.
func (r *Requester) Send(ctx context.Context, method string, spec Spec, body any) (any, error) {
	return r.do(ctx, r.GetHandler, method, spec, body)
}

func (r *Requester) do(ctx context.Context, h Handler, method string, spec Spec, body any) (any, error) {
	if h == nil {
		return nil, fmt.Errorf("requester: no handler configured")
	}
	req := New(method, r.BaseURL+spec.URI)
	for k, v := range spec.Params {
		req.Params.Set(k, v)
	}
	if spec.Key != "" {
		req.Meta["key"] = spec.Key
	}
	req.Body = body
	resp, err := h(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
