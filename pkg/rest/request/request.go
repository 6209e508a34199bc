package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	rferrors "github.com/vnykmshr/restflow/pkg/common/errors"
)

// Request is a protocol-level request. Body is JSON-encoded unless Form is
// set, in which case the request is form-encoded.
type Request struct {
	Method string
	URL    string
	Params url.Values
	Body   any
	Form   url.Values
	Header http.Header
	Meta   map[string]any
}

// New creates a request with all maps initialized.
func New(method, rawurl string) *Request {
	return &Request{
		Method: method,
		URL:    rawurl,
		Params: url.Values{},
		Form:   url.Values{},
		Header: http.Header{},
		Meta:   map[string]any{},
	}
}

// Clone copies the request. Maps are copied one level deep; Body is shared.
func (r *Request) Clone() *Request {
	c := &Request{
		Method: r.Method,
		URL:    r.URL,
		Body:   r.Body,
		Params: make(url.Values, len(r.Params)),
		Form:   make(url.Values, len(r.Form)),
		Header: make(http.Header, len(r.Header)),
		Meta:   make(map[string]any, len(r.Meta)),
	}
	for k, vs := range r.Params {
		c.Params[k] = append([]string(nil), vs...)
	}
	for k, vs := range r.Form {
		c.Form[k] = append([]string(nil), vs...)
	}
	for k, vs := range r.Header {
		c.Header[k] = append([]string(nil), vs...)
	}
	for k, v := range r.Meta {
		c.Meta[k] = v
	}
	return c
}

// Response is a decoded protocol-level response. Data holds the decoded
// JSON body; middleware may move envelope siblings into Extra.
type Response struct {
	Status int
	Reason string
	Header http.Header
	Data   any
	Extra  map[string]any
}

// CloneWithoutData copies status, reason and extras but leaves Data nil.
// The header map is shared.
func (r *Response) CloneWithoutData() *Response {
	c := &Response{
		Status: r.Status,
		Reason: r.Reason,
		Header: r.Header,
		Extra:  make(map[string]any, len(r.Extra)),
	}
	for k, v := range r.Extra {
		c.Extra[k] = v
	}
	return c
}

// Handler performs a request. Middleware wraps handlers to form chains.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// HTTPError reports a response with status >= 400. A 404 matches
// errors.ErrNotFound via errors.Is.
type HTTPError struct {
	Status int
	Reason string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http response: %d %s", e.Status, e.Reason)
}

func (e *HTTPError) Is(target error) bool {
	return target == rferrors.ErrNotFound && e.Status == http.StatusNotFound
}

// HTTP returns the terminal handler performing the network call with the
// given client. A nil client uses http.DefaultClient. The response body is
// decoded as JSON; empty bodies leave Data nil. GET requests carry no body.
func HTTP(client *http.Client) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, req *Request) (*Response, error) {
		target := req.URL
		if len(req.Params) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + req.Params.Encode()
		}

		var body io.Reader
		contentType := ""
		switch {
		case len(req.Form) > 0:
			body = strings.NewReader(req.Form.Encode())
			contentType = "application/x-www-form-urlencoded"
		case req.Body != nil && req.Method != http.MethodGet:
			buf, err := json.Marshal(req.Body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(buf)
			contentType = "application/json"
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
		if err != nil {
			return nil, err
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
		if contentType != "" {
			httpReq.Header.Set("Content-Type", contentType)
		}

		httpResp, err := client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		resp := &Response{
			Status: httpResp.StatusCode,
			Reason: http.StatusText(httpResp.StatusCode),
			Header: httpResp.Header,
			Extra:  map[string]any{},
		}
		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &resp.Data); err != nil {
				return nil, fmt.Errorf("decode response body: %w", err)
			}
		}
		return resp, nil
	}
}

// CheckStatus converts responses with status >= 400 into an *HTTPError.
func CheckStatus(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 400 {
			return nil, &HTTPError{Status: resp.Status, Reason: resp.Reason}
		}
		return resp, nil
	}
}

// InjectParams overlays fixed query params onto every request.
func InjectParams(next Handler, params url.Values) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		for k, vs := range params {
			req.Params[k] = append([]string(nil), vs...)
		}
		return next(ctx, req)
	}
}

// Unwrap extracts the payload named by Meta["key"] from an envelope object,
// moving sibling keys into Extra. Responses without the key, or with
// non-object data, pass through unchanged.
func Unwrap(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		key, _ := req.Meta["key"].(string)
		resp, err := next(ctx, req)
		if err != nil || key == "" {
			return resp, err
		}
		obj, ok := resp.Data.(map[string]any)
		if !ok {
			return resp, nil
		}
		inner, ok := obj[key]
		if !ok {
			return resp, nil
		}
		resp.Data = inner
		if resp.Extra == nil {
			resp.Extra = map[string]any{}
		}
		for k, v := range obj {
			if k != key {
				resp.Extra[k] = v
			}
		}
		return resp, nil
	}
}
