package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/vnykmshr/restflow/internal/testutil"
	rferrors "github.com/vnykmshr/restflow/pkg/common/errors"
)

// mockHandler returns a handler yielding resp and, when expect is non-nil,
// asserting the request it receives.
func mockHandler(t *testing.T, resp *Response, expect func(*Request)) Handler {
	t.Helper()
	return func(ctx context.Context, req *Request) (*Response, error) {
		if expect != nil {
			expect(req)
		}
		return resp, nil
	}
}

func TestHTTPHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("foo"); got != "x" {
			t.Errorf("query foo = %q, want x", got)
		}
		if got := r.Header.Get("X-Header"); got != "baz" {
			t.Errorf("header = %q, want baz", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["bar"] != "y" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"json": "data"}`))
	}))
	defer srv.Close()

	req := New(http.MethodPost, srv.URL)
	req.Params.Set("foo", "x")
	req.Body = map[string]any{"bar": "y"}
	req.Header.Set("X-Header", "baz")

	resp, err := HTTP(srv.Client())(context.Background(), req)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, http.StatusNotFound)
	testutil.AssertEqual(t, resp.Reason, "Not Found")
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want map", resp.Data)
	}
	testutil.AssertEqual(t, data["json"], any("data"))
}

func TestHTTPHandlerForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if got := r.PostForm.Get("name"); got != "acme" {
			t.Errorf("form name = %q, want acme", got)
		}
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	req := New(http.MethodPost, srv.URL)
	req.Form.Set("name", "acme")

	_, err := HTTP(srv.Client())(context.Background(), req)
	testutil.AssertNoError(t, err)
}

func TestHTTPHandlerEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := HTTP(srv.Client())(context.Background(), New(http.MethodGet, srv.URL))
	testutil.AssertNoError(t, err)
	if resp.Data != nil {
		t.Errorf("data = %v, want nil", resp.Data)
	}
}

func TestCheckStatusOK(t *testing.T) {
	for _, status := range []int{200, 301} {
		resp := &Response{Status: status}
		got, err := CheckStatus(mockHandler(t, resp, nil))(context.Background(), New("GET", ""))
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, resp)
	}
}

func TestCheckStatusNotOK(t *testing.T) {
	for _, status := range []int{404, 500} {
		resp := &Response{Status: status, Reason: http.StatusText(status)}
		_, err := CheckStatus(mockHandler(t, resp, nil))(context.Background(), New("GET", ""))
		testutil.AssertError(t, err)

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("error %v is not *HTTPError", err)
		}
		testutil.AssertEqual(t, httpErr.Status, status)
	}
}

func TestHTTPError404IsNotFound(t *testing.T) {
	err := error(&HTTPError{Status: 404, Reason: "Not Found"})
	if !errors.Is(err, rferrors.ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	err = &HTTPError{Status: 500}
	if errors.Is(err, rferrors.ErrNotFound) {
		t.Error("500 should not match ErrNotFound")
	}
}

func TestInjectParams(t *testing.T) {
	req := New("GET", "")
	req.Params.Set("foo", "x")
	req.Params.Set("bar", "y")

	handler := mockHandler(t, &Response{}, func(r *Request) {
		testutil.AssertEqual(t, r.Params.Get("foo"), "z")
		testutil.AssertEqual(t, r.Params.Get("bar"), "y")
		testutil.AssertEqual(t, r.Params.Get("baz"), "ww")
	})
	_, err := InjectParams(handler, url.Values{"foo": {"z"}, "baz": {"ww"}})(context.Background(), req)
	testutil.AssertNoError(t, err)
}

func TestUnwrap(t *testing.T) {
	req := New("GET", "")
	req.Meta["key"] = "objects"
	objects := []any{map[string]any{"foo": float64(1)}, map[string]any{}}
	orig := &Response{
		Data:  map[string]any{"objects": objects, "page": float64(1)},
		Extra: map[string]any{},
	}

	resp, err := Unwrap(mockHandler(t, orig, nil))(context.Background(), req)
	testutil.AssertNoError(t, err)
	got, ok := resp.Data.([]any)
	if !ok || len(got) != 2 {
		t.Fatalf("data = %v", resp.Data)
	}
	testutil.AssertEqual(t, resp.Extra["page"], any(float64(1)))
}

func TestUnwrapOnMissingKey(t *testing.T) {
	req := New("GET", "")
	req.Meta["key"] = "objects"
	orig := &Response{Data: []any{}, Extra: map[string]any{}}

	resp, err := Unwrap(mockHandler(t, orig, nil))(context.Background(), req)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(resp.Extra), 0)
	if _, ok := resp.Data.([]any); !ok {
		t.Fatalf("data = %T, want passthrough list", resp.Data)
	}
}

func TestRequestClone(t *testing.T) {
	req := New("GET", "http://example.com")
	req.Params.Set("a", "1")
	req.Meta["key"] = "objects"

	c := req.Clone()
	c.Params.Set("a", "2")
	c.Meta["key"] = "other"

	testutil.AssertEqual(t, req.Params.Get("a"), "1")
	testutil.AssertEqual(t, req.Meta["key"], any("objects"))
}

func TestRequester(t *testing.T) {
	for _, action := range []string{"get", "list"} {
		data := map[string]any{"foo": "bar"}
		handler := mockHandler(t, &Response{Data: data}, func(r *Request) {
			testutil.AssertEqual(t, r.Method, http.MethodGet)
			testutil.AssertEqual(t, r.URL, "http://example.com/foo.json")
			testutil.AssertEqual(t, r.Params.Get("bar"), "baz")
			testutil.AssertEqual(t, r.Meta["key"], any("items"))
		})
		requester := NewRequester("http://example.com", handler)

		spec := Spec{URI: "/foo.json", Params: map[string]string{"bar": "baz"}, Key: "items"}
		var result any
		var err error
		if action == "get" {
			result, err = requester.Get(context.Background(), spec)
		} else {
			result, err = requester.List(context.Background(), spec)
		}
		testutil.AssertNoError(t, err)
		got, ok := result.(map[string]any)
		if !ok || got["foo"] != "bar" {
			t.Fatalf("%s result = %v", action, result)
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	got, err := ExpandTemplate("/project/{id}.json", map[string]any{"id": 42})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "/project/42.json")

	_, err = ExpandTemplate("/project/{missing}.json", map[string]any{"id": 42})
	testutil.AssertError(t, err)

	_, err = ExpandTemplate("/project/{id.json", map[string]any{"id": 42})
	testutil.AssertError(t, err)

	got, err = ExpandTemplate("/plain.json", nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "/plain.json")
}

func TestExpandSpec(t *testing.T) {
	spec := Spec{
		URI:    "/project/{id}/tasks.json",
		Params: map[string]string{"owner": "{id}"},
		Key:    "tasks",
	}
	got, err := ExpandSpec(spec, map[string]any{"id": 7})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.URI, "/project/7/tasks.json")
	testutil.AssertEqual(t, got.Params["owner"], "7")
	testutil.AssertEqual(t, got.Key, "tasks")
}
