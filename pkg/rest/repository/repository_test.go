package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vnykmshr/restflow/internal/testutil"
	rferrors "github.com/vnykmshr/restflow/pkg/common/errors"
	"github.com/vnykmshr/restflow/pkg/rest/hydrate"
	"github.com/vnykmshr/restflow/pkg/rest/manager"
	"github.com/vnykmshr/restflow/pkg/rest/request"
	"github.com/vnykmshr/restflow/pkg/rest/resource"
	"github.com/vnykmshr/restflow/pkg/scheduling/workerpool"
)

type project struct {
	ID   int    `rest:"id,readonly"`
	Name string `rest:"name"`
}

func (p *project) RestMeta() resource.Meta {
	return resource.Meta{
		Get:    resource.Action{URI: "/project/{id}.json"},
		List:   resource.Action{URI: "/projects.json"},
		Create: resource.Action{URI: "/projects.json"},
		Update: resource.Action{URI: "/project/{id}.json"},
	}
}

func newRepo(handler request.Handler, pool *workerpool.Pool) *Repository[*project] {
	h := hydrate.NewHydrator(hydrate.ScalarSerializer{}, &hydrate.TimeSerializer{})
	mgr := manager.New(request.NewRequester("", handler), h)
	return New[*project](mgr, pool)
}

func projectByURL(url string) (*request.Response, error) {
	// URLs look like /project/<id>.json
	idStr := strings.TrimSuffix(strings.TrimPrefix(url, "/project/"), ".json")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("bad url %s", url)
	}
	return &request.Response{Status: 200, Data: map[string]any{
		"id":   float64(id),
		"name": fmt.Sprintf("p%d", id),
	}}, nil
}

func TestAll(t *testing.T) {
	handler := func(ctx context.Context, req *request.Request) (*request.Response, error) {
		testutil.AssertEqual(t, req.URL, "/projects.json")
		return &request.Response{Status: 200, Data: []any{
			map[string]any{"id": float64(1), "name": "a"},
			map[string]any{"id": float64(2), "name": "b"},
		}}, nil
	}
	repo := newRepo(handler, nil)

	items, err := repo.All().ToSlice(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(items), 2)
	testutil.AssertEqual(t, items[1].Name, "b")
}

func TestFilterPassesParams(t *testing.T) {
	handler := func(ctx context.Context, req *request.Request) (*request.Response, error) {
		testutil.AssertEqual(t, req.Params.Get("status"), "open")
		return &request.Response{Status: 200, Data: []any{}}, nil
	}
	repo := newRepo(handler, nil)

	items, err := repo.Filter(map[string]string{"status": "open"}).ToSlice(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(items), 0)
}

func TestGet(t *testing.T) {
	repo := newRepo(func(ctx context.Context, req *request.Request) (*request.Response, error) {
		return projectByURL(req.URL)
	}, nil)

	p, err := repo.Get(context.Background(), 3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, p.ID, 3)
	testutil.AssertEqual(t, p.Name, "p3")
}

func TestGetManySequential(t *testing.T) {
	repo := newRepo(func(ctx context.Context, req *request.Request) (*request.Response, error) {
		return projectByURL(req.URL)
	}, nil)

	got, err := repo.GetMany(context.Background(), []any{3, 1, 2})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(got), 3)
	testutil.AssertEqual(t, got[0].ID, 3)
	testutil.AssertEqual(t, got[1].ID, 1)
	testutil.AssertEqual(t, got[2].ID, 2)
}

func TestGetManyPooled(t *testing.T) {
	pool, err := workerpool.New(4, 16)
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	var calls atomic.Int64
	repo := newRepo(func(ctx context.Context, req *request.Request) (*request.Response, error) {
		calls.Add(1)
		return projectByURL(req.URL)
	}, pool)

	ids := make([]any, 20)
	for i := range ids {
		ids[i] = i + 1
	}
	got, err := repo.GetMany(context.Background(), ids)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(got), 20)
	testutil.AssertEqual(t, calls.Load(), int64(20))
	for i, p := range got {
		testutil.AssertEqual(t, p.ID, i+1)
	}
}

func TestGetManyDuplicateIDs(t *testing.T) {
	pool, err := workerpool.New(4, 16)
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	// Duplicate ids hit the same identity-mapped instance from several
	// workers at once.
	repo := newRepo(func(ctx context.Context, req *request.Request) (*request.Response, error) {
		return projectByURL(req.URL)
	}, pool)

	got, err := repo.GetMany(context.Background(), []any{1, 1, 1, 1})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(got), 4)
	for _, p := range got {
		if p != got[0] {
			t.Fatal("duplicate ids should resolve to one instance")
		}
	}
	testutil.AssertEqual(t, got[0].Name, "p1")
}

func TestGetManyFirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	repo := newRepo(func(ctx context.Context, req *request.Request) (*request.Response, error) {
		if strings.Contains(req.URL, "/2.") {
			return nil, boom
		}
		return projectByURL(req.URL)
	}, nil)

	_, err := repo.GetMany(context.Background(), []any{1, 2, 3})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestNewResourceAndSave(t *testing.T) {
	var method string
	repo := newRepo(func(ctx context.Context, req *request.Request) (*request.Response, error) {
		method = req.Method
		return &request.Response{Status: 200, Data: map[string]any{"id": float64(42)}}, nil
	}, nil)

	p, err := repo.NewResource(map[string]any{"name": "draft"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, p.Name, "draft")

	testutil.AssertNoError(t, repo.Save(context.Background(), p))
	testutil.AssertEqual(t, method, "POST")
	testutil.AssertEqual(t, p.ID, 42)
}

func TestSaveValidatesType(t *testing.T) {
	// A repository typed to the interface rejects foreign resources.
	h := hydrate.NewHydrator(hydrate.ScalarSerializer{})
	mgr := manager.New(request.NewRequester("", nil), h)
	generic := New[resource.Resource](mgr, nil)
	err := generic.Save(context.Background(), &project{ID: 1})
	if !errors.Is(err, rferrors.ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
