package request

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

// ErrPageNotList reports a paginated response whose page body is not a
// JSON array.
var ErrPageNotList = errors.New("request: page is not a list")

// Pager drives pagination. First prepares the initial request; Next builds
// the following one from a copy of the previously sent request and its
// response, or returns nil to stop.
type Pager interface {
	First(req *Request) *Request
	Next(req *Request, last *Response) *Request
}

// Paginate fetches the first page eagerly and exposes the remaining pages
// through a lazy stream.Source[any] in Response.Data. Any page that is not
// a JSON array is an error.
func Paginate(next Handler, pager Pager) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		first := pager.First(req.Clone())
		resp, err := next(ctx, first)
		if err != nil {
			return nil, err
		}
		items, ok := resp.Data.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrPageNotList, resp.Data)
		}
		combined := resp.CloneWithoutData()
		combined.Data = &pageSource{
			next:  next,
			pager: pager,
			req:   first,
			resp:  resp,
			items: items,
		}
		return combined, nil
	}
}

// pageSource walks pages on demand. The current page's items are yielded
// before the pager is asked for the next request.
type pageSource struct {
	next  Handler
	pager Pager
	req   *Request
	resp  *Response
	items []any
	idx   int
	done  bool
}

var _ stream.Source[any] = (*pageSource)(nil)

func (s *pageSource) Next(ctx context.Context) (any, bool, error) {
	if s.done {
		return nil, false, nil
	}
	for s.idx >= len(s.items) {
		nextReq := s.pager.Next(s.req.Clone(), s.resp)
		if nextReq == nil {
			s.done = true
			return nil, false, nil
		}
		resp, err := s.next(ctx, nextReq)
		if err != nil {
			return nil, false, err
		}
		items, ok := resp.Data.([]any)
		if !ok {
			return nil, false, fmt.Errorf("%w: got %T", ErrPageNotList, resp.Data)
		}
		s.req, s.resp = nextReq, resp
		s.items, s.idx = items, 0
	}
	item := s.items[s.idx]
	s.idx++
	return item, true, nil
}

func (s *pageSource) Close() error {
	s.done = true
	return nil
}

// PageParamPager pages through list endpoints by incrementing a numeric
// query param until a page comes back empty.
type PageParamPager struct {
	Param string // query param name, "page" when empty
	Start int    // first page number, 1 when zero
}

func (p *PageParamPager) param() string {
	if p.Param == "" {
		return "page"
	}
	return p.Param
}

func (p *PageParamPager) start() int {
	if p.Start == 0 {
		return 1
	}
	return p.Start
}

func (p *PageParamPager) First(req *Request) *Request {
	req.Params.Set(p.param(), strconv.Itoa(p.start()))
	return req
}

func (p *PageParamPager) Next(req *Request, last *Response) *Request {
	items, _ := last.Data.([]any)
	if len(items) == 0 {
		return nil
	}
	cur, err := strconv.Atoi(req.Params.Get(p.param()))
	if err != nil {
		cur = p.start()
	}
	req.Params.Set(p.param(), strconv.Itoa(cur+1))
	return req
}
