package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/restflow/internal/testutil"
	"github.com/vnykmshr/restflow/pkg/metrics"
	"github.com/vnykmshr/restflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/restflow/pkg/ratelimit/concurrency"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logging(mockHandler(t, &Response{Status: 200}, nil), logger)
	_, err := handler(context.Background(), New("GET", "http://example.com/x"))
	testutil.AssertNoError(t, err)

	if !strings.Contains(buf.String(), `"status":200`) {
		t.Errorf("log output missing status: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "http://example.com/x") {
		t.Errorf("log output missing url: %s", buf.String())
	}
}

func TestLoggingFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	boom := errors.New("boom")
	failing := func(ctx context.Context, req *Request) (*Response, error) {
		return nil, boom
	}
	_, err := Logging(failing, logger)(context.Background(), New("GET", ""))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("failure not logged at warn: %s", buf.String())
	}
}

func TestThrottleWaits(t *testing.T) {
	limiter, err := bucket.New(bucket.Inf, 1)
	testutil.AssertNoError(t, err)

	var calls atomic.Int64
	handler := Throttle(func(ctx context.Context, req *Request) (*Response, error) {
		calls.Add(1)
		return &Response{Status: 200}, nil
	}, limiter, nil)

	_, err = handler(context.Background(), New("GET", ""))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls.Load(), int64(1))
}

func TestThrottleCanceledContext(t *testing.T) {
	// One token burst at a very slow refill: the second request must wait,
	// and a canceled context aborts that wait.
	limiter, err := bucket.New(0.001, 1)
	testutil.AssertNoError(t, err)

	handler := Throttle(mockHandler(t, &Response{Status: 200}, nil), limiter, nil)
	_, err = handler(context.Background(), New("GET", ""))
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = handler(ctx, New("GET", ""))
	testutil.AssertError(t, err)
}

func TestMaxInFlight(t *testing.T) {
	limiter, err := concurrency.New(2)
	testutil.AssertNoError(t, err)

	var active, peak atomic.Int64
	release := make(chan struct{})
	handler := MaxInFlight(func(ctx context.Context, req *Request) (*Response, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return &Response{Status: 200}, nil
	}, limiter)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := handler(context.Background(), New("GET", ""))
			if err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestInstrument(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg, "")

	handler := Instrument(mockHandler(t, &Response{Status: 200}, nil), reg)
	_, err := handler(context.Background(), New("GET", ""))
	testutil.AssertNoError(t, err)

	failing := Instrument(CheckStatus(mockHandler(t, &Response{Status: 500, Reason: "Internal Server Error"}, nil)), reg)
	_, err = failing(context.Background(), New("GET", ""))
	testutil.AssertError(t, err)

	if got := promtestutil.ToFloat64(reg.RequestsTotal.WithLabelValues("GET")); got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
	if got := promtestutil.ToFloat64(reg.RequestErrors.WithLabelValues("GET", "500")); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
}

// Requires a running redis; set REDIS_ADDR to enable.
func TestCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()

	var calls atomic.Int64
	handler := Cache(func(ctx context.Context, req *Request) (*Response, error) {
		calls.Add(1)
		return &Response{Status: 200, Data: map[string]any{"n": float64(1)}, Extra: map[string]any{}}, nil
	}, rdb, time.Minute, nil)

	u := fmt.Sprintf("http://example.com/cache-test-%d", time.Now().UnixNano())
	req := New(http.MethodGet, u)

	resp, err := handler(ctx, req)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls.Load(), int64(1))

	resp, err = handler(ctx, New(http.MethodGet, u))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls.Load(), int64(1))

	data, ok := resp.Data.(map[string]any)
	if !ok || data["n"] != float64(1) {
		t.Fatalf("cached data = %v", resp.Data)
	}

	// POST requests bypass the cache.
	_, err = handler(ctx, New(http.MethodPost, u))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls.Load(), int64(2))
}
