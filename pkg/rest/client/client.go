package client

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/restflow/pkg/common/validation"
	"github.com/vnykmshr/restflow/pkg/metrics"
	"github.com/vnykmshr/restflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/restflow/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/restflow/pkg/rest/hydrate"
	"github.com/vnykmshr/restflow/pkg/rest/manager"
	"github.com/vnykmshr/restflow/pkg/rest/relation"
	"github.com/vnykmshr/restflow/pkg/rest/repository"
	"github.com/vnykmshr/restflow/pkg/rest/request"
	"github.com/vnykmshr/restflow/pkg/rest/resource"
	"github.com/vnykmshr/restflow/pkg/scheduling/refresher"
	"github.com/vnykmshr/restflow/pkg/scheduling/workerpool"
)

// Config controls which middleware and serializers the client assembles.
// Zero-valued optional fields disable their feature.
type Config struct {
	// BaseURL prefixes every resource URI. Required.
	BaseURL string

	// HTTPClient performs the network calls; nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives per-request debug/warn lines. The zero value
	// disables logging output.
	Logger zerolog.Logger

	// RateLimit and Burst throttle outgoing requests when RateLimit > 0.
	RateLimit float64
	Burst     int

	// MaxInFlight bounds concurrent requests when > 0.
	MaxInFlight int

	// Redis enables read-through caching of GET responses with CacheTTL.
	Redis    redis.UniversalClient
	CacheTTL time.Duration

	// Metrics registers request metrics on the given registerer under
	// Namespace ("restflow" when empty).
	Metrics   prometheus.Registerer
	Namespace string

	// Pager paginates list requests when set.
	Pager request.Pager

	// Serializers are custom field serializers, tried after the built-in
	// scalar, time and relation serializers.
	Serializers []hydrate.Serializer

	// Workers sizes the worker pool used by Repository.GetMany. Zero
	// disables the pool; QueueSize defaults to 4*Workers.
	Workers   int
	QueueSize int
}

func (c Config) validate() error {
	if err := validation.ValidateNotEmpty("client", "base_url", c.BaseURL); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("client", "rate_limit", c.RateLimit); err != nil {
		return err
	}
	if c.Redis != nil {
		if err := validation.ValidatePositive("client", "cache_ttl", int(c.CacheTTL)); err != nil {
			return err
		}
	}
	return nil
}

// Client owns the assembled stack. Create repositories with Repo.
type Client struct {
	cfg       Config
	requester *request.Requester
	manager   *manager.Manager
	pool      *workerpool.Pool
	refresher *refresher.Refresher
	metrics   *metrics.Registry
	logger    zerolog.Logger
}

// New builds a client from the config. The list chain paginates when a
// pager is configured; the get chain is otherwise identical.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var reg *metrics.Registry
	if cfg.Metrics != nil {
		reg = metrics.NewRegistry(cfg.Metrics, cfg.Namespace)
	}

	chain := request.CheckStatus(request.HTTP(cfg.HTTPClient))
	if cfg.MaxInFlight > 0 {
		lim, err := concurrency.New(cfg.MaxInFlight)
		if err != nil {
			return nil, err
		}
		chain = request.MaxInFlight(chain, lim)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter, err := bucket.New(bucket.Limit(cfg.RateLimit), burst)
		if err != nil {
			return nil, err
		}
		chain = request.Throttle(chain, limiter, reg)
	}
	if reg != nil {
		chain = request.Instrument(chain, reg)
	}
	if cfg.Redis != nil {
		chain = request.Cache(chain, cfg.Redis, cfg.CacheTTL, reg)
	}
	chain = request.Logging(chain, cfg.Logger)

	get := request.Unwrap(chain)
	list := request.Unwrap(chain)
	if cfg.Pager != nil {
		list = request.Paginate(list, cfg.Pager)
	}

	requester := request.NewRequester(cfg.BaseURL, get)
	requester.ListHandler = list

	hydrator := hydrate.NewHydrator(hydrate.ScalarSerializer{}, &hydrate.TimeSerializer{})
	mgr := manager.New(requester, hydrator)
	mgr.SetMetrics(reg)
	getter := func() *manager.Manager { return mgr }
	hydrator.AddSerializer(relation.NewOneToManySerializer(getter))
	hydrator.AddSerializer(relation.NewManyToOneSerializer(getter))
	for _, s := range cfg.Serializers {
		hydrator.AddSerializer(s)
	}

	var pool *workerpool.Pool
	if cfg.Workers > 0 {
		queue := cfg.QueueSize
		if queue <= 0 {
			queue = 4 * cfg.Workers
		}
		var err error
		pool, err = workerpool.New(cfg.Workers, queue)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		cfg:       cfg,
		requester: requester,
		manager:   mgr,
		pool:      pool,
		metrics:   reg,
		logger:    cfg.Logger,
	}, nil
}

// Manager returns the underlying resource manager.
func (c *Client) Manager() *manager.Manager { return c.manager }

// Requester returns the underlying requester for raw endpoint access.
func (c *Client) Requester() *request.Requester { return c.requester }

// Repo returns a typed repository backed by the client.
func Repo[R resource.Resource](c *Client) *repository.Repository[R] {
	return repository.New[R](c.manager, c.pool)
}

// WarmCache schedules periodic GETs for the given specs on a cron
// schedule, keeping the response cache populated. Fetch failures are
// logged and otherwise ignored.
func (c *Client) WarmCache(cronSpec string, specs []request.Spec) (cron.EntryID, error) {
	if c.refresher == nil {
		c.refresher = refresher.New()
	}
	id, err := c.refresher.Add(cronSpec, func(ctx context.Context) {
		for _, spec := range specs {
			if _, err := c.requester.Get(ctx, spec); err != nil {
				c.logger.Warn().Str("uri", spec.URI).Err(err).Msg("cache warm failed")
			}
		}
	})
	if err != nil {
		return 0, err
	}
	c.refresher.Start()
	return id, nil
}

// Close stops background work: the cache refresher and the worker pool.
// In-flight requests are not interrupted.
func (c *Client) Close() {
	if c.refresher != nil {
		c.refresher.Stop()
	}
	if c.pool != nil {
		<-c.pool.Shutdown()
	}
}
