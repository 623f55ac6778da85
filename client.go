package searchkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	dbRedis "github.com/mixpeek/searchkit/internal/db/redis"
	"github.com/mixpeek/searchkit/internal/domain/identity"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
	"github.com/mixpeek/searchkit/internal/repository/resultcache"
	"github.com/mixpeek/searchkit/internal/transport/retriever"
	"github.com/mixpeek/searchkit/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the searchkit entry point. It resolves the retriever endpoint once
// and owns the result cache shared by all of its Searchers.
type Client struct {
	id         identity.Identity
	target     retriever.Target
	httpClient *http.Client
	limit      int
	debounce   time.Duration

	requestTimeout time.Duration
	headerTimeout  time.Duration

	cache      *resultcache.Cache
	closeStore func()
	obs        *observer
}

// New creates a Client for projectKey, either a public retriever slug or a
// secret key (ret_sk_...). The context bounds the Redis readiness check when
// WithRedisCache is used.
func New(ctx context.Context, projectKey string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		maxResults:      request.DefaultLimit,
		cacheTTL:        resultcache.DefaultTTL,
		cacheMaxEntries: resultcache.DefaultMaxEntries,
		redisKeyPrefix:  resultcache.DefaultKeyPrefix,
		requestTimeout:  retriever.DefaultRequestTimeout,
		headerTimeout:   retriever.DefaultResponseHeaderTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	id := identity.Parse(projectKey)
	if id.IsZero() {
		return nil, fmt.Errorf("searchkit: %w: project key required", ErrInvalidConfig)
	}
	target, err := retriever.Resolve(id, cfg.slug, cfg.baseURL)
	if err != nil {
		return nil, fmt.Errorf("searchkit: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		id:             id,
		target:         target,
		httpClient:     cfg.httpClient,
		limit:          cfg.maxResults,
		debounce:       search.DefaultDebounce,
		requestTimeout: cfg.requestTimeout,
		headerTimeout:  cfg.headerTimeout,
		closeStore:     func() {},
		obs:            obs,
	}
	if c.limit < 1 {
		c.limit = request.DefaultLimit
	}
	if cfg.debounceSet {
		c.debounce = cfg.debounce
		if c.debounce <= 0 {
			c.debounce = -1
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	if err := c.initCache(ctx, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initCache(ctx context.Context, cfg *clientConfig) error {
	if cfg.cache != nil {
		c.cache = cfg.cache
		return nil
	}

	cacheOpts := []resultcache.Option{
		resultcache.WithTTL(cfg.cacheTTL),
		resultcache.WithLogger(c.obs.logger),
		resultcache.WithCounter(c.obs.cacheCounter()),
	}

	if len(cfg.redisAddrs) == 0 {
		cache, err := resultcache.NewMemory(cfg.cacheMaxEntries, cacheOpts...)
		if err != nil {
			return fmt.Errorf("searchkit: create result cache: %w", err)
		}
		c.cache = cache
		return nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return fmt.Errorf("searchkit: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return fmt.Errorf("searchkit: redis not ready: %w", err)
	}
	c.cache = resultcache.New(resultcache.NewRedisBackend(store, cfg.redisKeyPrefix), cacheOpts...)
	c.closeStore = store.Close
	return nil
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	c.closeStore()
}

// Endpoint returns the resolved execute URL.
func (c *Client) Endpoint() string { return c.target.URL }

// Cache returns the result cache, e.g. to share it with another Client.
func (c *Client) Cache() *resultcache.Cache { return c.cache }

// CacheLen returns the number of fresh cached outcomes.
func (c *Client) CacheLen(ctx context.Context) int {
	c.cache.Sweep(ctx)
	return c.cache.Len(ctx)
}

// PurgeCache drops every cached outcome.
func (c *Client) PurgeCache(ctx context.Context) {
	c.cache.Purge(ctx)
}

func (c *Client) newTransport() *retriever.Client {
	return retriever.New(retriever.Config{
		Target:                c.target,
		HTTPClient:            c.httpClient,
		RequestTimeout:        c.requestTimeout,
		ResponseHeaderTimeout: c.headerTimeout,
		Logger:                c.obs.logger,
	})
}

func (c *Client) buildRequest(r SearchRequest, stream bool) (request.Request, error) {
	limit := r.Limit
	if limit < 1 {
		limit = c.limit
	}
	return request.New(r.Query, limit, r.Filters, stream)
}

// Execute runs a single buffered search. It bypasses the result cache.
func (c *Client) Execute(ctx context.Context, r SearchRequest) (_ Outcome, err error) {
	defer func(start time.Time) { c.obs.observe("execute", start, err) }(time.Now())

	req, err := c.buildRequest(r, false)
	if err != nil {
		return Outcome{}, err
	}
	return c.newTransport().ExecuteBuffered(ctx, req)
}

// Stream opens a streaming search and returns its raw signals. The caller
// must Close the stream. Stream does not fall back to a buffered call.
func (c *Client) Stream(ctx context.Context, r SearchRequest) (_ *Stream, err error) {
	defer func(start time.Time) { c.obs.observe("stream", start, err) }(time.Now())

	req, err := c.buildRequest(r, true)
	if err != nil {
		return nil, err
	}
	return c.newTransport().ExecuteStreaming(ctx, req)
}

// NewSearcher creates an interactive Searcher. Each Searcher owns its own
// in-flight request and shares the client's result cache.
func (c *Client) NewSearcher(opts ...SearcherOption) *Searcher {
	sc := &searcherConfig{streaming: true}
	for _, o := range opts {
		o.applySearcher(sc)
	}

	orch := search.New(search.FromRetriever(c.newTransport()), c.cache, search.Config{
		Identity:         c.id,
		Limit:            c.limit,
		Filters:          sc.filters,
		Streaming:        sc.streaming,
		Debounce:         c.debounce,
		Transform:        sc.transform,
		OnSearch:         sc.onSearch,
		OnSearchExecuted: sc.onSearchExecuted,
		OnZeroResults:    sc.onZeroResults,
		OnChange:         sc.onChange,
		Logger:           c.obs.logger,
		Metrics: search.Metrics{
			FramesTotal:    c.obs.frameCounter(),
			FallbacksTotal: c.obs.fallbackCounter(),
		},
	})
	return &Searcher{orch: orch, obs: c.obs}
}

// IsCancelled reports whether err means the work was superseded or cancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
