package searchkit

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/repository/resultcache"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	slug       string
	httpClient *http.Client
	maxResults int

	debounce    time.Duration
	debounceSet bool

	cache           *resultcache.Cache
	cacheTTL        time.Duration
	cacheMaxEntries int
	redisAddrs      []string
	redisPassword   string
	redisKeyPrefix  string

	requestTimeout time.Duration
	headerTimeout  time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithBaseURL overrides the API base URL (default https://api.mixpeek.com).
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithRetrieverSlug names the retriever when the project key is a secret key.
func WithRetrieverSlug(slug string) Option {
	return optionFunc(func(c *clientConfig) {
		c.slug = slug
	})
}

// WithHTTPClient sets the HTTP client used for all calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithMaxResults sets the result limit. Values below 1 keep the default of 10.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxResults = n
	})
}

// WithDebounce sets the quiet period before a Searcher runs a query.
// Defaults to 300ms; zero or negative disables the delay.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.debounce = d
		c.debounceSet = true
	})
}

// WithCache shares an existing result cache, e.g. between several clients.
func WithCache(cache *resultcache.Cache) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cache
	})
}

// WithCacheTTL sets how long finalized outcomes stay fresh (default 5m).
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithCacheSize caps the in-memory result cache (default 1024 entries).
func WithCacheSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheMaxEntries = n
	})
}

// WithRedisCache stores finalized outcomes in Redis or Valkey so several
// processes share them.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithRedisKeyPrefix namespaces Redis cache keys (default "searchkit:results:").
func WithRedisKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisKeyPrefix = prefix
	})
}

// WithRequestTimeout bounds buffered calls (default 30s). Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.requestTimeout = d
	})
}

// WithResponseHeaderTimeout bounds the wait for a stream to start (default 15s).
// Zero disables it.
func WithResponseHeaderTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.headerTimeout = d
	})
}

// WithLogger sets a structured logger for SDK operations.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics with the given registerer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// SearcherOption configures a Searcher.
type SearcherOption interface {
	applySearcher(*searcherConfig)
}

type searcherOptionFunc func(*searcherConfig)

func (f searcherOptionFunc) applySearcher(c *searcherConfig) { f(c) }

type searcherConfig struct {
	filters          Filters
	streaming        bool
	transform        func([]Document) []Document
	onSearch         func(query string)
	onSearchExecuted func(query string)
	onZeroResults    func(query string)
	onChange         func(State)
}

// WithFilters sets the initial filter inputs.
func WithFilters(f Filters) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.filters = f
	})
}

// WithStreaming toggles the streaming call (default on). When off, each
// search is a single buffered call.
func WithStreaming(on bool) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.streaming = on
	})
}

// WithTransform post-processes every visible result list. Cached outcomes
// are stored untransformed.
func WithTransform(fn func([]Document) []Document) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.transform = fn
	})
}

// WithOnSearch is called with the trimmed query when network work begins.
func WithOnSearch(fn func(query string)) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.onSearch = fn
	})
}

// WithOnSearchExecuted is called with the final query after a successful search.
func WithOnSearchExecuted(fn func(query string)) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.onSearchExecuted = fn
	})
}

// WithOnZeroResults is called when a successful search returns no results.
func WithOnZeroResults(fn func(query string)) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.onZeroResults = fn
	})
}

// WithOnChange receives a State snapshot after every change, in order.
// fn must not wait on a search of the same Searcher (SearchAndWait would
// deadlock); calling Search is fine.
func WithOnChange(fn func(State)) SearcherOption {
	return searcherOptionFunc(func(c *searcherConfig) {
		c.onChange = fn
	})
}
