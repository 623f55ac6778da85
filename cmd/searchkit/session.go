package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit"
	"github.com/mixpeek/searchkit/internal/config"
	logpkg "github.com/mixpeek/searchkit/internal/logger"
)

// session bundles what every command needs.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	client *searchkit.Client
}

func (s *session) Close() {
	s.client.Close()
	_ = s.logger.Sync()
}

// loadConfig reads config/<env>.yaml. A missing file means defaults only.
func loadConfig(env string) (config.Config, error) {
	cfg, err := config.Load(env)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Parse(nil)
	}
	return cfg, err
}

func newSession(ctx context.Context, c *cli.Command) (*session, error) {
	cfg, err := loadConfig(c.String("env"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if c.Bool("debug") {
		level = "debug"
	}
	logger, err := logpkg.NewLogger("cli", level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	key := cfg.Retriever.ProjectKey
	if v := c.String("key"); v != "" {
		key = v
	}
	if key == "" {
		return nil, errors.New("a project key is required: set --key or retriever.project_key")
	}

	client, err := searchkit.New(ctx, key, clientOptions(c, cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return &session{cfg: cfg, logger: logger, client: client}, nil
}

func clientOptions(c *cli.Command, cfg config.Config, logger *zap.Logger) []searchkit.Option {
	baseURL := cfg.Retriever.BaseURL
	if v := c.String("base-url"); v != "" {
		baseURL = v
	}
	slug := cfg.Retriever.RetrieverSlug
	if v := c.String("slug"); v != "" {
		slug = v
	}
	limit := cfg.Retriever.MaxResults
	if v := c.Int("limit"); v > 0 {
		limit = v
	}

	opts := []searchkit.Option{
		searchkit.WithBaseURL(baseURL),
		searchkit.WithRetrieverSlug(slug),
		searchkit.WithMaxResults(limit),
		searchkit.WithDebounce(cfg.Debounce()),
		searchkit.WithCacheTTL(time.Duration(cfg.Search.CacheTTLSec) * time.Second),
		searchkit.WithCacheSize(cfg.Cache.MaxEntries),
		searchkit.WithRequestTimeout(time.Duration(cfg.HTTP.RequestTimeoutSec) * time.Second),
		searchkit.WithResponseHeaderTimeout(time.Duration(cfg.HTTP.ResponseHeaderTimeoutSec) * time.Second),
		searchkit.WithLogger(logger),
	}
	if cfg.Cache.Driver == "redis" {
		opts = append(opts,
			searchkit.WithRedisCache(cfg.Cache.Addrs[0], cfg.Cache.Password),
			searchkit.WithRedisKeyPrefix(cfg.Cache.KeyPrefix),
		)
	}
	return opts
}

func (s *session) newSearcher(c *cli.Command, onChange func(searchkit.State)) (*searchkit.Searcher, error) {
	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return nil, err
	}
	return s.client.NewSearcher(
		searchkit.WithFilters(filters),
		searchkit.WithStreaming(s.cfg.Streaming() && !c.Bool("no-stream")),
		searchkit.WithOnChange(onChange),
	), nil
}

// parseFilters turns field=value pairs into filter inputs. A value with
// commas becomes a list.
func parseFilters(pairs []string) (searchkit.Filters, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return searchkit.Filters{}, fmt.Errorf("invalid filter %q: expected field=value", p)
		}
		if strings.Contains(value, ",") {
			var list []any
			for _, v := range strings.Split(value, ",") {
				if v = strings.TrimSpace(v); v != "" {
					list = append(list, v)
				}
			}
			values[field] = list
			continue
		}
		values[field] = strings.TrimSpace(value)
	}
	return searchkit.NewFilters(values), nil
}
