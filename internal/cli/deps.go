package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ghexplorer/internal/config"
	gh "ghexplorer/internal/github"
	"ghexplorer/internal/governor"
	"ghexplorer/internal/insights"
	"ghexplorer/internal/insights/gemini"
)

// newGitHubClient resolves a token (optional; anonymous requests get the lower
// rate limit) and builds the REST client.
func newGitHubClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gh.Client, error) {
	token, err := gh.ResolveAuthToken(ctx, "", cfg.Runtime.GitHubAPIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	if token.Anonymous() {
		logger.Debug("no GitHub token found; using anonymous access (60 requests per hour)")
	} else {
		logger.Debug("using GitHub token", zap.String("source", string(token.Source)))
	}

	opts := []gh.Option{gh.WithLogger(logger)}
	if cfg.Runtime.GitHubAPIURL != "" {
		opts = append(opts, gh.WithBaseURL(cfg.Runtime.GitHubAPIURL))
	}
	client, err := gh.NewClient(ctx, token.Value, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return client, nil
}

// newGenerator wires the insights provider, governor and cache from cfg. With
// no API key, or with insights disabled, every insight is the basic summary.
// The returned cleanup closes the cache.
func newGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger, observer governor.Observer) (*insights.Generator, func(), error) {
	noop := func() {}
	if cfg.Insights.Disabled || cfg.Insights.APIKey == "" {
		gen, err := insights.NewGenerator(nil, nil, insights.WithLogger(logger))
		return gen, noop, err
	}

	govOpts := []governor.Option{
		governor.WithClassifier(insights.IsQuotaExceeded),
		governor.WithLogger(logger),
	}
	if observer != nil {
		govOpts = append(govOpts, governor.WithObserver(observer))
	}
	gov, err := governor.New(cfg.Governor.Policy(), govOpts...)
	if err != nil {
		return nil, noop, fmt.Errorf("invalid governor settings: %w", err)
	}

	var cache insights.Cache = insights.NewMemoryCache()
	if cfg.Cache.RedisURL != "" {
		rc, err := insights.NewRedisCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Warn("redis cache unavailable; caching insights in memory", zap.Error(err))
		} else {
			cache = rc
		}
	}
	cleanup := func() {
		if err := cache.Close(); err != nil {
			logger.Debug("closing insights cache", zap.Error(err))
		}
	}

	client := gemini.NewClient(cfg.Insights.BaseURL, cfg.Insights.APIKey, cfg.Insights.Model)
	client.Timeout = cfg.Insights.RequestTimeout
	client.Logger = logger

	gen, err := insights.NewGenerator(client, gov,
		insights.WithCache(cache, cfg.Cache.TTL),
		insights.WithLogger(logger))
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return gen, cleanup, nil
}
