package cli

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ghexplorer/internal/fetcher"
	"ghexplorer/internal/flags"
	"ghexplorer/internal/metrics"
	"ghexplorer/internal/observability"
	"ghexplorer/internal/server"
)

const serveLong = `Serve the repository explorer over HTTP.

Endpoints:
	GET /healthz                                 liveness
	GET /api/repos?user=|q=&sort=&filter=&page=   one page of the listing (JSON)
	GET /api/repos/{owner}/{repo}/stats           statistics report
	GET /api/repos/{owner}/{repo}/insights        AI insight (basic analysis without a key)
	GET /api/export?format=csv&user=|q=           download an export
	GET /api/rate-limit                           GitHub quota
	GET /metrics                                  Prometheus metrics

Logs are JSON on stderr. The insights governor and cache are shared by all
requests, so concurrent clients stay within the generative-language quota.

Examples:
	ghexplorer serve --addr :8080
	GEMINI_API_KEY=<key> ghexplorer serve --redis-url redis://localhost:6379/0`

func newServeCmd(st *state) *cobra.Command {
	cfg := st.cfg
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  serveLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), st)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cfg.Server.Addr, flags.FlagAddr, cfg.Server.Addr, "Listen address (default: :8080)")
	fs.StringVar(&cfg.Server.LogLevel, flags.FlagLogLevel, cfg.Server.LogLevel, "Log level: debug|info|warn|error (default: info)")
	addInsightsFlags(cmd, st)
	return cmd
}

func runServe(ctx context.Context, st *state) error {
	cfg := st.cfg
	if err := cfg.Validate(); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	logger := observability.NewServerLogger(st.stderr, cfg.Server.LogLevel)
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	govMetrics := metrics.NewGovernorMetrics()
	govMetrics.MustRegister(reg)

	client, err := newGitHubClient(ctx, cfg, logger)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	gen, cleanup, err := newGenerator(ctx, cfg, logger, govMetrics)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	defer cleanup()

	srv, err := server.New(cfg.Server, server.Deps{
		Client:   client,
		Budget:   fetcher.NewRequestBudget(fetcher.WithQPS(cfg.Runtime.GitHubQPS)),
		Insights: gen,
		Registry: reg,
		Logger:   logger,
		Defaults: cfg,
	})
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}

	logger.Info("server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.Bool("ai_enabled", gen.Enabled()),
		zap.Int("pid", os.Getpid()))
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return exitWith(ExitFatal)
	}
	logger.Info("server stopped")
	return nil
}
