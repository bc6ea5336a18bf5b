package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/go-github/v81/github"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ghexplorer/internal/data"
	"ghexplorer/internal/fetcher"
	"ghexplorer/internal/flags"
	"ghexplorer/internal/insights"
)

const insightsLong = `Generate an analysis of each repository with the Gemini generative-language API.

Requests share one request governor: at most --requests-per-window calls per
--window, at least --min-delay apart, and quota-exceeded (HTTP 429) answers are
retried up to --max-retries times after --retry-delay, growing by
--backoff-multiplier. With the free-tier defaults, two repositories per minute
are analyzed; output keeps the argument order.

Without an API key (--gemini-key or GEMINI_API_KEY), or with --no-ai, a basic
analysis computed from the repository metadata is printed instead. A repository
whose AI analysis failed also falls back to the basic analysis and the command
exits with code 2.

Generated insights are cached for --cache-ttl, in memory or in Redis
(--redis-url), keyed by repository and last push.

Examples:
	export GEMINI_API_KEY="<key>"
	ghexplorer insights cli/cli
	ghexplorer insights cli/cli junegunn/fzf --format json
	ghexplorer insights cli/cli --no-ai`

func newInsightsCmd(st *state) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "insights OWNER/REPO...",
		Short: "Generate AI insights for repositories",
		Long:  insightsLong,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsights(cmd.Context(), st, args, format)
		},
	}
	cmd.Flags().StringVar(&format, flags.FlagFormat, "text", "Output format: text|json (default: text)")
	addInsightsFlags(cmd, st)
	return cmd
}

// addInsightsFlags registers the provider, governor and cache flags shared by
// insights and serve.
func addInsightsFlags(cmd *cobra.Command, st *state) {
	cfg := st.cfg
	fs := cmd.Flags()
	fs.StringVar(&cfg.Insights.APIKey, flags.FlagGeminiKey, "", "Gemini API key (default: $GEMINI_API_KEY)")
	fs.StringVar(&cfg.Insights.Model, flags.FlagGeminiModel, cfg.Insights.Model, "Gemini model")
	fs.StringVar(&cfg.Insights.BaseURL, flags.FlagGeminiBaseURL, cfg.Insights.BaseURL, "Generative-language API root")
	fs.BoolVar(&cfg.Insights.Disabled, flags.FlagNoAI, false, "Skip the API and print the basic analysis")

	fs.IntVar(&cfg.Governor.RequestsPerWindow, flags.FlagRequestsPerWindow, cfg.Governor.RequestsPerWindow, "Maximum API calls per window")
	fs.DurationVar(&cfg.Governor.Window, flags.FlagWindow, cfg.Governor.Window, "Length of the request accounting window")
	fs.DurationVar(&cfg.Governor.MinDelay, flags.FlagMinDelay, cfg.Governor.MinDelay, "Minimum spacing between API calls")
	fs.IntVar(&cfg.Governor.MaxRetries, flags.FlagMaxRetries, cfg.Governor.MaxRetries, "Retries after a quota-exceeded answer")
	fs.DurationVar(&cfg.Governor.RetryDelay, flags.FlagRetryDelay, cfg.Governor.RetryDelay, "Delay before the first retry")
	fs.Float64Var(&cfg.Governor.BackoffMultiplier, flags.FlagBackoffMultiplier, cfg.Governor.BackoffMultiplier, "Growth factor of the retry delay")

	fs.StringVar(&cfg.Cache.RedisURL, flags.FlagRedisURL, "", "Cache insights in Redis (redis://host:port/db); default is in memory")
	fs.DurationVar(&cfg.Cache.TTL, flags.FlagCacheTTL, cfg.Cache.TTL, "How long a generated insight is reused")
}

type insightResult struct {
	insight insights.Insight
	err     error
	done    chan struct{}
}

func runInsights(ctx context.Context, st *state, selectors []string, format string) error {
	cfg := st.cfg
	if err := cfg.Validate(); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	if err := checkReportFormat(format); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	repos := make([]*github.Repository, 0, len(selectors))
	for _, sel := range selectors {
		repo, err := repoRef(sel)
		if err != nil {
			return st.fail(ExitFatal, "%v", err)
		}
		repos = append(repos, repo)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	client, err := newGitHubClient(ctx, cfg, st.logger)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	gen, cleanup, err := newGenerator(ctx, cfg, st.logger, nil)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	defer cleanup()

	if gen.Enabled() {
		policy := cfg.Governor.Policy()
		st.logger.Info("Generating insights...",
			zap.Int("repos", len(repos)),
			zap.Int("requests_per_window", policy.RequestsPerWindow),
			zap.Duration("window", policy.Window),
			zap.Duration("min_delay", policy.MinDelay))
	} else {
		st.logger.Info("No Gemini API key configured (or --no-ai); printing basic analysis.")
	}

	f := fetcher.NewFetcher(client, fetcher.NewRequestBudget(fetcher.WithQPS(cfg.Runtime.GitHubQPS)))
	results := make([]*insightResult, len(repos))
	for i, repo := range repos {
		res := &insightResult{done: make(chan struct{})}
		results[i] = res
		go func() {
			defer close(res.done)
			res.insight, res.err = generateOne(ctx, f, gen, repo)
		}()
	}

	// Emit in argument order as results become available.
	failed, degraded := 0, 0
	collected := make([]insights.Insight, 0, len(results))
	for i, res := range results {
		<-res.done
		in := res.insight
		if res.err != nil {
			failed++
			st.logger.Error("Insight failed", zap.String("repo", repos[i].GetFullName()), zap.Error(res.err))
			in = insights.Insight{Repo: repos[i].GetFullName(), Error: res.err.Error()}
		} else if in.Error != "" {
			degraded++
		}
		if format == "json" {
			collected = append(collected, in)
			continue
		}
		if res.err == nil {
			fmt.Fprint(st.stdout, renderInsight(in))
		}
	}
	if format == "json" {
		if err := writeReport(st, format, collected, nil); err != nil {
			return st.fail(ExitFatal, "%v", err)
		}
	}

	switch {
	case failed == len(results):
		return exitWith(ExitFatal)
	case failed > 0 || degraded > 0:
		return exitWith(ExitPartial)
	}
	return nil
}

func generateOne(ctx context.Context, f *fetcher.Fetcher, gen *insights.Generator, repo *github.Repository) (insights.Insight, error) {
	val, err := f.Fetch(ctx, repo, data.DepRepoMetadata, nil)
	if err != nil {
		return insights.Insight{}, fmt.Errorf("failed to fetch %s: %w", repo.GetFullName(), err)
	}
	meta, ok := val.(*github.Repository)
	if !ok || meta == nil {
		return insights.Insight{}, fmt.Errorf("failed to fetch %s: unexpected metadata %T", repo.GetFullName(), val)
	}
	return gen.Generate(ctx, meta)
}

func renderInsight(in insights.Insight) string {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	var source string
	switch {
	case in.AIGenerated && in.Cached:
		source = fmt.Sprintf("AI analysis (%s, cached)", in.Source)
	case in.AIGenerated:
		source = fmt.Sprintf("AI analysis (%s)", in.Source)
	case in.Error != "":
		source = "Basic analysis (AI unavailable: " + in.Error + ")"
	default:
		source = "Basic analysis"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n%s\n\n", bold("== "+in.Repo+" =="), faint(source), strings.TrimSpace(in.Text))
	return b.String()
}
