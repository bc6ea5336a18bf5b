package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/go-github/v81/github"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ghexplorer/internal/analytics"
	"ghexplorer/internal/config"
	"ghexplorer/internal/data"
	"ghexplorer/internal/export"
	"ghexplorer/internal/fetcher"
	"ghexplorer/internal/flags"
)

const statsLong = `Report statistics for one repository: quality and impact scores, commit
activity, languages, top contributors, prioritized open issues, documentation
suggestions and similar repositories.

Sections whose data GitHub could not provide are listed as unavailable and
the command exits with code 2.

Examples:
	ghexplorer stats cli/cli
	ghexplorer stats https://github.com/cli/cli --format json`

func newStatsCmd(st *state) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats OWNER/REPO",
		Short: "Show statistics for a repository",
		Long:  statsLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), st, args[0], format)
		},
	}
	cmd.Flags().StringVar(&format, flags.FlagFormat, "text", "Output format: text|json|yaml (default: text)")
	return cmd
}

func runStats(ctx context.Context, st *state, selector, format string) error {
	cfg := st.cfg
	if err := cfg.Validate(); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	if err := checkReportFormat(format, "yaml"); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	repo, err := repoRef(selector)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	client, err := newGitHubClient(ctx, cfg, st.logger)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	f := fetcher.NewFetcher(client, fetcher.NewRequestBudget(fetcher.WithQPS(cfg.Runtime.GitHubQPS)))

	st.logger.Info("Fetching repository statistics...", zap.String("repo", repo.GetFullName()))
	dc, errs := f.FetchAll(ctx, repo, data.StatsKeys())
	if err := errs[data.DepRepoMetadata]; err != nil {
		return st.fail(ExitFatal, "failed to fetch %s: %v", repo.GetFullName(), err)
	}
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	for _, key := range keys {
		st.logger.Warn("Statistic unavailable", zap.String("dependency", key), zap.Error(errs[data.DependencyKey(key)]))
	}

	report := analytics.BuildReport(repo, dc, time.Now())
	if err := writeReport(st, format, report, func() string { return export.RenderReport(report) }); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	if len(errs) > 0 {
		return exitWith(ExitPartial)
	}
	return nil
}

// checkReportFormat accepts text, json and the extra formats listed.
func checkReportFormat(format string, extra ...string) error {
	switch format {
	case "text", "json":
		return nil
	}
	for _, f := range extra {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported --%s: %s", flags.FlagFormat, format)
}

// writeReport encodes v to stdout in format; text uses render.
func writeReport(st *state, format string, v any, render func() string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(st.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(st.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprint(st.stdout, render())
		return err
	}
}

// repoRef turns OWNER/REPO (or a GitHub URL) into a bare repository reference.
func repoRef(selector string) (*github.Repository, error) {
	owner, name, err := config.ParseRepoSelector(selector)
	if err != nil {
		return nil, err
	}
	return &github.Repository{
		Owner:    &github.User{Login: github.Ptr(owner)},
		Name:     github.Ptr(name),
		FullName: github.Ptr(owner + "/" + name),
	}, nil
}
