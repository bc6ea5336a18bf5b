package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ghexplorer/internal/flags"
	gh "ghexplorer/internal/github"
)

func newRateLimitCmd(st *state) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "Show the remaining GitHub REST quota",
		Long: `Show the core GitHub REST quota: limit, remaining calls, usage and time to reset.

The check itself does not count against the quota.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRateLimit(cmd.Context(), st, format)
		},
	}
	cmd.Flags().StringVar(&format, flags.FlagFormat, "text", "Output format: text|json (default: text)")
	return cmd
}

func runRateLimit(ctx context.Context, st *state, format string) error {
	if err := checkReportFormat(format); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, st.cfg.Runtime.Timeout)
	defer cancel()

	client, err := newGitHubClient(ctx, st.cfg, st.logger)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	status, err := client.RateLimit(ctx)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	summary := status.Summarize(time.Now())
	if err := writeReport(st, format, summary, func() string { return renderRateSummary(summary) }); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	return nil
}

func renderRateSummary(s gh.RateSummary) string {
	var level *color.Color
	switch s.Level {
	case gh.RateLevelOK:
		level = color.New(color.FgGreen)
	case gh.RateLevelWarn:
		level = color.New(color.FgYellow)
	default:
		level = color.New(color.FgRed)
	}
	reset := (time.Duration(s.ResetInSeconds) * time.Second).String()
	return fmt.Sprintf("GitHub API rate limit\n  Remaining: %s\n  Used:      %d%%\n  Resets in: %s (%s)\n",
		level.Sprintf("%d/%d", s.Remaining, s.Limit),
		int(s.UsagePercent+0.5),
		reset,
		s.Reset.Local().Format(time.Kitchen))
}
