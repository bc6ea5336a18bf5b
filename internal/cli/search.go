package cli

import (
	"context"

	"github.com/spf13/cobra"

	"ghexplorer/internal/explore"
	"ghexplorer/internal/flags"
)

const searchHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	ghexplorer works without a GitHub token, at the anonymous rate limit of
	60 requests per hour. With a token the limit is 5000 per hour.

	Sources (in order):
	1) GITHUB_TOKEN environment variable
	2) GH_TOKEN environment variable
	3) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

  Examples:
    # macOS/Linux
    export GITHUB_TOKEN="<your_token>"
    ghexplorer search --user octocat

    # Windows PowerShell
    $env:GITHUB_TOKEN = "<your_token>"
    ghexplorer search --user octocat
`

const searchLong = `List a user's repositories or search GitHub, then filter, sort, page and export them.

Discovery:
	--user lists the account's repositories, most recently updated first.
	--query runs a repository search (GitHub search syntax), most starred first.
	Results are fetched in pages of 100 up to --max-repos (default 100);
	--all-pages keeps going until GitHub runs out (search stops at 1000).

View:
	--filter, --language, --topic, --include/--exclude, --archived, --forks and
	--min-stars narrow the set; --sort orders it; --page/--page-size select one
	page. --details fetches languages, contributors and commit activity for
	every listed repository and adds an impact score.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: json, ndjson, yaml, csv, pdf, or a sh/bat clone
	  script (batches of --clone-batch, at most 100 repositories)
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, run.summary, repo.record, run.finished).

Exit codes:
	0 = success
	2 = partial failure (some repository details or outputs failed)
	3 = fatal error (nothing was listed)

Examples:
	ghexplorer search --user https://github.com/octocat --sort stars-desc
	ghexplorer search --query "topic:cli language:rust" --page 2
	ghexplorer search --user octocat --details --out repos.csv

	# AI Agent: stream machine-readable events to stdout
	ghexplorer search --user octocat --no-console --emit ndjson
`

func newSearchCmd(st *state) *cobra.Command {
	cfg := st.cfg
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List or search GitHub repositories",
		Long:  searchLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && cmd.Flags().NFlag() == 0 && cfg.Targeting.User == "" && cfg.Targeting.Query == "" {
				return cmd.Help()
			}
			return runSearch(cmd.Context(), st)
		},
	}
	cmd.SetHelpTemplate(searchHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove any flag here, keep the config
	// bindings in internal/config/loader.go in sync.

	// Targeting
	fs := cmd.Flags()
	fs.StringVar(&cfg.Targeting.User, flags.FlagUser, "", "GitHub account whose repositories to list (name or URL)")
	fs.StringVar(&cfg.Targeting.Query, flags.FlagQuery, "", "Repository search query (GitHub search syntax)")
	fs.StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches OWNER/REPO, else matches repo name")
	fs.StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	fs.StringSliceVar(&cfg.Targeting.Topic, flags.FlagTopic, nil, "Require at least one topic match (repeatable; comma-separated accepted; exact match)")
	fs.StringSliceVar(&cfg.Targeting.Language, flags.FlagLanguage, nil, "Keep repositories whose primary language is any of these (case-insensitive)")
	fs.StringVar(&cfg.Targeting.Archived, flags.FlagArchived, "include", "Archived repos policy: include|exclude|only (default: include)")
	fs.StringVar(&cfg.Targeting.Forks, flags.FlagForks, "include", "Forks policy: include|exclude|only (default: include)")
	fs.IntVar(&cfg.Targeting.MinStars, flags.FlagMinStars, 0, "Drop repositories with fewer stars")
	fs.IntVar(&cfg.Targeting.MaxRepos, flags.FlagMaxRepos, cfg.Targeting.MaxRepos, "Maximum number of repositories to fetch (default: 100)")
	fs.BoolVar(&cfg.Targeting.AllPages, flags.FlagAllPages, false, "Fetch every page instead of stopping at --max-repos")

	// View
	fs.StringVar(&cfg.View.Sort, flags.FlagSort, "name-asc", "Sort order: name-asc|name-desc|stars-desc|stars-asc|updated-desc (default: name-asc)")
	fs.StringVar(&cfg.View.Filter, flags.FlagFilter, "", "Case-insensitive substring match on the repository name (and owner, for searches)")
	fs.IntVar(&cfg.View.Page, flags.FlagPage, 0, "Show one 1-based page of the result (0 = everything)")
	fs.IntVar(&cfg.View.PageSize, flags.FlagPageSize, cfg.View.PageSize, "Repositories per page (default: 6)")
	fs.BoolVar(&cfg.View.Details, flags.FlagDetails, false, "Fetch languages, contributors and commit activity for every listed repository")

	// Output
	fs.StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	fs.StringVar(&cfg.Output.Out, flags.FlagOut, "", "Export the result to this path")
	fs.StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Export format for --out: json|ndjson|yaml|csv|pdf|sh|bat (default: inferred from file extension)")
	fs.StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	fs.BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out)")
	fs.IntVar(&cfg.Output.CloneBatch, flags.FlagCloneBatch, cfg.Output.CloneBatch, "Clones per batch in sh/bat clone scripts (default: 10)")

	// Runtime
	fs.IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent workers for --details (default: 5)")
	return cmd
}

func runSearch(ctx context.Context, st *state) error {
	cfg := st.cfg
	if err := cfg.ValidateSearch(); err != nil {
		return st.fail(ExitFatal, "%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	client, err := newGitHubClient(ctx, cfg, st.logger)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	eng := explore.NewEngine(client, st.logger)
	eng.Stdout = st.stdout
	return exitWith(eng.Run(ctx, cfg))
}
