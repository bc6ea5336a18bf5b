package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ghexplorer/internal/config"
	"ghexplorer/internal/flags"
	"ghexplorer/internal/observability"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// Exit codes shared by every command.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitPartial = 2
	ExitFatal   = 3
)

// ExitError carries a process exit code out of a command. The command has
// already reported the cause on stderr.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func exitWith(code int) error {
	if code == ExitOK {
		return nil
	}
	return &ExitError{Code: code}
}

// state is shared by the commands of one invocation.
type state struct {
	cfg        *config.Config
	configPath string
	stdout     io.Writer
	stderr     io.Writer
	logger     *zap.Logger
}

// fail reports err on stderr and returns the matching exit error.
func (st *state) fail(code int, format string, args ...any) error {
	fmt.Fprintf(st.stderr, "Error: "+format+"\n", args...)
	return &ExitError{Code: code}
}

const rootLong = `ghexplorer explores GitHub repositories from the terminal or over HTTP.

It lists a user's repositories or searches GitHub, filters, sorts and pages
the results, exports them (JSON, NDJSON, YAML, CSV, PDF, clone scripts),
reports per-repository statistics and generates AI insights through a
request governor that respects the generative-language API quota.

Examples:
	# Show available commands and global flags
	ghexplorer --help

	# List a user's repositories, most starred first
	ghexplorer search --user octocat --sort stars-desc

	# Search and export a clone script
	ghexplorer search --query "language:go stars:>1000" --out clone.sh

	# Statistics and insights for one repository
	ghexplorer stats cli/cli
	ghexplorer insights cli/cli charmbracelet/bubbletea

	# Serve the HTTP API
	ghexplorer serve --addr :8080

Configuration:
	Flags override GHEXPLORER_* environment variables, which override the
	config file (ghexplorer.yaml in the working directory or the user config
	directory, or --config). GEMINI_API_KEY is honoured for --gemini-key.`

func newRootCmd(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:           "ghexplorer",
		Short:         "Explore, analyze and export GitHub repositories",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
	}
	root.SetOut(st.stdout)
	root.SetErr(st.stderr)
	root.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVar(&st.cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call and full error details)")
	pf.StringVar(&st.configPath, flags.FlagConfig, "", "Config file (default: ./ghexplorer.yaml, then <user config dir>/ghexplorer/ghexplorer.yaml)")
	pf.DurationVar(&st.cfg.Runtime.Timeout, flags.FlagTimeout, st.cfg.Runtime.Timeout, "Global timeout (default: 30m)")
	pf.Float64Var(&st.cfg.Runtime.GitHubQPS, flags.FlagGitHubQPS, 0, "Pace GitHub REST calls to this many per second (0 = no pacing)")
	pf.StringVar(&st.cfg.Runtime.GitHubAPIURL, flags.FlagGitHubAPIURL, "", "GitHub REST API root for GitHub Enterprise (default: https://api.github.com/)")

	root.AddCommand(
		newSearchCmd(st),
		newStatsCmd(st),
		newInsightsCmd(st),
		newRateLimitCmd(st),
		newServeCmd(st),
		newVersionCmd(),
	)
	return root
}

// load layers the config file and environment under the parsed flags.
func (st *state) load(cmd *cobra.Command) error {
	res, err := config.Load(viper.New(), cmd.Flags(), st.cfg, st.configPath)
	if err != nil {
		return st.fail(ExitFatal, "%v", err)
	}
	st.logger = observability.NewCLILogger(st.stderr, st.cfg.Runtime.Verbose)
	if res.ConfigFile != "" {
		st.logger.Debug("loaded config file", zap.String("path", res.ConfigFile))
	}
	return nil
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	st := &state{
		cfg:    config.New(),
		stdout: stdout,
		stderr: stderr,
		logger: zap.NewNop(),
	}
	root := newRootCmd(st)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsage
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
