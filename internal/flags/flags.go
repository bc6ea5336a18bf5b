package flags

// Package flags defines canonical CLI flag names shared across the CLI, the config
// loader and the server query parser. Config file keys are derived from the same
// names (see config.Load), so a flag rename is a config key rename too.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.User, flags.FlagUser, "", "...")
//	arg := "--" + flags.FlagUser
const (
	// Global
	FlagVerbose = "verbose"
	FlagConfig  = "config"

	// Targeting
	FlagUser     = "user"
	FlagQuery    = "query"
	FlagInclude  = "include"
	FlagExclude  = "exclude"
	FlagTopic    = "topic"
	FlagLanguage = "language"
	FlagArchived = "archived"
	FlagForks    = "forks"
	FlagMinStars = "min-stars"
	FlagMaxRepos = "max-repos"
	FlagAllPages = "all-pages"

	// View
	FlagSort     = "sort"
	FlagFilter   = "filter"
	FlagPage     = "page"
	FlagPageSize = "page-size"
	FlagDetails  = "details"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagNoConsole     = "no-console"
	FlagCloneBatch    = "clone-batch"

	// Runtime
	FlagConcurrency  = "concurrency"
	FlagTimeout      = "timeout"
	FlagGitHubQPS    = "github-qps"
	FlagGitHubAPIURL = "github-api-url"

	// Insights
	FlagGeminiKey     = "gemini-key"
	FlagGeminiModel   = "gemini-model"
	FlagGeminiBaseURL = "gemini-base-url"
	FlagNoAI          = "no-ai"

	// Governor
	FlagRequestsPerWindow = "requests-per-window"
	FlagWindow            = "window"
	FlagMinDelay          = "min-delay"
	FlagMaxRetries        = "max-retries"
	FlagRetryDelay        = "retry-delay"
	FlagBackoffMultiplier = "backoff-multiplier"

	// Cache
	FlagRedisURL = "redis-url"
	FlagCacheTTL = "cache-ttl"

	// Server
	FlagAddr     = "addr"
	FlagLogLevel = "log-level"

	// Report rendering for stats, insights and rate-limit
	FlagFormat = "format"
)
