package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ghexplorer/internal/flags"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GHEXPLORER_VIEW_SORT.
const EnvPrefix = "GHEXPLORER"

// LoadResult reports where layered values came from.
type LoadResult struct {
	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

// Load layers a YAML config file and GHEXPLORER_* environment variables under the
// command-line flags in fs and writes the result into cfg.
//
// Precedence, highest first: explicitly set flag, environment, config file, the value
// already in cfg (flag default or New()). Keys missing from every layer leave cfg
// untouched.
//
// path selects the config file; when empty, ghexplorer.yaml is looked up in the
// working directory and in the user config directory, and a missing file is not an
// error.
func Load(v *viper.Viper, fs *pflag.FlagSet, cfg *Config, path string) (LoadResult, error) {
	var res LoadResult
	if v == nil {
		return res, errors.New("config: nil viper instance")
	}
	if cfg == nil {
		return res, errors.New("config: nil Config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// GEMINI_API_KEY is the conventional variable for the generative-language API.
	if err := v.BindEnv("insights.api_key", EnvPrefix+"_INSIGHTS_API_KEY", "GEMINI_API_KEY"); err != nil {
		return res, fmt.Errorf("config: bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ghexplorer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ghexplorer"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return res, fmt.Errorf("config: read %s: %w", describePath(path), err)
		}
	} else {
		res.ConfigFile = v.ConfigFileUsed()
	}

	for _, b := range bindings(cfg) {
		if fs != nil && b.flag != "" {
			if f := fs.Lookup(b.flag); f != nil {
				if err := v.BindPFlag(b.key, f); err != nil {
					return res, fmt.Errorf("config: bind --%s: %w", b.flag, err)
				}
			}
		}
		if v.IsSet(b.key) {
			b.apply(v, b.key)
		}
	}
	return res, nil
}

func describePath(path string) string {
	if path == "" {
		return "config file"
	}
	return path
}

type binding struct {
	key   string
	flag  string
	apply func(v *viper.Viper, key string)
}

func bindings(c *Config) []binding {
	return []binding{
		{"targeting.user", flags.FlagUser, str(&c.Targeting.User)},
		{"targeting.query", flags.FlagQuery, str(&c.Targeting.Query)},
		{"targeting.include", flags.FlagInclude, list(&c.Targeting.Include)},
		{"targeting.exclude", flags.FlagExclude, list(&c.Targeting.Exclude)},
		{"targeting.topic", flags.FlagTopic, list(&c.Targeting.Topic)},
		{"targeting.language", flags.FlagLanguage, list(&c.Targeting.Language)},
		{"targeting.archived", flags.FlagArchived, str(&c.Targeting.Archived)},
		{"targeting.forks", flags.FlagForks, str(&c.Targeting.Forks)},
		{"targeting.min_stars", flags.FlagMinStars, integer(&c.Targeting.MinStars)},
		{"targeting.max_repos", flags.FlagMaxRepos, integer(&c.Targeting.MaxRepos)},
		{"targeting.all_pages", flags.FlagAllPages, boolean(&c.Targeting.AllPages)},

		{"view.sort", flags.FlagSort, str(&c.View.Sort)},
		{"view.filter", flags.FlagFilter, str(&c.View.Filter)},
		{"view.page", flags.FlagPage, integer(&c.View.Page)},
		{"view.page_size", flags.FlagPageSize, integer(&c.View.PageSize)},
		{"view.details", flags.FlagDetails, boolean(&c.View.Details)},

		{"output.console_format", flags.FlagConsoleFormat, str(&c.Output.ConsoleFormat)},
		{"output.out", flags.FlagOut, str(&c.Output.Out)},
		{"output.out_format", flags.FlagOutFormat, str(&c.Output.OutFormat)},
		{"output.emit", flags.FlagEmit, list(&c.Output.Emit)},
		{"output.no_console", flags.FlagNoConsole, boolean(&c.Output.NoConsole)},
		{"output.clone_batch", flags.FlagCloneBatch, integer(&c.Output.CloneBatch)},

		{"runtime.concurrency", flags.FlagConcurrency, integer(&c.Runtime.Concurrency)},
		{"runtime.timeout", flags.FlagTimeout, duration(&c.Runtime.Timeout)},
		{"runtime.github_qps", flags.FlagGitHubQPS, float(&c.Runtime.GitHubQPS)},
		{"runtime.github_api_url", flags.FlagGitHubAPIURL, str(&c.Runtime.GitHubAPIURL)},
		{"runtime.verbose", flags.FlagVerbose, boolean(&c.Runtime.Verbose)},

		{"insights.api_key", flags.FlagGeminiKey, str(&c.Insights.APIKey)},
		{"insights.model", flags.FlagGeminiModel, str(&c.Insights.Model)},
		{"insights.base_url", flags.FlagGeminiBaseURL, str(&c.Insights.BaseURL)},
		{"insights.request_timeout", "", duration(&c.Insights.RequestTimeout)},
		{"insights.disabled", flags.FlagNoAI, boolean(&c.Insights.Disabled)},

		{"governor.requests_per_window", flags.FlagRequestsPerWindow, integer(&c.Governor.RequestsPerWindow)},
		{"governor.window", flags.FlagWindow, duration(&c.Governor.Window)},
		{"governor.min_delay", flags.FlagMinDelay, duration(&c.Governor.MinDelay)},
		{"governor.max_retries", flags.FlagMaxRetries, integer(&c.Governor.MaxRetries)},
		{"governor.retry_delay", flags.FlagRetryDelay, duration(&c.Governor.RetryDelay)},
		{"governor.backoff_multiplier", flags.FlagBackoffMultiplier, float(&c.Governor.BackoffMultiplier)},
		{"governor.safety_margin", "", duration(&c.Governor.SafetyMargin)},

		{"cache.redis_url", flags.FlagRedisURL, str(&c.Cache.RedisURL)},
		{"cache.ttl", flags.FlagCacheTTL, duration(&c.Cache.TTL)},

		{"server.addr", flags.FlagAddr, str(&c.Server.Addr)},
		{"server.read_timeout", "", duration(&c.Server.ReadTimeout)},
		{"server.write_timeout", "", duration(&c.Server.WriteTimeout)},
		{"server.shutdown_timeout", "", duration(&c.Server.ShutdownTimeout)},
		{"server.log_level", flags.FlagLogLevel, str(&c.Server.LogLevel)},
	}
}

func str(p *string) func(*viper.Viper, string) {
	return func(v *viper.Viper, key string) { *p = v.GetString(key) }
}

func integer(p *int) func(*viper.Viper, string) {
	return func(v *viper.Viper, key string) { *p = v.GetInt(key) }
}

func boolean(p *bool) func(*viper.Viper, string) {
	return func(v *viper.Viper, key string) { *p = v.GetBool(key) }
}

func float(p *float64) func(*viper.Viper, string) {
	return func(v *viper.Viper, key string) { *p = v.GetFloat64(key) }
}

func duration(p *time.Duration) func(*viper.Viper, string) {
	return func(v *viper.Viper, key string) { *p = v.GetDuration(key) }
}

func list(p *[]string) func(*viper.Viper, string) {
	return func(v *viper.Viper, key string) { *p = v.GetStringSlice(key) }
}
