package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"ghexplorer/internal/governor"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli (search.go, insights.go, serve.go)
	// - config file / env keys in internal/config/loader.go:bindings
	Targeting Targeting
	View      View
	Output    Output
	Runtime   Runtime
	Insights  Insights
	Governor  Governor
	Cache     Cache
	Server    Server
}

type Targeting struct {
	// User lists the repositories owned by this GitHub account (name or URL; see --user).
	User string

	// Query runs a repository search instead of listing an account (see --query).
	// It uses GitHub search syntax, e.g. "language:go stars:>100".
	Query string

	// Include filters repositories by name using Go path.Match style (see --include).
	// If a pattern contains '/', it matches OWNER/REPO; otherwise it matches repo name.
	Include []string

	// Exclude filters repositories by name using Go path.Match style (see --exclude).
	Exclude []string

	// Topic requires repositories to have at least one matching topic (exact match; see --topic).
	Topic []string

	// Language keeps repositories whose primary language matches any of these,
	// case-insensitively (see --language).
	Language []string

	// Archived controls how archived repos are handled (see --archived).
	// Allowed values: include, exclude, only.
	Archived string

	// Forks controls how forked repos are handled (see --forks).
	// Allowed values: include, exclude, only.
	Forks string

	// MinStars drops repositories with fewer stars (see --min-stars).
	MinStars int

	// MaxRepos bounds how many repositories discovery fetches (see --max-repos).
	// Ignored with --all-pages.
	MaxRepos int

	// AllPages keeps fetching pages of 100 until GitHub runs out (see --all-pages).
	AllPages bool
}

type View struct {
	// Sort orders the result set (see --sort).
	// Allowed values: name-asc, name-desc, stars-desc, stars-asc, updated-desc.
	Sort string

	// Filter is a free-text, case-insensitive substring match on the repository name,
	// and on the owner login for search results (see --filter).
	Filter string

	// Page selects one 1-based page of the sorted, filtered set (see --page).
	// 0 shows everything.
	Page int

	// PageSize is the number of repositories per page (see --page-size).
	PageSize int

	// Details fetches languages, contributors and participation for every listed
	// repository (see --details).
	Details bool
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// Out exports the result set to this path (see --out).
	Out string

	// OutFormat selects the export format for --out (see --out-format).
	// Allowed values: json, ndjson, yaml, csv, pdf, sh, bat.
	// If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// CloneBatch is the number of clones per batch in sh/bat clone scripts (see --clone-batch).
	CloneBatch int
}

type Runtime struct {
	// Concurrency controls parallelism for detail fetching (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout is the global timeout for the run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// GitHubQPS paces GitHub REST calls client-side (see --github-qps). 0 disables pacing.
	GitHubQPS float64

	// GitHubAPIURL points the REST client at a GitHub Enterprise API root
	// (see --github-api-url). Empty uses api.github.com.
	GitHubAPIURL string

	// Verbose enables debug logging, including every GitHub API call.
	Verbose bool
}

type Insights struct {
	// APIKey authenticates generateContent calls (see --gemini-key, GEMINI_API_KEY).
	// Empty means insights fall back to the locally computed summary.
	APIKey string

	// Model is the generative model name (see --gemini-model).
	Model string

	// BaseURL is the generative-language API root (see --gemini-base-url).
	BaseURL string

	// RequestTimeout bounds one generateContent HTTP call.
	RequestTimeout time.Duration

	// Disabled skips the remote call entirely (see --no-ai).
	Disabled bool
}

// Governor mirrors governor.Config so it can be layered from flags, env and file.
type Governor struct {
	RequestsPerWindow int
	Window            time.Duration
	MinDelay          time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	BackoffMultiplier float64
	SafetyMargin      time.Duration
}

func (g Governor) Policy() governor.Config {
	return governor.Config{
		RequestsPerWindow: g.RequestsPerWindow,
		Window:            g.Window,
		MinDelay:          g.MinDelay,
		MaxRetries:        g.MaxRetries,
		RetryDelay:        g.RetryDelay,
		BackoffMultiplier: g.BackoffMultiplier,
		SafetyMargin:      g.SafetyMargin,
	}
}

type Cache struct {
	// RedisURL selects the Redis insights cache (see --redis-url). Empty uses memory.
	RedisURL string

	// TTL bounds how long a generated insight is reused (see --cache-ttl).
	TTL time.Duration
}

type Server struct {
	// Addr is the listen address for `serve` (see --addr).
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// LogLevel is the JSON server log level: debug, info, warn, error.
	LogLevel string
}

const (
	DefaultPageSize   = 6
	DefaultMaxRepos   = 100
	DefaultCloneBatch = 10
)

var (
	sortOrders    = []string{"name-asc", "name-desc", "stars-desc", "stars-asc", "updated-desc"}
	consoleFormat = []string{"text", "json", "ndjson"}
	outFormats    = []string{"json", "ndjson", "yaml", "csv", "pdf", "sh", "bat"}
	emitFormats   = []string{"json", "ndjson"}
	policies      = []string{"include", "exclude", "only"}
)

func New() *Config {
	policy := governor.DefaultConfig()
	return &Config{
		Targeting: Targeting{
			Archived: "include",
			Forks:    "include",
			MaxRepos: DefaultMaxRepos,
		},
		View: View{
			Sort:     "name-asc",
			PageSize: DefaultPageSize,
		},
		Output: Output{
			ConsoleFormat: "text",
			CloneBatch:    DefaultCloneBatch,
		},
		Runtime: Runtime{
			Concurrency: 5,
			Timeout:     30 * time.Minute,
		},
		Insights: Insights{
			Model:          "gemini-2.0-flash",
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			RequestTimeout: 60 * time.Second,
		},
		Governor: Governor{
			RequestsPerWindow: policy.RequestsPerWindow,
			Window:            policy.Window,
			MinDelay:          policy.MinDelay,
			MaxRetries:        policy.MaxRetries,
			RetryDelay:        policy.RetryDelay,
			BackoffMultiplier: policy.BackoffMultiplier,
			SafetyMargin:      policy.SafetyMargin,
		},
		Cache: Cache{
			TTL: 24 * time.Hour,
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			LogLevel:        "info",
		},
	}
}

// Validate normalizes list and enum inputs and rejects values no command can use.
// Targeting requirements are command specific; see ValidateSearch.
func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Include = splitCommaList(c.Targeting.Include)
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)
	c.Targeting.Topic = splitCommaList(c.Targeting.Topic)
	c.Targeting.Language = splitCommaList(c.Targeting.Language)
	c.Output.Emit = splitCommaList(c.Output.Emit)

	if c.Targeting.User != "" {
		user, err := NormalizeAccountSelector(c.Targeting.User)
		if err != nil {
			return fmt.Errorf("invalid --user value: %w", err)
		}
		c.Targeting.User = user
	}
	c.Targeting.Query = strings.TrimSpace(c.Targeting.Query)
	c.View.Filter = strings.TrimSpace(c.View.Filter)

	var err error
	if c.Targeting.Archived, err = normalizeEnum("archived", c.Targeting.Archived, "include", policies); err != nil {
		return err
	}
	if c.Targeting.Forks, err = normalizeEnum("forks", c.Targeting.Forks, "include", policies); err != nil {
		return err
	}
	if c.View.Sort, err = normalizeEnum("sort", c.View.Sort, "name-asc", sortOrders); err != nil {
		return err
	}
	if c.Output.ConsoleFormat, err = normalizeEnum("console-format", c.Output.ConsoleFormat, "", consoleFormat); err != nil {
		return err
	}
	for i, emit := range c.Output.Emit {
		if c.Output.Emit[i], err = normalizeEnum("emit", emit, "", emitFormats); err != nil {
			return err
		}
	}

	if c.Targeting.MinStars < 0 {
		return errors.New("--min-stars must be >= 0")
	}
	if c.Targeting.MaxRepos < 0 {
		return errors.New("--max-repos must be >= 0")
	}
	if c.View.Page < 0 {
		return errors.New("--page must be >= 0")
	}
	if c.View.PageSize <= 0 {
		return errors.New("--page-size must be >= 1")
	}
	if c.Output.CloneBatch <= 0 {
		return errors.New("--clone-batch must be >= 1")
	}
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.GitHubQPS < 0 {
		return errors.New("--github-qps must be >= 0")
	}
	c.Runtime.GitHubAPIURL = strings.TrimSpace(c.Runtime.GitHubAPIURL)
	if c.Runtime.GitHubAPIURL != "" {
		if u, err := url.ParseRequestURI(c.Runtime.GitHubAPIURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid --github-api-url: %q", c.Runtime.GitHubAPIURL)
		}
	}
	if c.Cache.TTL <= 0 {
		return errors.New("--cache-ttl must be > 0")
	}
	if c.Insights.RequestTimeout <= 0 {
		return errors.New("insights request timeout must be > 0")
	}
	c.Insights.APIKey = strings.TrimSpace(c.Insights.APIKey)
	c.Insights.Model = strings.TrimSpace(c.Insights.Model)
	if c.Insights.Model == "" {
		return errors.New("--gemini-model must not be empty")
	}
	if _, err := url.ParseRequestURI(c.Insights.BaseURL); err != nil {
		return fmt.Errorf("invalid --gemini-base-url: %w", err)
	}
	if err := c.Governor.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid governor settings: %w", err)
	}

	if c.Output.Out != "" {
		format, err := ResolveOutFormat(c.Output.Out, c.Output.OutFormat)
		if err != nil {
			return err
		}
		c.Output.OutFormat = format
	}

	return nil
}

// ValidateSearch runs Validate and additionally requires exactly one discovery source.
func (c *Config) ValidateSearch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Targeting.User == "" && c.Targeting.Query == "" {
		return errors.New("one of --user or --query must be provided")
	}
	if c.Targeting.User != "" && c.Targeting.Query != "" {
		return errors.New("--user and --query are mutually exclusive")
	}
	return nil
}

// ResolveOutFormat returns the explicit export format, or infers it from the
// extension of path.
func ResolveOutFormat(path, format string) (string, error) {
	if f := normalizeEnumValue(format); f != "" {
		if !contains(outFormats, f) {
			return "", fmt.Errorf("unsupported output format: %s (must be one of: %s)", f, strings.Join(outFormats, ", "))
		}
		return f, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return "json", nil
	case ".ndjson", ".jsonl":
		return "ndjson", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".csv":
		return "csv", nil
	case ".pdf":
		return "pdf", nil
	case ".sh":
		return "sh", nil
	case ".bat", ".cmd":
		return "bat", nil
	case "":
		return "", errors.New("cannot infer output format from file extension (missing extension); use --out-format")
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
	}
}

func normalizeEnum(name, raw, fallback string, allowed []string) (string, error) {
	v := normalizeEnumValue(raw)
	if v == "" {
		v = fallback
	}
	if v == "" || !contains(allowed, v) {
		if v == "" {
			return "", fmt.Errorf("--%s must be one of: %s", name, strings.Join(allowed, ", "))
		}
		return "", fmt.Errorf("unsupported --%s: %s (must be one of: %s)", name, v, strings.Join(allowed, ", "))
	}
	return v, nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// NormalizeAccountSelector accepts a raw account name or a GitHub URL like
// https://github.com/<name>, https://github.com/orgs/<name> or github.com/<name>.
func NormalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	raw = strings.TrimPrefix(raw, "@")

	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := parseGitHubURL(raw)
		if err != nil {
			return "", err
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" || parts[0] == "users" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

// ParseRepoSelector resolves OWNER/REPO, a GitHub URL (optionally with .git or a
// trailing /tree/... path) or an SSH remote into owner and name.
func ParseRepoSelector(raw string) (owner, name string, err error) {
	sel := strings.TrimSpace(raw)
	invalid := fmt.Errorf("invalid repository %q; expected owner/name", raw)
	if sel == "" {
		return "", "", invalid
	}

	fromURL := false
	if strings.HasPrefix(sel, "git@github.com:") {
		sel = strings.TrimPrefix(sel, "git@github.com:")
	} else {
		if strings.HasPrefix(sel, "github.com/") || strings.HasPrefix(sel, "www.github.com/") {
			sel = "https://" + sel
		}
		if strings.HasPrefix(sel, "http://") || strings.HasPrefix(sel, "https://") {
			u, perr := parseGitHubURL(sel)
			if perr != nil {
				return "", "", invalid
			}
			sel = u.Path
			fromURL = true
		}
	}

	// URLs may carry extra path segments (/tree/main); bare selectors may not.
	parts := strings.Split(strings.Trim(sel, "/"), "/")
	if len(parts) < 2 || (!fromURL && len(parts) != 2) {
		return "", "", invalid
	}
	owner = parts[0]
	name = strings.TrimSuffix(parts[1], ".git")
	if owner == "" || name == "" {
		return "", "", invalid
	}
	return owner, name, nil
}

func parseGitHubURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%q", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host == "www.github.com" {
		host = "github.com"
	}
	if host != "github.com" {
		return nil, fmt.Errorf("%q", raw)
	}
	return u, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
