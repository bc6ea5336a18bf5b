package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":2,"name":"bravo","full_name":"acme/bravo","owner":{"login":"acme"},"language":"Go","stargazers_count":500},
			{"id":1,"name":"alpha","full_name":"acme/alpha","owner":{"login":"acme"},"language":"Rust","stargazers_count":50}
		]`)
	})
	mux.HandleFunc("/repos/acme/alpha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"name":"alpha","full_name":"acme/alpha","owner":{"login":"acme"},"language":"Rust",
			"description":"The first","stargazers_count":50,"forks_count":3,"html_url":"https://github.com/acme/alpha",
			"updated_at":"2025-05-30T00:00:00Z","pushed_at":"2025-05-30T00:00:00Z"}`)
	})
	mux.HandleFunc("/repos/acme/alpha/languages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Rust":900,"Shell":100}`)
	})
	mux.HandleFunc("/repos/acme/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		reset := time.Now().Add(10 * time.Minute).Unix()
		fmt.Fprint(w, `{"resources":{"core":{"limit":60,"remaining":15,"used":45,"reset":`+strconv.FormatInt(reset, 10)+`}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// runCLI isolates the command from the developer's tokens and config, then runs it.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PATH", t.TempDir())
	t.Chdir(t.TempDir())
	color.NoColor = true

	var out, errOut bytes.Buffer
	code = Run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123", "2025-06-01")
	t.Cleanup(func() { SetBuildInfo("dev", "unknown", "unknown") })

	code, out, _ := runCLI(t, "version")
	require.Equal(t, ExitOK, code)
	require.Contains(t, out, "ghexplorer 1.2.3")
	require.Contains(t, out, "commit: abc123")
}

func TestSearch_JSONConsole(t *testing.T) {
	gh := fakeGitHub(t)
	code, out, stderr := runCLI(t, "search", "--github-api-url", gh.URL, "--user", "acme",
		"--console-format", "json", "--sort", "stars-desc")
	require.Equal(t, ExitOK, code, stderr)

	var records []struct {
		FullName string `json:"full_name"`
		Stars    int    `json:"stars"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	require.Equal(t, "acme/bravo", records[0].FullName)
	require.Equal(t, "acme/alpha", records[1].FullName)
}

func TestSearch_ExitCode3_WhenNoSourceProvided(t *testing.T) {
	// --verbose bypasses the help shortcut and forces validation.
	code, _, stderr := runCLI(t, "search", "--verbose")
	require.Equal(t, ExitFatal, code)
	require.Contains(t, stderr, "one of --user or --query must be provided")
}

func TestSearch_ExitCode3_WhenOutFormatCannotBeInferred(t *testing.T) {
	code, _, stderr := runCLI(t, "search", "--user", "acme", "--out", "results.unknown")
	require.Equal(t, ExitFatal, code)
	require.Contains(t, stderr, "cannot infer output format")
}

func TestSearch_HelpDocumentsOutputAndExitCodes(t *testing.T) {
	code, out, _ := runCLI(t, "search", "--help")
	require.Equal(t, ExitOK, code)
	for _, want := range []string{"Output:", "Exit codes:", "NDJSON mode emits", "run.started", "repo.record", "GITHUB_TOKEN"} {
		require.Contains(t, out, want)
	}
}

func TestStats_JSONReportsMissingSections(t *testing.T) {
	gh := fakeGitHub(t)
	code, out, stderr := runCLI(t, "stats", "--github-api-url", gh.URL, "acme/alpha", "--format", "json")
	require.Equal(t, ExitPartial, code, stderr)
	require.Contains(t, stderr, "Statistic unavailable")

	var report struct {
		Repo      string `json:"repo"`
		Languages []struct {
			Name string `json:"name"`
		} `json:"languages"`
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "acme/alpha", report.Repo)
	require.NotEmpty(t, report.Languages)
	require.Equal(t, "Rust", report.Languages[0].Name)
	require.Contains(t, report.Missing, "repo.contributors")
}

func TestStats_UnknownRepoIsFatal(t *testing.T) {
	gh := fakeGitHub(t)
	code, _, stderr := runCLI(t, "stats", "--github-api-url", gh.URL, "acme/missing")
	require.Equal(t, ExitFatal, code)
	require.Contains(t, stderr, "failed to fetch acme/missing")
}

func TestStats_InvalidSelector(t *testing.T) {
	code, _, stderr := runCLI(t, "stats", "not-a-repo")
	require.Equal(t, ExitFatal, code)
	require.Contains(t, stderr, "Error:")
}

func TestInsights_BasicWithoutAI(t *testing.T) {
	gh := fakeGitHub(t)
	code, out, stderr := runCLI(t, "insights", "--github-api-url", gh.URL, "--no-ai", "--format", "json", "acme/alpha")
	require.Equal(t, ExitOK, code, stderr)

	var got []struct {
		Repo        string `json:"repo"`
		Text        string `json:"text"`
		AIGenerated bool   `json:"ai_generated"`
		Source      string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "acme/alpha", got[0].Repo)
	require.False(t, got[0].AIGenerated)
	require.Equal(t, "basic", got[0].Source)
	require.Contains(t, got[0].Text, "- Name: alpha")
}

func TestInsights_KeepsArgumentOrderAndReportsFailures(t *testing.T) {
	gh := fakeGitHub(t)
	code, out, stderr := runCLI(t, "insights", "--github-api-url", gh.URL, "--no-ai", "--format", "json", "acme/missing", "acme/alpha")
	require.Equal(t, ExitPartial, code, stderr)

	var got []struct {
		Repo  string `json:"repo"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	require.Equal(t, "acme/missing", got[0].Repo)
	require.NotEmpty(t, got[0].Error)
	require.Equal(t, "acme/alpha", got[1].Repo)
	require.Empty(t, got[1].Error)
}

func TestInsights_AllFailedIsFatal(t *testing.T) {
	gh := fakeGitHub(t)
	code, _, _ := runCLI(t, "insights", "--github-api-url", gh.URL, "--no-ai", "acme/missing")
	require.Equal(t, ExitFatal, code)
}

func TestRateLimit_JSONAndText(t *testing.T) {
	gh := fakeGitHub(t)
	code, out, stderr := runCLI(t, "rate-limit", "--github-api-url", gh.URL, "--format", "json")
	require.Equal(t, ExitOK, code, stderr)

	var summary struct {
		Limit        int     `json:"limit"`
		Remaining    int     `json:"remaining"`
		UsagePercent float64 `json:"usage_percent"`
		Level        string  `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, 60, summary.Limit)
	require.Equal(t, 15, summary.Remaining)
	require.InDelta(t, 75.0, summary.UsagePercent, 0.001)
	require.Equal(t, "low", summary.Level)

	code, out, _ = runCLI(t, "rate-limit", "--github-api-url", gh.URL)
	require.Equal(t, ExitOK, code)
	require.Contains(t, out, "Remaining: 15/60")
	require.Contains(t, out, "Used:      75%")
}

func TestUnknownFormatIsFatal(t *testing.T) {
	code, _, stderr := runCLI(t, "rate-limit", "--format", "xml")
	require.Equal(t, ExitFatal, code)
	require.Contains(t, stderr, "unsupported --format: xml")
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	code, _, stderr := runCLI(t, "scan")
	require.Equal(t, ExitUsage, code)
	require.Contains(t, stderr, "unknown command")
}
