package github

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"
)

// TokenSource names where a resolved token came from. It is logged; the token
// never is.
type TokenSource string

const (
	TokenFromFlag      TokenSource = "explicit"
	TokenFromGitHubEnv TokenSource = "env:GITHUB_TOKEN"
	TokenFromGHEnv     TokenSource = "env:GH_TOKEN"
	TokenFromGHCLI     TokenSource = "gh"
)

const ghLookupTimeout = 5 * time.Second

// Token is a resolved credential. The zero value means anonymous access.
type Token struct {
	Value  string
	Source TokenSource
}

// Anonymous reports whether no credential was found.
func (t Token) Anonymous() bool { return t.Value == "" }

var envTokenSources = []struct {
	name   string
	source TokenSource
}{
	{"GITHUB_TOKEN", TokenFromGitHubEnv},
	{"GH_TOKEN", TokenFromGHEnv},
}

// ResolveAuthToken picks the first credential from: provided, $GITHUB_TOKEN,
// $GH_TOKEN, then `gh auth token` for the host behind apiURL. Finding nothing
// is not an error.
func ResolveAuthToken(ctx context.Context, provided, apiURL string) (Token, error) {
	if v := strings.TrimSpace(provided); v != "" {
		return Token{Value: v, Source: TokenFromFlag}, nil
	}
	for _, env := range envTokenSources {
		if v := strings.TrimSpace(os.Getenv(env.name)); v != "" {
			return Token{Value: v, Source: env.source}, nil
		}
	}

	v, err := ghAuthToken(ctx, GHHost(apiURL))
	if err != nil || v == "" {
		return Token{}, err
	}
	return Token{Value: v, Source: TokenFromGHCLI}, nil
}

// GHHost maps a REST API root to the host name gh keeps credentials under:
// api.github.com and "" are github.com, https://ghe.corp/api/v3 is ghe.corp,
// and api.<tenant>.ghe.com is <tenant>.ghe.com.
func GHHost(apiURL string) string {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil || u.Hostname() == "" {
		return "github.com"
	}
	host := strings.ToLower(u.Hostname())
	if host == "api.github.com" {
		return "github.com"
	}
	return strings.TrimPrefix(host, "api.")
}

// ghAuthToken asks the gh CLI for its stored token. A missing binary or a
// host gh is not logged in to yields "".
func ghAuthToken(ctx context.Context, host string) (string, error) {
	bin, err := exec.LookPath("gh")
	if err != nil {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, ghLookupTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "auth", "token", "--hostname", host)
	// Later entries win, so these override any inherited values.
	cmd.Env = append(os.Environ(), "GH_PAGER=cat", "NO_COLOR=1")
	out, err := cmd.Output()
	if err != nil {
		// gh's stderr is dropped; it can echo credential helper output.
		return "", ctx.Err()
	}

	v := strings.TrimSpace(string(out))
	if strings.ContainsFunc(v, unicode.IsSpace) {
		return "", fmt.Errorf("gh auth token for %s: output is not a single token", host)
	}
	return v, nil
}
