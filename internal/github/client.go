package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Client struct {
	Client *github.Client
	HTTP   *http.Client
}

type options struct {
	// logger receives one debug entry per request and response. Its level decides
	// whether anything is written, so --verbose maps onto a debug-level logger.
	logger    *zap.Logger
	baseURL   string
	transport http.RoundTripper
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBaseURL points the REST client at another API root (GitHub Enterprise, tests).
func WithBaseURL(raw string) Option {
	return func(o *options) {
		o.baseURL = raw
	}
}

// WithTransport replaces http.DefaultTransport as the innermost round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// loggingRoundTripper wraps an underlying transport and logs each request and
// response, including latency.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("github api request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("github api error", zap.Duration("latency", dur), zap.Error(err))
		return resp, err
	}
	t.logger.Debug("github api response",
		zap.Int("status", resp.StatusCode),
		zap.String("remaining", resp.Header.Get("X-RateLimit-Remaining")),
		zap.Duration("latency", dur))
	return resp, nil
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	transport := o.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if o.logger != nil && o.logger.Core().Enabled(zap.DebugLevel) {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	tc := &http.Client{Transport: transport}

	gc := github.NewClient(tc)
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("github client: invalid base URL %q", o.baseURL)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gc.BaseURL = u
		gc.UploadURL = u
	}

	return &Client{
		Client: gc,
		HTTP:   tc,
	}, nil
}
