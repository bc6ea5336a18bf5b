package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ghexplorer/internal/insights"
)

func TestGenerate_SendsPromptAndParsesCandidate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.RawQuery)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"## Hello"},{"text":" world\n"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1beta", "secret", "gemini-test")
	text, err := c.Generate(context.Background(), "analyze this")
	require.NoError(t, err)
	require.Equal(t, "## Hello world", text)

	require.Len(t, got.Contents, 1)
	require.Equal(t, "analyze this", got.Contents[0].Parts[0].Text)
	require.Equal(t, DefaultGenerationConfig(), got.GenerationConfig)
}

func TestGenerate_RateLimitedIsQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "").Generate(context.Background(), "p")
	require.Error(t, err)
	require.True(t, insights.IsQuotaExceeded(err))
	require.Contains(t, err.Error(), "Resource has been exhausted")
	require.NotContains(t, err.Error(), "k=")
}

func TestGenerate_ServerErrorIsNotQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "").Generate(context.Background(), "p")
	var perr *insights.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	require.Equal(t, "boom", perr.Message)
	require.False(t, insights.IsQuotaExceeded(err))
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "").Generate(context.Background(), "p")
	require.ErrorContains(t, err, "prompt blocked: SAFETY")
}

func TestGenerate_OversizedResponseIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + strings.Repeat("x", 512) + `"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "")
	c.MaxResponseBytes = 128
	_, err := c.Generate(context.Background(), "p")
	var perr *insights.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Message, "response exceeds 128 bytes")
	require.False(t, insights.IsQuotaExceeded(err))

	c.MaxResponseBytes = 0
	text, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, text, 512)
}

func TestGenerate_RequiresKey(t *testing.T) {
	_, err := NewClient("", " ", "").Generate(context.Background(), "p")
	require.ErrorContains(t, err, "api key is required")
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "k", "")
	c.Timeout = 20 * time.Millisecond
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "", "")
	require.Equal(t, DefaultBaseURL, c.BaseURL)
	require.Equal(t, DefaultModel, c.Model)
	require.Equal(t, "gemini", c.Name())
}
