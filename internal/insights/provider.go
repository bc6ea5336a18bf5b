// Package insights produces a narrative analysis of a repository, from a
// generative-language provider when one is configured and from local metrics
// otherwise. Provider calls go through a governor.Governor so a shared quota is
// respected across concurrent requests.
package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider turns a prompt into generated text.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name returns the provider identifier (e.g., "gemini").
	Name() string
}

// ProviderError is returned when a provider responds with a non-2xx status.
// Message never includes credentials.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// IsQuotaExceeded reports whether err is a provider rate-limit response (HTTP
// 429). It is the governor's retry classifier for insight requests.
func IsQuotaExceeded(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr != nil && perr.StatusCode == http.StatusTooManyRequests
}
