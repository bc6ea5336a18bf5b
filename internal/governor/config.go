package governor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config fixes the admission and retry policy of a Governor. It is read once by New.
type Config struct {
	// RequestsPerWindow is the maximum number of dispatches per accounting window.
	RequestsPerWindow int

	// Window is the length of the accounting window.
	Window time.Duration

	// MinDelay is the minimum spacing between any two consecutive dispatches.
	MinDelay time.Duration

	// MaxRetries bounds how many times one item is retried after a quota-exceeded failure.
	MaxRetries int

	// RetryDelay is the delay before the first retry of an item.
	RetryDelay time.Duration

	// BackoffMultiplier grows the retry delay on every further retry.
	BackoffMultiplier float64

	// SafetyMargin is added to every admission-gate wait.
	SafetyMargin time.Duration
}

// DefaultConfig returns the conservative policy used for the generative-language API
// free tier: two calls per minute, 35s apart, three retries starting at 45s.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		MinDelay:          35 * time.Second,
		MaxRetries:        3,
		RetryDelay:        45 * time.Second,
		BackoffMultiplier: 1.5,
		SafetyMargin:      time.Second,
	}
}

func (c Config) Validate() error {
	if c.RequestsPerWindow < 1 {
		return fmt.Errorf("requests per window must be >= 1 (got %d)", c.RequestsPerWindow)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be > 0 (got %s)", c.Window)
	}
	if c.MinDelay < 0 {
		return errors.New("min delay must be >= 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return errors.New("retry delay must be >= 0")
	}
	if c.BackoffMultiplier < 1 || math.IsNaN(c.BackoffMultiplier) || math.IsInf(c.BackoffMultiplier, 0) {
		return fmt.Errorf("backoff multiplier must be a finite value >= 1 (got %v)", c.BackoffMultiplier)
	}
	if c.SafetyMargin < 0 {
		return errors.New("safety margin must be >= 0")
	}
	return nil
}

// newBackOff returns the retry schedule for one work item: RetryDelay before the first
// retry, multiplied by BackoffMultiplier for each following one, and backoff.Stop once
// MaxRetries retries have been handed out.
func (c Config) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.RetryDelay
	eb.Multiplier = c.BackoffMultiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.MaxElapsedTime = 0

	b := backoff.WithMaxRetries(eb, uint64(c.MaxRetries))
	b.Reset()
	return b
}
