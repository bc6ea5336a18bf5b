package github

import (
	"context"
	"fmt"
	"time"
)

// RateLevel buckets the remaining share of the core REST quota.
type RateLevel string

const (
	RateLevelOK   RateLevel = "ok"
	RateLevelWarn RateLevel = "warn"
	RateLevelLow  RateLevel = "low"
)

// RateStatus is the core REST rate limit as reported by GET /rate_limit.
type RateStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset"`
}

// UsagePercent is the consumed share of the quota, 0..100.
func (s RateStatus) UsagePercent() float64 {
	if s.Limit <= 0 {
		return 100
	}
	used := s.Limit - s.Remaining
	if used < 0 {
		used = 0
	}
	return float64(used) / float64(s.Limit) * 100
}

// Level is ok above 50% remaining, warn above 25%, low otherwise.
func (s RateStatus) Level() RateLevel {
	remaining := 100 - s.UsagePercent()
	switch {
	case remaining > 50:
		return RateLevelOK
	case remaining > 25:
		return RateLevelWarn
	default:
		return RateLevelLow
	}
}

// ResetIn is the time left until the quota resets, never negative.
func (s RateStatus) ResetIn(now time.Time) time.Duration {
	d := s.Reset.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RateSummary is a RateStatus with its derived figures, as reported to users.
type RateSummary struct {
	RateStatus
	UsagePercent   float64   `json:"usage_percent"`
	Level          RateLevel `json:"level"`
	ResetInSeconds int       `json:"reset_in_seconds"`
}

func (s RateStatus) Summarize(now time.Time) RateSummary {
	return RateSummary{
		RateStatus:     s,
		UsagePercent:   s.UsagePercent(),
		Level:          s.Level(),
		ResetInSeconds: int(s.ResetIn(now) / time.Second),
	}
}

// RateLimit fetches the core quota. The /rate_limit endpoint itself does not count
// against the quota.
func (c *Client) RateLimit(ctx context.Context) (RateStatus, error) {
	if ctx == nil {
		return RateStatus{}, fmt.Errorf("rate limit: ctx is nil")
	}
	if c == nil || c.Client == nil {
		return RateStatus{}, fmt.Errorf("rate limit: client is nil")
	}
	limits, _, err := c.Client.RateLimit.Get(ctx)
	if err != nil {
		return RateStatus{}, fmt.Errorf("rate limit: %w", err)
	}
	core := limits.GetCore()
	if core == nil {
		return RateStatus{}, fmt.Errorf("rate limit: response has no core quota")
	}
	return RateStatus{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Used:      core.Used,
		Reset:     core.Reset.Time,
	}, nil
}
