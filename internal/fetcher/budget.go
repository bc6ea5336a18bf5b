package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RequestBudget tracks the GitHub core rate limit as reported by response
// headers and blocks callers once it is spent. An optional token bucket paces
// requests below the server-side ceiling.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	limit     int
	reset     time.Time
	now       func() time.Time
	trialSent bool
	cooldown  time.Time
	notifyCh  chan struct{}
	limiter   *rate.Limiter
}

type BudgetOption func(*RequestBudget)

// WithQPS paces requests to at most qps per second with a burst of one.
// Zero or negative leaves requests unpaced.
func WithQPS(qps float64) BudgetOption {
	return func(b *RequestBudget) {
		if qps > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

func NewRequestBudget(opts ...BudgetOption) *RequestBudget {
	b := &RequestBudget{
		remaining: 5000, // Authenticated ceiling until the first response says otherwise.
		limit:     5000,
		reset:     time.Now().Add(1 * time.Hour),
		now:       time.Now,
		notifyCh:  make(chan struct{}),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(b)
		}
	}
	return b
}

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Snapshot returns the last observed limit, remaining count and reset time.
func (b *RequestBudget) Snapshot() (limit, remaining int, reset time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit, b.remaining, b.reset
}

// Acquire reserves n requests, waiting for the pacing limiter, any Retry-After
// cooldown and, once the budget is spent, the reset time.
func (b *RequestBudget) Acquire(ctx context.Context, n int) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if n <= 0 {
		return fmt.Errorf("Acquire: n must be > 0 (got %d)", n)
	}
	if b == nil {
		return fmt.Errorf("Acquire: nil RequestBudget")
	}
	if b.now == nil || b.notifyCh == nil {
		return fmt.Errorf("Acquire: RequestBudget is not initialized (use NewRequestBudget)")
	}

	for i := 0; i < n; i++ {
		if err := b.acquireOne(ctx); err != nil {
			return err
		}
	}
	if b.limiter != nil {
		// Burst is one, so reserve tokens one at a time.
		for i := 0; i < n; i++ {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *RequestBudget) acquireOne(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.now()

		if now.Before(b.cooldown) {
			until := b.cooldown
			ch := b.notifyCh
			b.mu.Unlock()
			if err := waitUntil(ctx, until.Sub(now), ch); err != nil {
				return err
			}
			continue
		}

		if b.remaining > 0 {
			b.remaining--
			b.mu.Unlock()
			return nil
		}

		// Past the reset with no fresh headers yet: let one trial request through and hold
		// everyone else until UpdateFromResponse reports the new budget.
		if !now.Before(b.reset) {
			if !b.trialSent {
				b.trialSent = true
				b.mu.Unlock()
				return nil
			}
			ch := b.notifyCh
			b.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ch:
				continue
			}
		}

		reset := b.reset
		ch := b.notifyCh
		b.mu.Unlock()
		if err := waitUntil(ctx, reset.Sub(now), ch); err != nil {
			return err
		}
	}
}

// waitUntil blocks for d, returning early when ch is closed.
func waitUntil(ctx context.Context, d time.Duration, ch <-chan struct{}) error {
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	case <-timer.C:
		return nil
	}
}

func (b *RequestBudget) signalLocked() {
	if b.notifyCh == nil {
		b.notifyCh = make(chan struct{})
		return
	}
	close(b.notifyCh)
	b.notifyCh = make(chan struct{})
}

// UpdateFromResponse folds the rate-limit headers of resp into the budget.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if resp == nil || b == nil || b.now == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false

	if seconds, ok := headerInt(resp, "Retry-After"); ok && seconds > 0 {
		until := b.now().Add(time.Duration(seconds) * time.Second)
		if until.After(b.cooldown) {
			b.cooldown = until
			changed = true
		}
	}

	if val, ok := headerInt(resp, "X-RateLimit-Limit"); ok && val > 0 {
		b.limit = val
	}

	if val, ok := headerInt(resp, "X-RateLimit-Remaining"); ok && val >= 0 && b.remaining != val {
		b.remaining = val
		changed = true
	}

	if val, ok := headerInt(resp, "X-RateLimit-Reset"); ok && val > 0 {
		newReset := time.Unix(int64(val), 0)
		if !b.reset.Equal(newReset) {
			b.reset = newReset
			changed = true
		}
	}

	if changed {
		b.trialSent = false
		b.signalLocked()
	}
}

func headerInt(resp *http.Response, name string) (int, bool) {
	raw := resp.Header.Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
