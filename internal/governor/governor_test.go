package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// virtualClock advances only when the processing goroutine sleeps, so a schedule that
// spans minutes of governor time runs instantly and deterministically.
type virtualClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

var epoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newVirtualClock() *virtualClock {
	return &virtualClock{now: epoch}
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *virtualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func (c *virtualClock) Elapsed() time.Duration {
	return c.Now().Sub(epoch)
}

// recorder captures the virtual time of every dispatch, in order.
type recorder struct {
	mu    sync.Mutex
	clock *virtualClock
	calls []call
}

type call struct {
	name string
	at   time.Duration
}

func (r *recorder) op(name string, result func(attempt int) (any, error)) Operation {
	attempt := 0
	return func(context.Context) (any, error) {
		r.mu.Lock()
		r.calls = append(r.calls, call{name: name, at: r.clock.Elapsed()})
		r.mu.Unlock()
		attempt++
		return result(attempt)
	}
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.name)
	}
	return out
}

func (r *recorder) times() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.at)
	}
	return out
}

func succeed(v any) func(int) (any, error) {
	return func(int) (any, error) { return v, nil }
}

func wait(t *testing.T, f *Future) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "future did not settle")
	return v, err
}

// gate blocks the first dispatched operation until release is called, so a test can
// queue several items behind it before the processing goroutine moves on.
type gate struct {
	ch   chan struct{}
	once sync.Once
}

func newGate() *gate { return &gate{ch: make(chan struct{})} }

func (g *gate) wrap(op Operation) Operation {
	return func(ctx context.Context) (any, error) {
		<-g.ch
		return op(ctx)
	}
}

func (g *gate) release() { g.once.Do(func() { close(g.ch) }) }

func fastConfig() Config {
	return Config{
		RequestsPerWindow: 1000,
		Window:            time.Hour,
		MinDelay:          0,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		BackoffMultiplier: 2,
		SafetyMargin:      time.Second,
	}
}

func newTestGovernor(t *testing.T, cfg Config, opts ...Option) (*Governor, *virtualClock, *recorder) {
	t.Helper()
	clock := newVirtualClock()
	g, err := New(cfg, append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return g, clock, &recorder{clock: clock}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero requests per window", mutate: func(c *Config) { c.RequestsPerWindow = 0 }},
		{name: "zero window", mutate: func(c *Config) { c.Window = 0 }},
		{name: "negative min delay", mutate: func(c *Config) { c.MinDelay = -time.Second }},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }},
		{name: "negative retry delay", mutate: func(c *Config) { c.RetryDelay = -time.Second }},
		{name: "multiplier below one", mutate: func(c *Config) { c.BackoffMultiplier = 0.5 }},
		{name: "negative margin", mutate: func(c *Config) { c.SafetyMargin = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
		})
	}

	_, err := New(DefaultConfig())
	require.NoError(t, err)
}

func TestSubmit_FIFOWithoutContention(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	const n = 10
	futures := make([]*Future, 0, n)

	gt := newGate()
	for i := 0; i < n; i++ {
		op := rec.op(fmt.Sprintf("op-%d", i), succeed(i))
		if i == 0 {
			op = gt.wrap(op)
		}
		futures = append(futures, g.Submit(context.Background(), op))
	}
	gt.release()

	for i, f := range futures {
		v, err := wait(t, f)
		require.NoError(t, err)
		require.Equal(t, i, v)
	}

	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		want = append(want, fmt.Sprintf("op-%d", i))
	}
	require.Equal(t, want, rec.names())
}

func TestSubmit_ExampleScenario(t *testing.T) {
	g, _, rec := newTestGovernor(t, DefaultConfig())

	gt := newGate()
	f1 := g.Submit(context.Background(), gt.wrap(rec.op("O1", succeed(1))))
	f2 := g.Submit(context.Background(), rec.op("O2", succeed(2)))
	f3 := g.Submit(context.Background(), rec.op("O3", succeed(3)))
	gt.release()

	for _, f := range []*Future{f1, f2, f3} {
		_, err := wait(t, f)
		require.NoError(t, err)
	}

	require.Equal(t, []string{"O1", "O2", "O3"}, rec.names())
	// O2 waits out the spacing floor. O3 is held by the window ceiling and the spacing
	// floor after O2, whichever is later.
	require.Equal(t, []time.Duration{0, 35 * time.Second, 70 * time.Second}, rec.times())
}

func TestSubmit_WindowCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDelay = 0
	g, _, rec := newTestGovernor(t, cfg)

	gt := newGate()
	var futures []*Future
	for i := 0; i < 5; i++ {
		op := rec.op(fmt.Sprintf("op-%d", i), succeed(i))
		if i == 0 {
			op = gt.wrap(op)
		}
		futures = append(futures, g.Submit(context.Background(), op))
	}
	gt.release()
	for _, f := range futures {
		_, err := wait(t, f)
		require.NoError(t, err)
	}

	times := rec.times()
	require.Len(t, times, 5)
	require.Equal(t, []time.Duration{0, 0, 61 * time.Second, 61 * time.Second, 122 * time.Second}, times)
	assertWindowCeiling(t, times, cfg.RequestsPerWindow, cfg.Window)
}

func TestSubmit_MinimumSpacing(t *testing.T) {
	g, _, rec := newTestGovernor(t, DefaultConfig())

	gt := newGate()
	var futures []*Future
	for i := 0; i < 5; i++ {
		op := rec.op(fmt.Sprintf("op-%d", i), succeed(i))
		if i == 0 {
			op = gt.wrap(op)
		}
		futures = append(futures, g.Submit(context.Background(), op))
	}
	gt.release()
	for _, f := range futures {
		_, err := wait(t, f)
		require.NoError(t, err)
	}

	times := rec.times()
	for i := 1; i < len(times); i++ {
		require.GreaterOrEqual(t, times[i]-times[i-1], 35*time.Second, "dispatch %d too close to %d", i, i-1)
	}
	assertWindowCeiling(t, times, 2, time.Minute)
}

func TestSubmit_SpacingAppliesAcrossIdlePeriods(t *testing.T) {
	cfg := DefaultConfig()
	g, _, rec := newTestGovernor(t, cfg)

	_, err := wait(t, g.Submit(context.Background(), rec.op("first", succeed(1))))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !g.Stats().Running }, time.Second, time.Millisecond)

	// The queue drained and the goroutine exited; a later submit still honours the
	// spacing floor relative to the last dispatch.
	_, err = wait(t, g.Submit(context.Background(), rec.op("second", succeed(2))))
	require.NoError(t, err)
	require.Equal(t, []time.Duration{0, 36 * time.Second}, rec.times())
}

func assertWindowCeiling(t *testing.T, times []time.Duration, limit int, window time.Duration) {
	t.Helper()
	for i := range times {
		count := 0
		for j := i; j < len(times); j++ {
			if times[j]-times[i] < window {
				count++
			}
		}
		require.LessOrEqual(t, count, limit, "more than %d dispatches within %s starting at %s", limit, window, times[i])
	}
}

func TestSubmit_RetriesQuotaExceeded(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	op := rec.op("flaky", func(attempt int) (any, error) {
		if attempt <= 2 {
			return nil, fmt.Errorf("attempt %d: %w", attempt, ErrQuotaExceeded)
		}
		return "ok", nil
	})

	v, err := wait(t, g.Submit(context.Background(), op))
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, []string{"flaky", "flaky", "flaky"}, rec.names())
}

func TestSubmit_BackoffGrowth(t *testing.T) {
	g, clock, rec := newTestGovernor(t, fastConfig())

	op := rec.op("always-limited", func(int) (any, error) {
		return nil, ErrQuotaExceeded
	})
	_, err := wait(t, g.Submit(context.Background(), op))
	require.Error(t, err)

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, clock.Sleeps())
	require.Equal(t, []time.Duration{0, time.Second, 3 * time.Second, 7 * time.Second}, rec.times())
}

func TestSubmit_NonQuotaErrorIsTerminal(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	boom := errors.New("unauthorized")
	_, err := wait(t, g.Submit(context.Background(), rec.op("auth", func(int) (any, error) {
		return nil, boom
	})))
	require.ErrorIs(t, err, boom)

	var exhausted *RetriesExhaustedError
	require.False(t, errors.As(err, &exhausted))
	require.Len(t, rec.names(), 1)
}

func TestSubmit_RetriesExhausted(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 3
	g, _, rec := newTestGovernor(t, cfg)

	attempt := 0
	_, err := wait(t, g.Submit(context.Background(), rec.op("limited", func(int) (any, error) {
		attempt++
		return nil, fmt.Errorf("limited on attempt %d: %w", attempt, ErrQuotaExceeded)
	})))

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Retries)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.Contains(t, exhausted.Err.Error(), "attempt 4")
	require.Len(t, rec.names(), 4)
}

func TestSubmit_ZeroRetries(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 0
	g, _, rec := newTestGovernor(t, cfg)

	_, err := wait(t, g.Submit(context.Background(), rec.op("limited", func(int) (any, error) {
		return nil, ErrQuotaExceeded
	})))
	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 0, exhausted.Retries)
	require.Len(t, rec.names(), 1)
}

func TestSubmit_FailureDoesNotBlockOthers(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	gt := newGate()
	bad := g.Submit(context.Background(), gt.wrap(rec.op("bad", func(int) (any, error) {
		return nil, errors.New("malformed response")
	})))
	good := g.Submit(context.Background(), rec.op("good", succeed("fine")))
	gt.release()

	_, err := wait(t, bad)
	require.Error(t, err)
	v, err := wait(t, good)
	require.NoError(t, err)
	require.Equal(t, "fine", v)
}

func TestSubmit_RetriedItemMovesToBack(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	gt := newGate()
	a := g.Submit(context.Background(), gt.wrap(rec.op("A", func(attempt int) (any, error) {
		if attempt == 1 {
			return nil, ErrQuotaExceeded
		}
		return "a", nil
	})))
	b := g.Submit(context.Background(), rec.op("B", succeed("b")))
	gt.release()

	_, err := wait(t, a)
	require.NoError(t, err)
	_, err = wait(t, b)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "A"}, rec.names())
}

func TestSubmit_CustomClassifier(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig(), WithClassifier(func(err error) bool {
		return err != nil && err.Error() == "429"
	}))

	_, err := wait(t, g.Submit(context.Background(), rec.op("x", func(attempt int) (any, error) {
		if attempt == 1 {
			return nil, errors.New("429")
		}
		return nil, ErrQuotaExceeded
	})))
	// ErrQuotaExceeded is not quota-exceeded under the custom classifier.
	require.ErrorIs(t, err, ErrQuotaExceeded)
	var exhausted *RetriesExhaustedError
	require.False(t, errors.As(err, &exhausted))
	require.Len(t, rec.names(), 2)
}

func TestSubmit_CanceledBeforeDispatch(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	gt := newGate()
	first := g.Submit(context.Background(), gt.wrap(rec.op("first", succeed(1))))

	ctx, cancel := context.WithCancel(context.Background())
	withdrawn := g.Submit(ctx, rec.op("withdrawn", succeed(2)))
	last := g.Submit(context.Background(), rec.op("last", succeed(3)))
	cancel()
	gt.release()

	_, err := wait(t, first)
	require.NoError(t, err)
	_, err = wait(t, withdrawn)
	require.ErrorIs(t, err, context.Canceled)
	_, err = wait(t, last)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "last"}, rec.names())
}

func TestSubmit_PanicIsContained(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	gt := newGate()
	bad := g.Submit(context.Background(), gt.wrap(func(context.Context) (any, error) {
		panic("kaboom")
	}))
	good := g.Submit(context.Background(), rec.op("good", succeed(1)))
	gt.release()

	_, err := wait(t, bad)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "kaboom", pe.Value)

	_, err = wait(t, good)
	require.NoError(t, err)
}

func TestSubmit_InvalidArguments(t *testing.T) {
	g, _, _ := newTestGovernor(t, fastConfig())

	_, err := wait(t, g.Submit(context.Background(), nil))
	require.Error(t, err)

	//nolint:staticcheck // nil context is the case under test
	_, err = wait(t, g.Submit(nil, func(context.Context) (any, error) { return nil, nil }))
	require.Error(t, err)

	var nilGov *Governor
	_, err = wait(t, nilGov.Submit(context.Background(), func(context.Context) (any, error) { return nil, nil }))
	require.Error(t, err)
}

func TestDo_TypedResult(t *testing.T) {
	g, _, _ := newTestGovernor(t, fastConfig())

	got, err := Do(context.Background(), g, func(context.Context) (string, error) {
		return "summary", nil
	})
	require.NoError(t, err)
	require.Equal(t, "summary", got)

	_, err = Do(context.Background(), g, func(context.Context) (int, error) {
		return 0, errors.New("nope")
	})
	require.EqualError(t, err, "nope")

	var nilErr error
	gotErr, err := Do(context.Background(), g, func(context.Context) (error, error) {
		return nilErr, nil
	})
	require.NoError(t, err)
	require.Nil(t, gotErr)
}

func TestStats_DrainsToIdle(t *testing.T) {
	g, _, rec := newTestGovernor(t, fastConfig())

	_, err := wait(t, g.Submit(context.Background(), rec.op("one", succeed(1))))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := g.Stats()
		return !s.Running && s.QueueDepth == 0
	}, time.Second, time.Millisecond)

	s := g.Stats()
	require.Equal(t, 1, s.RequestsInWindow)
	require.Equal(t, epoch, s.LastDispatchAt)
}

type countingObserver struct {
	mu       sync.Mutex
	enqueued int
	dispatch int
	retries  []time.Duration
	outcomes []Outcome
}

func (o *countingObserver) Enqueued(string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enqueued++
}

func (o *countingObserver) Dispatched(string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dispatch++
}

func (o *countingObserver) RetryScheduled(_ string, _ int, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, d)
}

func (o *countingObserver) Settled(_ string, out Outcome, _ time.Duration, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, out)
}

func TestObserver_ReceivesLifecycle(t *testing.T) {
	obs := &countingObserver{}
	cfg := fastConfig()
	cfg.MaxRetries = 1
	g, _, rec := newTestGovernor(t, cfg, WithObserver(obs))

	gt := newGate()
	a := g.Submit(context.Background(), gt.wrap(rec.op("a", succeed(1))))
	b := g.Submit(context.Background(), rec.op("b", func(int) (any, error) { return nil, ErrQuotaExceeded }))
	gt.release()
	_, _ = wait(t, a)
	_, _ = wait(t, b)

	require.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.outcomes) == 2
	}, time.Second, time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, 2, obs.enqueued)
	require.Equal(t, 3, obs.dispatch)
	require.Equal(t, []time.Duration{time.Second}, obs.retries)
	require.Equal(t, []Outcome{OutcomeResolved, OutcomeExhausted}, obs.outcomes)
}
