package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Operation is one call to the quota-limited endpoint. It receives the context passed
// to Submit.
type Operation func(ctx context.Context) (any, error)

type workItem struct {
	id         string
	ctx        context.Context
	op         Operation
	retryCount int
	attempts   int
	enqueuedAt time.Time
	backoff    backoff.BackOff
	future     *Future
}

// Governor serializes calls to a quota-limited endpoint. Items are dispatched one at a
// time in FIFO order, no more than RequestsPerWindow per Window and never closer than
// MinDelay apart. Quota-exceeded failures are retried from the back of the queue with
// exponential backoff; every other failure is returned to the caller as is.
//
// A Governor owns no goroutine while its queue is empty. Submit starts the processing
// goroutine on demand and it exits once the queue drains.
type Governor struct {
	cfg      Config
	clock    Clock
	isQuota  func(error) bool
	logger   *zap.Logger
	observer Observer

	mu               sync.Mutex
	queue            []*workItem
	windowStart      time.Time
	requestsInWindow int
	lastDispatchAt   time.Time
	dispatched       bool
	running          bool
}

type Option func(*Governor)

func WithClock(c Clock) Option {
	return func(g *Governor) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithClassifier replaces the quota-exceeded predicate. The default matches
// ErrQuotaExceeded with errors.Is.
func WithClassifier(isQuotaExceeded func(error) bool) Option {
	return func(g *Governor) {
		if isQuotaExceeded != nil {
			g.isQuota = isQuotaExceeded
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Governor) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Governor) {
		if o != nil {
			g.observer = o
		}
	}
}

func New(cfg Config, opts ...Option) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("governor: %w", err)
	}
	g := &Governor{
		cfg:      cfg,
		clock:    systemClock{},
		isQuota:  isQuotaExceeded,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, apply := range opts {
		if apply != nil {
			apply(g)
		}
	}
	g.windowStart = g.clock.Now()
	return g, nil
}

// Config returns the policy the Governor was built with.
func (g *Governor) Config() Config {
	return g.cfg
}

// Submit enqueues op and returns immediately. Cancelling ctx before op is dispatched
// withdraws the item; its Future then rejects with ctx.Err().
func (g *Governor) Submit(ctx context.Context, op Operation) *Future {
	id := uuid.NewString()
	f := newFuture(id)
	switch {
	case g == nil:
		f.settle(nil, errors.New("governor: nil Governor (use New)"))
		return f
	case ctx == nil:
		f.settle(nil, errors.New("governor: nil context"))
		return f
	case op == nil:
		f.settle(nil, errors.New("governor: nil operation"))
		return f
	}

	item := &workItem{
		id:      id,
		ctx:     ctx,
		op:      op,
		backoff: g.cfg.newBackOff(),
		future:  f,
	}

	g.mu.Lock()
	item.enqueuedAt = g.clock.Now()
	g.queue = append(g.queue, item)
	depth := len(g.queue)
	start := !g.running
	g.running = true
	g.mu.Unlock()

	g.observer.Enqueued(id, depth)
	if start {
		go g.run()
	}
	return f
}

// Do submits fn and waits for its result.
func Do[T any](ctx context.Context, g *Governor, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, errors.New("governor: nil operation")
	}
	f := g.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	v, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("governor: unexpected result type %T", v)
	}
	return t, nil
}

// Stats is a point-in-time view of the Governor state.
type Stats struct {
	QueueDepth       int
	RequestsInWindow int
	WindowStart      time.Time
	LastDispatchAt   time.Time
	Running          bool
}

func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		QueueDepth:       len(g.queue),
		RequestsInWindow: g.requestsInWindow,
		WindowStart:      g.windowStart,
		LastDispatchAt:   g.lastDispatchAt,
		Running:          g.running,
	}
}

type stepKind int

const (
	stepStop stepKind = iota
	stepWait
	stepDispatch
)

type step struct {
	kind     stepKind
	wait     time.Duration
	item     *workItem
	canceled []*workItem
	depth    int
}

func (g *Governor) run() {
	for {
		s := g.admit()
		g.rejectCanceled(s.canceled, s.depth)

		switch s.kind {
		case stepStop:
			return
		case stepWait:
			g.sleep(s.wait)
		case stepDispatch:
			g.observer.Dispatched(s.item.id, s.item.attempts)
			val, err := invoke(s.item)
			g.sleep(g.complete(s.item, val, err))
		}
	}
}

// admit evaluates the admission gate and, when it passes, charges the dispatch of the
// front item to the current window.
func (g *Governor) admit() step {
	g.mu.Lock()
	defer g.mu.Unlock()

	var s step
	s.canceled = g.dropCanceledLocked()
	s.depth = len(g.queue)

	if len(g.queue) == 0 {
		g.running = false
		s.kind = stepStop
		return s
	}

	now := g.clock.Now()
	if now.Sub(g.windowStart) >= g.cfg.Window {
		g.requestsInWindow = 0
		g.windowStart = now
	}

	if g.requestsInWindow >= g.cfg.RequestsPerWindow {
		s.kind = stepWait
		s.wait = g.cfg.Window - now.Sub(g.windowStart) + g.cfg.SafetyMargin
		return s
	}
	if g.dispatched {
		if since := now.Sub(g.lastDispatchAt); since < g.cfg.MinDelay {
			s.kind = stepWait
			s.wait = g.cfg.MinDelay - since + g.cfg.SafetyMargin
			return s
		}
	}

	item := g.queue[0]
	item.attempts++
	g.lastDispatchAt = now
	g.dispatched = true
	g.requestsInWindow++

	s.kind = stepDispatch
	s.item = item
	return s
}

func (g *Governor) dropCanceledLocked() []*workItem {
	var canceled []*workItem
	kept := g.queue[:0]
	for _, it := range g.queue {
		if it.ctx.Err() != nil {
			canceled = append(canceled, it)
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(g.queue); i++ {
		g.queue[i] = nil
	}
	g.queue = kept
	return canceled
}

func (g *Governor) rejectCanceled(items []*workItem, depth int) {
	for _, it := range items {
		it.future.settle(nil, it.ctx.Err())
		g.observer.Settled(it.id, OutcomeCanceled, g.waited(it), depth)
	}
}

func invoke(item *workItem) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			val, err = nil, &PanicError{Value: r}
		}
	}()
	return item.op(item.ctx)
}

// complete settles or re-queues item after an attempt and returns how long the
// processing goroutine should wait before the next admission check.
func (g *Governor) complete(item *workItem, val any, err error) time.Duration {
	g.mu.Lock()
	g.removeLocked(item)

	var (
		outcome   Outcome
		settleErr error
	)
	switch {
	case err == nil:
		outcome = OutcomeResolved
	case g.isQuota(err):
		if delay := item.backoff.NextBackOff(); delay != backoff.Stop {
			item.retryCount++
			g.queue = append(g.queue, item)
			g.mu.Unlock()

			g.logger.Debug("quota exceeded, retry scheduled",
				zap.String("item", item.id),
				zap.Int("retry", item.retryCount),
				zap.Int("max_retries", g.cfg.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(err))
			g.observer.RetryScheduled(item.id, item.retryCount, delay)
			return delay
		}
		outcome = OutcomeExhausted
		settleErr = &RetriesExhaustedError{Retries: item.retryCount, Err: err}
	default:
		outcome = OutcomeRejected
		settleErr = err
	}
	if settleErr != nil {
		val = nil
	}
	depth := len(g.queue)
	g.mu.Unlock()

	item.future.settle(val, settleErr)
	g.observer.Settled(item.id, outcome, g.waited(item), depth)

	if depth > 0 {
		return g.cfg.MinDelay
	}
	return 0
}

func (g *Governor) removeLocked(item *workItem) {
	if len(g.queue) > 0 && g.queue[0] == item {
		g.queue[0] = nil
		g.queue = g.queue[1:]
		return
	}
	for i, it := range g.queue {
		if it == item {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return
		}
	}
}

func (g *Governor) waited(item *workItem) time.Duration {
	return g.clock.Now().Sub(item.enqueuedAt)
}

func (g *Governor) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-g.clock.After(d)
}
