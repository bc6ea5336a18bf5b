package governor

import (
	"context"
	"sync"
)

// Future is the caller's handle on a submitted operation. It settles exactly once.
type Future struct {
	id   string
	done chan struct{}
	once sync.Once
	val  any
	err  error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// ID identifies the underlying work item in logs and metrics.
func (f *Future) ID() string {
	return f.id
}

// Done is closed once the item resolves or rejects.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the item settles or ctx is done. Giving up on the wait does not
// withdraw the item; cancel the context passed to Submit for that.
func (f *Future) Wait(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		// Prefer a settled result over a simultaneous cancellation.
		select {
		case <-f.done:
			return f.val, f.err
		default:
		}
		return nil, ctx.Err()
	}
}

func (f *Future) settle(val any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
		settled = true
	})
	return settled
}
