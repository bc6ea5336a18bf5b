package governor

import "time"

// Outcome is how a work item left the queue.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCanceled  Outcome = "canceled"
)

// Observer receives lifecycle notifications. Calls are made without the Governor lock
// held, from the submitting goroutine (Enqueued) or the processing goroutine (the rest).
type Observer interface {
	Enqueued(id string, depth int)
	Dispatched(id string, attempt int)
	RetryScheduled(id string, retry int, delay time.Duration)
	Settled(id string, outcome Outcome, waited time.Duration, depth int)
}

type nopObserver struct{}

func (nopObserver) Enqueued(string, int)                        {}
func (nopObserver) Dispatched(string, int)                      {}
func (nopObserver) RetryScheduled(string, int, time.Duration)   {}
func (nopObserver) Settled(string, Outcome, time.Duration, int) {}
