package governor

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is the default quota-exceeded signal. Transports may wrap it, or the
// Governor may be configured with a different classifier via WithClassifier.
var ErrQuotaExceeded = errors.New("quota exceeded")

// RetriesExhaustedError is returned for an item whose quota-exceeded failures outlasted
// its retry budget. Err is the last error the operation returned.
type RetriesExhaustedError struct {
	Retries int
	Err     error
}

func (e *RetriesExhaustedError) Error() string {
	if e == nil {
		return "retries exhausted"
	}
	return fmt.Sprintf("retries exhausted after %d attempt(s): %v", e.Retries+1, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PanicError carries a panic recovered from a submitted operation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

func isQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
