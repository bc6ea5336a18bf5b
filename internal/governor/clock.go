package governor

import "time"

// Clock is the time source of a Governor. Tests substitute a virtual clock so that
// minute-scale admission delays run instantly.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
