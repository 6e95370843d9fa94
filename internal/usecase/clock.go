package usecase

import "time"

// Clock abstracts time for the debounce window and the resolver's bounded
// cold-start wait so tests can drive both deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) Timer
}

type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration) bool
	Stop() bool
}

type systemClock struct{}

// NewSystemClock returns the wall-clock implementation used outside tests.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return &systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s *systemTimer) C() <-chan time.Time {
	return s.t.C
}

func (s *systemTimer) Reset(d time.Duration) bool {
	return s.t.Reset(d)
}

func (s *systemTimer) Stop() bool {
	return s.t.Stop()
}
