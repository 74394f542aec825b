package hidio

import (
	"errors"
	"time"
)

// ErrPollTimeout is returned by Poll when the deadline elapses before the
// poll function reports completion.
var ErrPollTimeout = errors.New("hidio: poll deadline exceeded")

// Clock abstracts time for components that sleep or enforce deadlines,
// so tests can run timing-sensitive protocol logic instantly.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall-clock implementation of Clock.
func SystemClock() Clock {
	return systemClock{}
}

// Poll invokes fn repeatedly, sleeping interval between attempts, until fn
// reports done, fn returns an error, or timeout elapses since the first
// attempt (measured against a monotonic deadline).
//
// fn is always invoked at least once. Once fn reports done, no further
// attempts are made, even if the deadline has not elapsed.
func Poll(clock Clock, interval, timeout time.Duration, fn func() (done bool, err error)) error {
	deadline := clock.Now().Add(timeout)
	for {
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !clock.Now().Before(deadline) {
			return ErrPollTimeout
		}
		clock.Sleep(interval)
	}
}
