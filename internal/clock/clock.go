// Package clock provides the blocking delay used for hardware settle times.
package clock

import "time"

// Sleeper blocks the calling goroutine for at least d.
type Sleeper interface {
	Sleep(d time.Duration)
}

// BusyWait blocks by polling a monotonic clock instead of yielding to the
// scheduler, so short settle delays are not stretched by timer granularity.
type BusyWait struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Sleep spins until d has elapsed on the Now clock.
func (b BusyWait) Sleep(d time.Duration) {
	now := b.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	for now().Sub(start) < d {
	}
}

// Fake is a virtual clock. Sleep advances it without blocking.
// Not safe for concurrent use.
type Fake struct {
	now   time.Time
	Slept time.Duration
	Calls []time.Duration
}

// NewFake creates a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	return f.now
}

// Advance moves the virtual time forward without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Sleep advances the virtual time by d and records the call.
func (f *Fake) Sleep(d time.Duration) {
	f.now = f.now.Add(d)
	f.Slept += d
	f.Calls = append(f.Calls, d)
}
