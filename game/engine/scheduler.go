package engine

import "time"

// Timer is a pending scheduled call
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// Scheduler runs a function after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SchedulerFunc adapts a plain function to the Scheduler interface
type SchedulerFunc func(d time.Duration, fn func()) Timer

// AfterFunc calls f(d, fn)
func (f SchedulerFunc) AfterFunc(d time.Duration, fn func()) Timer {
	return f(d, fn)
}

// RealScheduler schedules on the runtime timer
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc
func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
