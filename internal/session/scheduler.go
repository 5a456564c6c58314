package session

import "time"

// Scheduler fires a function once after a delay and hands back a cancel. It
// exists so the auto-close-after-success behavior is an explicit, cancellable
// scheduled event instead of a UI timer, and so tests can fire it by hand.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

// TimerScheduler is the production implementation on time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) func() {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}
