package clock

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped it; false means it already ran or was stopped before.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// TimeSource reports the current wall time.
type TimeSource interface {
	Now() time.Time
}

// SystemScheduler schedules callbacks with time.AfterFunc.
var SystemScheduler Scheduler = systemScheduler{}

// SystemTime reads time.Now.
var SystemTime TimeSource = systemTime{}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type systemTime struct{}

func (systemTime) Now() time.Time {
	return time.Now()
}
