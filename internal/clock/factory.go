package clock

import "time"

// NewCountdown returns a clock counting down from from to to.
func NewCountdown(from, to int64, opts Options) (*Clock, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	c.Configure(from, &to, Down)
	return c, nil
}

// NewTimer returns a clock counting up from from. A nil to never ends.
func NewTimer(from int64, to *int64, opts Options) (*Clock, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	c.Configure(from, to, Up)
	return c, nil
}

// CountdownTo counts down to zero over the time left until deadline.
func CountdownTo(deadline, now time.Time, opts Options) (*Clock, error) {
	return NewCountdown(deadline.Sub(now).Milliseconds(), 0, opts)
}

// TimerTo counts up from minus the time left until deadline and ends at zero.
func TimerTo(deadline, now time.Time, opts Options) (*Clock, error) {
	to := int64(0)
	return NewTimer(-deadline.Sub(now).Milliseconds(), &to, opts)
}
