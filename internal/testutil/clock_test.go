package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualTime_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := NewManualTime(start)
	assert.Equal(t, start, tm.Now())

	tm.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), tm.Now())
}

func TestManualScheduler_FiresInBookingOrder(t *testing.T) {
	s := NewManualScheduler()
	var got []int
	s.AfterFunc(time.Second, func() { got = append(got, 1) })
	s.AfterFunc(time.Millisecond, func() { got = append(got, 2) })

	assert.Equal(t, 2, s.Pending())
	assert.True(t, s.FireNext())
	assert.True(t, s.FireNext())
	assert.False(t, s.FireNext())
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, []time.Duration{time.Second, time.Millisecond}, s.Delays())
}

func TestManualScheduler_StopSkipsTimer(t *testing.T) {
	s := NewManualScheduler()
	fired := false
	timer := s.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.FireNext())
	assert.False(t, fired)
}

func TestManualScheduler_CallbackMayBook(t *testing.T) {
	s := NewManualScheduler()
	count := 0
	var book func()
	book = func() {
		count++
		if count < 3 {
			s.AfterFunc(time.Duration(count)*time.Second, book)
		}
	}
	s.AfterFunc(0, book)

	for s.FireNext() {
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, 2*time.Second, s.LastDelay())
}
