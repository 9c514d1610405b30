package clock

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the way the clock value moves on each tick.
type Direction uint8

const (
	// Inferred resolves to Up or Down from the start and target values.
	Inferred Direction = iota
	Up
	Down
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "inferred"
	}
}

// ParseDirection parses "up", "down" or an empty string (inferred).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "inferred":
		return Inferred, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return Inferred, fmt.Errorf("unknown direction %q (want up or down)", s)
	}
}

// State is the run state of a clock.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// EventType defines the type of clock event.
type EventType string

const (
	EventStarted EventType = "started"
	EventRender  EventType = "render"
	EventEnded   EventType = "ended"
	EventStopped EventType = "stopped"
)

// Snapshot is a consistent view of the clock at one instant.
type Snapshot struct {
	Millis    int64
	Text      string
	State     State
	Direction Direction
	Target    int64
	HasTarget bool
	Overtime  bool
	At        time.Time
}

// Event is delivered to subscribers.
type Event struct {
	Type EventType
	Snapshot
}
