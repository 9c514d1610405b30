// Package clock drives countdowns and timers on a drift-corrected schedule and
// renders each frame through a compiled duration template.
package clock

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/verte-zerg/tock/internal/durfmt"
)

// Options configures a Clock.
type Options struct {
	Format             string
	NeglectHigherUnits bool

	// ContinueAfterEnd keeps the clock running past its target instead of
	// stopping on it.
	ContinueAfterEnd bool

	Scheduler Scheduler
	Now       TimeSource
	Logger    *slog.Logger
}

// Clock owns a countdown or timer value. All methods are safe for concurrent use.
type Clock struct {
	mu sync.Mutex

	pipeline         *durfmt.Pipeline
	neglect          bool
	continueAfterEnd bool
	interval         time.Duration

	sched  Scheduler
	now    TimeSource
	logger *slog.Logger

	start     int64
	current   int64
	target    int64
	hasTarget bool
	direction Direction
	resolved  Direction
	overtime  bool
	state     State

	timer     Timer
	gen       uint64
	startedAt time.Time
	ticks     int64

	listeners  map[uint64]func(Snapshot)
	listenerID uint64
	subs       []chan Event
	closed     bool
}

// New returns an idle clock. An empty format is accepted here and reported by Start.
func New(opts Options) (*Clock, error) {
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	if opts.Now == nil {
		opts.Now = SystemTime
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	c := &Clock{
		neglect:          opts.NeglectHigherUnits,
		continueAfterEnd: opts.ContinueAfterEnd,
		interval:         durfmt.DefaultTickInterval,
		sched:            opts.Scheduler,
		now:              opts.Now,
		logger:           opts.Logger,
		state:            StateIdle,
		listeners:        make(map[uint64]func(Snapshot)),
	}
	if opts.Format != "" {
		if err := c.setFormatLocked(opts.Format); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Configure sets the start value, the optional target and the direction. A
// running clock is stopped first. Nothing is validated until Start.
func (c *Clock) Configure(start int64, target *int64, direction Direction) {
	c.mu.Lock()
	var events []Event
	if c.state == StateRunning {
		c.haltLocked()
		events = append(events, c.eventLocked(EventStopped))
	}
	c.start = start
	c.current = start
	c.hasTarget = target != nil
	if target != nil {
		c.target = *target
	}
	c.direction = direction
	c.resolved = direction
	c.overtime = false
	if c.pipeline != nil {
		events = append(events, c.eventLocked(EventRender))
	}
	c.publishLocked(events)
	c.mu.Unlock()
}

// SetFormat recompiles the template and resizes the tick interval. A running
// clock restarts its schedule from now.
func (c *Clock) SetFormat(format string) error {
	c.mu.Lock()
	if err := c.setFormatLocked(format); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state == StateRunning {
		c.stopTimerLocked()
		c.startedAt = c.now.Now()
		c.ticks = 0
		c.scheduleLocked(c.interval)
	}
	c.publishLocked([]Event{c.eventLocked(EventRender)})
	c.mu.Unlock()
	return nil
}

func (c *Clock) setFormatLocked(format string) error {
	p, err := durfmt.CompileWithOptions(format, durfmt.Options{NeglectHigherUnits: c.neglect})
	if err != nil {
		return fmt.Errorf("failed to compile format: %w", err)
	}
	c.pipeline = p
	c.interval = p.TickInterval()
	return nil
}

// Validate reports the configuration error Start would return.
func (c *Clock) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.validateLocked()
	return err
}

func (c *Clock) validateLocked() (Direction, error) {
	if c.pipeline == nil {
		return Inferred, &ConfigError{Field: "format", Err: ErrMissingFormat}
	}
	switch c.direction {
	case Inferred:
		if !c.hasTarget {
			return Inferred, &ConfigError{Field: "target", Err: ErrMissingTarget}
		}
		if c.start < c.target {
			return Up, nil
		}
		return Down, nil
	case Up:
		if c.hasTarget && c.start > c.target {
			return Up, &ConfigError{Field: "direction", Err: ErrDirectionMismatch}
		}
	case Down:
		if c.hasTarget && c.start < c.target {
			return Down, &ConfigError{Field: "direction", Err: ErrDirectionMismatch}
		}
	}
	return c.direction, nil
}

// Start begins ticking. It is a no-op on a running clock and may restart a
// stopped one.
func (c *Clock) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateRunning {
		c.mu.Unlock()
		return nil
	}
	dir, err := c.validateLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.resolved = dir
	c.overtime = false
	c.state = StateRunning
	c.startedAt = c.now.Now()
	c.ticks = 0
	c.scheduleLocked(c.interval)

	c.logger.Debug("clock started",
		slog.Int64("millis", c.current),
		slog.String("direction", dir.String()),
		slog.Duration("interval", c.interval))
	c.publishLocked([]Event{c.eventLocked(EventStarted), c.eventLocked(EventRender)})
	c.mu.Unlock()
	return nil
}

// Stop halts ticking. It is safe to call repeatedly and from an ended listener.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.haltLocked()
	c.logger.Debug("clock stopped", slog.Int64("millis", c.current))
	c.publishLocked([]Event{c.eventLocked(EventStopped)})
	c.mu.Unlock()
}

// SetTime replaces the current value. It clears the overtime flag when the new
// value is back before the target, so the next crossing fires ended again.
func (c *Clock) SetTime(millis int64) {
	c.mu.Lock()
	c.start = millis
	c.current = millis
	if c.overtime && !c.isOvertimeLocked() {
		c.overtime = false
	}
	var events []Event
	if c.pipeline != nil {
		events = append(events, c.eventLocked(EventRender))
	}
	c.publishLocked(events)
	c.mu.Unlock()
}

// Tick advances a running clock by one interval without touching the pending
// timer. It reports false when the clock is not running.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return false
	}
	snap, ended := c.tickLocked()
	c.mu.Unlock()
	c.notifyEnded(snap, ended)
	return true
}

// fire runs a scheduled tick and books the next one. gen discards callbacks
// belonging to an earlier run.
func (c *Clock) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	snap, ended := c.tickLocked()
	if c.state == StateRunning {
		c.scheduleLocked(c.nextDelayLocked())
	}
	c.mu.Unlock()
	c.notifyEnded(snap, ended)
}

func (c *Clock) tickLocked() (Snapshot, []func(Snapshot)) {
	c.ticks++
	step := c.interval.Milliseconds()
	if c.resolved == Up {
		c.current += step
	} else {
		c.current -= step
	}

	was := c.overtime
	c.overtime = c.isOvertimeLocked()
	rising := c.overtime && !was

	terminal := c.overtime && !c.continueAfterEnd
	if terminal {
		c.haltLocked()
		c.current = c.target
	}

	events := []Event{c.eventLocked(EventRender)}
	var listeners []func(Snapshot)
	if rising {
		c.logger.Debug("clock ended", slog.Int64("millis", c.current), slog.Bool("terminal", terminal))
		events = append(events, c.eventLocked(EventEnded))
		listeners = c.listenersLocked()
	}
	if terminal {
		events = append(events, c.eventLocked(EventStopped))
	}
	c.publishLocked(events)
	return c.snapshotLocked(), listeners
}

func (c *Clock) isOvertimeLocked() bool {
	if !c.hasTarget {
		return false
	}
	if c.resolved == Up {
		return c.current >= c.target
	}
	return c.current <= c.target
}

// NextDelay returns how long to wait before the next tick so that ticks stay
// on the grid laid from the start instant. It is zero when the clock is late
// by a full interval or more.
func (c *Clock) NextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextDelayLocked()
}

func (c *Clock) nextDelayLocked() time.Duration {
	ideal := c.startedAt.Add(time.Duration(c.ticks) * c.interval)
	drift := c.now.Now().Sub(ideal)
	delay := c.interval - drift
	if delay < 0 {
		c.logger.Debug("clock is behind schedule", slog.Duration("drift", drift))
		return 0
	}
	return delay
}

func (c *Clock) scheduleLocked(delay time.Duration) {
	gen := c.gen
	c.timer = c.sched.AfterFunc(delay, func() { c.fire(gen) })
}

func (c *Clock) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		_ = c.timer.Stop()
		c.timer = nil
	}
}

func (c *Clock) haltLocked() {
	c.stopTimerLocked()
	c.state = StateStopped
}

// OnEnded registers fn to run each time the clock reaches its target. fn runs
// outside the clock lock and may call any Clock method.
func (c *Clock) OnEnded(fn func(Snapshot)) (remove func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	c.listenerID++
	id := c.listenerID
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Clock) listenersLocked() []func(Snapshot) {
	if len(c.listeners) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	return fns
}

func (c *Clock) notifyEnded(snap Snapshot, listeners []func(Snapshot)) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// Subscribe registers a new observer channel. Sends never block: a full
// channel misses the event. The channel is closed by Close.
func (c *Clock) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	c.mu.Lock()
	if c.closed {
		close(ch)
	} else {
		c.subs = append(c.subs, ch)
	}
	c.mu.Unlock()
	return ch
}

func (c *Clock) publishLocked(events []Event) {
	for _, ev := range events {
		for _, ch := range c.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Close stops the clock, closes every subscriber channel and drops listeners.
func (c *Clock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.state == StateRunning {
		c.haltLocked()
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.listeners = map[uint64]func(Snapshot){}
}

// Snapshot returns the current state.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Clock) snapshotLocked() Snapshot {
	s := Snapshot{
		Millis:    c.current,
		State:     c.state,
		Direction: c.resolved,
		Target:    c.target,
		HasTarget: c.hasTarget,
		Overtime:  c.overtime,
		At:        c.now.Now(),
	}
	if c.pipeline != nil {
		s.Text = c.pipeline.Format(c.current)
	}
	return s
}

func (c *Clock) eventLocked(t EventType) Event {
	return Event{Type: t, Snapshot: c.snapshotLocked()}
}

// Millis returns the current value.
func (c *Clock) Millis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the run state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Interval returns the tick interval derived from the format.
func (c *Clock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Text renders the current value.
func (c *Clock) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline == nil {
		return ""
	}
	return c.pipeline.Format(c.current)
}
