// Package clock turns a monotonic time source plus accumulated pause time
// into a single elapsed playback position.
package clock

import (
	"fmt"
	"sync"
	"time"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InvalidStateError reports a transition attempted from the wrong state.
// The clock is left untouched.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// Source is anything the render loop can sample for playback position.
type Source interface {
	Elapsed() float64
	IsPlaying() bool
	IsComplete() bool
}

// Clock is a local playback clock. All methods are safe for concurrent use;
// the render loop reads it while the UI pauses and resumes it.
type Clock struct {
	mu  sync.Mutex
	now func() time.Time

	state       State
	start       time.Time
	pauseStart  time.Time
	totalPaused time.Duration
	duration    time.Duration
}

func New() *Clock {
	return NewWithNow(time.Now)
}

// NewWithNow uses now as the time source. Tests pass a fake here.
func NewWithNow(now func() time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Stopped {
		return &InvalidStateError{Op: "start", State: c.state}
	}
	c.start = c.now()
	c.totalPaused = 0
	c.pauseStart = time.Time{}
	c.state = Playing
	return nil
}

func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseLocked()
}

func (c *Clock) pauseLocked() error {
	if c.state != Playing {
		return &InvalidStateError{Op: "pause", State: c.state}
	}
	c.pauseStart = c.now()
	c.state = Paused
	return nil
}

func (c *Clock) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeLocked()
}

func (c *Clock) resumeLocked() error {
	if c.state != Paused {
		return &InvalidStateError{Op: "resume", State: c.state}
	}
	c.totalPaused += c.now().Sub(c.pauseStart)
	c.pauseStart = time.Time{}
	c.state = Playing
	return nil
}

// Toggle pauses a playing clock and resumes a paused one.
func (c *Clock) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Paused {
		return c.resumeLocked()
	}
	return c.pauseLocked()
}

func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Stopped
	c.start = time.Time{}
	c.pauseStart = time.Time{}
	c.totalPaused = 0
}

// Skip moves the playback position by d, which may be negative. The
// position never goes below zero.
func (c *Clock) Skip(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Stopped {
		return &InvalidStateError{Op: "skip", State: c.state}
	}
	if cur := c.elapsedLocked(); cur+d < 0 {
		d = -cur
	}
	c.start = c.start.Add(-d)
	return nil
}

// SetDuration sets the track length used by IsComplete. Zero means unknown.
func (c *Clock) SetDuration(d time.Duration) {
	c.mu.Lock()
	c.duration = d
	c.mu.Unlock()
}

func (c *Clock) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Clock) elapsedLocked() time.Duration {
	var d time.Duration
	switch c.state {
	case Stopped:
		return 0
	case Paused:
		d = c.pauseStart.Sub(c.start) - c.totalPaused
	default:
		d = c.now().Sub(c.start) - c.totalPaused
	}
	return max(d, 0)
}

func (c *Clock) ElapsedDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

// Elapsed is the playback position in seconds.
func (c *Clock) Elapsed() float64 {
	return c.ElapsedDuration().Seconds()
}

func (c *Clock) IsPlaying() bool {
	return c.State() == Playing
}

func (c *Clock) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration > 0 && c.state != Stopped && c.elapsedLocked() >= c.duration
}
