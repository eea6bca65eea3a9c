// Package typing debounces local typing broadcasts and tracks the set
// of remote users currently typing.
package typing

import (
	"sort"
	"sync"
	"time"
)

// DefaultQuiet is the interval of keyboard silence after which a
// typing(false) is emitted.
const DefaultQuiet = 2 * time.Second

// CancelFunc stops a scheduled callback. Reports whether it was stopped
// before firing.
type CancelFunc func() bool

// Scheduler is the cancellable delayed-callback abstraction the
// coordinator owns its quiet timer through, independent of any
// rendering lifecycle.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// SystemScheduler schedules on real timers.
func SystemScheduler() Scheduler {
	return systemScheduler{}
}

// Coordinator implements the per-user Idle → Typing → Idle machine.
//
// Local side: typing(true) is emitted on the first keystroke of a burst
// only; the quiet timer is re-armed on every keystroke and emits
// typing(false) when it fires with no further input.
//
// Remote side: names are added and removed directly from incoming
// typing events. No expiry timer is applied — if a stop event is lost
// the name stays until the next explicit event, which is acceptable for
// ephemeral, cosmetic state.
type Coordinator struct {
	mu     sync.Mutex
	quiet  time.Duration
	sched  Scheduler
	emit   func(isTyping bool)
	cancel CancelFunc
	active bool
	remote map[string]string // userID -> display name
}

func NewCoordinator(quiet time.Duration, sched Scheduler, emit func(isTyping bool)) *Coordinator {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if sched == nil {
		sched = SystemScheduler()
	}
	return &Coordinator{
		quiet:  quiet,
		sched:  sched,
		emit:   emit,
		remote: make(map[string]string),
	}
}

// KeyStroke records one local keystroke, emitting typing(true) at the
// start of a burst and re-arming the quiet timer.
func (c *Coordinator) KeyStroke() {
	c.mu.Lock()
	first := !c.active
	c.active = true
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = c.sched.AfterFunc(c.quiet, c.quietElapsed)
	c.mu.Unlock()

	if first && c.emit != nil {
		c.emit(true)
	}
}

func (c *Coordinator) quietElapsed() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.cancel = nil
	c.mu.Unlock()

	if c.emit != nil {
		c.emit(false)
	}
}

// Stop cancels the quiet timer and flushes a typing(false) if a burst
// was in progress. Called on channel leave.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	if wasActive && c.emit != nil {
		c.emit(false)
	}
}

// HandleRemote applies an incoming typing event for another user.
func (c *Coordinator) HandleRemote(userID, userName string, isTyping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if isTyping {
		c.remote[userID] = userName
	} else {
		delete(c.remote, userID)
	}
}

// RemoteTypers returns the display names currently shown as typing,
// sorted for stable rendering.
func (c *Coordinator) RemoteTypers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.remote))
	for _, name := range c.remote {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetRemote clears the remote set, used on channel switch.
func (c *Coordinator) ResetRemote() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remote = make(map[string]string)
}
