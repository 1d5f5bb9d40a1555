// Package signal holds the cooperative pause/stop flags an agent iteration
// loop polls at its suspension points. It depends on nothing else in this
// module so both the store (which flips the flags) and the loop (which
// reads them) can import it without creating a cycle.
package signal

import "sync/atomic"

// Control is a pair of cooperative flags: Paused and Stopped. Neither
// interrupts work in flight — a loop observes them only at iteration
// boundaries, per the core's cooperative-cancellation model.
type Control struct {
	paused  atomic.Bool
	stopped atomic.Bool
}

func New() *Control { return &Control{} }

func (c *Control) Pause()  { c.paused.Store(true) }
func (c *Control) Resume() { c.paused.Store(false) }
func (c *Control) Stop()   { c.stopped.Store(true) }

// Reset clears both flags, used when a store transitions back to RUNNING
// from a fresh start().
func (c *Control) Reset() {
	c.paused.Store(false)
	c.stopped.Store(false)
}

func (c *Control) IsPaused() bool  { return c.paused.Load() }
func (c *Control) IsStopped() bool { return c.stopped.Load() }
