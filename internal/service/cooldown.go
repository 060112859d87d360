package service

import (
	"sync"
	"time"

	"github.com/ohitsyle/jusq-sub002/internal/clock"
)

// DefaultResendCooldown is the wait, in seconds, before a recovery code can be resent.
const DefaultResendCooldown = 60

// ResendCooldown counts down once per second after a code is issued.
// Resend becomes available exactly when the count reaches zero.
type ResendCooldown struct {
	mu        sync.Mutex
	clock     clock.Clock
	remaining int
	timer     clock.Timer
	// gen invalidates callbacks of timers replaced by Start or Stop.
	gen uint64
}

// NewResendCooldown returns an idle cooldown.
func NewResendCooldown(c clock.Clock) *ResendCooldown {
	if c == nil {
		c = clock.Real()
	}
	return &ResendCooldown{clock: c}
}

// Start (re)starts the countdown at seconds.
func (c *ResendCooldown) Start(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.remaining = max(seconds, 0)
	if c.remaining > 0 {
		c.scheduleLocked()
	}
}

// Tick decrements the countdown by one second, never below zero.
func (c *ResendCooldown) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
}

// Remaining returns the seconds left.
func (c *ResendCooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Available reports whether a resend is allowed.
func (c *ResendCooldown) Available() bool {
	return c.Remaining() == 0
}

// Stop cancels the countdown and the pending timer.
func (c *ResendCooldown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.remaining = 0
}

func (c *ResendCooldown) stopLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *ResendCooldown) scheduleLocked() {
	gen := c.gen
	c.timer = c.clock.AfterFunc(time.Second, func() { c.onTick(gen) })
}

func (c *ResendCooldown) onTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 {
		c.scheduleLocked()
	} else {
		c.timer = nil
	}
}
