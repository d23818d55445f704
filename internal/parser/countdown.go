package parser

import (
	"sync"
	"time"
)

// Countdown runs an action after a delay unless cancelled first.
type Countdown struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	state    countdownState
	done     chan struct{}
}

type countdownState int

const (
	countdownPending countdownState = iota
	countdownFired
	countdownCancelled
)

// StartCountdown schedules fn to run once after d.
func StartCountdown(d time.Duration, fn func()) *Countdown {
	c := &Countdown{deadline: time.Now().Add(d), done: make(chan struct{})}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.state != countdownPending {
			c.mu.Unlock()
			return
		}
		c.state = countdownFired
		c.mu.Unlock()

		defer close(c.done)
		fn()
	})
	return c
}

// Cancel stops the countdown. It reports false if the action already ran
// or the countdown was already cancelled; after a true return the action
// never runs.
func (c *Countdown) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != countdownPending {
		return false
	}
	c.state = countdownCancelled
	c.timer.Stop()
	close(c.done)
	return true
}

// Remaining is the time left before the action runs, or zero once it has
// run or been cancelled.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != countdownPending {
		return 0
	}
	return max(time.Until(c.deadline), 0)
}

// Done is closed once the action has returned or the countdown is cancelled.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Fired reports whether the action ran.
func (c *Countdown) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == countdownFired
}
