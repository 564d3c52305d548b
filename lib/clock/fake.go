// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	timers  []*fakeTimer
}

// fakeTimer is one armed After or ticker registration.
type fakeTimer struct {
	deadline time.Time
	period   time.Duration // zero for one-shot timers
	channel  chan time.Time
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{now: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After arms a one-shot timer. A non-positive d fires immediately and
// is not counted as pending.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.armLocked(&fakeTimer{deadline: c.now.Add(d), channel: channel})
	return channel
}

// NewTicker arms a periodic timer that stays pending until stopped.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{deadline: c.now.Add(d), period: d, channel: make(chan time.Time, 1)}
	c.armLocked(timer)
	return &Ticker{
		C: timer.channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.timers = slices.DeleteFunc(c.timers, func(t *fakeTimer) bool { return t == timer })
			c.changed.Broadcast()
		},
	}
}

func (c *FakeClock) armLocked(timer *fakeTimer) {
	c.timers = append(c.timers, timer)
	c.changed.Broadcast()
}

// Advance moves time forward by d, firing every timer whose deadline
// is reached in deadline order. A ticker spanning several periods
// fires once per period; ticks that overflow its buffer are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.popDue(target)
		if due == nil {
			return
		}
		select {
		case due.channel <- target:
		default:
		}
	}
}

// popDue removes and returns the earliest timer due at or before
// target, rescheduling it first if it is periodic.
func (c *FakeClock) popDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := -1
	for i, timer := range c.timers {
		if timer.deadline.After(target) {
			continue
		}
		if index < 0 || timer.deadline.Before(c.timers[index].deadline) {
			index = i
		}
	}
	if index < 0 {
		return nil
	}
	timer := c.timers[index]
	if timer.period > 0 {
		timer.deadline = timer.deadline.Add(timer.period)
	} else {
		c.timers = slices.Delete(c.timers, index, index+1)
	}
	c.changed.Broadcast()
	return timer
}

// WaitForTimers blocks until at least n timers are pending. Use it
// before Advance when the timer is armed by another goroutine.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of armed timers, tickers included.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
