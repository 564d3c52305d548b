// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the timers used during connection setup so
// that tests can drive them deterministically.
//
// Connection code never calls time.After or time.NewTicker directly.
// It holds a Clock, which is Real() in production and a *FakeClock in
// tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go dial(fake)
//	fake.WaitForTimers(1)               // dial armed its gathering timer
//	fake.Advance(200 * time.Millisecond) // fire it
//
// WaitForTimers closes the race between a goroutine arming a timer and
// the test advancing past it.
package clock
