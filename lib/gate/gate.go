// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate provides a two-phase buffer for items that must be
// delivered first as one batch and then as a continuous stream, with no
// item lost or delivered twice across the switch.
//
// While closed, a Gate holds everything added to it. Release drains the
// held items and opens the gate in one step; from then on items
// accumulate in a pending batch that Flush drains. Callers that need the
// two steps separately can use Drain and Open, in that order: anything
// added between them stays held and comes out of the next Flush ahead
// of the pending batch.
//
// All methods take one mutex for the duration of the append or drain
// and never call out while holding it.
package gate

import "sync"

// Gate is a two-phase buffer. The zero value is a closed, empty gate.
type Gate[T any] struct {
	mu      sync.Mutex
	open    bool
	held    []T
	pending []T
}

// Add buffers items: into the held batch while the gate is closed,
// into the pending batch once it is open.
func (g *Gate[T]) Add(items ...T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		g.pending = append(g.pending, items...)
	} else {
		g.held = append(g.held, items...)
	}
}

// Drain returns and clears the held batch without opening the gate.
func (g *Gate[T]) Drain() []T {
	g.mu.Lock()
	defer g.mu.Unlock()
	held := g.held
	g.held = nil
	return held
}

// Open switches the gate to streaming. Opening an open gate is a no-op.
func (g *Gate[T]) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
}

// Release drains the held batch and opens the gate atomically.
func (g *Gate[T]) Release() []T {
	g.mu.Lock()
	defer g.mu.Unlock()
	held := g.held
	g.held = nil
	g.open = true
	return held
}

// Flush returns and clears everything buffered since the last drain:
// held leftovers first, then the pending batch.
func (g *Gate[T]) Flush() []T {
	g.mu.Lock()
	defer g.mu.Unlock()
	var batch []T
	switch {
	case len(g.held) == 0:
		batch = g.pending
	case len(g.pending) == 0:
		batch = g.held
	default:
		batch = append(g.held, g.pending...)
	}
	g.held = nil
	g.pending = nil
	return batch
}

// IsOpen reports whether the gate is streaming.
func (g *Gate[T]) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}
