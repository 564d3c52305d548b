// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/bureau-foundation/wamprtc/signaling"
)

// fakeEngine is a scripted Engine. Tests drive its callbacks directly
// and inspect what the orchestrator applied.
type fakeEngine struct {
	mu               sync.Mutex
	onCandidate      func(signaling.Candidate)
	onState          func(ChannelState)
	onMessage        func([]byte)
	remote           *signaling.Description
	remoteCandidates []signaling.Candidate
	sent             [][]byte
	closed           bool

	offerCreated chan struct{}
	remoteSet    chan struct{}
	closedCh     chan struct{}
	closeOnce    sync.Once

	// added receives each applied remote candidate.
	added chan signaling.Candidate
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		offerCreated: make(chan struct{}),
		remoteSet:    make(chan struct{}),
		closedCh:     make(chan struct{}),
		added:        make(chan signaling.Candidate, 16),
	}
}

func (e *fakeEngine) OnLocalCandidate(callback func(signaling.Candidate)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCandidate = callback
}

func (e *fakeEngine) OnChannelState(callback func(ChannelState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onState = callback
}

func (e *fakeEngine) OnMessage(callback func([]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMessage = callback
}

func (e *fakeEngine) CreateOffer(context.Context) (signaling.Description, error) {
	close(e.offerCreated)
	return signaling.Description{Type: signaling.SDPTypeOffer, SDP: "v=0 fake-offer"}, nil
}

func (e *fakeEngine) CreateAnswer(_ context.Context, offer signaling.Description) (signaling.Description, error) {
	if err := e.SetRemoteDescription(offer); err != nil {
		return signaling.Description{}, err
	}
	return signaling.Description{Type: signaling.SDPTypeAnswer, SDP: "v=0 fake-answer"}, nil
}

func (e *fakeEngine) SetRemoteDescription(description signaling.Description) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote != nil {
		return errors.New("remote description already set")
	}
	e.remote = &description
	close(e.remoteSet)
	return nil
}

func (e *fakeEngine) AddRemoteCandidate(candidate signaling.Candidate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote == nil {
		return errors.New("no remote description")
	}
	e.remoteCandidates = append(e.remoteCandidates, candidate)
	select {
	case e.added <- candidate:
	default:
	}
	return nil
}

func (e *fakeEngine) Send(frame []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine closed")
	}
	e.sent = append(e.sent, append([]byte(nil), frame...))
	return nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.closeOnce.Do(func() { close(e.closedCh) })
	return nil
}

func (e *fakeEngine) emitCandidate(candidate signaling.Candidate) {
	e.mu.Lock()
	callback := e.onCandidate
	e.mu.Unlock()
	callback(candidate)
}

func (e *fakeEngine) setState(state ChannelState) {
	e.mu.Lock()
	callback := e.onState
	e.mu.Unlock()
	callback(state)
}

func (e *fakeEngine) appliedCandidates() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var applied []string
	for _, candidate := range e.remoteCandidates {
		applied = append(applied, candidate.Candidate)
	}
	return applied
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
