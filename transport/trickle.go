// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/wamprtc/lib/clock"
	"github.com/bureau-foundation/wamprtc/lib/gate"
	"github.com/bureau-foundation/wamprtc/signaling"
)

var (
	errTrickleArity = errors.New("expected [requestId, candidates]")
	errNotString    = errors.New("expected string")
)

// parseTrickle splits a trickle event into its request id and
// candidates.
func parseTrickle(args []any) (string, []signaling.Candidate, error) {
	if len(args) < 2 {
		return "", nil, &signaling.MalformedPayloadError{Field: "args", Err: errTrickleArity}
	}
	requestID, ok := args[0].(string)
	if !ok {
		return "", nil, &signaling.MalformedPayloadError{Field: "args[0]", Err: errNotString}
	}
	payload, ok := args[1].(string)
	if !ok {
		return requestID, nil, &signaling.MalformedPayloadError{Field: "args[1]", Err: errNotString}
	}
	candidates, err := signaling.DecodeCandidates(payload)
	return requestID, candidates, err
}

// remoteCandidates applies the other side's candidates to the engine.
// Candidates are held until the remote description is set, since an
// engine cannot take candidates before it; release applies the held
// batch and every later add is applied by run.
type remoteCandidates struct {
	engine Engine
	logger *slog.Logger
	gate   gate.Gate[signaling.Candidate]
	wake   chan struct{}
}

func newRemoteCandidates(engine Engine, logger *slog.Logger) *remoteCandidates {
	return &remoteCandidates{engine: engine, logger: logger, wake: make(chan struct{}, 1)}
}

func (r *remoteCandidates) add(candidates []signaling.Candidate) {
	if len(candidates) == 0 {
		return
	}
	r.gate.Add(candidates...)
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// release applies everything held so far and opens the gate. Call it
// after the remote description is set.
func (r *remoteCandidates) release() {
	r.apply(r.gate.Release())
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// run applies streamed candidates until ctx is done.
func (r *remoteCandidates) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			if r.gate.IsOpen() {
				r.apply(r.gate.Flush())
			}
		}
	}
}

func (r *remoteCandidates) apply(candidates []signaling.Candidate) {
	for _, candidate := range candidates {
		if err := r.engine.AddRemoteCandidate(candidate); err != nil {
			r.logger.Warn("remote candidate rejected", "candidate", candidate, "error", err)
			continue
		}
		r.logger.Debug("remote candidate applied", "candidate", candidate)
	}
}

// subscribeTrickle routes events on topic for requestID into remote.
// Malformed events are logged and skipped.
func subscribeTrickle(ctx context.Context, messenger signaling.Messenger, topic, requestID string, remote *remoteCandidates, logger *slog.Logger) (signaling.Subscription, error) {
	return messenger.Subscribe(ctx, topic, func(args []any) {
		eventRequestID, candidates, err := parseTrickle(args)
		if eventRequestID != requestID && eventRequestID != "" {
			return
		}
		if err != nil {
			logger.Warn("malformed candidate trickle",
				"topic", topic,
				"field", signaling.MalformedField(err),
				"error", err,
			)
			return
		}
		remote.add(candidates)
	})
}

// flushLocalCandidates publishes each non-empty pending batch of relay
// to topic every interval until ctx is done. Publish failures are
// logged; the batch is not retried.
func flushLocalCandidates(ctx context.Context, relay *signaling.Relay, messenger signaling.Messenger, topic, requestID string, interval time.Duration, clk clock.Clock, logger *slog.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		batch := relay.DrainPendingBatch()
		if len(batch) == 0 {
			continue
		}
		payload, err := signaling.EncodeCandidates(batch)
		if err != nil {
			logger.Error("encoding candidate batch", "error", err)
			continue
		}
		if err := messenger.Publish(ctx, topic, requestID, payload); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("publishing candidate batch failed", "topic", topic, "count", len(batch), "error", err)
			continue
		}
		logger.Debug("candidate batch published", "topic", topic, "count", len(batch))
	}
}
