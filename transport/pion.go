// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/wamprtc/signaling"
)

// DefaultChannelLabel is the data channel label both sides expect.
const DefaultChannelLabel = "wamp"

// PionOptions configures a PionEngine.
type PionOptions struct {
	ICE ICEConfig

	// Label defaults to DefaultChannelLabel.
	Label string

	// Protocol is the data channel sub-protocol, normally the WAMP
	// subprotocol of the session serializer (e.g. "wamp.2.cbor").
	Protocol string

	// Unordered disables ordered delivery. Framing relies on ordered
	// delivery, so this exists only for engines carrying unframed
	// traffic.
	Unordered bool

	// Negotiated creates the channel out of band with ChannelID on
	// both sides instead of announcing it in-band.
	Negotiated bool
	ChannelID  uint16

	// IncludeLoopback gathers loopback candidates, for same-host
	// connections and tests.
	IncludeLoopback bool

	Logger *slog.Logger
}

// PionEngine is the Engine backed by a pion PeerConnection carrying a
// single data channel. One engine serves one connection attempt, as
// either the offering or the answering side.
type PionEngine struct {
	options    PionOptions
	logger     *slog.Logger
	connection *webrtc.PeerConnection

	mu          sync.Mutex
	channel     *webrtc.DataChannel
	onCandidate func(signaling.Candidate)
	onState     func(ChannelState)
	onMessage   func([]byte)

	closeOnce sync.Once
	closeErr  error
}

var _ Engine = (*PionEngine)(nil)

// NewPionEngine creates the PeerConnection. No data channel exists
// until CreateOffer or CreateAnswer.
func NewPionEngine(options PionOptions) (*PionEngine, error) {
	if options.Label == "" {
		options.Label = DefaultChannelLabel
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settingEngine := webrtc.SettingEngine{LoggerFactory: slogLoggerFactory{logger: logger}}
	settingEngine.SetIncludeLoopbackCandidate(options.IncludeLoopback)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))

	connection, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: options.ICE.Servers})
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	engine := &PionEngine{options: options, logger: logger, connection: connection}
	connection.OnICECandidate(engine.handleICECandidate)
	connection.OnConnectionStateChange(engine.handleConnectionState)
	if !options.Negotiated {
		connection.OnDataChannel(engine.handleRemoteChannel)
	}
	return engine, nil
}

func (e *PionEngine) OnLocalCandidate(callback func(signaling.Candidate)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCandidate = callback
}

func (e *PionEngine) OnChannelState(callback func(ChannelState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onState = callback
}

func (e *PionEngine) OnMessage(callback func([]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMessage = callback
}

// CreateOffer creates the data channel and sets the local offer.
func (e *PionEngine) CreateOffer(ctx context.Context) (signaling.Description, error) {
	if err := ctx.Err(); err != nil {
		return signaling.Description{}, err
	}
	if err := e.createChannel(); err != nil {
		return signaling.Description{}, err
	}
	offer, err := e.connection.CreateOffer(nil)
	if err != nil {
		return signaling.Description{}, fmt.Errorf("creating SDP offer: %w", err)
	}
	if err := e.connection.SetLocalDescription(offer); err != nil {
		return signaling.Description{}, fmt.Errorf("setting local description: %w", err)
	}
	return signaling.Description{Type: signaling.SDPTypeOffer, SDP: offer.SDP}, nil
}

// CreateAnswer applies offer and sets the local answer. Without
// Negotiated, the channel arrives through the remote's announcement.
func (e *PionEngine) CreateAnswer(ctx context.Context, offer signaling.Description) (signaling.Description, error) {
	if err := ctx.Err(); err != nil {
		return signaling.Description{}, err
	}
	if e.options.Negotiated {
		if err := e.createChannel(); err != nil {
			return signaling.Description{}, err
		}
	}
	if err := e.SetRemoteDescription(offer); err != nil {
		return signaling.Description{}, err
	}
	answer, err := e.connection.CreateAnswer(nil)
	if err != nil {
		return signaling.Description{}, fmt.Errorf("creating SDP answer: %w", err)
	}
	if err := e.connection.SetLocalDescription(answer); err != nil {
		return signaling.Description{}, fmt.Errorf("setting local description: %w", err)
	}
	return signaling.Description{Type: signaling.SDPTypeAnswer, SDP: answer.SDP}, nil
}

func (e *PionEngine) SetRemoteDescription(description signaling.Description) error {
	var sdpType webrtc.SDPType
	switch description.Type {
	case signaling.SDPTypeOffer:
		sdpType = webrtc.SDPTypeOffer
	case signaling.SDPTypeAnswer:
		sdpType = webrtc.SDPTypeAnswer
	default:
		return fmt.Errorf("unsupported description type %q", description.Type)
	}
	err := e.connection.SetRemoteDescription(webrtc.SessionDescription{Type: sdpType, SDP: description.SDP})
	if err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	return nil
}

func (e *PionEngine) AddRemoteCandidate(candidate signaling.Candidate) error {
	index := uint16(candidate.SDPMLineIndex)
	err := e.connection.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     candidate.Candidate,
		SDPMid:        candidate.SDPMid,
		SDPMLineIndex: &index,
	})
	if err != nil {
		return fmt.Errorf("adding remote candidate: %w", err)
	}
	return nil
}

func (e *PionEngine) Send(frame []byte) error {
	e.mu.Lock()
	channel := e.channel
	e.mu.Unlock()
	if channel == nil {
		return errors.New("data channel not created")
	}
	return channel.Send(frame)
}

func (e *PionEngine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.connection.Close()
	})
	return e.closeErr
}

func (e *PionEngine) createChannel() error {
	ordered := !e.options.Unordered
	init := &webrtc.DataChannelInit{Ordered: &ordered}
	if e.options.Protocol != "" {
		protocol := e.options.Protocol
		init.Protocol = &protocol
	}
	if e.options.Negotiated {
		negotiated := true
		id := e.options.ChannelID
		init.Negotiated = &negotiated
		init.ID = &id
	}
	channel, err := e.connection.CreateDataChannel(e.options.Label, init)
	if err != nil {
		return fmt.Errorf("creating data channel %s: %w", e.options.Label, err)
	}
	e.attach(channel)
	return nil
}

// handleRemoteChannel adopts the channel announced by the offerer.
// Channels with other labels are not ours and are closed on open.
func (e *PionEngine) handleRemoteChannel(channel *webrtc.DataChannel) {
	if channel.Label() != e.options.Label {
		e.logger.Warn("ignoring unexpected data channel", "label", channel.Label())
		channel.OnOpen(func() { channel.Close() })
		return
	}
	e.mu.Lock()
	existing := e.channel
	e.mu.Unlock()
	if existing != nil {
		e.logger.Warn("ignoring duplicate data channel", "label", channel.Label())
		channel.OnOpen(func() { channel.Close() })
		return
	}
	if protocol := channel.Protocol(); e.options.Protocol != "" && protocol != e.options.Protocol {
		e.logger.Warn("data channel protocol mismatch",
			"label", channel.Label(),
			"protocol", protocol,
			"want", e.options.Protocol,
		)
	}
	e.attach(channel)
}

func (e *PionEngine) attach(channel *webrtc.DataChannel) {
	e.mu.Lock()
	e.channel = channel
	e.mu.Unlock()

	channel.OnOpen(func() {
		e.logger.Debug("data channel opened", "label", channel.Label(), "protocol", channel.Protocol())
		e.emitState(ChannelOpen)
	})
	channel.OnClose(func() {
		e.logger.Debug("data channel closed", "label", channel.Label())
		e.emitState(ChannelClosed)
	})
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		e.mu.Lock()
		callback := e.onMessage
		e.mu.Unlock()
		if callback != nil {
			callback(message.Data)
		}
	})
	e.emitState(ChannelConnecting)
}

func (e *PionEngine) emitState(state ChannelState) {
	e.mu.Lock()
	callback := e.onState
	e.mu.Unlock()
	if callback != nil {
		callback(state)
	}
}

// handleICECandidate forwards discovered candidates. pion signals the
// end of gathering with a nil candidate, which is not forwarded.
func (e *PionEngine) handleICECandidate(candidate *webrtc.ICECandidate) {
	if candidate == nil {
		e.logger.Debug("ICE gathering complete")
		return
	}
	init := candidate.ToJSON()
	local := signaling.Candidate{SDPMid: init.SDPMid, Candidate: init.Candidate}
	if init.SDPMLineIndex != nil {
		local.SDPMLineIndex = int(*init.SDPMLineIndex)
	}

	e.mu.Lock()
	callback := e.onCandidate
	e.mu.Unlock()
	if callback != nil {
		callback(local)
	}
}

func (e *PionEngine) handleConnectionState(state webrtc.PeerConnectionState) {
	e.logger.Debug("peer connection state change", "state", state.String())
	if state == webrtc.PeerConnectionStateFailed {
		// The data channel never reports closed for a connection that
		// failed before SCTP came up.
		e.emitState(ChannelClosed)
	}
}
