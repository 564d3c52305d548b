// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEConfig holds the connectivity servers for a PeerConnection.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) to use during
	// candidate gathering.
	Servers []webrtc.ICEServer
}

// ICEConfigFromURLs builds an ICEConfig with one server entry per URL.
// The username and credential apply to turn: and turns: URLs only.
// An empty list means host candidates only, which is enough on one
// machine or a flat LAN.
func ICEConfigFromURLs(urls []string, username, credential string) ICEConfig {
	var config ICEConfig
	for _, url := range urls {
		server := webrtc.ICEServer{URLs: []string{url}}
		if isTURN(url) {
			server.Username = username
			server.Credential = credential
		}
		config.Servers = append(config.Servers, server)
	}
	return config
}

func isTURN(url string) bool {
	return strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:")
}
