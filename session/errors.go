// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "errors"

// ErrHandshakeFailure wraps every error that ends an opening handshake:
// an ABORT from the other side, a rejected credential, a protocol
// violation or a transport failure mid-handshake.
var ErrHandshakeFailure = errors.New("session: handshake failed")
