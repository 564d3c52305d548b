// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credentials (tickets, WAMP-CRA secrets,
// cryptosign keys) read from files or the terminal in memory that is
// locked against swap and excluded from core dumps.
//
// A [Buffer] is an anonymous mmap region outside the Go heap, so the
// garbage collector never copies it. Close zeroes and unmaps it.
// Credentials leave the buffer only as the string handed to an
// authenticator, via [Buffer.String].
//
// [ReadFile] reads a secret from a path or stdin ("-") and
// [ReadTerminal] prompts for one with echo disabled. Both trim
// surrounding whitespace and reject empty secrets.
//
// Depends on golang.org/x/sys/unix and golang.org/x/term.
package secret
