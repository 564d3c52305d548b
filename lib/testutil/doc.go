// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the package tests.
//
// [RequireReceive], [RequireClosed] and [RequireNoReceive] wrap the
// select-with-deadline pattern so tests never block forever on a
// channel. They are the only place tests use the wall clock; timer
// behavior under test goes through lib/clock's fake.
//
// [UniqueID] produces distinct request ids and topic names without
// consulting the clock.
package testutil
