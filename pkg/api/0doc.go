// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api is the daemon's control surface: a small REST interface
// for join/leave commands and state inspection, plus a WebSocket feed
// of protocol events encoded as CBOR.
package api
