// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package router implements the router side of IGMPv3: the group
// membership table of RFC 3376 section 6.4 with its per-source and
// per-group timers, and the querier state machine sending periodic
// general queries, scheduling group-specific queries and performing
// querier election.
package router
