// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package member implements the host side of IGMPv3: the per-group
// INCLUDE/EXCLUDE reception filter and the group-member state machine
// that answers membership queries and announces local state changes
// with robustness retransmission.
package member
