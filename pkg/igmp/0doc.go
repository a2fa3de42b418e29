// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package igmp models the two IGMPv3 wire messages of RFC 3376, the
// membership query and the version 3 membership report, together with
// the address type, the filter modes, the code to time conversion and
// the internet checksum used by both.
package igmp
