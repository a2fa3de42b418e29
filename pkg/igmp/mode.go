// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package igmp

// FilterMode tells how the source address list of a filter record is
// to be interpreted.
type FilterMode uint8

const (
	// Include requests reception only from the listed sources.
	Include FilterMode = iota

	// Exclude requests reception from all sources except the listed
	// ones.
	Exclude
)

func (fm FilterMode) String() string {
	switch fm {
	case Include:
		return "include"
	case Exclude:
		return "exclude"
	default:
		return "unknown"
	}
}
