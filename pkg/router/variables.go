// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package router

// Variables holds the tunable router variables of RFC 3376 section 8
// and the counts derived from them. All intervals are counted in
// tenths of a second.
//
// The derived counts are fixed when the Variables are created.
// Adopting a querier's robustness variable from a received query does
// not recompute them.
type Variables struct {
	// RobustnessVariable tunes for the expected packet loss. It must
	// not be zero. Default: 2.
	RobustnessVariable uint

	// QueryInterval is the interval between general queries sent by
	// the querier. Default: 125 seconds.
	QueryInterval uint

	// QueryResponseInterval is the max response time inserted into
	// periodic general queries. Default: 10 seconds.
	QueryResponseInterval uint

	// LastMemberQueryInterval is the max response time inserted into
	// group-specific queries. Default: 1 second.
	LastMemberQueryInterval uint

	// StartupQueryCount is the number of times the general query is
	// rescheduled at the startup query interval, so the startup burst
	// sends StartupQueryCount + 1 general queries separated by that
	// interval before the query interval takes over. Default: the
	// robustness variable.
	StartupQueryCount uint

	// StartupQueryInterval is the interval between general queries on
	// startup. Default: a quarter of the query interval.
	StartupQueryInterval uint

	// LastMemberQueryCount is the number of group-specific queries
	// sent before the router assumes a group has no local members.
	// Default: the robustness variable.
	LastMemberQueryCount uint
}

// DefaultVariables returns the RFC 3376 section 8 defaults with their
// derived counts.
func DefaultVariables() *Variables {
	vars := &Variables{
		RobustnessVariable:      2,
		QueryInterval:           1250,
		QueryResponseInterval:   100,
		LastMemberQueryInterval: 10,
	}
	vars.StartupQueryCount = vars.RobustnessVariable
	vars.StartupQueryInterval = vars.QueryInterval / 4
	vars.LastMemberQueryCount = vars.RobustnessVariable

	return vars
}

// GroupMembershipInterval is the time after which the router decides
// a group or source has no more members: RV * QI + QRI.
func (v *Variables) GroupMembershipInterval() uint {
	return v.RobustnessVariable*v.QueryInterval + v.QueryResponseInterval
}

// LastMemberQueryTime is the leave latency: LMQI * LMQC.
func (v *Variables) LastMemberQueryTime() uint {
	return v.LastMemberQueryInterval * v.LastMemberQueryCount
}

// OtherQuerierPresentInterval is the time after which the router
// decides there no longer is another querier: RV * QI + QRI / 2.
func (v *Variables) OtherQuerierPresentInterval() uint {
	return v.RobustnessVariable*v.QueryInterval + v.QueryResponseInterval/2
}

// AdoptQRV takes over a querier's advertised robustness variable. A
// QRV of zero adopts nothing. The derived counts stay untouched.
func (v *Variables) AdoptQRV(qrv uint8) {
	if qrv == 0 {
		return
	}
	v.RobustnessVariable = uint(qrv)
}

// QRV is the robustness variable as advertised in queries. Values
// beyond the three bit QRV field are sent as zero.
func (v *Variables) QRV() uint8 {
	if v.RobustnessVariable > 7 {
		return 0
	}
	return uint8(v.RobustnessVariable)
}
