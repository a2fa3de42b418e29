// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package router

import (
	"testing"
	"time"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

type sentQuery struct {
	destination igmp.Addr
	query       igmp.Query
}

type routerHarness struct {
	sched   *timer.Scheduler
	router  *Router
	queries []sentQuery
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()

	h := &routerHarness{sched: timer.NewScheduler()}
	h.router = NewRouter(h.sched, func(destination igmp.Addr, message []byte) {
		query, err := igmp.UnmarshalQuery(message)
		if err != nil {
			t.Fatalf("emitted message does not parse as query: %v", err)
		}
		if !igmp.ValidChecksum(message) {
			t.Fatalf("emitted message carries an invalid checksum")
		}
		h.queries = append(h.queries, sentQuery{destination, query})
	})

	return h
}

func (h *routerHarness) take() []sentQuery {
	queries := h.queries
	h.queries = nil
	return queries
}

func singleChange(recordType igmp.GroupRecordType, group igmp.Addr, sources ...igmp.Addr) igmp.ReportV3 {
	return igmp.ReportV3{GroupRecords: []igmp.GroupRecord{{
		Type:             recordType,
		MulticastAddress: group,
		SourceAddresses:  sources,
	}}}
}

// TestStartupQueries checks the startup burst: general queries at the
// startup query interval while the counter lasts, then the regular
// query interval.
func TestStartupQueries(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()

	h.router.Configure(igmp.MustParseAddr("10.0.0.5"))

	startupInterval := igmp.Duration(vars.StartupQueryInterval)

	// Three queries fire at the startup interval: one per remaining
	// startup count, plus the one transitioning to the steady state.
	for i := 0; i < 3; i++ {
		h.sched.Advance(startupInterval)

		queries := h.take()
		if len(queries) != 1 {
			t.Fatalf("startup step %d: %d queries, expected 1", i, len(queries))
		}

		q := queries[0]
		if q.destination != igmp.AllSystems {
			t.Fatalf("general query sent to %v, expected %v", q.destination, igmp.AllSystems)
		}
		if !q.query.IsGeneral() {
			t.Fatalf("startup query is not general: %v", q.query)
		}
		if q.query.MaxRespTime != vars.QueryResponseInterval {
			t.Fatalf("max resp time %d, expected %d", q.query.MaxRespTime, vars.QueryResponseInterval)
		}
		if q.query.RobustnessVariable != 2 {
			t.Fatalf("QRV %d, expected 2", q.query.RobustnessVariable)
		}
	}

	// Steady state: nothing for a while, then one query per query
	// interval.
	h.sched.Advance(startupInterval)
	if queries := h.take(); len(queries) != 0 {
		t.Fatalf("query fired at the startup interval in steady state")
	}

	h.sched.Advance(igmp.Duration(vars.QueryInterval) - startupInterval)
	if queries := h.take(); len(queries) != 1 {
		t.Fatalf("no query after a full query interval")
	}
}

// TestChaseLeavingGroup covers scenario S4: a group in exclude mode
// receiving CHANGE_TO_INCLUDE is chased with last member query count
// group-specific queries and its group timer drops to LMQT.
func TestChaseLeavingGroup(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()
	group := igmp.MustParseAddr("239.3.3.3")
	src := igmp.MustParseAddr("10.0.0.1")

	// EXCLUDE (X = {src}, Y = {}).
	h.router.HandleReport(singleChange(igmp.ModeIsExclude, group, src))
	h.router.HandleReport(singleChange(igmp.ModeIsInclude, group, src))
	if queries := h.take(); len(queries) != 0 {
		t.Fatalf("current-state reports triggered %d queries", len(queries))
	}

	h.router.HandleReport(singleChange(igmp.ChangeToInclude, group))

	immediate := h.take()
	if len(immediate) != 1 {
		t.Fatalf("%d immediate queries, expected 1", len(immediate))
	}

	q := immediate[0]
	if q.destination != igmp.AllSystems {
		t.Fatalf("group-specific query sent to %v, expected %v", q.destination, igmp.AllSystems)
	}
	if q.query.GroupAddress != group {
		t.Fatalf("query for %v, expected %v", q.query.GroupAddress, group)
	}
	if q.query.MaxRespTime != vars.LastMemberQueryInterval {
		t.Fatalf("max resp time %d, expected LMQI %d", q.query.MaxRespTime, vars.LastMemberQueryInterval)
	}
	if q.query.SuppressRouterSideProcessing {
		t.Fatalf("S flag set on a freshly lowered group timer")
	}

	lmqt := igmp.Duration(vars.LastMemberQueryTime())
	if remaining := h.router.Filter().Record(group).GroupTimer().Remaining(); remaining != lmqt {
		t.Fatalf("group timer remaining %v, expected LMQT %v", remaining, lmqt)
	}

	// One retransmission follows after the last member query
	// interval.
	h.sched.Advance(igmp.Duration(vars.LastMemberQueryInterval))
	retransmissions := h.take()
	if len(retransmissions) != 1 {
		t.Fatalf("%d retransmissions, expected 1", len(retransmissions))
	}
	if retransmissions[0].query.GroupAddress != group {
		t.Fatalf("retransmission queries %v", retransmissions[0].query.GroupAddress)
	}

	h.sched.Advance(time.Minute)
	for _, q := range h.take() {
		if !q.query.IsGeneral() {
			t.Fatalf("unexpected extra group-specific query %v", q.query)
		}
	}
}

// TestSuppressFlagOnRefreshedGroupTimer checks the S flag
// computation: a retransmitted group-specific query carries S when
// the group timer was pushed beyond LMQT in the meantime.
func TestSuppressFlagOnRefreshedGroupTimer(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()
	group := igmp.MustParseAddr("239.3.3.3")
	src := igmp.MustParseAddr("10.0.0.1")

	h.router.HandleReport(singleChange(igmp.ModeIsExclude, group, src))
	h.router.HandleReport(singleChange(igmp.ModeIsInclude, group, src))
	h.router.HandleReport(singleChange(igmp.ChangeToInclude, group))
	h.take()

	// Another member's IS_EX pushes the group timer back to GMI.
	h.router.HandleReport(singleChange(igmp.ModeIsExclude, group))

	h.sched.Advance(igmp.Duration(vars.LastMemberQueryInterval))

	queries := h.take()
	if len(queries) != 1 {
		t.Fatalf("%d retransmissions, expected 1", len(queries))
	}
	if !queries[0].query.SuppressRouterSideProcessing {
		t.Fatalf("S flag clear although the group timer exceeds LMQT")
	}
}

// TestQuerierElectionLoss covers scenario S5: a query from a lower
// address silences this router until the other querier present
// interval has passed, after which the startup burst resumes.
func TestQuerierElectionLoss(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()

	h.router.Configure(igmp.MustParseAddr("10.0.0.5"))

	h.router.HandleQuery(igmp.Query{MaxRespTime: 100, RobustnessVariable: 2},
		igmp.MustParseAddr("10.0.0.2"))

	if !h.router.OtherQuerierPresent() {
		t.Fatalf("lost election not noticed")
	}

	// No general queries while the other querier is present; the
	// other querier present interval is 255s, well beyond the
	// pending startup queries.
	h.sched.Advance(igmp.Duration(vars.OtherQuerierPresentInterval()) - time.Second)
	if queries := h.take(); len(queries) != 0 {
		t.Fatalf("%d queries sent while another querier is present", len(queries))
	}

	// Expiry resumes the startup burst.
	h.sched.Advance(time.Second)
	if h.router.OtherQuerierPresent() {
		t.Fatalf("other querier still present after its interval")
	}

	h.sched.Advance(igmp.Duration(vars.StartupQueryInterval))
	queries := h.take()
	if len(queries) != 1 || !queries[0].query.IsGeneral() {
		t.Fatalf("startup burst did not resume: %v", queries)
	}
}

func TestQuerierElectionWin(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()

	h.router.Configure(igmp.MustParseAddr("10.0.0.5"))
	h.router.HandleQuery(igmp.Query{MaxRespTime: 100}, igmp.MustParseAddr("10.0.0.7"))

	if h.router.OtherQuerierPresent() {
		t.Fatalf("election lost against a higher address")
	}

	h.sched.Advance(igmp.Duration(vars.StartupQueryInterval))
	if queries := h.take(); len(queries) != 1 {
		t.Fatalf("general query timer disturbed by a losing peer")
	}
}

// TestChaseSuppressedByOtherQuerier checks that a leaving group is
// not chased while another querier is present.
func TestChaseSuppressedByOtherQuerier(t *testing.T) {
	h := newRouterHarness(t)
	group := igmp.MustParseAddr("239.3.3.3")
	src := igmp.MustParseAddr("10.0.0.1")

	h.router.Configure(igmp.MustParseAddr("10.0.0.5"))
	h.router.HandleReport(singleChange(igmp.ModeIsExclude, group, src))
	h.router.HandleQuery(igmp.Query{MaxRespTime: 100}, igmp.MustParseAddr("10.0.0.2"))
	h.take()

	h.router.HandleReport(singleChange(igmp.ChangeToInclude, group))

	if queries := h.take(); len(queries) != 0 {
		t.Fatalf("leaving group chased although another querier is present")
	}
}

// TestGroupSpecificQueryLowersGroupTimer covers the router-side timer
// update of section 6.6.1: hearing a group-specific query without the
// S flag lowers the group timer to LMQT.
func TestGroupSpecificQueryLowersGroupTimer(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()
	group := igmp.MustParseAddr("239.3.3.3")

	h.router.Configure(igmp.MustParseAddr("10.0.0.2"))
	h.router.HandleReport(singleChange(igmp.ModeIsExclude, group))
	h.take()

	lmqt := igmp.Duration(vars.LastMemberQueryTime())

	// With the S flag the timer stays untouched.
	h.router.HandleQuery(igmp.Query{
		MaxRespTime:                  10,
		GroupAddress:                 group,
		SuppressRouterSideProcessing: true,
	}, igmp.MustParseAddr("10.0.0.7"))

	if remaining := h.router.Filter().Record(group).GroupTimer().Remaining(); remaining <= lmqt {
		t.Fatalf("S flagged query lowered the group timer to %v", remaining)
	}

	h.router.HandleQuery(igmp.Query{
		MaxRespTime:  10,
		GroupAddress: group,
	}, igmp.MustParseAddr("10.0.0.7"))

	if remaining := h.router.Filter().Record(group).GroupTimer().Remaining(); remaining != lmqt {
		t.Fatalf("group timer remaining %v, expected LMQT %v", remaining, lmqt)
	}
}

// TestAdoptQRV checks that a received QRV replaces the robustness
// variable without recomputing the derived counts, and that a zero
// QRV adopts nothing.
func TestAdoptQRV(t *testing.T) {
	h := newRouterHarness(t)
	vars := h.router.Variables()

	h.router.Configure(igmp.MustParseAddr("10.0.0.2"))

	h.router.HandleQuery(igmp.Query{MaxRespTime: 100, RobustnessVariable: 5},
		igmp.MustParseAddr("10.0.0.7"))

	if vars.RobustnessVariable != 5 {
		t.Fatalf("robustness variable is %d, expected adopted 5", vars.RobustnessVariable)
	}
	if vars.StartupQueryCount != 2 || vars.LastMemberQueryCount != 2 {
		t.Fatalf("derived counts recomputed: %d, %d",
			vars.StartupQueryCount, vars.LastMemberQueryCount)
	}

	h.router.HandleQuery(igmp.Query{MaxRespTime: 100},
		igmp.MustParseAddr("10.0.0.7"))

	if vars.RobustnessVariable != 5 {
		t.Fatalf("zero QRV overwrote the robustness variable")
	}
}

// TestHandleReportUnknownRecordType checks that an unknown record
// type is skipped while the remaining records are still processed.
func TestHandleReportUnknownRecordType(t *testing.T) {
	h := newRouterHarness(t)
	g1 := igmp.MustParseAddr("239.1.1.1")
	g2 := igmp.MustParseAddr("239.2.2.2")

	h.router.HandleReport(igmp.ReportV3{GroupRecords: []igmp.GroupRecord{
		{Type: igmp.GroupRecordType(6), MulticastAddress: g1},
		{Type: igmp.ModeIsExclude, MulticastAddress: g2},
	}})

	if h.router.Filter().Record(g1) != nil {
		t.Fatalf("unknown record type created filter state")
	}
	if h.router.Filter().Record(g2) == nil {
		t.Fatalf("record after the unknown one was not processed")
	}
}

func TestSnapshot(t *testing.T) {
	h := newRouterHarness(t)
	group := igmp.MustParseAddr("239.3.3.3")
	src := igmp.MustParseAddr("10.0.0.1")

	h.router.HandleReport(singleChange(igmp.ModeIsExclude, group, src))

	states := h.router.Snapshot()
	if len(states) != 1 {
		t.Fatalf("%d snapshot entries, expected 1", len(states))
	}

	state := states[0]
	if state.Group != group || state.Mode != igmp.Exclude {
		t.Fatalf("snapshot state %+v", state)
	}
	if !igmp.EqualAddrSets(state.Excluded, []igmp.Addr{src}) {
		t.Fatalf("snapshot excluded %v, expected {%v}", state.Excluded, src)
	}
	if state.GroupTimerRemaining == 0 {
		t.Fatalf("snapshot misses the group timer")
	}
}
