// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package router

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

// TransmitFunc carries a serialized IGMP message to an IP
// destination.
type TransmitFunc func(destination igmp.Addr, message []byte)

// Router is the IGMPv3 querier state machine for one interface. It
// sends periodic general queries, updates its Filter from received
// membership reports, chases leaving groups with group-specific
// queries and backs off when another querier with a lower address is
// present.
//
// All methods must run on the Scheduler's executor.
type Router struct {
	sched    *timer.Scheduler
	transmit TransmitFunc

	vars   *Variables
	filter *Filter

	address igmp.Addr

	generalQuery  *timer.Timer
	querySchedule *timer.EventSchedule

	otherQuerierPresent bool
	otherQuerierGone    *timer.Timer

	startupQueriesRemaining uint
}

// NewRouter creates a Router with default variables, emitting its
// queries through transmit. It sends no general queries until
// Configure is called; reports and queries are processed, and leaving
// groups are chased with group-specific queries, before that.
func NewRouter(sched *timer.Scheduler, transmit TransmitFunc) *Router {
	r := &Router{
		sched:    sched,
		transmit: transmit,

		vars: DefaultVariables(),

		querySchedule: timer.NewEventSchedule(sched),
	}
	r.filter = NewFilter(sched, r.vars)
	r.generalQuery = sched.NewTimer(r.sendPeriodicGeneralQuery)
	r.otherQuerierGone = sched.NewTimer(r.otherQuerierGoneExpired)

	return r
}

// Filter exposes the router's group membership table.
func (r *Router) Filter() *Filter {
	return r.filter
}

// Variables exposes the router's tunables.
func (r *Router) Variables() *Variables {
	return r.vars
}

// Address returns the router's own IP address.
func (r *Router) Address() igmp.Addr {
	return r.address
}

// OtherQuerierPresent reports whether another querier with a lower
// address currently suppresses this router's queries.
func (r *Router) OtherQuerierPresent() bool {
	return r.otherQuerierPresent
}

// Configure sets the router's address and starts the startup burst of
// general queries.
func (r *Router) Configure(address igmp.Addr) {
	log.WithField("address", address).Info("Configuring IGMP router")

	r.address = address
	r.startStartupQueries()
}

func (r *Router) startStartupQueries() {
	r.startupQueriesRemaining = r.vars.StartupQueryCount
	r.generalQuery.ScheduleAfter(igmp.Duration(r.vars.StartupQueryInterval))
}

// sendPeriodicGeneralQuery transmits a general query and reschedules
// itself, at the startup interval while the startup burst lasts and
// at the query interval afterwards.
func (r *Router) sendPeriodicGeneralQuery() {
	query := igmp.Query{
		MaxRespTime:        r.vars.QueryResponseInterval,
		RobustnessVariable: r.vars.QRV(),
		QueryInterval:      r.vars.QueryInterval,
	}

	log.WithField("startup-remaining", r.startupQueriesRemaining).Debug("Router transmits general query")
	r.transmit(igmp.AllSystems, query.Marshal())

	if r.startupQueriesRemaining > 0 {
		r.startupQueriesRemaining--
		r.generalQuery.ScheduleAfter(igmp.Duration(r.vars.StartupQueryInterval))
	} else {
		r.generalQuery.ScheduleAfter(igmp.Duration(r.vars.QueryInterval))
	}
}

// sendGroupSpecificQuery transmits one group-specific query. The
// suppress router-side processing flag is set while the group timer
// still exceeds the last member query time.
func (r *Router) sendGroupSpecificQuery(group igmp.Addr) {
	suppress := false
	if rec := r.filter.Record(group); rec != nil {
		groupTimer := rec.GroupTimer()
		suppress = groupTimer.Scheduled() &&
			groupTimer.Remaining() > igmp.Duration(r.vars.LastMemberQueryTime())
	}

	query := igmp.Query{
		MaxRespTime:                  r.vars.LastMemberQueryInterval,
		GroupAddress:                 group,
		SuppressRouterSideProcessing: suppress,
		RobustnessVariable:           r.vars.QRV(),
		QueryInterval:                r.vars.QueryInterval,
	}

	log.WithFields(log.Fields{
		"group":    group,
		"suppress": suppress,
	}).Debug("Router transmits group-specific query")
	r.transmit(igmp.AllSystems, query.Marshal())
}

// HandleReport processes a received version 3 membership report,
// record by record. Unknown record types are skipped; a group leaving
// exclude mode is chased with group-specific queries unless another
// querier is responsible.
func (r *Router) HandleReport(report igmp.ReportV3) {
	for _, groupRecord := range report.GroupRecords {
		mode, known := groupRecord.Type.FilterMode()
		if !known {
			log.WithFields(log.Fields{
				"type":  groupRecord.Type,
				"group": groupRecord.MulticastAddress,
			}).Warn("Ignoring group record of unknown type")
			continue
		}

		group := groupRecord.MulticastAddress

		existing := r.filter.Record(group)
		wasExclude := existing != nil && existing.Mode == igmp.Exclude

		r.filter.ReceiveCurrentState(group, mode, groupRecord.SourceAddresses)

		if wasExclude && groupRecord.Type == igmp.ChangeToInclude {
			r.chaseLeavingGroup(group)
		}
	}
}

// chaseLeavingGroup lowers the group timer to the last member query
// time and sends the last member query count of group-specific
// queries, one now and the rest at last member query intervals.
func (r *Router) chaseLeavingGroup(group igmp.Addr) {
	if r.otherQuerierPresent {
		log.WithField("group", group).Debug("Other querier present, not querying leaving group")
		return
	}

	if rec := r.filter.Record(group); rec != nil {
		rec.GroupTimer().ScheduleAfter(igmp.Duration(r.vars.LastMemberQueryTime()))
	}

	r.sendGroupSpecificQuery(group)

	for i := uint(1); i < r.vars.LastMemberQueryCount; i++ {
		group := group
		r.querySchedule.ScheduleAfter(igmp.Duration(i*r.vars.LastMemberQueryInterval),
			func() { r.sendGroupSpecificQuery(group) })
	}
}

// HandleQuery processes a membership query received from another
// system, covering the router-side timer update for group-specific
// queries, querier election per RFC 3376 section 6.6.2 and QRV
// adoption.
func (r *Router) HandleQuery(query igmp.Query, source igmp.Addr) {
	if !query.IsGeneral() && !query.SuppressRouterSideProcessing {
		if rec := r.filter.Record(query.GroupAddress); rec != nil {
			rec.GroupTimer().ScheduleAfter(igmp.Duration(r.vars.LastMemberQueryTime()))
		}
	}

	// The querier with the numerically lower address wins. A query
	// reflected from our own address is treated like a foreign one.
	if r.address < source {
		log.WithField("source", source).Debug("Query from higher address, staying querier")
	} else {
		log.WithField("source", source).Info("Query from lower address, another querier is present")

		r.otherQuerierPresent = true
		r.generalQuery.Unschedule()
		r.querySchedule.Clear()
		r.otherQuerierGone.ScheduleAfter(igmp.Duration(r.vars.OtherQuerierPresentInterval()))
	}

	if query.RobustnessVariable != 0 {
		r.vars.AdoptQRV(query.RobustnessVariable)
	}
}

// otherQuerierGoneExpired ends the other-querier-present state and
// re-enters the startup burst.
func (r *Router) otherQuerierGoneExpired() {
	log.Info("Other querier timed out, resuming querier role")

	r.otherQuerierPresent = false
	r.startStartupQueries()
}

// ShouldDeliver decides whether a received IP packet addressed to the
// multicast group destination from source is to be forwarded.
func (r *Router) ShouldDeliver(destination, source igmp.Addr) bool {
	return r.filter.IsListeningTo(destination, source)
}

// GroupState is a snapshot of one group's membership state, used by
// the control surface and the persistence mirror.
type GroupState struct {
	Group               igmp.Addr
	Mode                igmp.FilterMode
	Sources             []igmp.Addr
	Excluded            []igmp.Addr
	GroupTimerRemaining time.Duration
}

// Snapshot captures the whole membership table, ordered by group
// address.
func (r *Router) Snapshot() []GroupState {
	var states []GroupState
	for _, group := range r.filter.Groups() {
		rec := r.filter.Record(group)
		states = append(states, GroupState{
			Group:               group,
			Mode:                rec.Mode,
			Sources:             rec.SourceAddresses(),
			Excluded:            append([]igmp.Addr(nil), rec.ExcludedAddresses()...),
			GroupTimerRemaining: rec.GroupTimer().Remaining(),
		})
	}
	return states
}
