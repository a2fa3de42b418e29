// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package member

import (
	log "github.com/sirupsen/logrus"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

const (
	// defaultRobustness is the member's robustness variable: the
	// number of times a state change is transmitted.
	defaultRobustness uint = 2

	// defaultUnsolicitedReportInterval bounds the gap between
	// retransmissions of a state-change report, in tenths of a
	// second.
	defaultUnsolicitedReportInterval uint = 10
)

// TransmitFunc carries a serialized IGMP message to an IP
// destination.
type TransmitFunc func(destination igmp.Addr, message []byte)

// GroupMember is the host-side IGMPv3 state machine for one
// interface. It owns a Filter, answers membership queries after a
// random delay, and announces local state changes with robustness
// retransmission.
//
// All methods must run on the Scheduler's executor.
type GroupMember struct {
	sched    *timer.Scheduler
	rand     timer.Source
	transmit TransmitFunc

	filter *Filter

	robustness                uint
	unsolicitedReportInterval uint

	generalResponse *timer.Timer
	groupResponses  map[igmp.Addr]*timer.Timer

	stateChanges      *timer.EventSchedule
	stateChangeCounts map[igmp.Addr]uint
}

// NewGroupMember creates a GroupMember emitting its reports through
// transmit.
func NewGroupMember(sched *timer.Scheduler, rand timer.Source, transmit TransmitFunc) *GroupMember {
	gm := &GroupMember{
		sched:    sched,
		rand:     rand,
		transmit: transmit,

		filter: NewFilter(),

		robustness:                defaultRobustness,
		unsolicitedReportInterval: defaultUnsolicitedReportInterval,

		groupResponses: make(map[igmp.Addr]*timer.Timer),

		stateChanges:      timer.NewEventSchedule(sched),
		stateChangeCounts: make(map[igmp.Addr]uint),
	}
	gm.generalResponse = sched.NewTimer(gm.sendGeneralResponse)

	return gm
}

// Filter exposes the member's reception state.
func (gm *GroupMember) Filter() *Filter {
	return gm.filter
}

// Join starts listening to all sources of group and announces the
// change.
func (gm *GroupMember) Join(group igmp.Addr) {
	log.WithField("group", group).Info("Group member joins group")
	gm.Listen(group, igmp.Exclude, nil)
}

// Leave stops listening to group and announces the change.
func (gm *GroupMember) Leave(group igmp.Addr) {
	log.WithField("group", group).Info("Group member leaves group")
	gm.Listen(group, igmp.Include, nil)
}

// Listen applies a reception state change and transmits state-change
// reports for it: one immediately, the remaining robustness - 1 at
// cumulative random offsets within the unsolicited report interval.
func (gm *GroupMember) Listen(group igmp.Addr, mode igmp.FilterMode, sources []igmp.Addr) {
	if group == igmp.AllSystems {
		log.WithField("group", group).Debug("Ignoring listen request for the all-systems group")
		return
	}

	gm.filter.Listen(group, mode, sources)

	gm.stateChangeCounts[group] = gm.robustness
	gm.stateChanges.Clear()

	gm.sendStateChangeReport()

	offset := uint(0)
	for i := uint(1); i < gm.robustness; i++ {
		offset += gm.rand.Uniform(1, gm.unsolicitedReportInterval-1)
		gm.stateChanges.ScheduleAfter(igmp.Duration(offset), gm.sendStateChangeReport)
	}
}

// HandleQuery processes a received membership query, scheduling a
// delayed current-state response as RFC 3376 section 5.2 prescribes.
func (gm *GroupMember) HandleQuery(query igmp.Query) {
	var upper uint
	if query.MaxRespTime > 0 {
		upper = query.MaxRespTime - 1
	}
	delay := igmp.Duration(gm.rand.Uniform(1, upper))

	// A pending response to an earlier general query that fires
	// sooner already covers this query.
	if gm.generalResponse.Scheduled() && gm.generalResponse.Remaining() <= delay {
		log.WithField("query", query).Debug("Pending general response absorbs query")
		return
	}

	if query.IsGeneral() {
		gm.generalResponse.ScheduleAfter(delay)
		return
	}

	group := query.GroupAddress
	response, ok := gm.groupResponses[group]
	if !ok {
		response = gm.sched.NewTimer(func() { gm.sendGroupResponse(group) })
		gm.groupResponses[group] = response
	}

	if len(query.SourceAddresses) == 0 && !(response.Scheduled() && response.Remaining() < delay) {
		response.ScheduleAfter(delay)
	}
}

// ShouldDeliver decides whether a received IP packet addressed to the
// multicast group destination from source is meant for this host.
func (gm *GroupMember) ShouldDeliver(destination, source igmp.Addr) bool {
	return gm.filter.IsListeningTo(destination, source)
}

// sendGeneralResponse reports the current state of every filter
// record in a single report.
func (gm *GroupMember) sendGeneralResponse() {
	var report igmp.ReportV3
	for _, group := range gm.filter.Groups() {
		record, _ := gm.filter.Record(group)
		report.GroupRecords = append(report.GroupRecords, igmp.GroupRecord{
			Type:             igmp.RecordType(record.Mode, false),
			MulticastAddress: group,
			SourceAddresses:  record.SourceAddresses,
		})
	}

	if len(report.GroupRecords) == 0 {
		log.Debug("No filter records, suppressing general response")
		return
	}

	gm.emit(report)
}

// sendGroupResponse reports the current state of a single group. A
// group without a record is reported as include mode with no sources.
func (gm *GroupMember) sendGroupResponse(group igmp.Addr) {
	groupRecord := igmp.GroupRecord{
		Type:             igmp.ModeIsInclude,
		MulticastAddress: group,
	}
	if record, ok := gm.filter.Record(group); ok {
		groupRecord.Type = igmp.RecordType(record.Mode, false)
		groupRecord.SourceAddresses = record.SourceAddresses
	}

	gm.emit(igmp.ReportV3{GroupRecords: []igmp.GroupRecord{groupRecord}})
}

// popStateChangedReport builds a state-change report covering every
// group with retransmissions left and decrements their counters,
// dropping exhausted entries.
func (gm *GroupMember) popStateChangedReport() igmp.ReportV3 {
	groups := make([]igmp.Addr, 0, len(gm.stateChangeCounts))
	for group := range gm.stateChangeCounts {
		groups = append(groups, group)
	}
	igmp.SortAddrs(groups)

	var report igmp.ReportV3
	for _, group := range groups {
		groupRecord := igmp.GroupRecord{
			Type:             igmp.ChangeToInclude,
			MulticastAddress: group,
		}
		if record, ok := gm.filter.Record(group); ok {
			groupRecord.Type = igmp.RecordType(record.Mode, true)
			groupRecord.SourceAddresses = record.SourceAddresses
		}
		report.GroupRecords = append(report.GroupRecords, groupRecord)

		gm.stateChangeCounts[group]--
		if gm.stateChangeCounts[group] == 0 {
			delete(gm.stateChangeCounts, group)
		}
	}

	return report
}

// sendStateChangeReport transmits the pending state changes, if any.
func (gm *GroupMember) sendStateChangeReport() {
	report := gm.popStateChangedReport()
	if len(report.GroupRecords) == 0 {
		return
	}

	gm.emit(report)
}

func (gm *GroupMember) emit(report igmp.ReportV3) {
	log.WithFields(log.Fields{
		"records":     len(report.GroupRecords),
		"destination": igmp.AllReporters,
	}).Debug("Group member transmits membership report")

	gm.transmit(igmp.AllReporters, report.Marshal())
}
