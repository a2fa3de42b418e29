// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package router

import (
	log "github.com/sirupsen/logrus"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

// SourceRecord tracks one source of a group together with its source
// timer.
//
// While the group is in include mode, a live source record means the
// source is to be forwarded. In exclude mode the source records form
// the set X of sources that must still be forwarded, while the
// excluded list of the Record holds the set Y to be blocked.
type SourceRecord struct {
	address igmp.Addr
	timer   *timer.Timer
}

// Address returns the source's address.
func (sr *SourceRecord) Address() igmp.Addr {
	return sr.address
}

// Timer returns the source timer.
func (sr *SourceRecord) Timer() *timer.Timer {
	return sr.timer
}

// Record is the router's state for one multicast group.
type Record struct {
	// Mode is the router filter-mode for the group.
	Mode igmp.FilterMode

	groupTimer *timer.Timer
	sources    []*SourceRecord
	excluded   []igmp.Addr
}

// GroupTimer returns the group timer driving the exclude to include
// transition.
func (rec *Record) GroupTimer() *timer.Timer {
	return rec.groupTimer
}

// SourceRecords returns the group's source records.
func (rec *Record) SourceRecords() []*SourceRecord {
	return rec.sources
}

// SourceAddresses returns the addresses of all source records.
func (rec *Record) SourceAddresses() []igmp.Addr {
	addrs := make([]igmp.Addr, 0, len(rec.sources))
	for _, sr := range rec.sources {
		addrs = append(addrs, sr.address)
	}
	return addrs
}

// ExcludedAddresses returns the set of blocked sources. It is empty
// unless the mode is exclude.
func (rec *Record) ExcludedAddresses() []igmp.Addr {
	return rec.excluded
}

// eraseSources removes all source records matching the predicate,
// stopping their timers.
func (rec *Record) eraseSources(predicate func(*SourceRecord) bool) {
	kept := rec.sources[:0]
	for _, sr := range rec.sources {
		if predicate(sr) {
			sr.timer.Unschedule()
		} else {
			kept = append(kept, sr)
		}
	}
	rec.sources = kept
}

// Filter is the router's group membership table, updated from
// received current-state records following the table of RFC 3376
// section 6.4.
//
// All methods must run on the Scheduler's executor.
type Filter struct {
	sched *timer.Scheduler
	vars  *Variables

	records map[igmp.Addr]*Record
}

// NewFilter creates an empty Filter whose timers use the given
// Variables.
func NewFilter(sched *timer.Scheduler, vars *Variables) *Filter {
	return &Filter{
		sched: sched,
		vars:  vars,

		records: make(map[igmp.Addr]*Record),
	}
}

// Record returns the record for a group, or nil.
func (f *Filter) Record(group igmp.Addr) *Record {
	return f.records[group]
}

// Groups returns all groups with a record, ordered by address.
func (f *Filter) Groups() []igmp.Addr {
	groups := make([]igmp.Addr, 0, len(f.records))
	for group := range f.records {
		groups = append(groups, group)
	}
	igmp.SortAddrs(groups)
	return groups
}

// createRecord inserts a fresh record for a group.
func (f *Filter) createRecord(group igmp.Addr, mode igmp.FilterMode) *Record {
	rec := &Record{Mode: mode}
	rec.groupTimer = f.sched.NewTimer(func() { f.groupTimerExpired(group) })
	f.records[group] = rec
	return rec
}

// getOrCreateSource returns the record's source record for address,
// creating it if necessary.
func (f *Filter) getOrCreateSource(rec *Record, group, address igmp.Addr) *SourceRecord {
	for _, sr := range rec.sources {
		if sr.address == address {
			return sr
		}
	}

	sr := &SourceRecord{address: address}
	sr.timer = f.sched.NewTimer(func() { f.sourceTimerExpired(group, address) })
	rec.sources = append(rec.sources, sr)
	return sr
}

// ReceiveCurrentState applies a received current-state record for a
// group, updating mode, source timers and the group timer per the
// RFC 3376 section 6.4 table:
//
//	Router State   Report Rec'd  New Router State   Actions
//	INCLUDE (A)    IS_IN (B)     INCLUDE (A+B)      (B)=GMI
//	INCLUDE (A)    IS_EX (B)     EXCLUDE (A*B,B-A)  (B-A)=0, Delete (A-B),
//	                                                Group Timer=GMI
//	EXCLUDE (X,Y)  IS_IN (A)     EXCLUDE (X+A,Y-A)  (A)=GMI
//	EXCLUDE (X,Y)  IS_EX (A)     EXCLUDE (A-Y,Y*A)  (A-X-Y)=GMI,
//	                                                Delete (X-A), Delete (Y-A),
//	                                                Group Timer=GMI
func (f *Filter) ReceiveCurrentState(group igmp.Addr, mode igmp.FilterMode, sources []igmp.Addr) {
	gmi := igmp.Duration(f.vars.GroupMembershipInterval())

	rec := f.records[group]
	if rec == nil {
		rec = f.createRecord(group, igmp.Include)
	}

	if rec.Mode == igmp.Include {
		if mode == igmp.Include {
			// INCLUDE (A) + IS_IN (B): INCLUDE (A+B), (B)=GMI
			for _, address := range sources {
				f.getOrCreateSource(rec, group, address).timer.ScheduleAfter(gmi)
			}
		} else {
			// INCLUDE (A) + IS_EX (B): EXCLUDE (A*B, B-A). The
			// sources B-A get a zero timer, which is the same as
			// putting them on the excluded list right away.
			rec.Mode = igmp.Exclude
			rec.excluded = igmp.DifferenceAddrs(sources, rec.SourceAddresses())
			rec.eraseSources(func(sr *SourceRecord) bool {
				return !igmp.ContainsAddr(sources, sr.address)
			})
			rec.groupTimer.ScheduleAfter(gmi)
		}
	} else {
		if mode == igmp.Include {
			// EXCLUDE (X,Y) + IS_IN (A): EXCLUDE (X+A, Y-A), (A)=GMI
			rec.excluded = igmp.DifferenceAddrs(rec.excluded, sources)
			for _, address := range sources {
				f.getOrCreateSource(rec, group, address).timer.ScheduleAfter(gmi)
			}
		} else {
			// EXCLUDE (X,Y) + IS_EX (A): EXCLUDE (A-Y, Y*A),
			// (A-X-Y)=GMI, Delete (X-A), Delete (Y-A)
			previous := rec.SourceAddresses()

			rec.eraseSources(func(sr *SourceRecord) bool {
				return !igmp.ContainsAddr(sources, sr.address)
			})
			rec.eraseSources(func(sr *SourceRecord) bool {
				return igmp.ContainsAddr(rec.excluded, sr.address)
			})

			fresh := igmp.DifferenceAddrs(igmp.DifferenceAddrs(sources, previous), rec.excluded)
			for _, address := range fresh {
				f.getOrCreateSource(rec, group, address).timer.ScheduleAfter(gmi)
			}

			rec.excluded = igmp.IntersectAddrs(rec.excluded, sources)
			rec.groupTimer.ScheduleAfter(gmi)
		}
	}
}

// sourceTimerExpired removes the timed-out source record. Under
// exclude mode the source moves onto the excluded list.
func (f *Filter) sourceTimerExpired(group, address igmp.Addr) {
	rec := f.records[group]
	if rec == nil {
		return
	}

	erased := false
	kept := rec.sources[:0]
	for _, sr := range rec.sources {
		if sr.address == address {
			erased = true
		} else {
			kept = append(kept, sr)
		}
	}
	rec.sources = kept

	if !erased {
		return
	}

	if rec.Mode == igmp.Exclude {
		log.WithFields(log.Fields{
			"group":  group,
			"source": address,
		}).Debug("Source timer expired, source is now blocked")

		rec.excluded = append(rec.excluded, address)
	} else if len(rec.sources) == 0 {
		// The last requested source of an include mode group timed
		// out, nobody listens anymore.
		delete(f.records, group)
	}
}

// groupTimerExpired switches a timed-out exclude mode group back to
// include mode. A group left without sources is forgotten entirely.
func (f *Filter) groupTimerExpired(group igmp.Addr) {
	rec := f.records[group]
	if rec == nil || rec.Mode != igmp.Exclude {
		return
	}

	log.WithField("group", group).Debug("Group timer expired, falling back to include mode")

	rec.Mode = igmp.Include
	rec.excluded = nil

	if len(rec.sources) == 0 {
		delete(f.records, group)
	}
}

// IsListeningTo decides whether traffic from source to group is to be
// forwarded. The all-systems group and the reports group are always
// listened to.
func (f *Filter) IsListeningTo(group, source igmp.Addr) bool {
	if group == igmp.AllSystems || group == igmp.AllReporters {
		return true
	}

	rec := f.records[group]
	if rec == nil {
		return false
	}

	if rec.Mode == igmp.Exclude {
		return !igmp.ContainsAddr(rec.excluded, source)
	}
	return igmp.ContainsAddr(rec.SourceAddresses(), source)
}
