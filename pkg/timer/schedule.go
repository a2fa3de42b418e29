// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package timer

import "time"

// EventSchedule owns a set of pending one-shot events, each keyed by
// a synthetic id. Events are independent; firing one does not affect
// the others.
//
// A fired event must not remove itself from the owning map within its
// own call frame. Instead its id is parked on a deferred-cleanup list
// which the next ScheduleAfter consults.
type EventSchedule struct {
	sched   *Scheduler
	nextID  uint64
	events  map[uint64]*Timer
	expired []uint64
}

// NewEventSchedule creates an empty EventSchedule on the given
// Scheduler.
func NewEventSchedule(sched *Scheduler) *EventSchedule {
	return &EventSchedule{
		sched:  sched,
		events: make(map[uint64]*Timer),
	}
}

// ScheduleAfter registers event to fire once after delta.
func (es *EventSchedule) ScheduleAfter(delta time.Duration, event func()) {
	for _, id := range es.expired {
		delete(es.events, id)
	}
	es.expired = es.expired[:0]

	id := es.nextID
	es.nextID++

	tm := es.sched.NewTimer(func() {
		event()
		es.expired = append(es.expired, id)
	})
	tm.ScheduleAfter(delta)

	es.events[id] = tm
}

// Clear cancels all pending events and reclaims their resources.
func (es *EventSchedule) Clear() {
	for _, tm := range es.events {
		tm.Unschedule()
	}
	es.events = make(map[uint64]*Timer)
	es.expired = es.expired[:0]
}

// Pending returns the number of events still waiting to fire.
func (es *EventSchedule) Pending() int {
	pending := 0
	for _, tm := range es.events {
		if tm.Scheduled() {
			pending++
		}
	}
	return pending
}
