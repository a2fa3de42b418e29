// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package timer

import (
	"container/heap"
	"time"
)

// Scheduler orders one-shot timers by their absolute deadline and
// fires them when it is advanced past that deadline. It performs no
// clock reads of its own; whoever owns the Scheduler advances it,
// either an Executor from the wall clock or a test by hand.
type Scheduler struct {
	now  time.Time
	timers timerHeap
	seq  uint64
}

// NewScheduler creates an empty Scheduler positioned at the zero
// time.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the scheduler's current position in time. The reading
// is monotonic: it only moves forward, through Advance and AdvanceTo.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// NewTimer creates an unscheduled timer firing callback. The callback
// runs on whatever call frame advances the Scheduler; it may
// reschedule its own timer but must follow the EventSchedule
// discipline to remove itself from an owning collection.
func (s *Scheduler) NewTimer(callback func()) *Timer {
	return &Timer{sched: s, callback: callback, index: -1}
}

// NextDeadline returns the deadline of the earliest scheduled timer.
// The second return value is false when nothing is scheduled.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	if len(s.timers) == 0 {
		return time.Time{}, false
	}
	return s.timers[0].deadline, true
}

// AdvanceTo moves the scheduler to t, firing every timer whose
// deadline is not after t in non-decreasing deadline order. Timers
// sharing a deadline fire in scheduling order. A time before the
// current position only fires what is already due.
func (s *Scheduler) AdvanceTo(t time.Time) {
	for len(s.timers) > 0 && !s.timers[0].deadline.After(t) {
		next := heap.Pop(&s.timers).(*Timer)

		// Position time at the deadline so that a callback
		// rescheduling itself measures from its own expiry.
		if next.deadline.After(s.now) {
			s.now = next.deadline
		}

		next.callback()
	}

	if t.After(s.now) {
		s.now = t
	}
}

// Advance moves the scheduler forward by delta, firing due timers.
func (s *Scheduler) Advance(delta time.Duration) {
	s.AdvanceTo(s.now.Add(delta))
}

// Timer is a one-shot timer bound to a Scheduler.
type Timer struct {
	sched    *Scheduler
	callback func()
	deadline time.Time
	seq      uint64
	index    int
}

// ScheduleAfter schedules the timer to fire after delta. A timer that
// is already scheduled is moved to the new deadline.
func (t *Timer) ScheduleAfter(delta time.Duration) {
	t.deadline = t.sched.now.Add(delta)
	t.seq = t.sched.seq
	t.sched.seq++

	if t.index >= 0 {
		heap.Fix(&t.sched.timers, t.index)
	} else {
		heap.Push(&t.sched.timers, t)
	}
}

// Unschedule cancels the timer. The callback will not fire unless the
// timer is scheduled again. Unscheduling an idle timer is a no-op.
func (t *Timer) Unschedule() {
	if t.index >= 0 {
		heap.Remove(&t.sched.timers, t.index)
	}
}

// Scheduled reports whether the timer is waiting to fire.
func (t *Timer) Scheduled() bool {
	return t.index >= 0
}

// Remaining returns the time left until the timer fires, or zero for
// an unscheduled timer.
func (t *Timer) Remaining() time.Duration {
	if t.index < 0 {
		return 0
	}

	remaining := t.deadline.Sub(t.sched.now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// timerHeap implements container/heap ordered by deadline, with the
// scheduling sequence number as tie breaker for determinism.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	t := old[len(old)-1]
	old[len(old)-1] = nil
	t.index = -1
	*h = old[:len(old)-1]
	return t
}
