// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package timer

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Executor drives a Scheduler from the wall clock on a single
// goroutine. Everything that touches protocol state, packet
// deliveries, commands and timer expiries alike, is funneled through
// Submit and runs to completion on that goroutine.
type Executor struct {
	sched *Scheduler

	submissions chan func()

	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewExecutor creates an Executor with a fresh Scheduler positioned
// at the current time and starts its goroutine.
func NewExecutor() *Executor {
	e := &Executor{
		sched: NewScheduler(),

		submissions: make(chan func(), 64),

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}
	e.sched.AdvanceTo(time.Now())

	go e.handler()

	return e
}

// Scheduler returns the driven Scheduler. It must only be used from
// callbacks running on this Executor.
func (e *Executor) Scheduler() *Scheduler {
	return e.sched
}

// Submit hands fn to the executor goroutine. It blocks once the
// submission queue is full and must not be called after Close.
func (e *Executor) Submit(fn func()) {
	e.submissions <- fn
}

// Close stops the executor goroutine. Pending timers do not fire
// afterwards.
func (e *Executor) Close() {
	close(e.stopSyn)
	<-e.stopAck
}

// handler is the executor goroutine: it sleeps until the earliest
// deadline or an external submission, then advances the Scheduler.
func (e *Executor) handler() {
	defer close(e.stopAck)

	wake := time.NewTimer(time.Hour)
	defer wake.Stop()

	for {
		var wakeChan <-chan time.Time
		if deadline, ok := e.sched.NextDeadline(); ok {
			if !wake.Stop() {
				select {
				case <-wake.C:
				default:
				}
			}
			wake.Reset(time.Until(deadline))
			wakeChan = wake.C
		}

		select {
		case <-e.stopSyn:
			log.Debug("Executor is shutting down")
			return

		case fn := <-e.submissions:
			e.sched.AdvanceTo(time.Now())
			fn()

		case <-wakeChan:
			e.sched.AdvanceTo(time.Now())
		}
	}
}
