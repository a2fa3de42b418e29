// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package timer provides the single-executor timing machinery of the
// protocol core: one-shot timers with millisecond resolution ordered
// by a Scheduler, an id-keyed EventSchedule for sets of independent
// one-shot events, a uniform random Source, and an Executor that
// drives a Scheduler from the wall clock.
//
// All callbacks of one Scheduler run on one executor; there is no
// concurrent mutation of protocol state and no locking inside the
// protocol packages. Tests drive a Scheduler directly through
// Advance, which makes every timer-dependent behavior deterministic.
package timer
