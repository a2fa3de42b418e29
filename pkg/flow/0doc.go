// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package flow wires the protocol machines into a packet-processing
// dataflow of typed ports. Nodes receive packets on numbered input
// ports through Push and emit on output ports bound to downstream
// handlers.
//
// Both endpoints share the same port layout: input 0 takes IP packets
// to be filtered and input 1 takes received IGMP messages; output 0
// carries generated IGMP messages, output 1 delivered IP packets and
// output 2 rejected ones.
package flow
