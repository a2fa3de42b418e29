// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	log "github.com/sirupsen/logrus"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/member"
	"github.com/igmpd/igmpd-go/pkg/router"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

// Port numbers shared by both endpoints.
const (
	InputIP   = 0
	InputIGMP = 1

	OutputIGMP    = 0
	OutputDeliver = 1
	OutputReject  = 2
)

// MemberNode runs a group-member state machine behind the common
// port layout.
type MemberNode struct {
	member *member.GroupMember

	igmpOut Port
	deliver Port
	reject  Port
}

// NewMemberNode creates a MemberNode with a fresh GroupMember on the
// given scheduler.
func NewMemberNode(sched *timer.Scheduler, rand timer.Source) *MemberNode {
	n := &MemberNode{}
	n.member = member.NewGroupMember(sched, rand, func(destination igmp.Addr, message []byte) {
		push(n.igmpOut, Packet{Destination: destination, Payload: message})
	})

	return n
}

// Member exposes the state machine, for commands and inspection.
func (n *MemberNode) Member() *member.GroupMember {
	return n.member
}

// Bind connects the three output ports.
func (n *MemberNode) Bind(igmpOut, deliver, reject Port) {
	n.igmpOut = igmpOut
	n.deliver = deliver
	n.reject = reject
}

// Push feeds a packet into an input port: filtered IP packets on
// InputIP, received IGMP messages on InputIGMP.
func (n *MemberNode) Push(port int, packet Packet) {
	switch port {
	case InputIP:
		if n.member.ShouldDeliver(packet.Destination, packet.Source) {
			push(n.deliver, packet)
		} else {
			push(n.reject, packet)
		}

	case InputIGMP:
		if !igmp.IsMembershipQuery(packet.Payload) {
			return
		}

		query, err := igmp.UnmarshalQuery(packet.Payload)
		if err != nil {
			log.WithError(err).Debug("Dropping unparseable membership query")
			return
		}
		n.member.HandleQuery(query)
	}
}

// RouterNode runs a router state machine behind the common port
// layout.
type RouterNode struct {
	router *router.Router

	igmpOut Port
	deliver Port
	reject  Port
}

// NewRouterNode creates a RouterNode with a fresh Router on the given
// scheduler. The router sends no general queries until its Configure
// is called.
func NewRouterNode(sched *timer.Scheduler) *RouterNode {
	n := &RouterNode{}
	n.router = router.NewRouter(sched, func(destination igmp.Addr, message []byte) {
		push(n.igmpOut, Packet{Destination: destination, Payload: message})
	})

	return n
}

// Router exposes the state machine, for configuration and
// inspection.
func (n *RouterNode) Router() *router.Router {
	return n.router
}

// Bind connects the three output ports.
func (n *RouterNode) Bind(igmpOut, deliver, reject Port) {
	n.igmpOut = igmpOut
	n.deliver = deliver
	n.reject = reject
}

// Push feeds a packet into an input port. IP packets not addressed to
// a listened-to (group, source) fall out on the reject port.
func (n *RouterNode) Push(port int, packet Packet) {
	switch port {
	case InputIP:
		if n.router.ShouldDeliver(packet.Destination, packet.Source) {
			push(n.deliver, packet)
		} else {
			push(n.reject, packet)
		}

	case InputIGMP:
		switch {
		case igmp.IsMembershipQuery(packet.Payload):
			query, err := igmp.UnmarshalQuery(packet.Payload)
			if err != nil {
				log.WithError(err).Debug("Dropping unparseable membership query")
				return
			}
			n.router.HandleQuery(query, packet.Source)

		case igmp.IsMembershipReportV3(packet.Payload):
			report, err := igmp.UnmarshalReportV3(packet.Payload)
			if err != nil {
				log.WithError(err).Debug("Dropping unparseable membership report")
				return
			}
			n.router.HandleReport(report)
		}
	}
}
