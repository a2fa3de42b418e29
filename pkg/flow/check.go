// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	log "github.com/sirupsen/logrus"

	"github.com/igmpd/igmpd-go/pkg/igmp"
)

// CheckHeader validates the shape of incoming IGMP messages: a known
// type byte and the minimum length for that type. Valid messages pass
// on output 0, the rest falls out on output 1.
type CheckHeader struct {
	Pass   Port
	Reject Port
}

func (ch *CheckHeader) Push(_ int, packet Packet) {
	ok := false
	switch {
	case igmp.IsMembershipQuery(packet.Payload):
		_, err := igmp.UnmarshalQuery(packet.Payload)
		ok = err == nil
	case igmp.IsMembershipReportV3(packet.Payload):
		_, err := igmp.UnmarshalReportV3(packet.Payload)
		ok = err == nil
	}

	if !ok {
		log.WithField("source", packet.Source).Debug("Dropping malformed IGMP message")
		push(ch.Reject, packet)
		return
	}

	push(ch.Pass, packet)
}

// CheckChecksum verifies the internet checksum of incoming IGMP
// messages. Intact messages pass on output 0, corrupted ones fall out
// on output 1 without touching any protocol state.
type CheckChecksum struct {
	Pass   Port
	Reject Port
}

func (cc *CheckChecksum) Push(_ int, packet Packet) {
	if !igmp.ValidChecksum(packet.Payload) {
		log.WithField("source", packet.Source).Debug("Dropping IGMP message with bad checksum")
		push(cc.Reject, packet)
		return
	}

	push(cc.Pass, packet)
}

// SetChecksum recomputes the checksum of outgoing IGMP messages in
// place before passing them on.
type SetChecksum struct {
	Out Port
}

func (sc *SetChecksum) Push(_ int, packet Packet) {
	if len(packet.Payload) >= 4 {
		igmp.UpdateChecksum(packet.Payload)
	}
	push(sc.Out, packet)
}
