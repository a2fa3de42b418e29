// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

// ipv4Packet assembles a minimal IPv4 packet around a payload.
func ipv4Packet(src, dst igmp.Addr, protocol byte, payload []byte) []byte {
	packet := make([]byte, 20+len(payload))

	packet[0] = 0x45
	binary.BigEndian.PutUint16(packet[2:], uint16(len(packet)))
	packet[8] = 1
	packet[9] = protocol
	src.PutTo(packet[12:])
	dst.PutTo(packet[16:])
	copy(packet[20:], payload)

	return packet
}

func TestDecodeIPv4(t *testing.T) {
	src := igmp.MustParseAddr("10.0.0.1")
	dst := igmp.MustParseAddr("239.1.1.1")
	raw := ipv4Packet(src, dst, 17, []byte("payload"))

	packet, ok := DecodeIPv4(raw)
	if !ok {
		t.Fatalf("decoding a valid IPv4 packet failed")
	}
	if packet.Source != src || packet.Destination != dst {
		t.Fatalf("decoded addresses %v -> %v", packet.Source, packet.Destination)
	}
	if !bytes.Equal(packet.Payload, raw) {
		t.Fatalf("payload does not carry the whole packet")
	}

	if _, ok := DecodeIPv4([]byte{0x45, 0x00}); ok {
		t.Fatalf("truncated packet decoded")
	}
}

func TestExtractIGMP(t *testing.T) {
	src := igmp.MustParseAddr("10.0.0.1")
	message := (igmp.Query{MaxRespTime: 100}).Marshal()
	raw := ipv4Packet(src, igmp.AllSystems, 2, message)

	packet, ok := ExtractIGMP(raw)
	if !ok {
		t.Fatalf("extracting IGMP from an IGMP packet failed")
	}
	if !bytes.Equal(packet.Payload, message) {
		t.Fatalf("extracted payload differs from the IGMP message")
	}

	// A UDP packet is not an IGMP message.
	if _, ok := ExtractIGMP(ipv4Packet(src, igmp.AllSystems, 17, message)); ok {
		t.Fatalf("IGMP extracted from a UDP packet")
	}
}

func TestCheckChecksum(t *testing.T) {
	var passed, rejected []Packet
	check := &CheckChecksum{
		Pass:   func(p Packet) { passed = append(passed, p) },
		Reject: func(p Packet) { rejected = append(rejected, p) },
	}

	good := (igmp.Query{MaxRespTime: 100}).Marshal()
	check.Push(0, Packet{Payload: good})

	bad := append([]byte(nil), good...)
	bad[5] ^= 0x01
	check.Push(0, Packet{Payload: bad})

	if len(passed) != 1 || len(rejected) != 1 {
		t.Fatalf("checksum checker passed %d and rejected %d packets", len(passed), len(rejected))
	}
}

func TestCheckHeader(t *testing.T) {
	var passed, rejected []Packet
	check := &CheckHeader{
		Pass:   func(p Packet) { passed = append(passed, p) },
		Reject: func(p Packet) { rejected = append(rejected, p) },
	}

	check.Push(0, Packet{Payload: (igmp.Query{MaxRespTime: 100}).Marshal()})
	check.Push(0, Packet{Payload: igmp.ReportV3{}.Marshal()})
	check.Push(0, Packet{Payload: []byte{0x11, 0x00}})
	check.Push(0, Packet{Payload: []byte{0x42, 0x00, 0x00, 0x00}})

	if len(passed) != 2 || len(rejected) != 2 {
		t.Fatalf("header checker passed %d and rejected %d packets", len(passed), len(rejected))
	}
}

func TestSetChecksum(t *testing.T) {
	var out []Packet
	set := &SetChecksum{Out: func(p Packet) { out = append(out, p) }}

	message := (igmp.Query{MaxRespTime: 100}).Marshal()
	message[2], message[3] = 0, 0
	set.Push(0, Packet{Payload: message})

	if len(out) != 1 || !igmp.ValidChecksum(out[0].Payload) {
		t.Fatalf("checksum setter did not restore the checksum")
	}
}

func TestMemberNodePorts(t *testing.T) {
	sched := timer.NewScheduler()
	node := NewMemberNode(sched, timer.NewSource(23))

	var emitted, delivered, rejected []Packet
	node.Bind(
		func(p Packet) { emitted = append(emitted, p) },
		func(p Packet) { delivered = append(delivered, p) },
		func(p Packet) { rejected = append(rejected, p) },
	)

	group := igmp.MustParseAddr("239.1.1.1")
	src := igmp.MustParseAddr("10.0.0.1")

	// Without membership the IP packet falls out on the reject port.
	node.Push(InputIP, Packet{Source: src, Destination: group})
	if len(rejected) != 1 || len(delivered) != 0 {
		t.Fatalf("unjoined group delivered")
	}

	// Join emits a state-change report on the IGMP output.
	node.Member().Join(group)
	if len(emitted) != 1 {
		t.Fatalf("%d IGMP messages emitted on join, expected 1", len(emitted))
	}
	if emitted[0].Destination != igmp.AllReporters {
		t.Fatalf("report destination %v", emitted[0].Destination)
	}

	node.Push(InputIP, Packet{Source: src, Destination: group})
	if len(delivered) != 1 {
		t.Fatalf("joined group not delivered")
	}

	// A general query makes the member answer within max resp time.
	query := igmp.Query{MaxRespTime: 10}
	node.Push(InputIGMP, Packet{Source: src, Payload: query.Marshal()})
	sched.Advance(igmp.Duration(query.MaxRespTime))

	if len(emitted) < 2 {
		t.Fatalf("no response to the general query")
	}
}

func TestRouterNodePorts(t *testing.T) {
	sched := timer.NewScheduler()
	node := NewRouterNode(sched)

	var emitted, delivered, rejected []Packet
	node.Bind(
		func(p Packet) { emitted = append(emitted, p) },
		func(p Packet) { delivered = append(delivered, p) },
		func(p Packet) { rejected = append(rejected, p) },
	)

	group := igmp.MustParseAddr("239.1.1.1")
	src := igmp.MustParseAddr("10.0.0.1")

	node.Push(InputIP, Packet{Source: src, Destination: group})
	if len(rejected) != 1 {
		t.Fatalf("unknown group not rejected")
	}

	// A membership report populates the filter.
	report := igmp.ReportV3{GroupRecords: []igmp.GroupRecord{{
		Type:             igmp.ModeIsExclude,
		MulticastAddress: group,
	}}}
	node.Push(InputIGMP, Packet{Source: src, Payload: report.Marshal()})

	node.Push(InputIP, Packet{Source: src, Destination: group})
	if len(delivered) != 1 {
		t.Fatalf("reported group not delivered")
	}

	// Startup queries come out of the IGMP output port.
	node.Router().Configure(igmp.MustParseAddr("10.0.0.5"))
	sched.Advance(igmp.Duration(node.Router().Variables().StartupQueryInterval))

	if len(emitted) != 1 || emitted[0].Destination != igmp.AllSystems {
		t.Fatalf("startup query not emitted to the all-systems group")
	}

	// Malformed IGMP input is dropped silently.
	node.Push(InputIGMP, Packet{Source: src, Payload: []byte{0x22}})
}
