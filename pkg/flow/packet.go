// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/igmpd/igmpd-go/pkg/igmp"
)

// Packet is a datagram moving through the flow graph, annotated with
// the addresses of its IP header. For IP inputs the payload is the
// whole IP packet; for IGMP inputs it is the bare IGMP message.
type Packet struct {
	Source      igmp.Addr
	Destination igmp.Addr
	Payload     []byte
}

// Port consumes packets emitted by an upstream node. An unbound port
// drops.
type Port func(Packet)

// Node is a dataflow element with numbered input ports.
type Node interface {
	Push(port int, packet Packet)
}

// push forwards to a port, dropping when it is unbound.
func push(port Port, packet Packet) {
	if port != nil {
		port(packet)
	}
}

// Tee duplicates every pushed packet to several downstream nodes.
func Tee(nodes ...Node) Node {
	return tee(nodes)
}

type tee []Node

func (t tee) Push(port int, packet Packet) {
	for _, node := range t {
		node.Push(port, packet)
	}
}

// DecodeIPv4 annotates a raw IPv4 packet with its header addresses.
// The payload stays the full packet.
func DecodeIPv4(raw []byte) (Packet, bool) {
	var header layers.IPv4
	if err := header.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return Packet{}, false
	}

	return Packet{
		Source:      igmp.AddrFromSlice(header.SrcIP.To4()),
		Destination: igmp.AddrFromSlice(header.DstIP.To4()),
		Payload:     raw,
	}, true
}

// ExtractIGMP pulls the IGMP message out of a raw IPv4 packet. It
// fails on non-IGMP packets.
func ExtractIGMP(raw []byte) (Packet, bool) {
	var header layers.IPv4
	if err := header.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return Packet{}, false
	}
	if header.Protocol != layers.IPProtocolIGMP {
		return Packet{}, false
	}

	return Packet{
		Source:      igmp.AddrFromSlice(header.SrcIP.To4()),
		Destination: igmp.AddrFromSlice(header.DstIP.To4()),
		Payload:     header.Payload,
	}, true
}
