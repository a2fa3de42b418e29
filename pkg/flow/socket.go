// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package flow

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"golang.org/x/net/ipv4"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

// igmpProtocolNumber is the IP protocol number of IGMP.
const igmpProtocolNumber = 2

// Conn bridges an endpoint node to a raw IGMP socket on one
// interface. Received IGMP messages are submitted to the executor and
// pushed into the node's IGMP input port; Transmit sends serialized
// messages to their IP destination with a TTL of one.
type Conn struct {
	pconn *ipv4.PacketConn
	iface *net.Interface
	node  Node

	executor *timer.Executor

	stopAck chan struct{}
}

// Listen opens the IGMP socket on the named interface, joins the
// all-systems and reports groups and starts the receive loop feeding
// node.
func Listen(ifaceName string, executor *timer.Executor, node Node) (*Conn, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", ifaceName, err)
	}

	raw, err := net.ListenPacket(fmt.Sprintf("ip4:%d", igmpProtocolNumber), "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("opening IGMP socket: %w", err)
	}

	conn := &Conn{
		pconn: ipv4.NewPacketConn(raw),
		iface: iface,
		node:  node,

		executor: executor,

		stopAck: make(chan struct{}),
	}

	for _, group := range []igmp.Addr{igmp.AllSystems, igmp.AllReporters} {
		if err := conn.pconn.JoinGroup(iface, &net.IPAddr{IP: group.IP()}); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("joining %v: %w", group, err)
		}
	}

	if err := conn.pconn.SetMulticastTTL(1); err != nil {
		log.WithError(err).Warn("Failed to set multicast TTL")
	}
	if err := conn.pconn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		log.WithError(err).Warn("Failed to enable destination control messages")
	}

	go conn.receiveLoop()

	log.WithField("interface", ifaceName).Info("Listening for IGMP messages")
	return conn, nil
}

// receiveLoop reads IGMP messages and hands them to the executor.
func (conn *Conn) receiveLoop() {
	defer close(conn.stopAck)

	buf := make([]byte, 1<<16)
	for {
		n, cm, src, err := conn.pconn.ReadFrom(buf)
		if err != nil {
			log.WithError(err).Debug("IGMP socket read ended")
			return
		}

		packet := Packet{Payload: append([]byte(nil), buf[:n]...)}
		if ipAddr, ok := src.(*net.IPAddr); ok {
			if ip4 := ipAddr.IP.To4(); ip4 != nil {
				packet.Source = igmp.AddrFromSlice(ip4)
			}
		}
		if cm != nil {
			if dst4 := cm.Dst.To4(); dst4 != nil {
				packet.Destination = igmp.AddrFromSlice(dst4)
			}
		}

		conn.executor.Submit(func() {
			conn.node.Push(InputIGMP, packet)
		})
	}
}

// Transmit sends a serialized IGMP message to destination. It is safe
// to call from executor callbacks.
func (conn *Conn) Transmit(destination igmp.Addr, message []byte) {
	cm := &ipv4.ControlMessage{IfIndex: conn.iface.Index}

	if _, err := conn.pconn.WriteTo(message, cm, &net.IPAddr{IP: destination.IP()}); err != nil {
		log.WithFields(log.Fields{
			"destination": destination,
			"error":       err,
		}).Warn("Failed to transmit IGMP message")
	}
}

// Port returns a flow Port transmitting each packet to its
// destination address.
func (conn *Conn) Port() Port {
	return func(packet Packet) {
		conn.Transmit(packet.Destination, packet.Payload)
	}
}

// Close shuts the socket down and waits for the receive loop to end.
func (conn *Conn) Close() error {
	err := conn.pconn.Close()
	<-conn.stopAck
	return err
}
