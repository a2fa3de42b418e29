// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package igmp

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Addr is an IPv4 address, stored as its network byte order value.
// Comparing two Addrs with < therefore orders them the way RFC 3376
// section 6.6.2 compares querier addresses.
type Addr uint32

const (
	// Unspecified is the all-zero address. A membership query carrying
	// it as its group address is a General Query.
	Unspecified Addr = 0

	// AllSystems is 224.0.0.1, the all-systems multicast group. It is
	// permanently listened to and never reported on.
	AllSystems Addr = 0xe0000001

	// AllReporters is 224.0.0.22, the destination of all IGMPv3
	// membership reports.
	AllReporters Addr = 0xe0000016
)

// ParseAddr parses a dotted-quad IPv4 address literal.
func ParseAddr(s string) (Addr, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return Unspecified, fmt.Errorf("invalid IPv4 address %q", s)
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return Unspecified, fmt.Errorf("address %q is not an IPv4 address", s)
	}

	return AddrFromSlice(ip4), nil
}

// MustParseAddr parses a dotted-quad IPv4 address literal and panics
// on invalid input. It is intended for constants and tests.
func MustParseAddr(s string) Addr {
	addr, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddrFromSlice interprets the first four bytes of b as an IPv4
// address in network byte order.
func AddrFromSlice(b []byte) Addr {
	return Addr(binary.BigEndian.Uint32(b[:4]))
}

// IsUnspecified reports whether a is the all-zero address.
func (a Addr) IsUnspecified() bool {
	return a == Unspecified
}

// IsMulticast reports whether a lies in 224.0.0.0/4.
func (a Addr) IsMulticast() bool {
	return a&0xf0000000 == 0xe0000000
}

// IP returns a as a net.IP.
func (a Addr) IP() net.IP {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a))
	return net.IPv4(b[0], b[1], b[2], b[3])
}

// PutTo writes a in network byte order into the first four bytes of b.
func (a Addr) PutTo(b []byte) {
	binary.BigEndian.PutUint32(b[:4], uint32(a))
}

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}
