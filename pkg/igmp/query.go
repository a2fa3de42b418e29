// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package igmp

import (
	"encoding/binary"
	"fmt"
)

// Query is a parsed IGMP membership query.
//
// The wire layout is twelve bytes of header followed by the source
// addresses:
//
//	type (0x11), max resp code, checksum,
//	group address,
//	resv:4 | S:1 | QRV:3, QQIC, number of sources,
//	source addresses ...
type Query struct {
	// MaxRespTime is the maximum response time in tenths of a second,
	// decoded from the Max Resp Code.
	MaxRespTime uint

	// GroupAddress is zero for a General Query and the queried group
	// for a Group-Specific Query.
	GroupAddress Addr

	// SuppressRouterSideProcessing is the S flag. It tells receiving
	// routers to skip the timer updates normally performed on hearing
	// a query.
	SuppressRouterSideProcessing bool

	// RobustnessVariable is the querier's robustness variable, QRV.
	// Zero means "not advertised".
	RobustnessVariable uint8

	// QueryInterval is the querier's query interval in tenths of a
	// second, decoded from the QQIC.
	QueryInterval uint

	// SourceAddresses are the queried sources. Empty for general and
	// group-specific queries.
	SourceAddresses []Addr
}

// IsGeneral reports whether q is a General Query, that is, whether
// its group address is unspecified.
func (q Query) IsGeneral() bool {
	return q.GroupAddress.IsUnspecified()
}

// Len returns the size of the serialized query in bytes.
func (q Query) Len() int {
	return queryHeaderLen + addrLen*len(q.SourceAddresses)
}

// Marshal serializes the query, including a freshly computed
// checksum.
func (q Query) Marshal() []byte {
	buf := make([]byte, q.Len())

	buf[0] = TypeMembershipQuery
	buf[1] = ValueToCode(q.MaxRespTime)
	q.GroupAddress.PutTo(buf[4:])

	flags := q.RobustnessVariable & 0x07
	if q.SuppressRouterSideProcessing {
		flags |= 0x08
	}
	buf[8] = flags
	buf[9] = ValueToCode(q.QueryInterval)
	binary.BigEndian.PutUint16(buf[10:], uint16(len(q.SourceAddresses)))

	for i, src := range q.SourceAddresses {
		src.PutTo(buf[queryHeaderLen+addrLen*i:])
	}

	UpdateChecksum(buf)
	return buf
}

// UnmarshalQuery parses a membership query. The checksum is not
// inspected here; packets with a bad checksum are expected to be
// rejected before parsing.
func UnmarshalQuery(buf []byte) (Query, error) {
	if len(buf) < queryHeaderLen {
		return Query{}, ErrTruncated
	}
	if buf[0] != TypeMembershipQuery {
		return Query{}, fmt.Errorf("%w: 0x%02x is not a membership query", ErrWrongType, buf[0])
	}

	query := Query{
		MaxRespTime:                  CodeToValue(buf[1]),
		GroupAddress:                 AddrFromSlice(buf[4:]),
		SuppressRouterSideProcessing: buf[8]&0x08 != 0,
		RobustnessVariable:           buf[8] & 0x07,
		QueryInterval:                CodeToValue(buf[9]),
	}

	numberOfSources := int(binary.BigEndian.Uint16(buf[10:]))
	if len(buf) < queryHeaderLen+addrLen*numberOfSources {
		return Query{}, ErrTruncated
	}

	for i := 0; i < numberOfSources; i++ {
		query.SourceAddresses = append(query.SourceAddresses,
			AddrFromSlice(buf[queryHeaderLen+addrLen*i:]))
	}

	return query, nil
}

func (q Query) String() string {
	if q.IsGeneral() {
		return fmt.Sprintf("general query, max resp time %d", q.MaxRespTime)
	}
	return fmt.Sprintf("query for %v, max resp time %d, %d sources",
		q.GroupAddress, q.MaxRespTime, len(q.SourceAddresses))
}
