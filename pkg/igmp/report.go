// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package igmp

import (
	"encoding/binary"
	"fmt"
)

// GroupRecordType is the type field of a version 3 group record.
type GroupRecordType uint8

const (
	// ModeIsInclude is the current-state record type for a filter in
	// include mode.
	ModeIsInclude GroupRecordType = 1

	// ModeIsExclude is the current-state record type for a filter in
	// exclude mode.
	ModeIsExclude GroupRecordType = 2

	// ChangeToInclude is the state-change record type announcing a
	// switch to include mode.
	ChangeToInclude GroupRecordType = 3

	// ChangeToExclude is the state-change record type announcing a
	// switch to exclude mode.
	ChangeToExclude GroupRecordType = 4
)

func (grt GroupRecordType) String() string {
	switch grt {
	case ModeIsInclude:
		return "MODE_IS_INCLUDE"
	case ModeIsExclude:
		return "MODE_IS_EXCLUDE"
	case ChangeToInclude:
		return "CHANGE_TO_INCLUDE"
	case ChangeToExclude:
		return "CHANGE_TO_EXCLUDE"
	default:
		return fmt.Sprintf("unknown (0x%02x)", uint8(grt))
	}
}

// IsChange reports whether grt is a state-change record type.
func (grt GroupRecordType) IsChange() bool {
	return grt == ChangeToInclude || grt == ChangeToExclude
}

// FilterMode maps the record type onto a filter mode. The second
// return value is false for record types outside this
// implementation's scope, such as ALLOW_NEW_SOURCES.
func (grt GroupRecordType) FilterMode() (FilterMode, bool) {
	switch grt {
	case ModeIsInclude, ChangeToInclude:
		return Include, true
	case ModeIsExclude, ChangeToExclude:
		return Exclude, true
	default:
		return Include, false
	}
}

// RecordType selects the group record type expressing the given
// filter mode, either as a current-state or as a state-change record.
func RecordType(mode FilterMode, isChange bool) GroupRecordType {
	switch {
	case isChange && mode == Include:
		return ChangeToInclude
	case isChange && mode == Exclude:
		return ChangeToExclude
	case mode == Include:
		return ModeIsInclude
	default:
		return ModeIsExclude
	}
}

// GroupRecord is a parsed version 3 group record. Auxiliary data is
// skipped on parsing and never written.
type GroupRecord struct {
	Type             GroupRecordType
	MulticastAddress Addr
	SourceAddresses  []Addr
}

// Len returns the size of the serialized group record in bytes.
func (gr GroupRecord) Len() int {
	return groupRecordHeaderLen + addrLen*len(gr.SourceAddresses)
}

// marshalTo writes the record at the start of buf and returns the
// remaining buffer.
func (gr GroupRecord) marshalTo(buf []byte) []byte {
	buf[0] = uint8(gr.Type)
	buf[1] = 0
	binary.BigEndian.PutUint16(buf[2:], uint16(len(gr.SourceAddresses)))
	gr.MulticastAddress.PutTo(buf[4:])

	for i, src := range gr.SourceAddresses {
		src.PutTo(buf[groupRecordHeaderLen+addrLen*i:])
	}

	return buf[gr.Len():]
}

// unmarshalGroupRecord parses one group record from the start of buf
// and returns the remaining buffer.
func unmarshalGroupRecord(buf []byte) (GroupRecord, []byte, error) {
	if len(buf) < groupRecordHeaderLen {
		return GroupRecord{}, nil, ErrTruncated
	}

	record := GroupRecord{
		Type:             GroupRecordType(buf[0]),
		MulticastAddress: AddrFromSlice(buf[4:]),
	}

	auxDataLen := int(buf[1])
	numberOfSources := int(binary.BigEndian.Uint16(buf[2:]))

	end := groupRecordHeaderLen + addrLen*numberOfSources + addrLen*auxDataLen
	if len(buf) < end {
		return GroupRecord{}, nil, ErrTruncated
	}

	for i := 0; i < numberOfSources; i++ {
		record.SourceAddresses = append(record.SourceAddresses,
			AddrFromSlice(buf[groupRecordHeaderLen+addrLen*i:]))
	}

	return record, buf[end:], nil
}

func (gr GroupRecord) String() string {
	return fmt.Sprintf("group record %v for %v, %d sources",
		gr.Type, gr.MulticastAddress, len(gr.SourceAddresses))
}

// ReportV3 is a parsed IGMP version 3 membership report: eight bytes
// of header followed by the group records.
type ReportV3 struct {
	GroupRecords []GroupRecord
}

// Len returns the size of the serialized report in bytes.
func (r ReportV3) Len() int {
	size := reportHeaderLen
	for _, record := range r.GroupRecords {
		size += record.Len()
	}
	return size
}

// Marshal serializes the report, including a freshly computed
// checksum.
func (r ReportV3) Marshal() []byte {
	buf := make([]byte, r.Len())

	buf[0] = TypeMembershipReportV3
	binary.BigEndian.PutUint16(buf[6:], uint16(len(r.GroupRecords)))

	rest := buf[reportHeaderLen:]
	for _, record := range r.GroupRecords {
		rest = record.marshalTo(rest)
	}

	UpdateChecksum(buf)
	return buf
}

// UnmarshalReportV3 parses a version 3 membership report. As with
// UnmarshalQuery, the checksum is checked elsewhere.
func UnmarshalReportV3(buf []byte) (ReportV3, error) {
	if len(buf) < reportHeaderLen {
		return ReportV3{}, ErrTruncated
	}
	if buf[0] != TypeMembershipReportV3 {
		return ReportV3{}, fmt.Errorf("%w: 0x%02x is not a v3 membership report", ErrWrongType, buf[0])
	}

	numberOfGroupRecords := int(binary.BigEndian.Uint16(buf[6:]))

	var report ReportV3
	rest := buf[reportHeaderLen:]
	for i := 0; i < numberOfGroupRecords; i++ {
		record, remaining, err := unmarshalGroupRecord(rest)
		if err != nil {
			return ReportV3{}, err
		}

		report.GroupRecords = append(report.GroupRecords, record)
		rest = remaining
	}

	return report, nil
}
