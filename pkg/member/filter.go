// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package member

import (
	"github.com/igmpd/igmpd-go/pkg/igmp"
)

// FilterRecord is the reception state for one multicast group: a
// filter mode and a set of source addresses.
type FilterRecord struct {
	Mode            igmp.FilterMode
	SourceAddresses []igmp.Addr
}

// Filter maps multicast groups to their reception state, following
// the socket state rules of RFC 3376 section 3.1.
//
// A record of (Include, empty) is equivalent to no record at all and
// is never stored. The all-systems group is permanently listened to
// and never gets a record either.
type Filter struct {
	records map[igmp.Addr]FilterRecord
}

// NewFilter creates an empty Filter.
func NewFilter() *Filter {
	return &Filter{records: make(map[igmp.Addr]FilterRecord)}
}

// Listen updates the reception state for a group.
//
// Requesting Include with no sources deletes the group's record, if
// any. Every other request upserts the record with the given mode and
// source set. The result reports whether anything actually changed:
// a record appearing, disappearing, or changing mode or source set.
func (f *Filter) Listen(group igmp.Addr, mode igmp.FilterMode, sources []igmp.Addr) bool {
	if group == igmp.AllSystems {
		return false
	}

	if mode == igmp.Include && len(sources) == 0 {
		_, existed := f.records[group]
		delete(f.records, group)
		return existed
	}

	old, existed := f.records[group]
	changed := !existed || old.Mode != mode || !igmp.EqualAddrSets(old.SourceAddresses, sources)

	f.records[group] = FilterRecord{
		Mode:            mode,
		SourceAddresses: append([]igmp.Addr(nil), sources...),
	}

	return changed
}

// Join starts listening to all sources of a group, as
// Listen(group, Exclude, nil).
func (f *Filter) Join(group igmp.Addr) bool {
	return f.Listen(group, igmp.Exclude, nil)
}

// Leave stops listening to a group, as Listen(group, Include, nil).
func (f *Filter) Leave(group igmp.Addr) bool {
	return f.Listen(group, igmp.Include, nil)
}

// Record returns the record stored for a group.
func (f *Filter) Record(group igmp.Addr) (FilterRecord, bool) {
	record, ok := f.records[group]
	return record, ok
}

// Groups returns all groups with a record, ordered by address.
func (f *Filter) Groups() []igmp.Addr {
	groups := make([]igmp.Addr, 0, len(f.records))
	for group := range f.records {
		groups = append(groups, group)
	}
	igmp.SortAddrs(groups)
	return groups
}

// Len returns the number of stored records.
func (f *Filter) Len() int {
	return len(f.records)
}

// IsListeningTo decides whether a packet sent by source to group is
// to be delivered. The all-systems group is always listened to, from
// all sources.
func (f *Filter) IsListeningTo(group, source igmp.Addr) bool {
	if group == igmp.AllSystems {
		return true
	}

	record, ok := f.records[group]
	if !ok {
		return false
	}

	listed := igmp.ContainsAddr(record.SourceAddresses, source)
	if record.Mode == igmp.Exclude {
		return !listed
	}
	return listed
}
