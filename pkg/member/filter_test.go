// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package member

import (
	"testing"

	"github.com/igmpd/igmpd-go/pkg/igmp"
)

func TestFilterListenDeletesEmptyInclude(t *testing.T) {
	filter := NewFilter()
	group := igmp.MustParseAddr("239.1.1.1")

	// Deleting an absent record changes nothing.
	if filter.Listen(group, igmp.Include, nil) {
		t.Fatalf("deleting an absent record reported a change")
	}

	if !filter.Join(group) {
		t.Fatalf("join of a new group reported no change")
	}
	if _, ok := filter.Record(group); !ok {
		t.Fatalf("no record after join")
	}

	if !filter.Listen(group, igmp.Include, nil) {
		t.Fatalf("deleting an existing record reported no change")
	}
	if _, ok := filter.Record(group); ok {
		t.Fatalf("record present after listen(include, empty)")
	}
	if filter.Len() != 0 {
		t.Fatalf("filter not empty after delete")
	}
}

func TestFilterListenChangeDetection(t *testing.T) {
	filter := NewFilter()
	group := igmp.MustParseAddr("239.1.1.1")
	s1 := igmp.MustParseAddr("10.0.0.1")
	s2 := igmp.MustParseAddr("10.0.0.2")

	if !filter.Listen(group, igmp.Include, []igmp.Addr{s1, s2}) {
		t.Fatalf("creating a record reported no change")
	}

	// Same mode, same set in different order: no change.
	if filter.Listen(group, igmp.Include, []igmp.Addr{s2, s1}) {
		t.Fatalf("reordered source set reported a change")
	}

	if !filter.Listen(group, igmp.Exclude, []igmp.Addr{s2, s1}) {
		t.Fatalf("mode change reported no change")
	}

	if !filter.Listen(group, igmp.Exclude, []igmp.Addr{s1}) {
		t.Fatalf("source set change reported no change")
	}
}

func TestFilterIsListeningTo(t *testing.T) {
	filter := NewFilter()
	group := igmp.MustParseAddr("239.1.1.1")
	s1 := igmp.MustParseAddr("10.0.0.1")
	s2 := igmp.MustParseAddr("10.0.0.2")

	// The all-systems group is always listened to.
	if !filter.IsListeningTo(igmp.AllSystems, s1) {
		t.Fatalf("not listening to the all-systems group")
	}

	if filter.IsListeningTo(group, s1) {
		t.Fatalf("listening to a group without a record")
	}

	filter.Listen(group, igmp.Include, []igmp.Addr{s1})
	if !filter.IsListeningTo(group, s1) || filter.IsListeningTo(group, s2) {
		t.Fatalf("include record filters the wrong sources")
	}

	filter.Listen(group, igmp.Exclude, []igmp.Addr{s1})
	if filter.IsListeningTo(group, s1) || !filter.IsListeningTo(group, s2) {
		t.Fatalf("exclude record filters the wrong sources")
	}
}

// TestFilterAllSystemsNeverStored checks that no sequence of listen
// calls creates a record for the all-systems group.
func TestFilterAllSystemsNeverStored(t *testing.T) {
	filter := NewFilter()

	if filter.Join(igmp.AllSystems) {
		t.Fatalf("join of the all-systems group reported a change")
	}
	filter.Listen(igmp.AllSystems, igmp.Exclude, []igmp.Addr{igmp.MustParseAddr("10.0.0.1")})

	if filter.Len() != 0 {
		t.Fatalf("a record was stored for the all-systems group")
	}
}
