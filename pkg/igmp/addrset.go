// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package igmp

import "sort"

// The filter machinery manipulates small sets of source addresses,
// represented as slices without duplicates. Order is irrelevant for
// set semantics; SortAddrs exists for deterministic output.

// ContainsAddr reports whether addr is an element of set.
func ContainsAddr(set []Addr, addr Addr) bool {
	for _, a := range set {
		if a == addr {
			return true
		}
	}
	return false
}

// UnionAddrs returns the union of both sets.
func UnionAddrs(left, right []Addr) []Addr {
	result := append([]Addr(nil), left...)
	for _, a := range right {
		if !ContainsAddr(result, a) {
			result = append(result, a)
		}
	}
	return result
}

// IntersectAddrs returns the elements of left also present in right.
func IntersectAddrs(left, right []Addr) []Addr {
	var result []Addr
	for _, a := range left {
		if ContainsAddr(right, a) {
			result = append(result, a)
		}
	}
	return result
}

// DifferenceAddrs returns the elements of left not present in right.
func DifferenceAddrs(left, right []Addr) []Addr {
	var result []Addr
	for _, a := range left {
		if !ContainsAddr(right, a) {
			result = append(result, a)
		}
	}
	return result
}

// EqualAddrSets compares two sets regardless of element order.
func EqualAddrSets(left, right []Addr) bool {
	if len(left) != len(right) {
		return false
	}
	for _, a := range left {
		if !ContainsAddr(right, a) {
			return false
		}
	}
	return true
}

// SortAddrs orders a set by network byte order, in place.
func SortAddrs(set []Addr) {
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
}
