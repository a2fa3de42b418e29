// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage mirrors the router's observed membership table into
// a badgerhold store. The mirror is soft state for offline inspection
// and last-known-state reporting; protocol state is always re-learned
// from the network.
package storage

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"

	"github.com/igmpd/igmpd-go/pkg/router"
)

// GroupItem is the stored form of one membership table entry.
type GroupItem struct {
	Group    string
	Mode     string
	Sources  []string
	Excluded []string
	Updated  time.Time
}

// newGroupItem converts a router snapshot entry.
func newGroupItem(state router.GroupState) GroupItem {
	item := GroupItem{
		Group:   state.Group.String(),
		Mode:    state.Mode.String(),
		Updated: time.Now(),
	}
	for _, src := range state.Sources {
		item.Sources = append(item.Sources, src.String())
	}
	for _, src := range state.Excluded {
		item.Excluded = append(item.Excluded, src.String())
	}
	return item
}

// Store persists GroupItems.
type Store struct {
	bh *badgerhold.Store
}

// NewStore creates a new Store or opens an existing one at the given
// directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = log.StandardLogger()

	bh, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{bh: bh}, nil
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Mirror replaces the stored table with the given snapshot: entries
// are upserted and stored groups absent from the snapshot are
// removed. Failures are logged; the protocol never depends on the
// mirror.
func (s *Store) Mirror(states []router.GroupState) {
	current := make(map[string]struct{})

	for _, state := range states {
		item := newGroupItem(state)
		current[item.Group] = struct{}{}

		if err := s.bh.Upsert(item.Group, item); err != nil {
			log.WithFields(log.Fields{
				"group": item.Group,
				"error": err,
			}).Warn("Failed to mirror group state")
		}
	}

	stored, err := s.Groups()
	if err != nil {
		log.WithError(err).Warn("Failed to enumerate mirrored groups")
		return
	}

	for _, item := range stored {
		if _, ok := current[item.Group]; ok {
			continue
		}

		if err := s.bh.Delete(item.Group, GroupItem{}); err != nil {
			log.WithFields(log.Fields{
				"group": item.Group,
				"error": err,
			}).Warn("Failed to remove mirrored group state")
		}
	}
}

// Groups returns all stored membership entries.
func (s *Store) Groups() ([]GroupItem, error) {
	var items []GroupItem
	if err := s.bh.Find(&items, nil); err != nil {
		return nil, err
	}
	return items, nil
}
