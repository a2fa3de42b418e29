// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/dtn7/cboring"
	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"

	"github.com/igmpd/igmpd-go/pkg/igmp"
)

// Event is one protocol event on the WebSocket feed.
type Event struct {
	// Kind names the event. The daemon publishes "join", "leave",
	// "report-sent" and "query-sent".
	Kind string

	// Group is the multicast group the event concerns, or the
	// unspecified address.
	Group igmp.Addr

	// Source is the peer address involved, or the unspecified
	// address.
	Source igmp.Addr
}

// MarshalCbor writes the CBOR representation of an Event: an array of
// the kind and both addresses.
func (ev *Event) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}
	if err := cboring.WriteByteString([]byte(ev.Kind), w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(ev.Group), w); err != nil {
		return err
	}
	return cboring.WriteUInt(uint64(ev.Source), w)
}

// UnmarshalCbor reads the CBOR representation of an Event.
func (ev *Event) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 3 {
		return fmt.Errorf("event: expected array of length 3, not %d", n)
	}

	kind, err := cboring.ReadByteString(r)
	if err != nil {
		return err
	}
	ev.Kind = string(kind)

	group, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	ev.Group = igmp.Addr(group)

	source, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	ev.Source = igmp.Addr(source)

	return nil
}

// EventHub fans protocol events out to connected WebSocket clients.
// A client whose write fails is dropped.
type EventHub struct {
	sync.Mutex

	clients map[*websocket.Conn]struct{}
}

// NewEventHub creates an EventHub without clients.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]struct{})}
}

func (hub *EventHub) register(conn *websocket.Conn) {
	hub.Lock()
	defer hub.Unlock()

	hub.clients[conn] = struct{}{}
}

// Publish sends an event to every connected client.
func (hub *EventHub) Publish(event Event) {
	var buf bytes.Buffer
	if err := cboring.Marshal(&event, &buf); err != nil {
		log.WithError(err).Warn("Failed to encode event")
		return
	}

	hub.Lock()
	defer hub.Unlock()

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
			log.WithError(err).Debug("Dropping WebSocket event client")

			_ = conn.Close()
			delete(hub.clients, conn)
		}
	}
}

// Close disconnects all clients.
func (hub *EventHub) Close() {
	hub.Lock()
	defer hub.Unlock()

	for conn := range hub.clients {
		_ = conn.Close()
		delete(hub.clients, conn)
	}
}
