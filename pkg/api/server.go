// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/igmpd/igmpd-go/pkg/igmp"
)

// Controller is the daemon surface the API drives. Implementations
// marshal the calls onto the protocol executor.
type Controller interface {
	// Join subscribes the group member to a multicast group.
	Join(group igmp.Addr) error

	// Leave unsubscribes the group member from a multicast group.
	Leave(group igmp.Addr) error

	// MemberGroups dumps the member filter.
	MemberGroups() []MemberGroup

	// RouterGroups dumps the router's membership table. It is empty
	// when no router endpoint is running.
	RouterGroups() []RouterGroup
}

// Server exposes a Controller over HTTP and streams protocol events
// over a WebSocket endpoint.
type Server struct {
	controller Controller
	router     *mux.Router
	events     *EventHub

	upgrader websocket.Upgrader
}

// NewServer creates a Server with its routes registered. The returned
// Server is an http.Handler to be bound to an HTTP endpoint.
func NewServer(controller Controller, events *EventHub) *Server {
	s := &Server{
		controller: controller,
		router:     mux.NewRouter(),
		events:     events,
	}

	s.router.HandleFunc("/join", s.handleJoin).Methods(http.MethodPost)
	s.router.HandleFunc("/leave", s.handleLeave).Methods(http.MethodPost)
	s.router.HandleFunc("/groups", s.handleGroups).Methods(http.MethodGet)
	s.router.HandleFunc("/router/groups", s.handleRouterGroups).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// parseGroupRequest reads a GroupRequest body and parses its group
// address, which must be a multicast address.
func parseGroupRequest(r *http.Request) (igmp.Addr, error) {
	var request GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return igmp.Unspecified, err
	}

	group, err := igmp.ParseAddr(request.Group)
	if err != nil {
		return igmp.Unspecified, err
	}
	if !group.IsMulticast() {
		return igmp.Unspecified, fmt.Errorf("%v is not a multicast address", group)
	}

	return group, nil
}

func (s *Server) handleGroupCommand(w http.ResponseWriter, r *http.Request, command func(igmp.Addr) error) {
	var response StatusResponse

	group, err := parseGroupRequest(r)
	if err == nil {
		err = command(group)
	}
	if err != nil {
		response.Error = err.Error()
		w.WriteHeader(http.StatusBadRequest)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Warn("Failed to write command response")
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	s.handleGroupCommand(w, r, s.controller.Join)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.handleGroupCommand(w, r, s.controller.Leave)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	response := MemberGroupsResponse{Groups: s.controller.MemberGroups()}
	if response.Groups == nil {
		response.Groups = []MemberGroup{}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Warn("Failed to write groups response")
	}
}

func (s *Server) handleRouterGroups(w http.ResponseWriter, r *http.Request) {
	response := RouterGroupsResponse{Groups: s.controller.RouterGroups()}
	if response.Groups == nil {
		response.Groups = []RouterGroup{}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Warn("Failed to write router groups response")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	log.WithField("client", conn.RemoteAddr()).Info("WebSocket event client connected")
	s.events.register(conn)
}
