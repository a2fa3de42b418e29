// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// igmp-tool drives a running igmpd through its REST API:
//
//	igmp-tool [-api URL] join 239.1.1.1
//	igmp-tool [-api URL] leave 239.1.1.1
//	igmp-tool [-api URL] groups
//	igmp-tool [-api URL] router
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/igmpd/igmpd-go/pkg/api"
)

var apiBase = flag.String("api", "http://localhost:8923", "base URL of the igmpd control API")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-api URL] join|leave|groups|router [group]\n", os.Args[0])
	os.Exit(1)
}

// command posts a GroupRequest and prints the outcome.
func command(path, group string) {
	body, err := json.Marshal(api.GroupRequest{Group: group})
	if err != nil {
		log.WithError(err).Fatal("Failed to encode request")
	}

	resp, err := http.Post(*apiBase+path, "application/json", bytes.NewReader(body))
	if err != nil {
		log.WithError(err).Fatal("Request failed")
	}
	defer resp.Body.Close()

	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		log.WithError(err).Fatal("Failed to decode response")
	}

	if status.Error != "" {
		log.WithField("error", status.Error).Fatal("Command rejected")
	}
	fmt.Println("ok")
}

// dump fetches a state endpoint and pretty-prints it.
func dump(path string) {
	resp, err := http.Get(*apiBase + path)
	if err != nil {
		log.WithError(err).Fatal("Request failed")
	}
	defer resp.Body.Close()

	var pretty bytes.Buffer
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		log.WithError(err).Fatal("Failed to decode response")
	}
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		log.WithError(err).Fatal("Failed to format response")
	}

	fmt.Println(pretty.String())
}

func main() {
	flag.Parse()

	switch args := flag.Args(); {
	case len(args) == 2 && args[0] == "join":
		command("/join", args[1])

	case len(args) == 2 && args[0] == "leave":
		command("/leave", args[1])

	case len(args) == 1 && args[0] == "groups":
		dump("/groups")

	case len(args) == 1 && args[0] == "router":
		dump("/router/groups")

	default:
		usage()
	}
}
