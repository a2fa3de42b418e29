// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"github.com/pkg/profile"
)

// errNoMember is returned for member commands when no group-member
// endpoint is running.
var errNoMember = errors.New("no group-member endpoint is running")

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	conf, err := loadConfig(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("Failed to parse config")
	}

	if err := configureLogging(conf.Logging); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	if conf.Core.Profiling {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	d, err := newDaemon(os.Args[1], conf)
	if err != nil {
		log.WithError(err).Fatal("Failed to start igmpd")
	}

	waitSigint()
	log.Info("Shutting down..")

	if err := d.Close(); err != nil {
		log.WithError(err).Warn("Shutdown finished with errors")
	}
}
