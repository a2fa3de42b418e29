// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/BurntSushi/toml"

	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/router"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Core    coreConf
	Logging logConf
	Member  memberConf
	Router  routerConf
	API     apiConf `toml:"api"`
	Store   storeConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	Interface string
	Profiling bool
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// memberConf describes the group-member endpoint block.
type memberConf struct {
	Enabled bool
}

// routerConf describes the router endpoint block.
type routerConf struct {
	Enabled bool
	Address string
	Tuning  tuningConf
}

// tuningConf holds the reloadable router variables, in seconds.
type tuningConf struct {
	Robustness              uint `toml:"robustness"`
	QueryInterval           uint `toml:"query-interval"`
	QueryResponseInterval   uint `toml:"query-response-interval"`
	LastMemberQueryInterval uint `toml:"last-member-query-interval"`
}

// apiConf describes the control API block.
type apiConf struct {
	Listen string
}

// storeConf describes the membership mirror block.
type storeConf struct {
	Path string
}

// loadConfig reads and sanity-checks the TOML configuration.
func loadConfig(filename string) (conf tomlConfig, err error) {
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	if !conf.Member.Enabled && !conf.Router.Enabled {
		err = fmt.Errorf("neither member nor router endpoint is enabled")
		return
	}
	if conf.Router.Enabled && conf.Router.Address == "" {
		err = fmt.Errorf("router.address is required for a router endpoint")
		return
	}

	return
}

// configureLogging applies the logging block.
func configureLogging(conf logConf) error {
	if conf.Level != "" {
		level, err := log.ParseLevel(conf.Level)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown logging format %q", conf.Format)
	}

	return nil
}

// applyTuning folds the configured tuning values, given in seconds,
// into the router's variables. Zero values keep the defaults. The
// derived counts stay as they were fixed at startup.
func applyTuning(vars *router.Variables, tuning tuningConf) {
	if tuning.Robustness != 0 {
		vars.RobustnessVariable = tuning.Robustness
	}
	if tuning.QueryInterval != 0 {
		vars.QueryInterval = tuning.QueryInterval * 10
	}
	if tuning.QueryResponseInterval != 0 {
		vars.QueryResponseInterval = tuning.QueryResponseInterval * 10
	}
	if tuning.LastMemberQueryInterval != 0 {
		vars.LastMemberQueryInterval = tuning.LastMemberQueryInterval * 10
	}
}

// parseRouterAddress parses the configured router address.
func parseRouterAddress(conf routerConf) (igmp.Addr, error) {
	address, err := igmp.ParseAddr(conf.Address)
	if err != nil {
		return igmp.Unspecified, fmt.Errorf("router.address: %w", err)
	}
	return address, nil
}
