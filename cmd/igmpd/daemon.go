// SPDX-FileCopyrightText: 2026 The igmpd-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"

	"github.com/igmpd/igmpd-go/pkg/api"
	"github.com/igmpd/igmpd-go/pkg/flow"
	"github.com/igmpd/igmpd-go/pkg/igmp"
	"github.com/igmpd/igmpd-go/pkg/storage"
	"github.com/igmpd/igmpd-go/pkg/timer"
)

// daemon bundles the running components and implements the
// api.Controller by marshalling calls onto the executor.
type daemon struct {
	executor *timer.Executor

	memberNode *flow.MemberNode
	routerNode *flow.RouterNode

	conn       *flow.Conn
	store      *storage.Store
	events     *api.EventHub
	httpServer *http.Server
	watcher    *fsnotify.Watcher
}

// newDaemon assembles the daemon from a parsed configuration.
func newDaemon(configPath string, conf tomlConfig) (*daemon, error) {
	d := &daemon{
		executor: timer.NewExecutor(),
		events:   api.NewEventHub(),
	}
	sched := d.executor.Scheduler()

	if conf.Member.Enabled {
		d.memberNode = flow.NewMemberNode(sched, timer.NewSource(time.Now().UnixNano()))
	}

	if conf.Router.Enabled {
		d.routerNode = flow.NewRouterNode(sched)

		address, err := parseRouterAddress(conf.Router)
		if err != nil {
			return nil, err
		}

		applyTuning(d.routerNode.Router().Variables(), conf.Router.Tuning)
		d.executor.Submit(func() { d.routerNode.Router().Configure(address) })
	}

	if conf.Store.Path != "" && d.routerNode != nil {
		store, err := storage.NewStore(conf.Store.Path)
		if err != nil {
			return nil, err
		}
		d.store = store
	}

	if conf.Core.Interface != "" {
		node := d.primaryNode()
		conn, err := flow.Listen(conf.Core.Interface, d.executor, node)
		if err != nil {
			return nil, err
		}
		d.conn = conn
		d.bindOutputs(conn.Port())
	} else {
		log.Warn("No interface configured, running without packet I/O")
		d.bindOutputs(nil)
	}

	if conf.API.Listen != "" {
		d.httpServer = &http.Server{
			Addr:    conf.API.Listen,
			Handler: api.NewServer(d, d.events),
		}

		go func() {
			if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("HTTP server failed")
			}
		}()

		log.WithField("listen", conf.API.Listen).Info("Control API is up")
	}

	if err := d.watchConfig(configPath); err != nil {
		log.WithError(err).Warn("Configuration reload is unavailable")
	}

	d.startMirror()

	return d, nil
}

// primaryNode picks the node fed by the socket. With both endpoints
// enabled the received IGMP traffic goes to both.
func (d *daemon) primaryNode() flow.Node {
	if d.memberNode != nil && d.routerNode != nil {
		return flow.Tee(d.memberNode, d.routerNode)
	}
	if d.memberNode != nil {
		return d.memberNode
	}
	return d.routerNode
}

// bindOutputs connects the endpoint output ports. IGMP output goes to
// the socket; delivered and rejected IP packets are only logged here
// since the daemon does not forward data traffic itself.
func (d *daemon) bindOutputs(igmpOut flow.Port) {
	deliver := func(packet flow.Packet) {
		log.WithFields(log.Fields{
			"group":  packet.Destination,
			"source": packet.Source,
		}).Debug("Packet accepted for delivery")
	}
	reject := func(packet flow.Packet) {
		log.WithFields(log.Fields{
			"group":  packet.Destination,
			"source": packet.Source,
		}).Debug("Packet rejected")
	}

	wrap := func(kind string) flow.Port {
		return func(packet flow.Packet) {
			if igmpOut != nil {
				igmpOut(packet)
			}
			d.events.Publish(api.Event{Kind: kind, Group: packet.Destination})
		}
	}

	if d.memberNode != nil {
		d.memberNode.Bind(wrap("report-sent"), deliver, reject)
	}
	if d.routerNode != nil {
		d.routerNode.Bind(wrap("query-sent"), deliver, reject)
	}
}

// mirrorInterval is the cadence of the membership table mirror.
const mirrorInterval = 5 * time.Second

// startMirror periodically snapshots the router table into the
// store. The snapshot runs on the executor, the mirror itself is
// best-effort.
func (d *daemon) startMirror() {
	if d.store == nil || d.routerNode == nil {
		return
	}

	d.executor.Submit(func() {
		sched := d.executor.Scheduler()

		var tm *timer.Timer
		tm = sched.NewTimer(func() {
			d.store.Mirror(d.routerNode.Router().Snapshot())
			tm.ScheduleAfter(mirrorInterval)
		})
		tm.ScheduleAfter(mirrorInterval)
	})
}

// watchConfig reloads the tunable router variables when the
// configuration file changes.
func (d *daemon) watchConfig(configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(configPath); err != nil {
		_ = watcher.Close()
		return err
	}
	d.watcher = watcher

	go func() {
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			conf, err := loadConfig(configPath)
			if err != nil {
				log.WithError(err).Warn("Ignoring invalid configuration reload")
				continue
			}

			log.Info("Reloading router tuning from configuration")
			d.executor.Submit(func() {
				if d.routerNode != nil {
					applyTuning(d.routerNode.Router().Variables(), conf.Router.Tuning)
				}
			})
		}
	}()

	return nil
}

// run on the executor and wait for completion.
func (d *daemon) onExecutor(fn func()) {
	done := make(chan struct{})
	d.executor.Submit(func() {
		fn()
		close(done)
	})
	<-done
}

// Join implements api.Controller.
func (d *daemon) Join(group igmp.Addr) error {
	if d.memberNode == nil {
		return errNoMember
	}

	d.onExecutor(func() { d.memberNode.Member().Join(group) })
	d.events.Publish(api.Event{Kind: "join", Group: group})
	return nil
}

// Leave implements api.Controller.
func (d *daemon) Leave(group igmp.Addr) error {
	if d.memberNode == nil {
		return errNoMember
	}

	d.onExecutor(func() { d.memberNode.Member().Leave(group) })
	d.events.Publish(api.Event{Kind: "leave", Group: group})
	return nil
}

// MemberGroups implements api.Controller.
func (d *daemon) MemberGroups() []api.MemberGroup {
	if d.memberNode == nil {
		return nil
	}

	var groups []api.MemberGroup
	d.onExecutor(func() {
		filter := d.memberNode.Member().Filter()
		for _, group := range filter.Groups() {
			record, _ := filter.Record(group)

			mg := api.MemberGroup{Group: group.String(), Mode: record.Mode.String()}
			for _, src := range record.SourceAddresses {
				mg.Sources = append(mg.Sources, src.String())
			}
			groups = append(groups, mg)
		}
	})

	return groups
}

// RouterGroups implements api.Controller.
func (d *daemon) RouterGroups() []api.RouterGroup {
	if d.routerNode == nil {
		return nil
	}

	var groups []api.RouterGroup
	d.onExecutor(func() {
		for _, state := range d.routerNode.Router().Snapshot() {
			rg := api.RouterGroup{
				Group: state.Group.String(),
				Mode:  state.Mode.String(),
			}
			for _, src := range state.Sources {
				rg.Sources = append(rg.Sources, src.String())
			}
			for _, src := range state.Excluded {
				rg.Excluded = append(rg.Excluded, src.String())
			}
			if state.GroupTimerRemaining > 0 {
				rg.GroupTimerRemaining = state.GroupTimerRemaining.String()
			}
			groups = append(groups, rg)
		}
	})

	return groups
}

// Close shuts all components down.
func (d *daemon) Close() error {
	var result *multierror.Error

	if d.watcher != nil {
		result = multierror.Append(result, d.watcher.Close())
	}
	if d.httpServer != nil {
		result = multierror.Append(result, d.httpServer.Close())
	}
	d.events.Close()
	if d.conn != nil {
		result = multierror.Append(result, d.conn.Close())
	}
	d.executor.Close()
	if d.store != nil {
		result = multierror.Append(result, d.store.Close())
	}

	return result.ErrorOrNil()
}
