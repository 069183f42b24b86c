/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/carverauto/piponger/pkg/alerts"
	"github.com/carverauto/piponger/pkg/api"
	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/coordinator"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/heartbeat"
	"github.com/carverauto/piponger/pkg/lifecycle"
	"github.com/carverauto/piponger/pkg/pinger"
	"github.com/carverauto/piponger/pkg/ponger"
	"github.com/carverauto/piponger/pkg/probe"
	"github.com/carverauto/piponger/pkg/registry"
)

const cleanInterval = time.Hour

var (
	configFile = flag.String("config", "/etc/piponger/piponger.json", "Path to config file (.json or .yaml)")
	probeOnly  = flag.Bool("probe", false, "Measure the configured probe targets once, print the results and exit")
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to get args from environment")

	var cfg config.Config
	rtx.Must(config.LoadAndValidate(*configFile, &cfg), "failed to load config")

	level := logLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetReportTimestamp(true)
	log.SetReportCaller(level == log.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.New(cfg.DBPath)
	rtx.Must(err, "failed to open database %s", cfg.DBPath)

	defer func() {
		if err := store.Close(); err != nil {
			log.Error("closing database failed", "error", err)
		}
	}()

	n := newNode(&cfg, store)

	if *probeOnly {
		results, err := n.pinger.ProbeTargets(ctx)
		rtx.Must(err, "probe failed")
		rtx.Must(json.NewEncoder(os.Stdout).Encode(results), "failed to write results")

		return
	}

	promSrv := prometheusx.MustServeMetrics()
	defer func() {
		if err := promSrv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("failed to shut down Prometheus server", "error", err)
		}
	}()

	opts := &lifecycle.ServerOptions{
		ListenAddr:     cfg.ListenAddr,
		ServiceName:    "piponger",
		Service:        n,
		Handler:        n.api.Handler(),
		MaxConnections: cfg.MaxConnections,
	}

	log.Info("node starting", "roles", cfg.NodeRoles().String(), "listen", cfg.ListenAddr)

	if err := lifecycle.RunServer(ctx, opts); err != nil {
		log.Fatal("server stopped with error", "error", err)
	}
}

// node wires the services for the configured roles and runs their
// background loops.
type node struct {
	cfg         *config.Config
	store       db.Cleaner
	clock       clock.Clock
	registry    *registry.Registry
	coordinator *coordinator.Coordinator
	pinger      *pinger.Service
	heartbeat   *heartbeat.Heartbeat
	api         *api.Server

	done chan struct{}
}

func newNode(cfg *config.Config, store db.Service) *node {
	roles := cfg.NodeRoles()
	clk := clock.New()
	httpClient := client.New(cfg.Auth)
	master := client.NewMaster(cfg.MasterEndpoint, cfg.Auth)

	n := &node{cfg: cfg, store: store, clock: clk, done: make(chan struct{})}

	var apiOpts []api.Option

	if roles.Master {
		n.registry = registry.New(store, clk,
			time.Duration(cfg.Master.StaleNodeAge), time.Duration(cfg.Master.SweepInterval))

		services := make([]alerts.AlertService, 0, len(cfg.Master.Webhooks))
		for _, wh := range cfg.Master.Webhooks {
			services = append(services, alerts.NewWebhookAlerter(wh, clk))
		}

		n.coordinator = coordinator.New(store, n.registry, httpClient, cfg.Master, hostname(),
			coordinator.WithClock(clk),
			coordinator.WithNotifier(alerts.NewNotifier(services...)))

		apiOpts = append(apiOpts,
			api.WithMaster(n.coordinator, n.registry, time.Duration(cfg.Master.GraphCacheTTL)))
	}

	// The pinger is always built so -probe works on any node.
	n.pinger = pinger.NewService(store,
		probe.NewDublinTracer(cfg.Pinger.TracerouteBinary),
		probe.NewIperfClient(cfg.Pinger.IperfClientScript),
		httpClient, master, cfg.Pinger, cfg.APIPort,
		pinger.WithClock(clk))

	if roles.Pinger {
		apiOpts = append(apiOpts, api.WithPinger(n.pinger))
	}

	if roles.Ponger {
		launcher := probe.NewIperfServerLauncher(cfg.Ponger.ServerScript,
			time.Duration(cfg.Ponger.ServerLifetime), time.Duration(cfg.Ponger.ServerGrace))
		apiOpts = append(apiOpts, api.WithPonger(ponger.NewService(store, launcher, cfg.Ponger)))
	}

	n.heartbeat = heartbeat.New(master, roles, cfg.APIPort, cfg.APIProtocol,
		time.Duration(cfg.HeartbeatInterval), clk)
	n.api = api.NewServer(roles, cfg.Auth, apiOpts...)

	return n
}

// Start runs the background loops of every enabled role until ctx is done.
func (n *node) Start(ctx context.Context) error {
	defer close(n.done)

	loops := []func(context.Context){n.clean}

	if n.registry != nil {
		loops = append(loops, n.registry.Run, n.coordinator.Run)
	}

	if n.heartbeat.Enabled() {
		loops = append(loops, n.heartbeat.Run)
	}

	finished := make(chan struct{}, len(loops))

	for _, loop := range loops {
		go func() {
			loop(ctx)
			finished <- struct{}{}
		}()
	}

	for range loops {
		<-finished
	}

	return nil
}

// clean drops iterations older than the retention period every hour.
func (n *node) clean(ctx context.Context) {
	ticker := n.clock.Ticker(cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := n.clock.Now().Add(-time.Duration(n.cfg.Retention))
			if _, err := n.store.CleanOldData(ctx, cutoff); err != nil {
				log.Error("cleaning old data failed", "error", err)
			}
		}
	}
}

// Stop waits for the background loops and in-flight sessions to return.
func (n *node) Stop(ctx context.Context) error {
	defer n.api.Close()

	select {
	case <-n.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	waited := make(chan struct{})

	go func() {
		n.pinger.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		log.Warn("shutting down with sessions still running")

		return nil
	}
}

func logLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "piponger"
	}

	return h
}
