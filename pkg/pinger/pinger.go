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

// Package pinger runs the measurement pipeline for sessions started by the
// master: route discovery, path deduplication with throughput measurement,
// then compilation and reporting. Each stage fans out through a barrier whose
// continuation starts the next stage.
package pinger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/models"
	"github.com/carverauto/piponger/pkg/probe"
)

// Service is the pinger role.
type Service struct {
	store      db.PingerStore
	tracer     probe.Tracer
	throughput probe.ThroughputClient
	pongers    client.Ponger
	master     client.Master
	cfg        config.PingerConfig
	apiPort    int
	clock      clock.Clock

	wg sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// NewService creates the pinger role. apiPort is reported back to the master
// so it can identify this node.
func NewService(
	store db.PingerStore,
	tracer probe.Tracer,
	throughput probe.ThroughputClient,
	pongers client.Ponger,
	master client.Master,
	cfg config.PingerConfig,
	apiPort int,
	opts ...Option,
) *Service {
	s := &Service{
		store:      store,
		tracer:     tracer,
		throughput: throughput,
		pongers:    pongers,
		master:     master,
		cfg:        cfg,
		apiPort:    apiPort,
		clock:      clock.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StartSession records a new local iteration for the master's session and
// starts route discovery in the background. A session id seen before is
// rejected with ErrSessionExists.
func (s *Service) StartSession(
	ctx context.Context, req *models.StartSessionRequest, remoteAddr string) (*models.PingerIteration, error) {
	if len(req.Hosts) == 0 {
		return nil, ErrNoPeers
	}

	targets := make([]models.Target, 0, len(req.Hosts))

	for addr, peer := range req.Hosts {
		targets = append(targets, models.Target{
			Address:     addr,
			APIPort:     peer.APIPort,
			APIProtocol: peer.APIProtocol,
		})
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Address < targets[j].Address })

	it, err := s.store.CreatePingerIteration(ctx, &models.PingerIteration{
		RemoteID:      req.MasterIterationID,
		RemoteAddress: remoteAddr,
		ProbeCount:    req.TracertQty,
		CreatedDate:   s.clock.Now(),
	}, targets)
	if errors.Is(err, db.ErrDuplicateRemoteID) {
		return nil, fmt.Errorf("%w: %d", ErrSessionExists, req.MasterIterationID)
	}

	if err != nil {
		return nil, err
	}

	log.Info("session started", "iteration", it.ID, "session", it.RemoteID, "targets", len(targets))

	s.launch(ctx, func(ctx context.Context) { s.Discover(ctx, it.ID) })

	return it, nil
}

// Wait blocks until every pipeline started by StartSession has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// launch runs fn detached from the request that triggered it.
func (s *Service) launch(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		fn(ctx)
	}()
}

func (s *Service) fail(ctx context.Context, id int64, reason string) {
	if _, err := s.store.TransitionPingerIteration(ctx, id, models.StatusFailed); err != nil {
		log.Error("could not mark iteration failed", "iteration", id, "error", err)

		return
	}

	log.Warn("iteration marked failed", "iteration", id, "reason", reason)
}
