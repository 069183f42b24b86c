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

// Package ponger implements the probe target role: one persistent
// measurement port per requester and a fresh throughput server on demand.
package ponger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/probe"
)

var (
	ErrNoFreePort     = errors.New("no free measurement port")
	ErrServerNotReady = errors.New("measurement server did not start")
)

// Service serves measurement port requests.
type Service struct {
	store    db.PongerStore
	launcher probe.ServerLauncher
	minPort  int
	maxPort  int

	// serializes kill-and-spawn so two requests never race on one port
	mu sync.Mutex
}

// NewService creates a ponger Service.
func NewService(store db.PongerStore, launcher probe.ServerLauncher, cfg config.PongerConfig) *Service {
	return &Service{
		store:    store,
		launcher: launcher,
		minPort:  cfg.PortRangeMin,
		maxPort:  cfg.PortRangeMax,
	}
}

// AllocatePort returns the measurement port for requester, assigning the
// lowest free port in range on first use.
func (s *Service) AllocatePort(ctx context.Context, requester string) (int, error) {
	port, err := s.store.AllocatePort(ctx, requester, s.minPort, s.maxPort)
	if errors.Is(err, db.ErrNoFreePort) {
		return 0, fmt.Errorf("%w: %w", ErrNoFreePort, err)
	}

	if err != nil {
		return 0, err
	}

	return port, nil
}

// StartServer replaces whatever listens on port with a fresh server.
func (s *Service) StartServer(ctx context.Context, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.launcher.Start(ctx, port); err != nil {
		return fmt.Errorf("%w: %w", ErrServerNotReady, err)
	}

	return nil
}

// RequestServer allocates requester's port and starts a server on it.
func (s *Service) RequestServer(ctx context.Context, requester string) (int, error) {
	port, err := s.AllocatePort(ctx, requester)
	if err != nil {
		log.Warn("measurement port allocation failed", "requester", requester, "error", err)

		return 0, err
	}

	if err := s.StartServer(ctx, port); err != nil {
		log.Warn("measurement server start failed", "requester", requester, "port", port, "error", err)

		return 0, err
	}

	log.Info("measurement server ready", "requester", requester, "port", port)

	return port, nil
}
