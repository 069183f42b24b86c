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

// Package registry keeps the master's pinger and ponger pools and expires
// nodes that stopped refreshing their registration.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/metrics"
	"github.com/carverauto/piponger/pkg/models"
)

var (
	ErrInvalidRole    = errors.New("only pingers and pongers register")
	ErrInvalidAddress = errors.New("registration needs an address and port")
)

const (
	defaultStaleAge      = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Registry is the node registry.
type Registry struct {
	store         db.RegistryStore
	clock         clock.Clock
	staleAge      time.Duration
	sweepInterval time.Duration
}

// New creates a Registry. Zero durations fall back to 30 minutes of
// staleness and a 5 minute sweep.
func New(store db.RegistryStore, clk clock.Clock, staleAge, sweepInterval time.Duration) *Registry {
	if clk == nil {
		clk = clock.New()
	}

	if staleAge == 0 {
		staleAge = defaultStaleAge
	}

	if sweepInterval == 0 {
		sweepInterval = defaultSweepInterval
	}

	return &Registry{
		store:         store,
		clock:         clk,
		staleAge:      staleAge,
		sweepInterval: sweepInterval,
	}
}

// Register adds the node to the pool for role or refreshes it.
func (r *Registry) Register(
	ctx context.Context, role models.Role, address string, port int, protocol string) (*models.NodeRegistration, error) {
	if role != models.RolePinger && role != models.RolePonger {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	if address == "" || port <= 0 {
		return nil, fmt.Errorf("%w: %q:%d", ErrInvalidAddress, address, port)
	}

	if protocol == "" {
		protocol = "http://"
	}

	node, err := r.store.UpsertNode(ctx, role, &models.NodeRegistration{
		Address:     address,
		APIPort:     port,
		APIProtocol: protocol,
		CreatedDate: r.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	metrics.Registrations.WithLabelValues(string(role)).Inc()
	log.Debug("node registered", "role", role, "address", address, "port", port)

	return node, nil
}

// Find returns the registered node for role at address:port.
func (r *Registry) Find(ctx context.Context, role models.Role, address string, port int) (*models.NodeRegistration, error) {
	return r.store.FindNode(ctx, role, address, port)
}

// Pingers returns the current pinger pool.
func (r *Registry) Pingers(ctx context.Context) ([]models.NodeRegistration, error) {
	return r.store.ListNodes(ctx, models.RolePinger)
}

// Pongers returns the current ponger pool.
func (r *Registry) Pongers(ctx context.Context) ([]models.NodeRegistration, error) {
	return r.store.ListNodes(ctx, models.RolePonger)
}

// Sweep removes nodes of both pools not refreshed within the stale age. A
// failure in one pool does not stop the other.
func (r *Registry) Sweep(ctx context.Context) (int64, error) {
	cutoff := r.clock.Now().Add(-r.staleAge)

	var (
		total int64
		errs  error
	)

	for _, role := range []models.Role{models.RolePinger, models.RolePonger} {
		n, err := r.store.DeleteStaleNodes(ctx, role, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sweeping %s pool: %w", role, err))

			continue
		}

		if n > 0 {
			metrics.RegistrySwept.WithLabelValues(string(role)).Add(float64(n))
			log.Info("expired stale nodes", "role", role, "count", n)
		}

		total += n
	}

	return total, errs
}

// Run sweeps on a fixed schedule until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("registry sweeper stopped")

			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				log.Error("registry sweep failed", "error", err)
			}
		}
	}
}
