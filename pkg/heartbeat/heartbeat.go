// Package heartbeat keeps a pinger or ponger registered with its master.
package heartbeat

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/models"
)

// Heartbeat registers the node's pinger and ponger roles on a schedule.
type Heartbeat struct {
	master   client.Master
	roles    []models.Role
	req      models.RegisterRequest
	interval time.Duration
	clock    clock.Clock
}

// New creates a Heartbeat for the pinger and ponger roles in roles. The
// master role never registers.
func New(master client.Master, roles models.Roles, apiPort int, protocol string,
	interval time.Duration, clk clock.Clock) *Heartbeat {
	h := &Heartbeat{
		master:   master,
		req:      models.RegisterRequest{APIPort: apiPort, APIProtocol: protocol},
		interval: interval,
		clock:    clk,
	}

	if roles.Pinger {
		h.roles = append(h.roles, models.RolePinger)
	}

	if roles.Ponger {
		h.roles = append(h.roles, models.RolePonger)
	}

	return h
}

// Enabled reports whether there is anything to register.
func (h *Heartbeat) Enabled() bool {
	return len(h.roles) > 0
}

// Beat registers every role once. A failed role does not stop the others.
func (h *Heartbeat) Beat(ctx context.Context) error {
	var errs error

	for _, role := range h.roles {
		if err := h.master.Register(ctx, role, h.req); err != nil {
			errs = multierr.Append(errs, err)

			continue
		}

		log.Debug("registered with master", "role", role)
	}

	return errs
}

// Run beats immediately and then every interval until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) {
	if !h.Enabled() {
		return
	}

	ticker := h.clock.Ticker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.Beat(ctx); err != nil {
			log.Warn("heartbeat failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
