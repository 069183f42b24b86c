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

// Package coordinator runs the master side of an iteration: it starts one
// session per registered pinger, collects their reports and aggregates the
// iteration once every session finished or the iteration timed out.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/carverauto/piponger/pkg/alerts"
	"github.com/carverauto/piponger/pkg/analysis"
	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/metrics"
	"github.com/carverauto/piponger/pkg/models"
)

const historySize = 20

// Coordinator is the master role.
type Coordinator struct {
	store    db.MasterStore
	nodes    Nodes
	pingers  client.Pinger
	engine   *analysis.Engine
	notifier Notifier
	history  *metrics.History
	clock    clock.Clock
	cfg      config.MasterConfig
	nodeID   string

	wg sync.WaitGroup
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithNotifier sends an alert whenever an iteration flags segments.
func WithNotifier(n Notifier) Option {
	return func(co *Coordinator) {
		co.notifier = n
	}
}

// New creates a Coordinator. nodeID names this master in alerts.
func New(
	store db.MasterStore,
	nodes Nodes,
	pingers client.Pinger,
	cfg config.MasterConfig,
	nodeID string,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:   store,
		nodes:   nodes,
		pingers: pingers,
		engine:  analysis.NewEngine(cfg.SegmentPrefixLen),
		history: metrics.NewHistory(historySize),
		clock:   clock.New(),
		cfg:     cfg,
		nodeID:  nodeID,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateIteration opens a new iteration and starts a session on every
// registered pinger that has at least one ponger other than itself to measure.
// The iteration and its sessions are stored together before any pinger is
// started. Session start calls run in the background; a pinger that cannot be
// reached leaves its session RUNNING until the iteration times out.
func (c *Coordinator) CreateIteration(ctx context.Context) (*models.MasterIteration, error) {
	pingers, err := c.nodes.Pingers(ctx)
	if err != nil {
		return nil, err
	}

	pongers, err := c.nodes.Pongers(ctx)
	if err != nil {
		return nil, err
	}

	var ids []int64

	byID := make(map[int64]models.NodeRegistration)
	hostsOf := make(map[int64]map[string]models.PeerInfo)

	for _, p := range pingers {
		hosts := peersFor(p, pongers)
		if len(hosts) == 0 {
			log.Debug("pinger has no peers, skipped", "pinger", p.Address)

			continue
		}

		ids = append(ids, p.ID)
		byID[p.ID] = p
		hostsOf[p.ID] = hosts
	}

	it, sessions, err := c.store.CreateMasterIterationWithSessions(ctx, c.clock.Now(), ids)
	if errors.Is(err, db.ErrOpenIterationExists) {
		return nil, ErrIterationInProgress
	}

	if err != nil {
		return nil, err
	}

	metrics.MasterIterationsCreated.Inc()

	for i := range sessions {
		s := &sessions[i]

		c.startSession(ctx, byID[s.PingerID], s, &models.StartSessionRequest{
			Hosts:             hostsOf[s.PingerID],
			TracertQty:        c.cfg.ProbeCount,
			MasterIterationID: it.ID,
		})
	}

	if len(sessions) == 0 {
		if _, err := c.CheckDone(ctx, it.ID); err != nil {
			return it, err
		}
	}

	log.Info("iteration created", "iteration", it.ID, "pingers", len(pingers), "sessions", len(sessions))

	return it, nil
}

// peersFor lists every ponger not sharing the pinger's address.
func peersFor(p models.NodeRegistration, pongers []models.NodeRegistration) map[string]models.PeerInfo {
	hosts := make(map[string]models.PeerInfo)

	for _, o := range pongers {
		if o.Address == p.Address {
			continue
		}

		hosts[o.Address] = models.PeerInfo{APIPort: o.APIPort, APIProtocol: o.APIProtocol}
	}

	return hosts
}

func (c *Coordinator) startSession(
	ctx context.Context, p models.NodeRegistration, session *models.Session, req *models.StartSessionRequest) {
	ctx = context.WithoutCancel(ctx)
	url := client.BaseURL(p.APIProtocol, p.Address, p.APIPort)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		resp, err := c.pingers.StartSession(ctx, url, req)
		if err != nil {
			log.Warn("pinger did not start session", "session", session.ID, "pinger", url, "error", err)

			return
		}

		log.Debug("session started on pinger", "session", session.ID, "pinger", url,
			"ping_iteration", resp.PingIterationID)
	}()
}

// Wait blocks until every background session start has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// ReportResult stores the measurements a pinger reported for iterationID and
// finishes its session. The pinger is identified by its address and API
// port. A finished session is never overwritten.
func (c *Coordinator) ReportResult(
	ctx context.Context, iterationID int64, address string, port int, ms []models.Measurement) error {
	pinger, err := c.nodes.Find(ctx, models.RolePinger, address, port)
	if errors.Is(err, db.ErrNotFound) {
		metrics.SessionReports.WithLabelValues("unregistered").Inc()

		return fmt.Errorf("%w: %s:%d", ErrPingerNotRegistered, address, port)
	}

	if err != nil {
		return err
	}

	session, err := c.store.GetSession(ctx, iterationID, pinger.ID)
	if errors.Is(err, db.ErrNotFound) {
		metrics.SessionReports.WithLabelValues("unknown_session").Inc()

		return fmt.Errorf("%w: iteration %d pinger %s", ErrSessionNotFound, iterationID, address)
	}

	if err != nil {
		return err
	}

	if session.Status == models.StatusFinished {
		metrics.SessionReports.WithLabelValues("duplicate").Inc()

		return ErrSessionFinished
	}

	if ms == nil {
		ms = []models.Measurement{}
	}

	for i := range ms {
		ms[i].PingerAddress = address
	}

	raw, err := json.Marshal(ms)
	if err != nil {
		return err
	}

	ok, err := c.store.FinishSession(ctx, session.ID, string(raw), c.clock.Now())
	if err != nil {
		return err
	}

	if !ok {
		metrics.SessionReports.WithLabelValues("duplicate").Inc()

		return ErrSessionFinished
	}

	metrics.SessionReports.WithLabelValues("accepted").Inc()
	log.Info("session finished", "iteration", iterationID, "pinger", address, "measurements", len(ms))

	if _, err := c.CheckDone(ctx, iterationID); err != nil {
		log.Error("done check after report failed", "iteration", iterationID, "error", err)
	}

	return nil
}

// CheckDone reports the iteration's progress. The call that sees every
// session finished moves the iteration to FINISHED and aggregates it; later
// calls only report progress. An iteration without sessions is done at once.
func (c *Coordinator) CheckDone(ctx context.Context, iterationID int64) (models.Progress, error) {
	finished, total, err := c.store.CountSessions(ctx, iterationID)
	if err != nil {
		return models.Progress{}, err
	}

	p := progress(finished, total)
	if !p.IsFinished {
		return p, nil
	}

	ok, err := c.store.FinishMasterIteration(ctx, iterationID)
	if err != nil {
		return p, err
	}

	if ok {
		metrics.MasterIterationsFinished.WithLabelValues("complete").Inc()

		if _, err := c.aggregate(ctx, iterationID, false); err != nil {
			return p, err
		}
	}

	return p, nil
}

func progress(finished, total int) models.Progress {
	p := models.Progress{
		IsFinished: finished == total,
		Percentage: 100,
		Count:      finished,
		Total:      total,
	}

	if total > 0 {
		p.Percentage = 100 * float64(finished) / float64(total)
	}

	return p
}

// FinishOldIterations force-finishes iterations open for longer than the
// iteration timeout and aggregates whatever sessions did finish.
func (c *Coordinator) FinishOldIterations(ctx context.Context) (int, error) {
	open, err := c.store.OpenMasterIterations(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := c.clock.Now().Add(-time.Duration(c.cfg.IterationTimeout))

	var (
		count int
		errs  error
	)

	for _, it := range open {
		if !it.CreatedDate.Before(cutoff) {
			continue
		}

		ok, err := c.store.FinishMasterIteration(ctx, it.ID)
		if err != nil {
			errs = multierr.Append(errs, err)

			continue
		}

		if !ok {
			continue
		}

		count++

		metrics.MasterIterationsFinished.WithLabelValues("timeout").Inc()
		log.Warn("iteration timed out, finishing with partial results", "iteration", it.ID)

		if _, err := c.aggregate(ctx, it.ID, true); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return count, errs
}

// aggregate scores the finished sessions of an iteration, stores the flagged
// segments and the graph and raises an alert for any findings.
func (c *Coordinator) aggregate(ctx context.Context, iterationID int64, forced bool) (*analysis.Result, error) {
	it, err := c.store.GetMasterIteration(ctx, iterationID)
	if err != nil {
		return nil, err
	}

	sessions, err := c.store.FinishedSessions(ctx, iterationID)
	if err != nil {
		return nil, err
	}

	_, total, err := c.store.CountSessions(ctx, iterationID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	result := c.engine.Analyze(analysis.FromSessions(sessions))
	findings := result.Findings(iterationID)

	for i := range findings {
		findings[i].CreatedDate = now
	}

	if err := c.store.AddFindings(ctx, iterationID, findings); err != nil {
		return nil, err
	}

	graph, err := result.Graph.JSON()
	if err != nil {
		return nil, err
	}

	if err := c.store.SetIterationGraph(ctx, iterationID, graph); err != nil {
		return nil, err
	}

	metrics.Findings.Add(float64(len(findings)))

	c.history.Add(metrics.IterationSample{
		IterationID: iterationID,
		FinishedAt:  now,
		Duration:    now.Sub(it.CreatedDate),
		Sessions:    total,
		Reported:    len(sessions),
		Findings:    len(findings),
		Forced:      forced,
	})

	log.Info("iteration aggregated", "iteration", iterationID, "segments", len(result.Scores),
		"flagged", len(findings), "method", result.Method, "forced", forced)

	if len(findings) > 0 && c.notifier != nil {
		_ = c.notifier.Notify(ctx, alerts.FindingsAlert(c.nodeID, iterationID, findings))
	}

	return result, nil
}
