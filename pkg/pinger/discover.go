package pinger

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/barrier"
	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/metrics"
	"github.com/carverauto/piponger/pkg/models"
	"github.com/carverauto/piponger/pkg/probe"
)

type traceJob struct {
	target      models.Target
	reservation *models.PortReservation
	trace       *models.Trace
}

// Discover is stage 1. It reserves a measurement port and a source port
// range per target, then runs one route discovery per reservation. It is a
// no-op unless the iteration is still CREATED.
func (s *Service) Discover(ctx context.Context, id int64) {
	ok, err := s.store.TransitionPingerIteration(ctx, id, models.StatusRunning, models.StatusCreated)
	if err != nil {
		log.Error("discovery could not start", "iteration", id, "error", err)

		return
	}

	if !ok {
		log.Debug("discovery skipped, iteration already past CREATED", "iteration", id)

		return
	}

	it, err := s.store.GetPingerIteration(ctx, id)
	if err != nil {
		log.Error("discovery could not load iteration", "iteration", id, "error", err)

		return
	}

	jobs, err := s.reserve(ctx, it)
	if err != nil {
		log.Error("port reservation failed", "iteration", id, "error", err)
		s.fail(ctx, id, "port reservation failed")
	}

	if _, err := s.store.TransitionPingerIteration(
		ctx, id, models.StatusRunningTraceroute, models.StatusRunning); err != nil {
		log.Error("could not enter traceroute stage", "iteration", id, "error", err)
	}

	units := make([]barrier.Unit, len(jobs))
	for i, job := range jobs {
		units[i] = barrier.Unit{
			Name: fmt.Sprintf("trace-%d", job.trace.ID),
			Run:  func(ctx context.Context) error { return s.runTrace(ctx, job) },
		}
	}

	barrier.Run(ctx, "discovery", units, barrier.Options{
		Limit:       time.Duration(s.cfg.DiscoveryTimeLimit),
		Concurrency: s.cfg.Concurrency,
	}, func(ctx context.Context, outcomes []barrier.Outcome) {
		for i, o := range outcomes {
			if !o.TimedOut() {
				continue
			}

			if err := s.store.UpdateTrace(ctx, jobs[i].trace.ID, models.TaskFailure, ""); err != nil {
				log.Error("could not mark timed out trace", "trace", jobs[i].trace.ID, "error", err)
			}

			s.fail(ctx, id, o.Err.Error())
		}

		s.Measure(ctx, id)
	})
}

// reserve asks every target for a measurement port and assigns consecutive,
// non-overlapping source port ranges of probe_count+1 ports. A target whose
// ponger does not answer is skipped.
func (s *Service) reserve(ctx context.Context, it *models.PingerIteration) ([]traceJob, error) {
	targets, err := s.store.ListTargets(ctx, it.ID)
	if err != nil {
		return nil, err
	}

	var jobs []traceJob

	next := s.cfg.SrcPortStart

	for _, t := range targets {
		port, err := s.pongers.RequestServer(ctx, client.BaseURL(t.APIProtocol, t.Address, t.APIPort))
		if err != nil {
			log.Warn("target skipped, no measurement port", "iteration", it.ID, "target", t.Address, "error", err)

			continue
		}

		res, err := s.store.CreateReservation(ctx, &models.PortReservation{
			TargetID:   t.ID,
			DstPort:    port,
			SrcPortMin: next,
			SrcPortMax: next + it.ProbeCount,
		})
		if err != nil {
			return jobs, err
		}

		next = res.SrcPortMax + 1

		trace, err := s.store.CreateTrace(ctx, it.ID, res.ID, s.clock.Now())
		if err != nil {
			return jobs, err
		}

		jobs = append(jobs, traceJob{target: t, reservation: res, trace: trace})
	}

	return jobs, nil
}

func (s *Service) runTrace(ctx context.Context, job traceJob) error {
	// status writes must land even when ctx hit its deadline
	storeCtx := context.WithoutCancel(ctx)

	if err := s.store.UpdateTrace(storeCtx, job.trace.ID, models.TaskStarted, ""); err != nil {
		return err
	}

	start := time.Now()

	raw, err := s.tracer.Trace(ctx, probe.TraceRequest{
		Target:     job.target.Address,
		SrcPortMin: job.reservation.SrcPortMin,
		SrcPortMax: job.reservation.SrcPortMax,
		DstPort:    job.reservation.DstPort,
		Delay:      s.cfg.TracerouteDelay,
	})

	metrics.TraceTimeHistogram.Observe(time.Since(start).Seconds())

	status := models.TaskSuccess

	if err == nil {
		var parsed *probe.TraceResult

		parsed, err = probe.ParseTrace(raw)
		if err == nil && !parsed.HasFlows() {
			err = probe.ErrNoFlows
		}
	}

	if err != nil {
		status = models.TaskFailure

		log.Warn("route discovery failed", "trace", job.trace.ID, "target", job.target.Address, "error", err)
	}

	metrics.TracesPerformed.WithLabelValues(string(status)).Inc()

	if uerr := s.store.UpdateTrace(storeCtx, job.trace.ID, status, string(raw)); uerr != nil {
		return uerr
	}

	return err
}
