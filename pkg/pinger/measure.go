package pinger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/carverauto/piponger/pkg/barrier"
	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/metrics"
	"github.com/carverauto/piponger/pkg/models"
	"github.com/carverauto/piponger/pkg/probe"
)

// Measure is stage 2. It turns every successful trace into one throughput run
// per distinct hop path, then measures each target's runs in sequence, one
// unit per target. A FAILED iteration is measured with whatever discovery
// produced.
func (s *Service) Measure(ctx context.Context, id int64) {
	it, err := s.store.GetPingerIteration(ctx, id)
	if err != nil {
		log.Error("measurement could not load iteration", "iteration", id, "error", err)

		return
	}

	if it.Status != models.StatusRunningTraceroute && it.Status != models.StatusFailed {
		log.Debug("measurement skipped", "iteration", id, "status", it.Status)

		return
	}

	targets, err := s.store.ListTargets(ctx, id)
	if err != nil {
		log.Error("measurement could not list targets", "iteration", id, "error", err)
	}

	for _, t := range targets {
		if err := s.scheduleRuns(ctx, it, t); err != nil {
			log.Error("could not schedule throughput runs", "iteration", id, "target", t.Address, "error", err)
		}
	}

	if _, err := s.store.TransitionPingerIteration(
		ctx, id, models.StatusRunningIperf, models.StatusRunningTraceroute); err != nil {
		log.Error("could not enter iperf stage", "iteration", id, "error", err)
	}

	units := make([]barrier.Unit, len(targets))
	for i, t := range targets {
		units[i] = barrier.Unit{
			Name: fmt.Sprintf("measure-%s", t.Address),
			Run:  func(ctx context.Context) error { return s.measureTarget(ctx, t) },
		}
	}

	barrier.Run(ctx, "measurement", units, barrier.Options{
		Limit:       time.Duration(s.cfg.MeasureTimeLimit),
		Concurrency: s.cfg.Concurrency,
	}, func(ctx context.Context, outcomes []barrier.Outcome) {
		for _, o := range outcomes {
			if o.TimedOut() {
				s.fail(ctx, id, o.Err.Error())
			}
		}

		s.Compile(ctx, id)
	})
}

// scheduleRuns creates one PENDING run per distinct path found by the
// target's successful traces, keeping the lowest source port of each path.
func (s *Service) scheduleRuns(ctx context.Context, it *models.PingerIteration, t models.Target) error {
	traces, err := s.store.TracesForTarget(ctx, t.ID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)

	for _, tr := range traces {
		if tr.Status != models.TaskSuccess {
			continue
		}

		parsed, err := probe.ParseTrace([]byte(tr.RawResult))
		if err != nil {
			log.Warn("skipping malformed trace result", "trace", tr.ID, "error", err)

			continue
		}

		for _, p := range probe.UniquePaths(parsed.DiscoveredPaths(t.Address)) {
			key := strings.Join(p.Path, ">")
			if seen[key] {
				continue
			}

			seen[key] = true

			if _, err := s.store.CreateThroughputRun(ctx, it.ID, tr.ReservationID, p.SrcPort, s.clock.Now()); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Service) measureTarget(ctx context.Context, t models.Target) error {
	runs, err := s.store.RunsForTarget(ctx, t.ID)
	if err != nil {
		return err
	}

	var failed int

	for _, run := range runs {
		if run.Status != models.TaskPending {
			continue
		}

		if err := s.measureRun(ctx, t, run); err != nil {
			failed++
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d runs to %s", ErrMeasureFailed, failed, len(runs), t.Address)
	}

	return nil
}

// measureRun retries until the throughput tool reports a loss figure or the
// attempts run out. Every attempt asks the ponger for a fresh server first.
func (s *Service) measureRun(ctx context.Context, t models.Target, run models.ThroughputRun) error {
	storeCtx := context.WithoutCancel(ctx)

	if err := s.store.UpdateThroughputRun(storeCtx, run.ID, models.TaskStarted, ""); err != nil {
		return err
	}

	raw, err := s.attempt(ctx, t, run.SrcPort, s.cfg.MeasureAttempts, time.Duration(s.cfg.MeasureBackoff))

	status := models.TaskSuccess
	if err != nil {
		status = models.TaskFailure

		log.Warn("throughput run failed", "run", run.ID, "target", t.Address, "src_port", run.SrcPort, "error", err)
	}

	metrics.ThroughputRuns.WithLabelValues(string(status)).Inc()

	if uerr := s.store.UpdateThroughputRun(storeCtx, run.ID, status, string(raw)); uerr != nil {
		return uerr
	}

	return err
}

// attempt runs the request-server-then-measure sequence up to attempts times,
// paced at one try per backoff.
func (s *Service) attempt(
	ctx context.Context, t models.Target, srcPort, attempts int, backoff time.Duration) ([]byte, error) {
	limiter := rate.NewLimiter(rate.Every(backoff), 1)
	baseURL := client.BaseURL(t.APIProtocol, t.Address, t.APIPort)

	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		port, err := s.pongers.RequestServer(ctx, baseURL)
		if err != nil {
			lastErr = err

			continue
		}

		metrics.ThroughputAttempts.Inc()

		raw, err := s.throughput.Run(ctx, t.Address, port, srcPort)
		if err != nil {
			lastErr = err

			continue
		}

		if _, err := probe.ParseThroughput(raw); err != nil {
			lastErr = err

			continue
		}

		return raw, nil
	}

	if lastErr == nil {
		lastErr = ErrMeasureFailed
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrMeasureFailed, attempts, lastErr)
}
