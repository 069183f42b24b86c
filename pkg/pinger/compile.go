package pinger

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/metrics"
	"github.com/carverauto/piponger/pkg/models"
	"github.com/carverauto/piponger/pkg/probe"
)

// Compile is stage 3. It assembles one measurement per successful run,
// finishes the iteration and reports to the master. A report that cannot be
// delivered is logged and not retried.
func (s *Service) Compile(ctx context.Context, id int64) {
	it, err := s.store.GetPingerIteration(ctx, id)
	if err != nil {
		log.Error("compile could not load iteration", "iteration", id, "error", err)

		return
	}

	if it.Status == models.StatusFinished || it.Status == models.StatusRunningFinishing {
		log.Debug("compile skipped", "iteration", id, "status", it.Status)

		return
	}

	if _, err := s.store.TransitionPingerIteration(ctx, id, models.StatusRunningFinishing,
		models.StatusRunning, models.StatusRunningTraceroute, models.StatusRunningIperf); err != nil {
		log.Error("could not enter finishing stage", "iteration", id, "error", err)
	}

	measurements, err := s.measurements(ctx, id)
	if err != nil {
		log.Error("could not compile measurements", "iteration", id, "error", err)
	}

	if _, err := s.store.TransitionPingerIteration(
		ctx, id, models.StatusFinished, models.StatusRunningFinishing); err != nil {
		log.Error("could not finish iteration", "iteration", id, "error", err)
	}

	if final, err := s.store.GetPingerIteration(ctx, id); err == nil {
		metrics.PingerIterations.WithLabelValues(string(final.Status)).Inc()
	}

	log.Info("iteration compiled", "iteration", id, "session", it.RemoteID, "measurements", len(measurements))

	err = s.master.Report(ctx, &models.ReportRequest{
		MasterRemoteID: it.RemoteID,
		LocalPort:      s.apiPort,
		Result:         measurements,
	})
	if err != nil {
		log.Error("could not report to master", "iteration", id, "session", it.RemoteID, "error", err)

		return
	}

	log.Info("reported to master", "iteration", id, "session", it.RemoteID)
}

func (s *Service) measurements(ctx context.Context, id int64) ([]models.Measurement, error) {
	runs, err := s.store.ListThroughputRuns(ctx, id, models.TaskSuccess)
	if err != nil {
		return nil, err
	}

	targets, err := s.store.ListTargets(ctx, id)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Target, len(targets))
	for _, t := range targets {
		byID[t.ID] = t
	}

	traces, err := s.store.ListTraces(ctx, id)
	if err != nil {
		return nil, err
	}

	byReservation := make(map[int64]models.Trace, len(traces))

	for _, tr := range traces {
		if tr.Status == models.TaskSuccess {
			byReservation[tr.ReservationID] = tr
		}
	}

	out := make([]models.Measurement, 0, len(runs))

	for _, run := range runs {
		m, err := s.measurement(ctx, run, byReservation, byID)
		if err != nil {
			log.Warn("run left out of report", "run", run.ID, "error", err)

			continue
		}

		out = append(out, *m)
	}

	return out, nil
}

func (s *Service) measurement(
	ctx context.Context,
	run models.ThroughputRun,
	traces map[int64]models.Trace,
	targets map[int64]models.Target,
) (*models.Measurement, error) {
	res, err := s.store.GetReservation(ctx, run.ReservationID)
	if err != nil {
		return nil, err
	}

	target := targets[res.TargetID]

	tr, ok := traces[run.ReservationID]
	if !ok {
		return nil, probe.ErrNoFlows
	}

	parsed, err := probe.ParseTrace([]byte(tr.RawResult))
	if err != nil {
		return nil, err
	}

	path, err := parsed.HopPath(run.SrcPort, target.Address)
	if err != nil {
		return nil, err
	}

	if path == nil {
		path = []string{}
	}

	result, err := probe.ParseThroughput([]byte(run.RawResult))
	if err != nil {
		return nil, err
	}

	return &models.Measurement{
		TargetAddress: target.Address,
		SrcPort:       run.SrcPort,
		DstPort:       res.DstPort,
		Path:          path,
		Seconds:       result.Seconds,
		Bytes:         result.Bytes,
		BitsPerSecond: result.BitsPerSecond,
		LostPercent:   result.LostPercent,
	}, nil
}
