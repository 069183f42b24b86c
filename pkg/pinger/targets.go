package pinger

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/models"
	"github.com/carverauto/piponger/pkg/probe"
)

// ProbeResult is the outcome of measuring one configured probe target.
type ProbeResult struct {
	Target string                  `json:"target"`
	Result *probe.ThroughputResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// ProbeTargets measures throughput and loss to each "host:api_port" in the
// configured probe target list, outside of any session. Each target gets up
// to probe_attempts tries paced by probe_backoff.
func (s *Service) ProbeTargets(ctx context.Context) ([]ProbeResult, error) {
	if len(s.cfg.ProbeTargets) == 0 {
		return nil, ErrNoProbeTarget
	}

	out := make([]ProbeResult, 0, len(s.cfg.ProbeTargets))

	for _, entry := range s.cfg.ProbeTargets {
		r := ProbeResult{Target: entry}

		t, err := parseProbeTarget(entry)
		if err != nil {
			r.Error = err.Error()
			out = append(out, r)

			continue
		}

		raw, err := s.attempt(ctx, t, s.cfg.SrcPortStart, s.cfg.ProbeAttempts, time.Duration(s.cfg.ProbeBackoff))
		if err == nil {
			r.Result, err = probe.ParseThroughput(raw)
		}

		if err != nil {
			log.Warn("probe target failed", "target", entry, "error", err)

			r.Error = err.Error()
		}

		out = append(out, r)
	}

	return out, nil
}

func parseProbeTarget(entry string) (models.Target, error) {
	host, port, err := net.SplitHostPort(entry)
	if err != nil {
		return models.Target{}, err
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return models.Target{}, err
	}

	return models.Target{Address: host, APIPort: p, APIProtocol: "http://"}, nil
}
