// Package probe wraps the external route discovery and throughput tools.
package probe

import (
	"context"
)

//go:generate mockgen -destination=mock_probe.go -package=probe github.com/carverauto/piponger/pkg/probe Tracer,ThroughputClient,ServerLauncher

// Tracer runs a multi-path route discovery and returns the raw JSON result.
type Tracer interface {
	Trace(ctx context.Context, req TraceRequest) ([]byte, error)
}

// ThroughputClient runs one throughput/loss measurement against a target and
// returns the tool's raw JSON output.
type ThroughputClient interface {
	Run(ctx context.Context, target string, dstPort, srcPort int) ([]byte, error)
}

// ServerLauncher makes sure a fresh measurement server listens on a port.
type ServerLauncher interface {
	Start(ctx context.Context, port int) error
}

// Runner executes a command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}
