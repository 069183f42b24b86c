package probe

import "errors"

var (
	ErrInvalidTrace    = errors.New("invalid trace result")
	ErrNoFlows         = errors.New("trace result has no flows")
	ErrUnknownFlow     = errors.New("no flow for source port")
	ErrNoLossMetric    = errors.New("throughput result has no loss metric")
	ErrInvalidIperf    = errors.New("invalid throughput result")
	ErrToolFailed      = errors.New("external tool failed")
	ErrServerNotAlive  = errors.New("measurement server exited during grace period")
	ErrServerSpawnFail = errors.New("failed to spawn measurement server")
)
