package pinger

import "errors"

var (
	ErrSessionExists = errors.New("session already started")
	ErrNoPeers       = errors.New("session has no peers")
	ErrMeasureFailed = errors.New("throughput measurement failed")
	ErrNoProbeTarget = errors.New("no probe targets configured")
)
