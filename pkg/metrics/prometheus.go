// Package metrics holds the process-wide Prometheus collectors and a small
// in-memory history of finished iterations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TraceTimeHistogram tracks route discovery run times.
	TraceTimeHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "piponger_trace_time_seconds",
			Help: "route discovery time in seconds",
			Buckets: []float64{
				// log spaced, 6 bins per decade
				1, 1.47, 2.15, 3.16, 4.64, 6.81,
				10, 14.7, 21.5, 31.6, 46.4, 68.1,
				100, 147, 215, 316, 464, 681,
				1000,
			},
		},
	)
	TracesPerformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_traces_total",
			Help: "The number of route discovery runs by final status",
		},
		[]string{"status"},
	)
	ThroughputRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_throughput_runs_total",
			Help: "The number of throughput runs by final status",
		},
		[]string{"status"},
	)
	ThroughputAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "piponger_throughput_attempts_total",
			Help: "The number of throughput client invocations, retries included",
		},
	)
	PingerIterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_pinger_iterations_total",
			Help: "Local pinger iterations by the status they ended in",
		},
		[]string{"status"},
	)
	MasterIterationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "piponger_master_iterations_created_total",
			Help: "Master iterations created",
		},
	)
	MasterIterationsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_master_iterations_finished_total",
			Help: "Master iterations finished, by how they finished",
		},
		[]string{"how"},
	)
	SessionReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_session_reports_total",
			Help: "Pinger result reports received by outcome",
		},
		[]string{"outcome"},
	)
	Findings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "piponger_findings_total",
			Help: "Problematic segments flagged",
		},
	)
	BarrierUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_barrier_units_total",
			Help: "Barrier units completed by barrier and outcome",
		},
		[]string{"barrier", "outcome"},
	)
	BarrierUnitsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "piponger_barrier_units_in_flight",
			Help: "Barrier units currently running",
		},
		[]string{"barrier"},
	)
	RegistrySwept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_registry_swept_total",
			Help: "Stale node registrations removed, by pool",
		},
		[]string{"role"},
	)
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piponger_registrations_total",
			Help: "Node registrations received, by pool",
		},
		[]string{"role"},
	)
)
