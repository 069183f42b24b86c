// Package models pkg/models/iteration.go
package models

import "time"

// IterationStatus is the lifecycle state of a master iteration, a session or
// a pinger-side iteration.
type IterationStatus string

const (
	StatusCreated           IterationStatus = "CREATED"
	StatusRunning           IterationStatus = "RUNNING"
	StatusRunningTraceroute IterationStatus = "RUNNING_TRACEROUTE"
	StatusRunningIperf      IterationStatus = "RUNNING_IPERF"
	StatusRunningFinishing  IterationStatus = "RUNNING_FINISHING"
	StatusFinished          IterationStatus = "FINISHED"
	StatusFailure           IterationStatus = "FAILURE"
	StatusFailed            IterationStatus = "FAILED"
)

// TaskStatus is the state of a single trace or throughput run.
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskStarted TaskStatus = "STARTED"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailure TaskStatus = "FAILURE"
)

// NodeRegistration is a pinger or ponger known to the master.
type NodeRegistration struct {
	ID          int64      `json:"id"`
	Address     string     `json:"address"`
	APIPort     int        `json:"api_port"`
	APIProtocol string     `json:"api_protocol"`
	CreatedDate time.Time  `json:"created_date"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// MasterIteration is one coordinator-side measurement round.
type MasterIteration struct {
	ID          int64           `json:"id"`
	Status      IterationStatus `json:"status"`
	CreatedDate time.Time       `json:"created_date"`
	Graph       string          `json:"graph,omitempty"`
}

// Session tracks one pinger's participation in a master iteration.
type Session struct {
	ID                int64           `json:"id"`
	MasterIterationID int64           `json:"master_iteration_id"`
	PingerID          int64           `json:"pinger_id"`
	Status            IterationStatus `json:"status"`
	Result            string          `json:"result,omitempty"`
	CreatedDate       time.Time       `json:"created_date"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// Finding is a network segment flagged as problematic in an iteration.
type Finding struct {
	ID          int64     `json:"id"`
	IterationID int64     `json:"master_iteration_id"`
	Segment     string    `json:"problematic_host"`
	Score       float64   `json:"score"`
	CreatedDate time.Time `json:"created_date"`
}

// PingerIteration is the pinger-side record of a session.
type PingerIteration struct {
	ID            int64           `json:"id"`
	Status        IterationStatus `json:"status"`
	RemoteID      int64           `json:"remote_id"`
	RemoteAddress string          `json:"remote_address"`
	ProbeCount    int             `json:"probe_count"`
	CreatedDate   time.Time       `json:"created_date"`
}

// Target is a ponger a pinger iteration measures against.
type Target struct {
	ID          int64  `json:"id"`
	IterationID int64  `json:"iteration_id"`
	Address     string `json:"address"`
	APIPort     int    `json:"api_port"`
	APIProtocol string `json:"api_protocol"`
}

// PortReservation is the source port range and destination port assigned to
// a target for one iteration.
type PortReservation struct {
	ID         int64 `json:"id"`
	TargetID   int64 `json:"target_id"`
	DstPort    int   `json:"dst_port"`
	SrcPortMin int   `json:"src_port_min"`
	SrcPortMax int   `json:"src_port_max"`
}

// Trace is one route discovery run over a reservation.
type Trace struct {
	ID            int64      `json:"id"`
	IterationID   int64      `json:"iteration_id"`
	ReservationID int64      `json:"reservation_id"`
	Status        TaskStatus `json:"status"`
	RawResult     string     `json:"raw_result,omitempty"`
	CreatedDate   time.Time  `json:"created_date"`
}

// ThroughputRun is one throughput/loss measurement over a discovered path.
type ThroughputRun struct {
	ID            int64      `json:"id"`
	IterationID   int64      `json:"iteration_id"`
	ReservationID int64      `json:"reservation_id"`
	SrcPort       int        `json:"src_port"`
	Status        TaskStatus `json:"status"`
	RawResult     string     `json:"raw_result,omitempty"`
	CreatedDate   time.Time  `json:"created_date"`
}

// Progress summarizes how many sessions of an iteration have finished.
type Progress struct {
	IsFinished bool    `json:"is_finished"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
}
