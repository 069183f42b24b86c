// Package models pkg/models/wire.go
package models

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Response is the envelope every API operation answers with.
type Response struct {
	Result string `json:"result"`
	Msg    string `json:"msg,omitempty"`
}

// RegisterRequest is sent by a pinger or ponger to the master.
type RegisterRequest struct {
	APIPort     int    `json:"api_port"`
	APIProtocol string `json:"api_protocol"`
}

// PeerInfo describes how to reach a ponger.
type PeerInfo struct {
	APIPort     int    `json:"api_port"`
	APIProtocol string `json:"api_protocol"`
}

// StartSessionRequest asks a pinger to measure towards a set of pongers.
type StartSessionRequest struct {
	Hosts             map[string]PeerInfo `json:"hosts"`
	TracertQty        int                 `json:"tracert_qty"`
	MasterIterationID int64               `json:"master_iteration_id"`
}

type StartSessionResponse struct {
	Result          string `json:"result"`
	PingIterationID int64  `json:"ping_iteration_id,omitempty"`
	Msg             string `json:"msg,omitempty"`
}

// Measurement is the compiled result for one discovered path.
type Measurement struct {
	PingerAddress string   `json:"pinger_address,omitempty"`
	TargetAddress string   `json:"ponger_address"`
	SrcPort       int      `json:"src_port"`
	DstPort       int      `json:"dst_port"`
	Path          []string `json:"path"`
	Seconds       float64  `json:"seconds"`
	Bytes         int64    `json:"bytes"`
	BitsPerSecond float64  `json:"bits_per_second"`
	LostPercent   float64  `json:"lost_percent"`
}

// ReportRequest carries a pinger's measurements back to the master.
type ReportRequest struct {
	MasterRemoteID int64         `json:"master_remote_id"`
	LocalPort      int           `json:"local_port"`
	Result         []Measurement `json:"result"`
}

// ServerResponse answers a measurement server request.
type ServerResponse struct {
	Result string `json:"result"`
	Port   int    `json:"port,omitempty"`
	Msg    string `json:"msg,omitempty"`
}
