package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
)

// ThroughputResult is the summary of one UDP throughput run.
type ThroughputResult struct {
	Seconds               float64         `json:"seconds"`
	Bytes                 int64           `json:"bytes"`
	BitsPerSecond         float64         `json:"bits_per_second"`
	LostPercent           float64         `json:"lost_percent"`
	CPUUtilizationPercent *CPUUtilization `json:"cpu_utilization_percent,omitempty"`
}

// CPUUtilization is iperf3's CPU usage summary, in percent, for the local
// host and the remote server.
type CPUUtilization struct {
	HostTotal    float64 `json:"host_total"`
	HostUser     float64 `json:"host_user"`
	HostSystem   float64 `json:"host_system"`
	RemoteTotal  float64 `json:"remote_total"`
	RemoteUser   float64 `json:"remote_user"`
	RemoteSystem float64 `json:"remote_system"`
}

type iperfOutput struct {
	End struct {
		Sum struct {
			Seconds       float64  `json:"seconds"`
			Bytes         int64    `json:"bytes"`
			BitsPerSecond float64  `json:"bits_per_second"`
			LostPercent   *float64 `json:"lost_percent"`
		} `json:"sum"`
		CPUUtilizationPercent *CPUUtilization `json:"cpu_utilization_percent"`
	} `json:"end"`
}

// ParseThroughput extracts the summary from iperf3 JSON output. Output
// without a loss figure is rejected with ErrNoLossMetric.
func ParseThroughput(raw []byte) (*ThroughputResult, error) {
	var out iperfOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIperf, err)
	}

	sum := out.End.Sum
	if sum.LostPercent == nil {
		return nil, ErrNoLossMetric
	}

	return &ThroughputResult{
		Seconds:               sum.Seconds,
		Bytes:                 sum.Bytes,
		BitsPerSecond:         sum.BitsPerSecond,
		LostPercent:           *sum.LostPercent,
		CPUUtilizationPercent: out.End.CPUUtilizationPercent,
	}, nil
}

// IperfClient runs a UDP iperf3 client. When Binary is not iperf3 itself it
// is treated as a wrapper script taking "<target> <dst port> <src port>".
type IperfClient struct {
	Binary string
	Runner Runner
}

func NewIperfClient(binary string) *IperfClient {
	return &IperfClient{Binary: binary, Runner: OSRunner{}}
}

func (c *IperfClient) Run(ctx context.Context, target string, dstPort, srcPort int) ([]byte, error) {
	return c.Runner.Output(ctx, c.Binary, c.args(target, dstPort, srcPort)...)
}

func (c *IperfClient) args(target string, dstPort, srcPort int) []string {
	if filepath.Base(c.Binary) == "iperf3" {
		return []string{
			"-c", target,
			"-p", strconv.Itoa(dstPort),
			"--cport", strconv.Itoa(srcPort),
			"-u", "-J",
		}
	}

	return []string{target, strconv.Itoa(dstPort), strconv.Itoa(srcPort)}
}
