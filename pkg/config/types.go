package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from "5s"-style strings or
// from a number of nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	return d.set(v)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}

	if i, ok := v.(int); ok {
		v = float64(i)
	}

	return d.set(v)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) set(v interface{}) error {
	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// WebhookConfig represents a webhook notification configuration.
type WebhookConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	URL      string   `json:"url" yaml:"url"`
	Cooldown Duration `json:"cooldown" yaml:"cooldown"`
	Template string   `json:"template" yaml:"template"`
	Headers  []Header `json:"headers,omitempty" yaml:"headers,omitempty"` // Optional custom headers
}

// Header represents a custom HTTP header.
type Header struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// AuthConfig holds the basic auth credentials shared by every node.
type AuthConfig struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Endpoint locates another node's API.
type Endpoint struct {
	Address  string `json:"address" yaml:"address"`
	Port     int    `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"` // e.g., "http://"
}

// MasterConfig configures the coordinator role.
type MasterConfig struct {
	IterationInterval Duration        `json:"iteration_interval" yaml:"iteration_interval"`
	FinishOldInterval Duration        `json:"finish_old_interval" yaml:"finish_old_interval"`
	IterationTimeout  Duration        `json:"iteration_timeout" yaml:"iteration_timeout"`
	DoneCheckInterval Duration        `json:"done_check_interval" yaml:"done_check_interval"`
	StaleNodeAge      Duration        `json:"stale_node_age" yaml:"stale_node_age"`
	SweepInterval     Duration        `json:"sweep_interval" yaml:"sweep_interval"`
	ProbeCount        int             `json:"tracert_qty" yaml:"tracert_qty"`
	SegmentPrefixLen  int             `json:"segment_prefix_len" yaml:"segment_prefix_len"`
	GraphCacheTTL     Duration        `json:"graph_cache_ttl" yaml:"graph_cache_ttl"`
	Webhooks          []WebhookConfig `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
}

// PingerConfig configures the measurement pipeline.
type PingerConfig struct {
	SrcPortStart       int      `json:"src_port_start" yaml:"src_port_start"`
	DiscoveryTimeLimit Duration `json:"discovery_time_limit" yaml:"discovery_time_limit"`
	MeasureTimeLimit   Duration `json:"measure_time_limit" yaml:"measure_time_limit"`
	MeasureAttempts    int      `json:"measure_attempts" yaml:"measure_attempts"`
	MeasureBackoff     Duration `json:"measure_backoff" yaml:"measure_backoff"`
	ProbeAttempts      int      `json:"probe_attempts" yaml:"probe_attempts"`
	ProbeBackoff       Duration `json:"probe_backoff" yaml:"probe_backoff"`
	ProbeTargets       []string `json:"probe_targets,omitempty" yaml:"probe_targets,omitempty"`
	Concurrency        int      `json:"concurrency" yaml:"concurrency"`
	TracerouteBinary   string   `json:"traceroute_binary" yaml:"traceroute_binary"`
	TracerouteDelay    int      `json:"traceroute_delay" yaml:"traceroute_delay"`
	IperfClientScript  string   `json:"iperf_client_script" yaml:"iperf_client_script"`
}

// PongerConfig configures the probe target role.
type PongerConfig struct {
	PortRangeMin   int      `json:"port_range_min" yaml:"port_range_min"`
	PortRangeMax   int      `json:"port_range_max" yaml:"port_range_max"`
	ServerScript   string   `json:"iperf_server_script" yaml:"iperf_server_script"`
	ServerLifetime Duration `json:"server_lifetime" yaml:"server_lifetime"`
	ServerGrace    Duration `json:"server_grace" yaml:"server_grace"`
}
