package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/piponger/pkg/models"
)

var (
	errNoRoles        = errors.New("at least one role must be enabled")
	errNoMaster       = errors.New("master address is required for pinger and ponger roles")
	errPortRange      = errors.New("invalid measurement port range")
	errPrefixLen      = errors.New("segment_prefix_len must be an IPv4 prefix length between 1 and 32")
	errMissingDBPath  = errors.New("db_path is required")
	errMissingAddress = errors.New("listen_addr is required")
)

const (
	defaultListenAddr     = ":5003"
	defaultAPIPort        = 5003
	defaultAPIProtocol    = "http://"
	defaultMaxConnections = 100
	defaultLogLevel       = "info"

	defaultIterationInterval = 10 * time.Minute
	defaultFinishOldInterval = 20 * time.Minute
	defaultIterationTimeout  = 30 * time.Minute
	defaultDoneCheckInterval = time.Minute
	defaultStaleNodeAge      = 30 * time.Minute
	defaultSweepInterval     = 5 * time.Minute
	defaultHeartbeat         = time.Minute
	defaultRetention         = 30 * 24 * time.Hour
	defaultProbeCount        = 20
	defaultSegmentPrefixLen  = 24
	defaultGraphCacheTTL     = 5 * time.Minute

	defaultSrcPortStart       = 40000
	defaultDiscoveryTimeLimit = 20 * time.Minute
	defaultMeasureTimeLimit   = 20 * time.Minute
	defaultMeasureAttempts    = 20
	defaultMeasureBackoff     = 5 * time.Second
	defaultProbeAttempts      = 5
	defaultProbeBackoff       = 5 * time.Second
	defaultConcurrency        = 8
	defaultTracerouteBinary   = "dublin-traceroute"
	defaultTracerouteDelay    = 25
	defaultIperfClientScript  = "iperf3"

	defaultPortRangeMin   = 50000
	defaultPortRangeMax   = 50500
	defaultServerScript   = "iperf3"
	defaultServerLifetime = 6000 * time.Second
	defaultServerGrace    = 2 * time.Second
)

// Config is the configuration of a piponger node.
type Config struct {
	Roles             string       `json:"roles" yaml:"roles"`
	ListenAddr        string       `json:"listen_addr" yaml:"listen_addr"`
	APIPort           int          `json:"api_port" yaml:"api_port"`
	APIProtocol       string       `json:"api_protocol" yaml:"api_protocol"`
	DBPath            string       `json:"db_path" yaml:"db_path"`
	LogLevel          string       `json:"log_level" yaml:"log_level"`
	MaxConnections    int          `json:"max_connections" yaml:"max_connections"`
	HeartbeatInterval Duration     `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	Retention         Duration     `json:"retention" yaml:"retention"`
	Auth              AuthConfig   `json:"auth" yaml:"auth"`
	MasterEndpoint    Endpoint     `json:"master_endpoint" yaml:"master_endpoint"`
	Master            MasterConfig `json:"master" yaml:"master"`
	Pinger            PingerConfig `json:"pinger" yaml:"pinger"`
	Ponger            PongerConfig `json:"ponger" yaml:"ponger"`

	roles models.Roles
}

// NodeRoles returns the parsed role set. Only valid after Validate.
func (c *Config) NodeRoles() models.Roles {
	return c.roles
}

// Validate fills in defaults and checks the configuration.
func (c *Config) Validate() error {
	roles, err := models.ParseRoles(c.Roles)
	if err != nil {
		return err
	}

	if !roles.Any() {
		return errNoRoles
	}

	c.roles = roles

	c.applyDefaults()

	if c.ListenAddr == "" {
		return errMissingAddress
	}

	if c.DBPath == "" {
		return errMissingDBPath
	}

	if (roles.Pinger || roles.Ponger) && c.MasterEndpoint.Address == "" {
		return errNoMaster
	}

	if c.Ponger.PortRangeMin <= 0 || c.Ponger.PortRangeMax <= c.Ponger.PortRangeMin {
		return fmt.Errorf("%w: [%d, %d)", errPortRange, c.Ponger.PortRangeMin, c.Ponger.PortRangeMax)
	}

	if c.Master.SegmentPrefixLen < 1 || c.Master.SegmentPrefixLen > 32 {
		return errPrefixLen
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.APIPort == 0 {
		c.APIPort = defaultAPIPort
	}

	if c.APIProtocol == "" {
		c.APIProtocol = defaultAPIProtocol
	}

	if c.MaxConnections == 0 {
		c.MaxConnections = defaultMaxConnections
	}

	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = Duration(defaultHeartbeat)
	}

	setDuration(&c.Retention, defaultRetention)

	if c.MasterEndpoint.Port == 0 {
		c.MasterEndpoint.Port = defaultAPIPort
	}

	if c.MasterEndpoint.Protocol == "" {
		c.MasterEndpoint.Protocol = defaultAPIProtocol
	}

	c.Master.applyDefaults()
	c.Pinger.applyDefaults()
	c.Ponger.applyDefaults()
}

func (m *MasterConfig) applyDefaults() {
	setDuration(&m.IterationInterval, defaultIterationInterval)
	setDuration(&m.FinishOldInterval, defaultFinishOldInterval)
	setDuration(&m.IterationTimeout, defaultIterationTimeout)
	setDuration(&m.DoneCheckInterval, defaultDoneCheckInterval)
	setDuration(&m.StaleNodeAge, defaultStaleNodeAge)
	setDuration(&m.SweepInterval, defaultSweepInterval)
	setDuration(&m.GraphCacheTTL, defaultGraphCacheTTL)

	if m.ProbeCount <= 0 {
		m.ProbeCount = defaultProbeCount
	}

	if m.SegmentPrefixLen == 0 {
		m.SegmentPrefixLen = defaultSegmentPrefixLen
	}
}

func (p *PingerConfig) applyDefaults() {
	setDuration(&p.DiscoveryTimeLimit, defaultDiscoveryTimeLimit)
	setDuration(&p.MeasureTimeLimit, defaultMeasureTimeLimit)
	setDuration(&p.MeasureBackoff, defaultMeasureBackoff)
	setDuration(&p.ProbeBackoff, defaultProbeBackoff)

	if p.SrcPortStart == 0 {
		p.SrcPortStart = defaultSrcPortStart
	}

	if p.MeasureAttempts <= 0 {
		p.MeasureAttempts = defaultMeasureAttempts
	}

	if p.ProbeAttempts <= 0 {
		p.ProbeAttempts = defaultProbeAttempts
	}

	if p.Concurrency <= 0 {
		p.Concurrency = defaultConcurrency
	}

	if p.TracerouteBinary == "" {
		p.TracerouteBinary = defaultTracerouteBinary
	}

	if p.TracerouteDelay == 0 {
		p.TracerouteDelay = defaultTracerouteDelay
	}

	if p.IperfClientScript == "" {
		p.IperfClientScript = defaultIperfClientScript
	}
}

func (p *PongerConfig) applyDefaults() {
	setDuration(&p.ServerLifetime, defaultServerLifetime)
	setDuration(&p.ServerGrace, defaultServerGrace)

	if p.PortRangeMin == 0 {
		p.PortRangeMin = defaultPortRangeMin
	}

	if p.PortRangeMax == 0 {
		p.PortRangeMax = defaultPortRangeMax
	}

	if p.ServerScript == "" {
		p.ServerScript = defaultServerScript
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}
