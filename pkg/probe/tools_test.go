package probe

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iperfJSON = `{
	"start": {},
	"end": {
		"sum": {"seconds": 10.0, "bytes": 1310720, "bits_per_second": 1048576.5, "lost_percent": 12.5},
		"cpu_utilization_percent": {"host_total": 1.2, "host_user": 0.7, "host_system": 0.5, "remote_total": 3.4}
	}
}`

func TestParseThroughput(t *testing.T) {
	got, err := ParseThroughput([]byte(iperfJSON))
	require.NoError(t, err)

	assert.InDelta(t, 10.0, got.Seconds, 1e-9)
	assert.Equal(t, int64(1310720), got.Bytes)
	assert.InDelta(t, 1048576.5, got.BitsPerSecond, 1e-9)
	assert.InDelta(t, 12.5, got.LostPercent, 1e-9)
	require.NotNil(t, got.CPUUtilizationPercent)
	assert.Equal(t, CPUUtilization{HostTotal: 1.2, HostUser: 0.7, HostSystem: 0.5, RemoteTotal: 3.4},
		*got.CPUUtilizationPercent)
}

func TestParseThroughputRejects(t *testing.T) {
	_, err := ParseThroughput([]byte(`{"end": {"sum": {"seconds": 1}}}`))
	require.ErrorIs(t, err, ErrNoLossMetric)

	_, err = ParseThroughput([]byte(`iperf3: error - unable to connect`))
	require.ErrorIs(t, err, ErrInvalidIperf)
}

// fakeRunner records invocations and answers from a handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	handler func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	return f.handler(name, args)
}

func TestIperfClientArgs(t *testing.T) {
	r := &fakeRunner{handler: func(string, []string) ([]byte, error) { return []byte(iperfJSON), nil }}

	c := &IperfClient{Binary: "/usr/bin/iperf3", Runner: r}
	_, err := c.Run(context.Background(), "10.0.3.10", 50000, 40001)
	require.NoError(t, err)

	wrapper := &IperfClient{Binary: "/opt/piponger/iperf_client.sh", Runner: r}
	_, err = wrapper.Run(context.Background(), "10.0.3.10", 50000, 40001)
	require.NoError(t, err)

	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"/usr/bin/iperf3", "-c", "10.0.3.10", "-p", "50000", "--cport", "40001", "-u", "-J"}, r.calls[0])
	assert.Equal(t, []string{"/opt/piponger/iperf_client.sh", "10.0.3.10", "50000", "40001"}, r.calls[1])
}

func TestDublinTracerReadsOutputFile(t *testing.T) {
	r := &fakeRunner{handler: func(_ string, args []string) ([]byte, error) {
		for _, a := range args {
			if path, ok := strings.CutPrefix(a, "--output-file="); ok {
				return nil, os.WriteFile(path, []byte(`{"flows":{"40000":[]}}`), 0o600)
			}
		}

		return nil, errors.New("no output file argument")
	}}

	tr := &DublinTracer{Binary: "dublin-traceroute", Runner: r, TempDir: t.TempDir()}

	raw, err := tr.Trace(context.Background(), TraceRequest{
		Target: "10.0.3.10", SrcPortMin: 40000, SrcPortMax: 40003, DstPort: 50000, Delay: 25,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"flows":{"40000":[]}}`, string(raw))

	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0], "--npaths=3")
	assert.Contains(t, r.calls[0], "--sport=40000")
	assert.Contains(t, r.calls[0], "--use-srcport")
	assert.Equal(t, "10.0.3.10", r.calls[0][len(r.calls[0])-1])
}

func TestDublinTracerToolFailure(t *testing.T) {
	r := &fakeRunner{handler: func(string, []string) ([]byte, error) {
		return nil, ErrToolFailed
	}}

	tr := &DublinTracer{Binary: "dublin-traceroute", Runner: r, TempDir: t.TempDir()}

	_, err := tr.Trace(context.Background(), TraceRequest{Target: "10.0.3.10"})
	require.ErrorIs(t, err, ErrToolFailed)
}

func TestServerLauncherStart(t *testing.T) {
	var killed []int

	r := &fakeRunner{handler: func(name string, _ []string) ([]byte, error) {
		return []byte("1234\n5678\n"), nil
	}}

	var spawned []string

	l := &IperfServerLauncher{
		Binary:   "iperf3",
		Lifetime: 6000 * time.Second,
		Grace:    10 * time.Millisecond,
		Runner:   r,
		spawn: func(name string, args ...string) (<-chan struct{}, error) {
			spawned = append([]string{name}, args...)

			return make(chan struct{}), nil
		},
		kill: func(pid int) error {
			killed = append(killed, pid)

			return nil
		},
	}

	require.NoError(t, l.Start(context.Background(), 50001))

	assert.Equal(t, []int{1234, 5678}, killed)
	assert.Equal(t, []string{"timeout", "6000", "iperf3", "-s", "-p", "50001"}, spawned)
	assert.Equal(t, []string{"lsof", "-t", "-i:50001"}, r.calls[0])
}

func TestServerLauncherDetectsEarlyExit(t *testing.T) {
	r := &fakeRunner{handler: func(string, []string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}}

	l := &IperfServerLauncher{
		Binary:   "iperf3",
		Lifetime: time.Minute,
		Grace:    time.Second,
		Runner:   r,
		spawn: func(string, ...string) (<-chan struct{}, error) {
			exited := make(chan struct{})
			close(exited)

			return exited, nil
		},
		kill: func(int) error { return nil },
	}

	require.ErrorIs(t, l.Start(context.Background(), 50001), ErrServerNotAlive)
}
