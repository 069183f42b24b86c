package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type spawnFunc func(name string, args ...string) (exited <-chan struct{}, err error)

// IperfServerLauncher runs an iperf3 server, or a wrapper script taking the
// port as its only argument, under timeout(1) so it cannot outlive Lifetime.
type IperfServerLauncher struct {
	Binary   string
	Lifetime time.Duration
	Grace    time.Duration
	Runner   Runner

	spawn spawnFunc
	kill  func(pid int) error
}

func NewIperfServerLauncher(binary string, lifetime, grace time.Duration) *IperfServerLauncher {
	return &IperfServerLauncher{
		Binary:   binary,
		Lifetime: lifetime,
		Grace:    grace,
		Runner:   OSRunner{},
		spawn:    spawnProcess,
		kill:     killProcess,
	}
}

// Start kills whatever holds port, spawns a fresh server and checks it is
// still running after the grace period.
func (l *IperfServerLauncher) Start(ctx context.Context, port int) error {
	l.killHolders(ctx, port)

	args := []string{strconv.Itoa(int(l.Lifetime.Seconds())), l.Binary}
	if filepath.Base(l.Binary) == "iperf3" {
		args = append(args, "-s", "-p", strconv.Itoa(port))
	} else {
		args = append(args, strconv.Itoa(port))
	}

	exited, err := l.spawn("timeout", args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerSpawnFail, err)
	}

	timer := time.NewTimer(l.Grace)
	defer timer.Stop()

	select {
	case <-exited:
		return fmt.Errorf("%w: port %d", ErrServerNotAlive, port)
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	// The grace timer and process exit can race; check once more.
	select {
	case <-exited:
		return fmt.Errorf("%w: port %d", ErrServerNotAlive, port)
	default:
	}

	log.Info("measurement server started", "port", port)

	return nil
}

func (l *IperfServerLauncher) killHolders(ctx context.Context, port int) {
	// lsof exits non-zero when nothing holds the port.
	out, err := l.Runner.Output(ctx, "lsof", "-t", "-i:"+strconv.Itoa(port))
	if err != nil && len(out) == 0 {
		return
	}

	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			continue
		}

		if err := l.kill(pid); err != nil {
			log.Warn("could not kill port holder", "port", port, "pid", pid, "error", err)

			continue
		}

		log.Debug("killed port holder", "port", port, "pid", pid)
	}
}

func spawnProcess(name string, args ...string) (<-chan struct{}, error) {
	// The server must outlive the request that started it, so no context.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	exited := make(chan struct{})

	go func() {
		err := cmd.Wait()
		log.Debug("measurement server exited", "pid", cmd.Process.Pid, "error", err)
		close(exited)
	}()

	return exited, nil
}

func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return p.Kill()
}
