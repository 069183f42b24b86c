package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultWaitDelay = 5 * time.Second

// OSRunner executes commands on the host via os/exec. Once ctx is done and
// the command killed, its output pipes are closed after WaitDelay even when a
// child process still holds them.
type OSRunner struct {
	WaitDelay time.Duration
}

func (r OSRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s: %w: %s", ErrToolFailed, name, err, msg)
		}

		return stdout.Bytes(), fmt.Errorf("%w: %s: %w", ErrToolFailed, name, err)
	}

	return stdout.Bytes(), nil
}
