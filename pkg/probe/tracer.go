package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
)

// DublinTracer runs dublin-traceroute, which varies the source port to pin
// each probe to one ECMP path.
type DublinTracer struct {
	Binary string
	Runner Runner
	// TempDir holds the per-trace output files. Empty means os.TempDir().
	TempDir string
}

// NewDublinTracer returns a tracer running binary through the host runner.
func NewDublinTracer(binary string) *DublinTracer {
	return &DublinTracer{Binary: binary, Runner: OSRunner{}}
}

// Trace runs one discovery and returns the JSON the tool wrote.
func (d *DublinTracer) Trace(ctx context.Context, req TraceRequest) ([]byte, error) {
	dir, err := os.MkdirTemp(d.TempDir, "dublin-")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrToolFailed, err)
	}

	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("could not remove trace directory", "dir", dir, "error", err)
		}
	}()

	out := filepath.Join(dir, "trace.json")

	args := []string{
		"--sport=" + strconv.Itoa(req.SrcPortMin),
		"--dport=" + strconv.Itoa(req.DstPort),
		"--npaths=" + strconv.Itoa(req.NPaths()),
		"--delay=" + strconv.Itoa(req.Delay),
		"--use-srcport",
		"--output-file=" + out,
		req.Target,
	}

	log.Debug("running route discovery", "binary", d.Binary, "args", args)

	if _, err := d.Runner.Output(ctx, d.Binary, args...); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrToolFailed, out, err)
	}

	return raw, nil
}
