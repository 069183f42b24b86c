// Package barrier runs a fan-out of independent units and a single
// continuation once every unit has finished, whatever its outcome.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/piponger/pkg/metrics"
)

var (
	ErrUnitPanicked = errors.New("unit panicked")
	ErrUnitTimeout  = errors.New("unit exceeded its time limit")
)

// Unit is one piece of fanned-out work. A unit still running at its time
// limit is abandoned: the barrier stops waiting for it, and ctx is cancelled
// so the unit can clean up on its own.
type Unit struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome is the result of one unit.
type Outcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

// TimedOut reports whether the unit hit its time limit.
func (o Outcome) TimedOut() bool {
	return errors.Is(o.Err, ErrUnitTimeout)
}

// Options bound a barrier run.
type Options struct {
	// Limit is the per-unit wall-clock limit. Zero means no limit.
	Limit time.Duration
	// Concurrency caps the units running at once. Zero means unbounded.
	Concurrency int
}

// Continuation runs once after every unit finished.
type Continuation func(ctx context.Context, outcomes []Outcome)

// Run starts every unit, waits for all of them and then calls next exactly
// once with the outcomes in unit order. A unit that fails, panics or runs out
// of time is still counted, so the barrier always completes. With no units
// next runs immediately.
func Run(ctx context.Context, name string, units []Unit, opts Options, next Continuation) []Outcome {
	outcomes := make([]Outcome, len(units))

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, u := range units {
		g.Go(func() error {
			outcomes[i] = runUnit(ctx, name, u, opts.Limit)

			return nil
		})
	}

	// Units never return errors to the group, only to their outcome.
	_ = g.Wait()

	failed := 0

	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}

	log.Info("barrier complete", "barrier", name, "units", len(units), "failed", failed)

	if next != nil {
		next(ctx, outcomes)
	}

	return outcomes
}

func runUnit(ctx context.Context, barrier string, u Unit, limit time.Duration) Outcome {
	start := time.Now()
	unitCtx := ctx

	if limit > 0 {
		var cancel context.CancelFunc

		unitCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	done := make(chan error, 1)

	metrics.BarrierUnitsInFlight.WithLabelValues(barrier).Inc()

	go func() {
		defer metrics.BarrierUnitsInFlight.WithLabelValues(barrier).Dec()

		done <- call(unitCtx, barrier, u)
	}()

	var err error

	select {
	case err = <-done:
	case <-unitCtx.Done():
		select {
		case err = <-done:
		default:
			err = unitCtx.Err()

			log.Warn("abandoned a unit still running", "barrier", barrier, "unit", u.Name, "error", err)
		}
	}

	if limit > 0 && errors.Is(unitCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrUnitPanicked) {
		err = fmt.Errorf("%w: %s after %s", ErrUnitTimeout, u.Name, limit)
	}

	o := Outcome{Name: u.Name, Err: err, Duration: time.Since(start)}
	metrics.BarrierUnits.WithLabelValues(barrier, outcomeLabel(o)).Inc()

	return o
}

func call(ctx context.Context, barrier string, u Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered a crashed unit", "barrier", barrier, "unit", u.Name, "panic", r)
			err = fmt.Errorf("%w: %v", ErrUnitPanicked, r)
		}
	}()

	return u.Run(ctx)
}

func outcomeLabel(o Outcome) string {
	switch {
	case o.Err == nil:
		return "success"
	case errors.Is(o.Err, ErrUnitPanicked):
		return "panic"
	case o.TimedOut():
		return "timeout"
	default:
		return "failure"
	}
}
