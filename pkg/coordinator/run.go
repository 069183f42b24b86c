package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/memoryless"
	"github.com/m-lab/go/rtx"
)

// Run schedules iteration creation around the configured interval, the
// timeout sweep and the periodic done check until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.IterationInterval)

	create, err := memoryless.NewTicker(ctx, memoryless.Config{
		Min:      interval / 2,
		Expected: interval,
		Max:      2 * interval,
	})
	rtx.PanicOnError(err, "iteration ticker creation failed (this should never happen)")

	defer create.Stop()

	finishOld := c.clock.Ticker(time.Duration(c.cfg.FinishOldInterval))
	defer finishOld.Stop()

	doneCheck := c.clock.Ticker(time.Duration(c.cfg.DoneCheckInterval))
	defer doneCheck.Stop()

	log.Info("coordinator started", "iteration_interval", interval,
		"iteration_timeout", time.Duration(c.cfg.IterationTimeout))

	for {
		select {
		case <-ctx.Done():
			log.Info("coordinator stopped")
			c.Wait()

			return
		case <-create.C:
			if _, err := c.CreateIteration(ctx); err != nil {
				if errors.Is(err, ErrIterationInProgress) {
					log.Debug("skipping scheduled iteration, previous one still open")

					continue
				}

				log.Error("scheduled iteration failed", "error", err)
			}
		case <-finishOld.C:
			if _, err := c.FinishOldIterations(ctx); err != nil {
				log.Error("finishing old iterations failed", "error", err)
			}
		case <-doneCheck.C:
			c.checkOpen(ctx)
		}
	}
}

func (c *Coordinator) checkOpen(ctx context.Context) {
	open, err := c.store.OpenMasterIterations(ctx)
	if err != nil {
		log.Error("listing open iterations failed", "error", err)

		return
	}

	for _, it := range open {
		p, err := c.CheckDone(ctx, it.ID)
		if err != nil {
			log.Error("done check failed", "iteration", it.ID, "error", err)

			continue
		}

		log.Debug("iteration progress", "iteration", it.ID, "count", p.Count, "total", p.Total)
	}
}
