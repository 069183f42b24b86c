package db

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/models"
)

// CleanOldData deletes finished master iterations and finished or failed
// pinger iterations created before cutoff, together with everything they
// own. Open iterations are never removed.
func (db *DB) CleanOldData(ctx context.Context, cutoff time.Time) (removed int64, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.begin(ctx)
	if err != nil {
		return 0, err
	}

	defer func() { rollbackOnError(tx, err) }()

	cutoff = cutoff.UTC()

	statements := []struct {
		query string
		args  []interface{}
	}{
		{
			query: `DELETE FROM master_iterations WHERE status = ? AND created_date < ?`,
			args:  []interface{}{models.StatusFinished, cutoff},
		},
		{
			query: `DELETE FROM pinger_iterations WHERE status IN (?, ?) AND created_date < ?`,
			args:  []interface{}{models.StatusFinished, models.StatusFailed, cutoff},
		},
	}

	for _, st := range statements {
		res, execErr := tx.ExecContext(ctx, st.query, st.args...)
		if execErr != nil {
			err = fmt.Errorf("%w: %w", ErrFailedToDelete, execErr)

			return 0, err
		}

		n, nErr := res.RowsAffected()
		if nErr != nil {
			err = nErr

			return 0, err
		}

		removed += n
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	if removed > 0 {
		log.Info("cleaned old iterations", "removed", removed, "cutoff", cutoff)
	}

	return removed, nil
}
