package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/piponger/pkg/models"
)

// CreatePingerIteration stores a new local iteration in CREATED state with
// its targets. A remote id that was already used yields ErrDuplicateRemoteID
// and nothing is written.
func (db *DB) CreatePingerIteration(
	ctx context.Context, it *models.PingerIteration, targets []models.Target) (out *models.PingerIteration, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.begin(ctx)
	if err != nil {
		return nil, err
	}

	defer func() { rollbackOnError(tx, err) }()

	var existing int

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pinger_iterations WHERE remote_id = ?`, it.RemoteID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	if existing > 0 {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateRemoteID, it.RemoteID)
	}

	created := it.CreatedDate.UTC()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO pinger_iterations (created_date, status, remote_id, remote_address, probe_count)
		VALUES (?, ?, ?, ?, ?)`,
		created, models.StatusCreated, it.RemoteID, it.RemoteAddress, it.ProbeCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	for _, t := range targets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO targets (iteration_id, address, api_port, api_protocol)
			VALUES (?, ?, ?, ?)`, id, t.Address, t.APIPort, t.APIProtocol)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &models.PingerIteration{
		ID:            id,
		Status:        models.StatusCreated,
		RemoteID:      it.RemoteID,
		RemoteAddress: it.RemoteAddress,
		ProbeCount:    it.ProbeCount,
		CreatedDate:   created,
	}, nil
}

func (db *DB) GetPingerIteration(ctx context.Context, id int64) (*models.PingerIteration, error) {
	var it models.PingerIteration

	err := db.QueryRowContext(ctx, `
		SELECT id, created_date, status, remote_id, remote_address, probe_count
		FROM pinger_iterations WHERE id = ?`, id).
		Scan(&it.ID, &it.CreatedDate, &it.Status, &it.RemoteID, &it.RemoteAddress, &it.ProbeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pinger iteration %d", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return &it, nil
}

// TransitionPingerIteration sets the status to `to`. With `from` given, the
// update only applies when the current status is one of them, and the result
// reports whether it applied.
func (db *DB) TransitionPingerIteration(
	ctx context.Context, id int64, to models.IterationStatus, from ...models.IterationStatus) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE pinger_iterations SET status = ? WHERE id = ?`
	args := []interface{}{to, id}

	if len(from) > 0 {
		query += ` AND status IN (?` + strings.Repeat(", ?", len(from)-1) + `)`

		for _, s := range from {
			args = append(args, s)
		}
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFailedToUpdate, err)
	}

	return changed(res)
}

// DeletePingerIteration removes the iteration and everything it owns.
func (db *DB) DeletePingerIteration(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, `DELETE FROM pinger_iterations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDelete, err)
	}

	return nil
}

func (db *DB) ListTargets(ctx context.Context, iterationID int64) ([]models.Target, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, iteration_id, address, api_port, api_protocol
		FROM targets WHERE iteration_id = ? ORDER BY id`, iterationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var out []models.Target

	for rows.Next() {
		var t models.Target
		if err := rows.Scan(&t.ID, &t.IterationID, &t.Address, &t.APIPort, &t.APIProtocol); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

func (db *DB) CreateReservation(ctx context.Context, r *models.PortReservation) (*models.PortReservation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, `
		INSERT INTO port_reservations (target_id, dst_port, src_port_min, src_port_max)
		VALUES (?, ?, ?, ?)`, r.TargetID, r.DstPort, r.SrcPortMin, r.SrcPortMax)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	out := *r
	out.ID = id

	return &out, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.PortReservation, error) {
	var r models.PortReservation

	err := db.QueryRowContext(ctx, `
		SELECT id, target_id, dst_port, src_port_min, src_port_max
		FROM port_reservations WHERE id = ?`, id).
		Scan(&r.ID, &r.TargetID, &r.DstPort, &r.SrcPortMin, &r.SrcPortMax)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return &r, nil
}

func (db *DB) CreateTrace(ctx context.Context, iterationID, reservationID int64, now time.Time) (*models.Trace, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, `
		INSERT INTO traces (iteration_id, reservation_id, status, created_date)
		VALUES (?, ?, ?, ?)`, iterationID, reservationID, models.TaskPending, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return &models.Trace{
		ID:            id,
		IterationID:   iterationID,
		ReservationID: reservationID,
		Status:        models.TaskPending,
		CreatedDate:   now.UTC(),
	}, nil
}

const traceColumns = `t.id, t.iteration_id, t.reservation_id, t.status, t.raw_result, t.created_date`

func (db *DB) ListTraces(ctx context.Context, iterationID int64) ([]models.Trace, error) {
	return db.queryTraces(ctx,
		`SELECT `+traceColumns+` FROM traces t WHERE t.iteration_id = ? ORDER BY t.id`, iterationID)
}

// TracesForTarget returns the traces of every reservation owned by targetID.
func (db *DB) TracesForTarget(ctx context.Context, targetID int64) ([]models.Trace, error) {
	return db.queryTraces(ctx, `
		SELECT `+traceColumns+`
		FROM traces t JOIN port_reservations r ON r.id = t.reservation_id
		WHERE r.target_id = ? ORDER BY t.id`, targetID)
}

func (db *DB) queryTraces(ctx context.Context, query string, args ...interface{}) ([]models.Trace, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var out []models.Trace

	for rows.Next() {
		var (
			t   models.Trace
			raw sql.NullString
		)

		if err := rows.Scan(&t.ID, &t.IterationID, &t.ReservationID, &t.Status, &raw, &t.CreatedDate); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		t.RawResult = nullString(raw)
		out = append(out, t)
	}

	return out, rows.Err()
}

func (db *DB) UpdateTrace(ctx context.Context, id int64, status models.TaskStatus, raw string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var err error

	if raw == "" {
		_, err = db.ExecContext(ctx, `UPDATE traces SET status = ? WHERE id = ?`, status, id)
	} else {
		_, err = db.ExecContext(ctx, `UPDATE traces SET status = ?, raw_result = ? WHERE id = ?`, status, raw, id)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToUpdate, err)
	}

	return nil
}

func (db *DB) CreateThroughputRun(
	ctx context.Context, iterationID, reservationID int64, srcPort int, now time.Time) (*models.ThroughputRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, `
		INSERT INTO throughput_runs (iteration_id, reservation_id, src_port, status, created_date)
		VALUES (?, ?, ?, ?, ?)`, iterationID, reservationID, srcPort, models.TaskPending, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return &models.ThroughputRun{
		ID:            id,
		IterationID:   iterationID,
		ReservationID: reservationID,
		SrcPort:       srcPort,
		Status:        models.TaskPending,
		CreatedDate:   now.UTC(),
	}, nil
}

const runColumns = `u.id, u.iteration_id, u.reservation_id, u.src_port, u.status, u.raw_result, u.created_date`

// RunsForTarget returns the throughput runs of every reservation owned by
// targetID.
func (db *DB) RunsForTarget(ctx context.Context, targetID int64) ([]models.ThroughputRun, error) {
	return db.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM throughput_runs u JOIN port_reservations r ON r.id = u.reservation_id
		WHERE r.target_id = ? ORDER BY u.id`, targetID)
}

// ListThroughputRuns returns an iteration's runs, optionally filtered by status.
func (db *DB) ListThroughputRuns(
	ctx context.Context, iterationID int64, status models.TaskStatus) ([]models.ThroughputRun, error) {
	if status == "" {
		return db.queryRuns(ctx,
			`SELECT `+runColumns+` FROM throughput_runs u WHERE u.iteration_id = ? ORDER BY u.id`, iterationID)
	}

	return db.queryRuns(ctx, `
		SELECT `+runColumns+` FROM throughput_runs u
		WHERE u.iteration_id = ? AND u.status = ? ORDER BY u.id`, iterationID, status)
}

func (db *DB) queryRuns(ctx context.Context, query string, args ...interface{}) ([]models.ThroughputRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var out []models.ThroughputRun

	for rows.Next() {
		var (
			u   models.ThroughputRun
			raw sql.NullString
		)

		if err := rows.Scan(&u.ID, &u.IterationID, &u.ReservationID, &u.SrcPort, &u.Status,
			&raw, &u.CreatedDate); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		u.RawResult = nullString(raw)
		out = append(out, u)
	}

	return out, rows.Err()
}

func (db *DB) UpdateThroughputRun(ctx context.Context, id int64, status models.TaskStatus, raw string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var err error

	if raw == "" {
		_, err = db.ExecContext(ctx, `UPDATE throughput_runs SET status = ? WHERE id = ?`, status, id)
	} else {
		_, err = db.ExecContext(ctx,
			`UPDATE throughput_runs SET status = ?, raw_result = ? WHERE id = ?`, status, raw, id)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToUpdate, err)
	}

	return nil
}
