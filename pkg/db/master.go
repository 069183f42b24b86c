package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/piponger/pkg/models"
)

const masterIterationColumns = `id, created_date, status, graph`

// CreateMasterIteration opens a new iteration without sessions. It fails with
// ErrOpenIterationExists while another iteration is not FINISHED.
func (db *DB) CreateMasterIteration(ctx context.Context, now time.Time) (*models.MasterIteration, error) {
	it, _, err := db.CreateMasterIterationWithSessions(ctx, now, nil)

	return it, err
}

// CreateMasterIterationWithSessions opens a new iteration together with a
// RUNNING session for every pinger in one transaction, so a done check never
// sees the iteration before its sessions exist.
func (db *DB) CreateMasterIterationWithSessions(
	ctx context.Context, now time.Time, pingerIDs []int64) (it *models.MasterIteration, sessions []models.Session, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.begin(ctx)
	if err != nil {
		return nil, nil, err
	}

	defer func() { rollbackOnError(tx, err) }()

	var open int

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM master_iterations WHERE status <> ?`, models.StatusFinished).Scan(&open)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	if open > 0 {
		err = ErrOpenIterationExists

		return nil, nil, err
	}

	now = now.UTC()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO master_iterations (created_date, status) VALUES (?, ?)`, now, models.StatusCreated)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	sessions = make([]models.Session, 0, len(pingerIDs))

	for _, pingerID := range pingerIDs {
		var s *models.Session

		s, err = insertSession(ctx, tx, id, pingerID, now)
		if err != nil {
			return nil, nil, err
		}

		sessions = append(sessions, *s)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}

	return &models.MasterIteration{ID: id, CreatedDate: now, Status: models.StatusCreated}, sessions, nil
}

func (db *DB) GetMasterIteration(ctx context.Context, id int64) (*models.MasterIteration, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+masterIterationColumns+` FROM master_iterations WHERE id = ?`, id)

	it, err := scanMasterIteration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: master iteration %d", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return it, nil
}

// RecentMasterIterations returns up to limit iterations, newest first.
func (db *DB) RecentMasterIterations(ctx context.Context, limit int) ([]models.MasterIteration, error) {
	return db.queryMasterIterations(ctx,
		`SELECT `+masterIterationColumns+` FROM master_iterations ORDER BY id DESC LIMIT ?`, limit)
}

// OpenMasterIterations returns every iteration that is not FINISHED.
func (db *DB) OpenMasterIterations(ctx context.Context) ([]models.MasterIteration, error) {
	return db.queryMasterIterations(ctx,
		`SELECT `+masterIterationColumns+` FROM master_iterations WHERE status <> ? ORDER BY id`,
		models.StatusFinished)
}

func (db *DB) queryMasterIterations(ctx context.Context, query string, args ...interface{}) ([]models.MasterIteration, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var out []models.MasterIteration

	for rows.Next() {
		it, err := scanMasterIteration(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, *it)
	}

	return out, rows.Err()
}

// FinishMasterIteration moves the iteration to FINISHED. It reports true only
// for the call that performed the transition.
func (db *DB) FinishMasterIteration(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx,
		`UPDATE master_iterations SET status = ? WHERE id = ? AND status <> ?`,
		models.StatusFinished, id, models.StatusFinished)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFailedToUpdate, err)
	}

	return changed(res)
}

func (db *DB) SetIterationGraph(ctx context.Context, id int64, graph string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, `UPDATE master_iterations SET graph = ? WHERE id = ?`, graph, id); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToUpdate, err)
	}

	return nil
}

// DeleteMasterIteration removes an iteration with its sessions and findings.
func (db *DB) DeleteMasterIteration(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, `DELETE FROM master_iterations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDelete, err)
	}

	return nil
}

func (db *DB) CreateSession(ctx context.Context, iterationID, pingerID int64, now time.Time) (*models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return insertSession(ctx, db.DB, iterationID, pingerID, now.UTC())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, ex execer, iterationID, pingerID int64, now time.Time) (*models.Session, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO master_iteration_pingers
			(master_iteration_id, pinger_id, status, created_date, last_updated)
		VALUES (?, ?, ?, ?, ?)`, iterationID, pingerID, models.StatusRunning, now, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return &models.Session{
		ID:                id,
		MasterIterationID: iterationID,
		PingerID:          pingerID,
		Status:            models.StatusRunning,
		CreatedDate:       now,
		LastUpdated:       now,
	}, nil
}

func (db *DB) GetSession(ctx context.Context, iterationID, pingerID int64) (*models.Session, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, master_iteration_id, pinger_id, status, result, created_date, last_updated
		FROM master_iteration_pingers WHERE master_iteration_id = ? AND pinger_id = ?`,
		iterationID, pingerID)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session for iteration %d pinger %d", ErrNotFound, iterationID, pingerID)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return s, nil
}

// FinishSession stores the result and moves a RUNNING session to FINISHED.
// It reports false, without writing, when the session was already finished.
func (db *DB) FinishSession(ctx context.Context, id int64, result string, now time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, `
		UPDATE master_iteration_pingers
		SET status = ?, result = ?, last_updated = ?
		WHERE id = ? AND status = ?`,
		models.StatusFinished, result, now.UTC(), id, models.StatusRunning)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFailedToUpdate, err)
	}

	return changed(res)
}

func (db *DB) CountSessions(ctx context.Context, iterationID int64) (finished, total int, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM master_iteration_pingers WHERE master_iteration_id = ?`,
		models.StatusFinished, iterationID).Scan(&total, &finished)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	return finished, total, nil
}

func (db *DB) FinishedSessions(ctx context.Context, iterationID int64) ([]models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, master_iteration_id, pinger_id, status, result, created_date, last_updated
		FROM master_iteration_pingers WHERE master_iteration_id = ? AND status = ? ORDER BY id`,
		iterationID, models.StatusFinished)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var out []models.Session

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, *s)
	}

	return out, rows.Err()
}

// AddFindings appends the flagged segments of an iteration.
func (db *DB) AddFindings(ctx context.Context, iterationID int64, findings []models.Finding) (err error) {
	if len(findings) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.begin(ctx)
	if err != nil {
		return err
	}

	defer func() { rollbackOnError(tx, err) }()

	for _, f := range findings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO master_iteration_results (master_iteration_id, segment, score, created_date)
			VALUES (?, ?, ?, ?)`, iterationID, f.Segment, f.Score, f.CreatedDate.UTC())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
		}
	}

	return tx.Commit()
}

func (db *DB) ListFindings(ctx context.Context, iterationID int64) ([]models.Finding, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, master_iteration_id, segment, score, created_date
		FROM master_iteration_results WHERE master_iteration_id = ? ORDER BY score DESC, id`, iterationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var out []models.Finding

	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.IterationID, &f.Segment, &f.Score, &f.CreatedDate); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, f)
	}

	return out, rows.Err()
}

func scanMasterIteration(s scanner) (*models.MasterIteration, error) {
	var (
		it    models.MasterIteration
		graph sql.NullString
	)

	if err := s.Scan(&it.ID, &it.CreatedDate, &it.Status, &graph); err != nil {
		return nil, err
	}

	it.Graph = nullString(graph)

	return &it, nil
}

func scanSession(s scanner) (*models.Session, error) {
	var (
		sess   models.Session
		result sql.NullString
	)

	if err := s.Scan(&sess.ID, &sess.MasterIterationID, &sess.PingerID, &sess.Status,
		&result, &sess.CreatedDate, &sess.LastUpdated); err != nil {
		return nil, err
	}

	sess.Result = nullString(result)

	return &sess, nil
}
