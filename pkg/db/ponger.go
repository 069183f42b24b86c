package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AllocatePort returns the measurement port assigned to requester. The first
// call picks the lowest port in [minPort, maxPort) not held by another
// requester and persists it; later calls return the same port.
func (db *DB) AllocatePort(ctx context.Context, requester string, minPort, maxPort int) (port int, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := db.begin(ctx)
	if err != nil {
		return 0, err
	}

	defer func() { rollbackOnError(tx, err) }()

	err = tx.QueryRowContext(ctx, `SELECT port FROM allocated_pinger_ports WHERE address = ?`, requester).Scan(&port)
	if err == nil {
		return port, tx.Commit()
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}

	used, err := usedPorts(ctx, tx, minPort, maxPort)
	if err != nil {
		return 0, err
	}

	port = 0

	for p := minPort; p < maxPort; p++ {
		if !used[p] {
			port = p

			break
		}
	}

	if port == 0 {
		err = fmt.Errorf("%w: [%d, %d)", ErrNoFreePort, minPort, maxPort)

		return 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO allocated_pinger_ports (address, port) VALUES (?, ?)`, requester, port); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return port, nil
}

func usedPorts(ctx context.Context, tx *sql.Tx, minPort, maxPort int) (map[int]bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT port FROM allocated_pinger_ports WHERE port >= ? AND port < ?`, minPort, maxPort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	used := make(map[int]bool)

	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		used[p] = true
	}

	return used, rows.Err()
}
