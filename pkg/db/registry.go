package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/piponger/pkg/models"
)

func nodeTable(role models.Role) (string, error) {
	switch role {
	case models.RolePinger:
		return "registered_pinger_nodes", nil
	case models.RolePonger:
		return "registered_ponger_nodes", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
}

// UpsertNode registers a node or refreshes its last_updated when the
// (address, api_port) pair is already known.
func (db *DB) UpsertNode(
	ctx context.Context, role models.Role, node *models.NodeRegistration) (*models.NodeRegistration, error) {
	table, err := nodeTable(role)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO ` + table + ` (address, api_port, api_protocol, created_date, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address, api_port) DO UPDATE SET
			api_protocol = excluded.api_protocol,
			last_updated = excluded.last_updated`

	now := node.CreatedDate.UTC()

	if _, err := db.ExecContext(ctx, query,
		node.Address, node.APIPort, node.APIProtocol, now, now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return db.FindNode(ctx, role, node.Address, node.APIPort)
}

// FindNode looks a node up by (address, api_port).
func (db *DB) FindNode(ctx context.Context, role models.Role, address string, port int) (*models.NodeRegistration, error) {
	table, err := nodeTable(role)
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, address, api_port, api_protocol, created_date, last_updated
		FROM `+table+` WHERE address = ? AND api_port = ?`, address, port)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s node %s:%d", ErrNotFound, role, address, port)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return n, nil
}

// ListNodes returns the whole pool for role.
func (db *DB) ListNodes(ctx context.Context, role models.Role) ([]models.NodeRegistration, error) {
	table, err := nodeTable(role)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, address, api_port, api_protocol, created_date, last_updated
		FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(rows)

	var nodes []models.NodeRegistration

	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		nodes = append(nodes, *n)
	}

	return nodes, rows.Err()
}

// DeleteStaleNodes removes nodes last seen before olderThan, or never.
func (db *DB) DeleteStaleNodes(ctx context.Context, role models.Role, olderThan time.Time) (int64, error) {
	table, err := nodeTable(role)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE last_updated IS NULL OR last_updated < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedToDelete, err)
	}

	return res.RowsAffected()
}

func scanNode(s scanner) (*models.NodeRegistration, error) {
	var (
		n           models.NodeRegistration
		lastUpdated sql.NullTime
	)

	if err := s.Scan(&n.ID, &n.Address, &n.APIPort, &n.APIProtocol, &n.CreatedDate, &lastUpdated); err != nil {
		return nil, err
	}

	if lastUpdated.Valid {
		t := lastUpdated.Time
		n.LastUpdated = &t
	}

	return &n, nil
}
