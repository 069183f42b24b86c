// Package db pkg/db/db.go provides SQLite storage for piponger nodes.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dbOperationTimeout = 5 * time.Second

	// SQL statements for database initialization.
	createTablesSQL = `
	-- Node registry, one pool per role
	CREATE TABLE IF NOT EXISTS registered_pinger_nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		api_port INTEGER NOT NULL,
		api_protocol TEXT NOT NULL,
		created_date TIMESTAMP NOT NULL,
		last_updated TIMESTAMP,
		UNIQUE(address, api_port)
	);

	CREATE TABLE IF NOT EXISTS registered_ponger_nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		api_port INTEGER NOT NULL,
		api_protocol TEXT NOT NULL,
		created_date TIMESTAMP NOT NULL,
		last_updated TIMESTAMP,
		UNIQUE(address, api_port)
	);

	-- Coordinator side
	CREATE TABLE IF NOT EXISTS master_iterations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		graph TEXT
	);

	CREATE TABLE IF NOT EXISTS master_iteration_pingers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		master_iteration_id INTEGER NOT NULL,
		pinger_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		result TEXT,
		created_date TIMESTAMP NOT NULL,
		last_updated TIMESTAMP NOT NULL,
		UNIQUE(master_iteration_id, pinger_id),
		FOREIGN KEY (master_iteration_id) REFERENCES master_iterations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS master_iteration_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		master_iteration_id INTEGER NOT NULL,
		segment TEXT NOT NULL,
		score REAL NOT NULL,
		created_date TIMESTAMP NOT NULL,
		FOREIGN KEY (master_iteration_id) REFERENCES master_iterations(id) ON DELETE CASCADE
	);

	-- Pinger side
	CREATE TABLE IF NOT EXISTS pinger_iterations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		remote_id INTEGER NOT NULL UNIQUE,
		remote_address TEXT NOT NULL,
		probe_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS targets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iteration_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		api_port INTEGER NOT NULL,
		api_protocol TEXT NOT NULL,
		FOREIGN KEY (iteration_id) REFERENCES pinger_iterations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS port_reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id INTEGER NOT NULL,
		dst_port INTEGER NOT NULL,
		src_port_min INTEGER NOT NULL,
		src_port_max INTEGER NOT NULL,
		FOREIGN KEY (target_id) REFERENCES targets(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS traces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iteration_id INTEGER NOT NULL,
		reservation_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		raw_result TEXT,
		created_date TIMESTAMP NOT NULL,
		FOREIGN KEY (iteration_id) REFERENCES pinger_iterations(id) ON DELETE CASCADE,
		FOREIGN KEY (reservation_id) REFERENCES port_reservations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS throughput_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iteration_id INTEGER NOT NULL,
		reservation_id INTEGER NOT NULL,
		src_port INTEGER NOT NULL,
		status TEXT NOT NULL,
		raw_result TEXT,
		created_date TIMESTAMP NOT NULL,
		FOREIGN KEY (iteration_id) REFERENCES pinger_iterations(id) ON DELETE CASCADE,
		FOREIGN KEY (reservation_id) REFERENCES port_reservations(id) ON DELETE CASCADE
	);

	-- Ponger side
	CREATE TABLE IF NOT EXISTS allocated_pinger_ports (
		address TEXT PRIMARY KEY,
		port INTEGER NOT NULL UNIQUE
	);

	-- Indexes for better query performance
	CREATE INDEX IF NOT EXISTS idx_master_iterations_status
		ON master_iterations(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_iteration
		ON master_iteration_pingers(master_iteration_id, status);
	CREATE INDEX IF NOT EXISTS idx_results_iteration
		ON master_iteration_results(master_iteration_id);
	CREATE INDEX IF NOT EXISTS idx_targets_iteration
		ON targets(iteration_id);
	CREATE INDEX IF NOT EXISTS idx_traces_reservation
		ON traces(reservation_id, status);
	CREATE INDEX IF NOT EXISTS idx_runs_iteration
		ON throughput_runs(iteration_id, status);
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

// New opens the database at dbPath and initializes the schema.
func New(dbPath string) (Service, error) {
	return open(dbPath)
}

func open(dbPath string) (*DB, error) {
	// foreign_keys is a per-connection pragma, so it goes in the DSN.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// A single connection serializes writers; every multi-statement change
	// runs in its own transaction.
	sqlDB.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	_, err := db.Exec(createTablesSQL)

	return err
}

func (db *DB) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	return tx, nil
}

func rollbackOnError(tx *sql.Tx, err error) {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("Error rolling back transaction", "error", rbErr)
		}
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, dbOperationTimeout)
}

// changed reports whether a conditional statement touched at least one row.
func changed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
