// Package errors pkg/db/errors.go provides errors for the db package.

package db

import "errors"

var (
	// Core database errors.

	ErrDatabaseError = errors.New("database error")
	ErrNotFound      = errors.New("record not found")

	// Operation errors.

	ErrFailedToBeginTx   = errors.New("failed to begin transaction")
	ErrFailedToScan      = errors.New("failed to scan")
	ErrFailedToQuery     = errors.New("failed to query")
	ErrFailedToInsert    = errors.New("failed to insert")
	ErrFailedToUpdate    = errors.New("failed to update")
	ErrFailedToDelete    = errors.New("failed to delete")
	ErrFailedToInit      = errors.New("failed to initialize schema")
	ErrFailedToEnableWAL = errors.New("failed to enable WAL mode")
	ErrFailedOpenDB      = errors.New("failed to open database")

	// Invariant violations.

	ErrOpenIterationExists = errors.New("a non-finished iteration already exists")
	ErrDuplicateRemoteID   = errors.New("remote id already registered")
	ErrNoFreePort          = errors.New("no free port in range")
	ErrUnknownRole         = errors.New("unknown node role")
)
