// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/carverauto/piponger/pkg/models"
)

// RegistryStore holds the master's pinger and ponger pools.
type RegistryStore interface {
	UpsertNode(ctx context.Context, role models.Role, node *models.NodeRegistration) (*models.NodeRegistration, error)
	FindNode(ctx context.Context, role models.Role, address string, port int) (*models.NodeRegistration, error)
	ListNodes(ctx context.Context, role models.Role) ([]models.NodeRegistration, error)
	DeleteStaleNodes(ctx context.Context, role models.Role, olderThan time.Time) (int64, error)
}

// MasterStore holds iterations, sessions and findings.
type MasterStore interface {
	CreateMasterIteration(ctx context.Context, now time.Time) (*models.MasterIteration, error)
	CreateMasterIterationWithSessions(
		ctx context.Context, now time.Time, pingerIDs []int64) (*models.MasterIteration, []models.Session, error)
	GetMasterIteration(ctx context.Context, id int64) (*models.MasterIteration, error)
	RecentMasterIterations(ctx context.Context, limit int) ([]models.MasterIteration, error)
	OpenMasterIterations(ctx context.Context) ([]models.MasterIteration, error)
	FinishMasterIteration(ctx context.Context, id int64) (bool, error)
	SetIterationGraph(ctx context.Context, id int64, graph string) error
	DeleteMasterIteration(ctx context.Context, id int64) error

	CreateSession(ctx context.Context, iterationID, pingerID int64, now time.Time) (*models.Session, error)
	GetSession(ctx context.Context, iterationID, pingerID int64) (*models.Session, error)
	FinishSession(ctx context.Context, id int64, result string, now time.Time) (bool, error)
	CountSessions(ctx context.Context, iterationID int64) (finished, total int, err error)
	FinishedSessions(ctx context.Context, iterationID int64) ([]models.Session, error)

	AddFindings(ctx context.Context, iterationID int64, findings []models.Finding) error
	ListFindings(ctx context.Context, iterationID int64) ([]models.Finding, error)
}

// PingerStore holds the local side of sessions and their measurement records.
type PingerStore interface {
	CreatePingerIteration(
		ctx context.Context, it *models.PingerIteration, targets []models.Target) (*models.PingerIteration, error)
	GetPingerIteration(ctx context.Context, id int64) (*models.PingerIteration, error)
	TransitionPingerIteration(
		ctx context.Context, id int64, to models.IterationStatus, from ...models.IterationStatus) (bool, error)
	DeletePingerIteration(ctx context.Context, id int64) error

	ListTargets(ctx context.Context, iterationID int64) ([]models.Target, error)
	CreateReservation(ctx context.Context, r *models.PortReservation) (*models.PortReservation, error)
	GetReservation(ctx context.Context, id int64) (*models.PortReservation, error)

	CreateTrace(ctx context.Context, iterationID, reservationID int64, now time.Time) (*models.Trace, error)
	ListTraces(ctx context.Context, iterationID int64) ([]models.Trace, error)
	TracesForTarget(ctx context.Context, targetID int64) ([]models.Trace, error)
	UpdateTrace(ctx context.Context, id int64, status models.TaskStatus, raw string) error

	CreateThroughputRun(
		ctx context.Context, iterationID, reservationID int64, srcPort int, now time.Time) (*models.ThroughputRun, error)
	RunsForTarget(ctx context.Context, targetID int64) ([]models.ThroughputRun, error)
	ListThroughputRuns(ctx context.Context, iterationID int64, status models.TaskStatus) ([]models.ThroughputRun, error)
	UpdateThroughputRun(ctx context.Context, id int64, status models.TaskStatus, raw string) error
}

// PongerStore holds the persistent measurement port per requester.
type PongerStore interface {
	AllocatePort(ctx context.Context, requester string, minPort, maxPort int) (int, error)
}

// Cleaner removes data past its retention.
type Cleaner interface {
	CleanOldData(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service represents all database operations.
type Service interface {
	RegistryStore
	MasterStore
	PingerStore
	PongerStore
	Cleaner

	Close() error
}
