package api

//go:generate mockgen -destination=mock_api.go -package=api github.com/carverauto/piponger/pkg/api Coordinator,Registrar,SessionStarter,ServerProvider

import (
	"context"

	"github.com/carverauto/piponger/pkg/analysis"
	"github.com/carverauto/piponger/pkg/coordinator"
	"github.com/carverauto/piponger/pkg/models"
)

// Coordinator is the master's iteration control.
type Coordinator interface {
	CreateIteration(ctx context.Context) (*models.MasterIteration, error)
	ReportResult(ctx context.Context, iterationID int64, address string, port int, ms []models.Measurement) error
	Status(ctx context.Context) (*coordinator.Status, error)
	Graph(ctx context.Context, iterationID int64) (*analysis.Graph, []string, error)
}

// Registrar records pingers and pongers announcing themselves.
type Registrar interface {
	Register(ctx context.Context, role models.Role, address string, port int, protocol string) (*models.NodeRegistration, error)
}

// SessionStarter is the pinger side of a session.
type SessionStarter interface {
	StartSession(ctx context.Context, req *models.StartSessionRequest, remoteAddr string) (*models.PingerIteration, error)
}

// ServerProvider hands out measurement servers on a ponger.
type ServerProvider interface {
	RequestServer(ctx context.Context, requester string) (int, error)
}
