// Package client holds the HTTP clients the roles use to talk to each other.
package client

import (
	"context"

	"github.com/carverauto/piponger/pkg/models"
)

//go:generate mockgen -destination=mock_client.go -package=client github.com/carverauto/piponger/pkg/client Master,Pinger,Ponger

// Master is what pingers and pongers need from the master.
type Master interface {
	Register(ctx context.Context, role models.Role, req models.RegisterRequest) error
	Report(ctx context.Context, req *models.ReportRequest) error
}

// Pinger is what the master needs from a pinger.
type Pinger interface {
	StartSession(ctx context.Context, baseURL string, req *models.StartSessionRequest) (*models.StartSessionResponse, error)
}

// Ponger is what a pinger needs from a ponger.
type Ponger interface {
	RequestServer(ctx context.Context, baseURL string) (int, error)
}
