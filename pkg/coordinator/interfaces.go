package coordinator

import (
	"context"

	"github.com/carverauto/piponger/pkg/alerts"
	"github.com/carverauto/piponger/pkg/models"
)

// Nodes is the view of the node registry the coordinator needs.
type Nodes interface {
	Pingers(ctx context.Context) ([]models.NodeRegistration, error)
	Pongers(ctx context.Context) ([]models.NodeRegistration, error)
	Find(ctx context.Context, role models.Role, address string, port int) (*models.NodeRegistration, error)
}

// Notifier delivers alerts about findings.
type Notifier interface {
	Notify(ctx context.Context, alert *alerts.WebhookAlert) error
}
