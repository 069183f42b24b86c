package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/carverauto/piponger/pkg/models"
)

const FindingsTitle = "Problematic segments detected"

// FindingsAlert describes the segments flagged in one iteration.
func FindingsAlert(nodeID string, iterationID int64, findings []models.Finding) *WebhookAlert {
	segments := make([]string, len(findings))
	scores := make(map[string]float64, len(findings))

	for i, f := range findings {
		segments[i] = fmt.Sprintf("%s (%.2f%%)", f.Segment, f.Score)
		scores[f.Segment] = f.Score
	}

	return &WebhookAlert{
		Level:   Warning,
		Title:   FindingsTitle,
		Message: fmt.Sprintf("Iteration %d flagged %d segment(s): %s", iterationID, len(findings), strings.Join(segments, ", ")),
		NodeID:  nodeID,
		Details: map[string]any{
			"iteration_id": iterationID,
			"scores":       scores,
		},
	}
}

// Notifier fans an alert out to every enabled service.
type Notifier struct {
	services []AlertService
}

func NewNotifier(services ...AlertService) *Notifier {
	return &Notifier{services: services}
}

// Notify sends alert to each enabled service. A skipped cooldown is not an
// error; delivery errors are combined.
func (n *Notifier) Notify(ctx context.Context, alert *WebhookAlert) error {
	var errs error

	for _, s := range n.services {
		if !s.IsEnabled() {
			continue
		}

		if err := s.Alert(ctx, alert); err != nil && !errors.Is(err, ErrWebhookCooldown) {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		log.Error("alert delivery failed", "title", alert.Title, "error", errs)
	}

	return errs
}
