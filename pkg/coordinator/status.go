package coordinator

import (
	"context"

	"github.com/carverauto/piponger/pkg/analysis"
	"github.com/carverauto/piponger/pkg/metrics"
	"github.com/carverauto/piponger/pkg/models"
)

const recentIterations = 2

// IterationSummary is an iteration with its progress and flagged segments.
type IterationSummary struct {
	ID          int64                  `json:"id"`
	Status      models.IterationStatus `json:"status"`
	CreatedDate string                 `json:"created_date"`
	Progress    models.Progress        `json:"progress"`
	Findings    []models.Finding       `json:"problematic_hosts"`
}

// Status is the master's view for the index page.
type Status struct {
	Current  *IterationSummary         `json:"current_iteration,omitempty"`
	Previous *IterationSummary         `json:"previous_iteration,omitempty"`
	History  []metrics.IterationSample `json:"history"`
	Pingers  []models.NodeRegistration `json:"pingers"`
	Pongers  []models.NodeRegistration `json:"pongers"`
}

// Status summarizes the two most recent iterations and the node pools.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	recent, err := c.store.RecentMasterIterations(ctx, recentIterations)
	if err != nil {
		return nil, err
	}

	s := &Status{History: c.history.Samples()}

	for i, it := range recent {
		summary, err := c.summarize(ctx, it)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			s.Current = summary
		} else {
			s.Previous = summary
		}
	}

	if s.Pingers, err = c.nodes.Pingers(ctx); err != nil {
		return nil, err
	}

	if s.Pongers, err = c.nodes.Pongers(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (c *Coordinator) summarize(ctx context.Context, it models.MasterIteration) (*IterationSummary, error) {
	finished, total, err := c.store.CountSessions(ctx, it.ID)
	if err != nil {
		return nil, err
	}

	findings, err := c.store.ListFindings(ctx, it.ID)
	if err != nil {
		return nil, err
	}

	p := progress(finished, total)
	p.IsFinished = it.Status == models.StatusFinished

	return &IterationSummary{
		ID:          it.ID,
		Status:      it.Status,
		CreatedDate: it.CreatedDate.Format("2006-01-02 15:04:05"),
		Progress:    p,
		Findings:    findings,
	}, nil
}

// Graph returns the stored graph of an iteration and its flagged segments.
func (c *Coordinator) Graph(ctx context.Context, iterationID int64) (*analysis.Graph, []string, error) {
	it, err := c.store.GetMasterIteration(ctx, iterationID)
	if err != nil {
		return nil, nil, err
	}

	if it.Graph == "" {
		return nil, nil, ErrNoGraph
	}

	g, err := analysis.ParseGraph(it.Graph)
	if err != nil {
		return nil, nil, err
	}

	findings, err := c.store.ListFindings(ctx, iterationID)
	if err != nil {
		return nil, nil, err
	}

	flagged := make([]string, 0, len(findings))
	for _, f := range findings {
		flagged = append(flagged, f.Segment)
	}

	return g, flagged, nil
}
