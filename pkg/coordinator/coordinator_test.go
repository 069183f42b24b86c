package coordinator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/piponger/pkg/alerts"
	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/models"
	"github.com/carverauto/piponger/pkg/registry"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*alerts.WebhookAlert
}

func (n *recordingNotifier) Notify(_ context.Context, alert *alerts.WebhookAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.alerts = append(n.alerts, alert)

	return nil
}

type fixture struct {
	coord    *Coordinator
	store    db.Service
	nodes    *registry.Registry
	pingers  *client.MockPinger
	notifier *recordingNotifier
	clock    *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := db.New(filepath.Join(t.TempDir(), "master.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewMock()
	clk.Set(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	ctrl := gomock.NewController(t)
	nodes := registry.New(store, clk, 30*time.Minute, 5*time.Minute)
	pingers := client.NewMockPinger(ctrl)
	notifier := &recordingNotifier{}

	cfg := config.MasterConfig{
		IterationTimeout: config.Duration(30 * time.Minute),
		ProbeCount:       20,
		SegmentPrefixLen: 24,
	}

	return &fixture{
		coord:    New(store, nodes, pingers, cfg, "master-1", WithClock(clk), WithNotifier(notifier)),
		store:    store,
		nodes:    nodes,
		pingers:  pingers,
		notifier: notifier,
		clock:    clk,
	}
}

func (f *fixture) register(t *testing.T, role models.Role, addrs ...string) {
	t.Helper()

	for _, a := range addrs {
		_, err := f.nodes.Register(context.Background(), role, a, 5003, "http://")
		require.NoError(t, err)
	}
}

// expectStarts records every start_session request by pinger URL.
func (f *fixture) expectStarts(times int) map[string]*models.StartSessionRequest {
	var mu sync.Mutex

	got := make(map[string]*models.StartSessionRequest)

	f.pingers.EXPECT().
		StartSession(gomock.Any(), gomock.Any(), gomock.Any()).
		Times(times).
		DoAndReturn(func(_ context.Context, url string, req *models.StartSessionRequest) (*models.StartSessionResponse, error) {
			mu.Lock()
			defer mu.Unlock()

			got[url] = req

			return &models.StartSessionResponse{Result: models.ResultSuccess, PingIterationID: 1}, nil
		})

	return got
}

func TestCreateIterationStartsSessionsWithPeers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1", "10.0.0.2", "10.0.0.9")
	f.register(t, models.RolePonger, "10.0.0.1", "10.0.0.2")

	starts := f.expectStarts(3)

	it, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	require.Len(t, starts, 3)

	want := &models.StartSessionRequest{
		Hosts: map[string]models.PeerInfo{
			"10.0.0.2": {APIPort: 5003, APIProtocol: "http://"},
		},
		TracertQty:        20,
		MasterIterationID: it.ID,
	}
	if diff := deep.Equal(starts["http://10.0.0.1:5003"], want); diff != nil {
		t.Error(diff)
	}

	assert.Len(t, starts["http://10.0.0.2:5003"].Hosts, 1)
	assert.Contains(t, starts["http://10.0.0.2:5003"].Hosts, "10.0.0.1")
	assert.Len(t, starts["http://10.0.0.9:5003"].Hosts, 2)

	finished, total, err := f.store.CountSessions(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, finished)
	assert.Equal(t, 3, total)

	_, err = f.coord.CreateIteration(ctx)
	require.ErrorIs(t, err, ErrIterationInProgress)
}

func TestCreateIterationSkipsPingerWithoutPeers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1")
	f.register(t, models.RolePonger, "10.0.0.1")

	it, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	got, err := f.store.GetMasterIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, got.Status)

	p, err := f.coord.CheckDone(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{IsFinished: true, Percentage: 100}, p)
}

func TestCreateIterationToleratesUnreachablePinger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1")
	f.register(t, models.RolePonger, "10.0.0.2")

	f.pingers.EXPECT().
		StartSession(gomock.Any(), "http://10.0.0.1:5003", gomock.Any()).
		Return(nil, client.ErrRequestFailed)

	it, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	p, err := f.coord.CheckDone(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, p.IsFinished)
	assert.Equal(t, 1, p.Total)
}

// doneCheckingNodes runs the done-check loop body on every pool lookup, the
// way Run's ticker can fire while an iteration is being created.
type doneCheckingNodes struct {
	*registry.Registry
	coord *Coordinator
}

func (n *doneCheckingNodes) Pingers(ctx context.Context) ([]models.NodeRegistration, error) {
	n.coord.checkOpen(ctx)

	return n.Registry.Pingers(ctx)
}

func (n *doneCheckingNodes) Pongers(ctx context.Context) ([]models.NodeRegistration, error) {
	n.coord.checkOpen(ctx)

	return n.Registry.Pongers(ctx)
}

func TestCreateIterationNotFinishedByConcurrentDoneCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1")
	f.register(t, models.RolePonger, "10.0.0.2")

	nodes := &doneCheckingNodes{Registry: f.nodes}
	cfg := config.MasterConfig{
		IterationTimeout: config.Duration(30 * time.Minute),
		ProbeCount:       20,
		SegmentPrefixLen: 24,
	}
	coord := New(f.store, nodes, f.pingers, cfg, "master-1", WithClock(f.clock), WithNotifier(f.notifier))
	nodes.coord = coord

	f.expectStarts(1)

	stop := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case <-stop:
				return
			default:
				coord.checkOpen(ctx)
			}
		}
	}()

	it, err := coord.CreateIteration(ctx)
	close(stop)
	wg.Wait()
	require.NoError(t, err)
	coord.Wait()

	got, err := f.store.GetMasterIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.StatusFinished, got.Status)

	finished, total, err := f.store.CountSessions(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, finished)
	assert.Equal(t, 1, total)

	findings, err := f.store.ListFindings(ctx, it.ID)
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Empty(t, f.notifier.alerts)

	_, err = coord.CreateIteration(ctx)
	require.ErrorIs(t, err, ErrIterationInProgress)
}

func reports() map[string][]models.Measurement {
	return map[string][]models.Measurement{
		"10.0.0.1": {
			{TargetAddress: "10.0.0.3", Path: []string{"10.0.1.1", "10.0.2.1", "10.0.3.1"}, LostPercent: 0},
			{TargetAddress: "10.0.0.3", Path: []string{"10.0.1.1", "10.0.9.1"}, LostPercent: 40},
		},
		"10.0.0.2": {
			{TargetAddress: "10.0.0.3", Path: []string{"10.0.4.1", "10.0.9.1"}, LostPercent: 40},
			{TargetAddress: "10.0.0.3", Path: []string{"10.0.4.1", "?", "10.0.3.1"}, LostPercent: 0},
		},
	}
}

func TestReportResultFinishesAndAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1", "10.0.0.2")
	f.register(t, models.RolePonger, "10.0.0.3")
	f.expectStarts(2)

	it, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	rs := reports()

	require.NoError(t, f.coord.ReportResult(ctx, it.ID, "10.0.0.1", 5003, rs["10.0.0.1"]))

	p, err := f.coord.CheckDone(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{Percentage: 50, Count: 1, Total: 2}, p)

	err = f.coord.ReportResult(ctx, it.ID, "10.0.0.1", 5003, nil)
	require.ErrorIs(t, err, ErrSessionFinished)

	require.NoError(t, f.coord.ReportResult(ctx, it.ID, "10.0.0.2", 5003, rs["10.0.0.2"]))

	got, err := f.store.GetMasterIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, got.Status)
	assert.NotEmpty(t, got.Graph)

	findings, err := f.store.ListFindings(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "10.0.9.0", findings[0].Segment)
	assert.InDelta(t, 40.0, findings[0].Score, 1e-9)

	sessions, err := f.store.FinishedSessions(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Contains(t, sessions[0].Result, `"pinger_address"`)

	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, alerts.FindingsTitle, f.notifier.alerts[0].Title)

	last := f.coord.history.Last()
	require.NotNil(t, last)
	assert.Equal(t, it.ID, last.IterationID)
	assert.Equal(t, 2, last.Reported)
	assert.False(t, last.Forced)

	// A later done check must not aggregate again.
	_, err = f.coord.CheckDone(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, f.coord.history.Samples(), 1)

	g, flagged, err := f.coord.Graph(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.9.0"}, flagged)
	assert.Len(t, g.Nodes, 5)
}

func TestReportResultRejectsUnknownReporters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1")
	f.register(t, models.RolePonger, "10.0.0.3")
	f.expectStarts(1)

	it, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	err = f.coord.ReportResult(ctx, it.ID, "10.0.0.7", 5003, nil)
	require.ErrorIs(t, err, ErrPingerNotRegistered)

	err = f.coord.ReportResult(ctx, it.ID, "10.0.0.1", 6000, nil)
	require.ErrorIs(t, err, ErrPingerNotRegistered)

	err = f.coord.ReportResult(ctx, it.ID+100, "10.0.0.1", 5003, nil)
	require.ErrorIs(t, err, ErrSessionNotFound)

	p, err := f.coord.CheckDone(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Count)
}

func TestFinishOldIterationsForcesAggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, models.RolePinger, "10.0.0.1", "10.0.0.2")
	f.register(t, models.RolePonger, "10.0.0.3")
	f.expectStarts(2)

	it, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	require.NoError(t, f.coord.ReportResult(ctx, it.ID, "10.0.0.1", 5003, reports()["10.0.0.1"]))

	f.clock.Add(10 * time.Minute)

	n, err := f.coord.FinishOldIterations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Add(25 * time.Minute)

	n, err = f.coord.FinishOldIterations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.GetMasterIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, got.Status)

	last := f.coord.history.Last()
	require.NotNil(t, last)
	assert.True(t, last.Forced)
	assert.Equal(t, 1, last.Reported)
	assert.Equal(t, 2, last.Sessions)

	// A late report is stored but the closed iteration is not aggregated again.
	err = f.coord.ReportResult(ctx, it.ID, "10.0.0.2", 5003, reports()["10.0.0.2"])
	require.NoError(t, err)
	assert.Len(t, f.coord.history.Samples(), 1)
}

func TestStatusSummarizesRecentIterations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.coord.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.Current)
	assert.Nil(t, s.Previous)

	f.register(t, models.RolePinger, "10.0.0.1", "10.0.0.2")
	f.register(t, models.RolePonger, "10.0.0.3")
	f.expectStarts(4)

	first, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	for addr, ms := range reports() {
		require.NoError(t, f.coord.ReportResult(ctx, first.ID, addr, 5003, ms))
	}

	second, err := f.coord.CreateIteration(ctx)
	require.NoError(t, err)
	f.coord.Wait()

	s, err = f.coord.Status(ctx)
	require.NoError(t, err)

	require.NotNil(t, s.Current)
	assert.Equal(t, second.ID, s.Current.ID)
	assert.False(t, s.Current.Progress.IsFinished)
	assert.Equal(t, 2, s.Current.Progress.Total)

	require.NotNil(t, s.Previous)
	assert.Equal(t, first.ID, s.Previous.ID)
	assert.True(t, s.Previous.Progress.IsFinished)
	require.Len(t, s.Previous.Findings, 1)

	assert.Len(t, s.Pingers, 2)
	assert.Len(t, s.Pongers, 1)
	assert.Len(t, s.History, 1)
}
