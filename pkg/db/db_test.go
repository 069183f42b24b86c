package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/piponger/pkg/models"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := open(filepath.Join(t.TempDir(), "piponger.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestUpsertNodeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first, err := db.UpsertNode(ctx, models.RolePinger, &models.NodeRegistration{
		Address: "10.0.0.1", APIPort: 5003, APIProtocol: "http://", CreatedDate: testNow,
	})
	require.NoError(t, err)

	later := testNow.Add(time.Minute)
	second, err := db.UpsertNode(ctx, models.RolePinger, &models.NodeRegistration{
		Address: "10.0.0.1", APIPort: 5003, APIProtocol: "http://", CreatedDate: later,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.LastUpdated)
	assert.True(t, second.LastUpdated.Equal(later))
	assert.True(t, second.CreatedDate.Equal(testNow))

	nodes, err := db.ListNodes(ctx, models.RolePinger)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	// Same address, different port is a separate node.
	_, err = db.UpsertNode(ctx, models.RolePinger, &models.NodeRegistration{
		Address: "10.0.0.1", APIPort: 5004, APIProtocol: "http://", CreatedDate: later,
	})
	require.NoError(t, err)

	nodes, err = db.ListNodes(ctx, models.RolePinger)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	pongers, err := db.ListNodes(ctx, models.RolePonger)
	require.NoError(t, err)
	assert.Empty(t, pongers)
}

func TestUpsertNodeRejectsMasterRole(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpsertNode(context.Background(), models.RoleMaster, &models.NodeRegistration{Address: "a"})
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestDeleteStaleNodes(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for i, ts := range []time.Time{testNow.Add(-time.Hour), testNow.Add(-time.Minute)} {
		_, err := db.UpsertNode(ctx, models.RolePonger, &models.NodeRegistration{
			Address: "10.0.1.1", APIPort: 6000 + i, APIProtocol: "http://", CreatedDate: ts,
		})
		require.NoError(t, err)
	}

	// A row without last_updated is always stale.
	_, err := db.ExecContext(ctx, `
		INSERT INTO registered_ponger_nodes (address, api_port, api_protocol, created_date)
		VALUES ('10.0.1.2', 7000, 'http://', ?)`, testNow)
	require.NoError(t, err)

	n, err := db.DeleteStaleNodes(ctx, models.RolePonger, testNow.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	nodes, err := db.ListNodes(ctx, models.RolePonger)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 6001, nodes[0].APIPort)
}

func TestFindNodeNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.FindNode(context.Background(), models.RolePinger, "10.9.9.9", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSingleOpenMasterIteration(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it, err := db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, it.Status)

	_, err = db.CreateMasterIteration(ctx, testNow)
	require.ErrorIs(t, err, ErrOpenIterationExists)

	ok, err := db.FinishMasterIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.FinishMasterIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second finish must not report a transition")

	next, err := db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)
	assert.NotEqual(t, it.ID, next.ID)

	open, err := db.OpenMasterIterations(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, next.ID, open[0].ID)

	recent, err := db.RecentMasterIterations(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, next.ID, recent[0].ID)
}

func TestCreateMasterIterationWithSessions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it, sessions, err := db.CreateMasterIterationWithSessions(ctx, testNow, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, it.ID, sessions[0].MasterIterationID)
	assert.Equal(t, int64(2), sessions[1].PingerID)
	assert.Equal(t, models.StatusRunning, sessions[1].Status)

	finished, total, err := db.CountSessions(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, finished)
	assert.Equal(t, 2, total)

	_, _, err = db.CreateMasterIterationWithSessions(ctx, testNow, []int64{3})
	require.ErrorIs(t, err, ErrOpenIterationExists)
}

func TestCreateMasterIterationWithSessionsRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, _, err := db.CreateMasterIterationWithSessions(ctx, testNow, []int64{1, 1})
	require.ErrorIs(t, err, ErrFailedToInsert)

	open, err := db.OpenMasterIterations(ctx)
	require.NoError(t, err)
	assert.Empty(t, open, "a failed session insert must not leave the iteration behind")

	_, err = db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)
}

func TestFinishSessionOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it, err := db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)

	s1, err := db.CreateSession(ctx, it.ID, 1, testNow)
	require.NoError(t, err)
	_, err = db.CreateSession(ctx, it.ID, 2, testNow)
	require.NoError(t, err)

	ok, err := db.FinishSession(ctx, s1.ID, `[{"lost_percent":1}]`, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.FinishSession(ctx, s1.ID, `[]`, testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := db.GetSession(ctx, it.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, got.Status)
	assert.Equal(t, `[{"lost_percent":1}]`, got.Result, "a rejected report must not overwrite the stored result")

	finished, total, err := db.CountSessions(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, finished)
	assert.Equal(t, 2, total)

	sessions, err := db.FinishedSessions(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestCountSessionsEmptyIteration(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it, err := db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)

	finished, total, err := db.CountSessions(ctx, it.ID)
	require.NoError(t, err)
	assert.Zero(t, finished)
	assert.Zero(t, total)
}

func TestDeleteMasterIterationCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	it, err := db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)

	_, err = db.CreateSession(ctx, it.ID, 1, testNow)
	require.NoError(t, err)
	require.NoError(t, db.AddFindings(ctx, it.ID, []models.Finding{
		{Segment: "10.0.12.0", Score: 30.6, CreatedDate: testNow},
		{Segment: "10.0.21.0", Score: 49.1, CreatedDate: testNow},
	}))

	findings, err := db.ListFindings(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "10.0.21.0", findings[0].Segment)

	require.NoError(t, db.DeleteMasterIteration(ctx, it.ID))

	assertCount(t, db, "master_iteration_pingers", 0)
	assertCount(t, db, "master_iteration_results", 0)
}

func TestPingerIterationLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	targets := []models.Target{
		{Address: "10.0.3.10", APIPort: 5003, APIProtocol: "http://"},
		{Address: "10.0.3.11", APIPort: 5003, APIProtocol: "http://"},
	}

	it, err := db.CreatePingerIteration(ctx, &models.PingerIteration{
		RemoteID: 7, RemoteAddress: "10.0.0.1", ProbeCount: 3, CreatedDate: testNow,
	}, targets)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, it.Status)

	_, err = db.CreatePingerIteration(ctx, &models.PingerIteration{
		RemoteID: 7, RemoteAddress: "10.0.0.1", ProbeCount: 3, CreatedDate: testNow,
	}, targets)
	require.ErrorIs(t, err, ErrDuplicateRemoteID)
	assertCount(t, db, "pinger_iterations", 1)
	assertCount(t, db, "targets", 2)

	ok, err := db.TransitionPingerIteration(ctx, it.ID, models.StatusRunning, models.StatusCreated)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.TransitionPingerIteration(ctx, it.ID, models.StatusRunning, models.StatusCreated)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := db.GetPingerIteration(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, stored.Status)

	got, err := db.ListTargets(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	res, err := db.CreateReservation(ctx, &models.PortReservation{
		TargetID: got[0].ID, DstPort: 50000, SrcPortMin: 40000, SrcPortMax: 40003,
	})
	require.NoError(t, err)

	tr, err := db.CreateTrace(ctx, it.ID, res.ID, testNow)
	require.NoError(t, err)
	require.NoError(t, db.UpdateTrace(ctx, tr.ID, models.TaskSuccess, `{"flows":{}}`))

	traces, err := db.TracesForTarget(ctx, got[0].ID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, models.TaskSuccess, traces[0].Status)
	assert.Equal(t, `{"flows":{}}`, traces[0].RawResult)

	traces, err = db.TracesForTarget(ctx, got[1].ID)
	require.NoError(t, err)
	assert.Empty(t, traces)

	run, err := db.CreateThroughputRun(ctx, it.ID, res.ID, 40001, testNow)
	require.NoError(t, err)
	require.NoError(t, db.UpdateThroughputRun(ctx, run.ID, models.TaskSuccess, `{"end":{}}`))

	runs, err := db.ListThroughputRuns(ctx, it.ID, models.TaskSuccess)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 40001, runs[0].SrcPort)

	runs, err = db.RunsForTarget(ctx, got[0].ID)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	require.NoError(t, db.DeletePingerIteration(ctx, it.ID))

	for _, table := range []string{"targets", "port_reservations", "traces", "throughput_runs"} {
		assertCount(t, db, table, 0)
	}
}

func TestAllocatePort(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	p1, err := db.AllocatePort(ctx, "10.0.1.1", 6000, 6002)
	require.NoError(t, err)
	assert.Equal(t, 6000, p1)

	again, err := db.AllocatePort(ctx, "10.0.1.1", 6000, 6002)
	require.NoError(t, err)
	assert.Equal(t, p1, again)

	p2, err := db.AllocatePort(ctx, "10.0.1.2", 6000, 6002)
	require.NoError(t, err)
	assert.Equal(t, 6001, p2)

	_, err = db.AllocatePort(ctx, "10.0.1.3", 6000, 6002)
	require.ErrorIs(t, err, ErrNoFreePort)
}

func assertCount(t *testing.T, db *DB, table string, want int) {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	assert.Equal(t, want, n, table)
}
