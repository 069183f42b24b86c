package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/piponger/pkg/models"
)

func TestCleanOldDataKeepsOpenAndRecent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	old, err := db.CreateMasterIteration(ctx, testNow)
	require.NoError(t, err)
	_, err = db.CreateSession(ctx, old.ID, 1, testNow)
	require.NoError(t, err)

	_, err = db.FinishMasterIteration(ctx, old.ID)
	require.NoError(t, err)

	_, err = db.CreateMasterIteration(ctx, testNow.Add(time.Hour))
	require.NoError(t, err)

	failed, err := db.CreatePingerIteration(ctx, &models.PingerIteration{
		RemoteID: 1, RemoteAddress: "10.0.0.1", ProbeCount: 1, CreatedDate: testNow,
	}, []models.Target{{Address: "10.0.3.10", APIPort: 5003, APIProtocol: "http://"}})
	require.NoError(t, err)

	_, err = db.TransitionPingerIteration(ctx, failed.ID, models.StatusFailed)
	require.NoError(t, err)

	_, err = db.CreatePingerIteration(ctx, &models.PingerIteration{
		RemoteID: 2, RemoteAddress: "10.0.0.1", ProbeCount: 1, CreatedDate: testNow,
	}, []models.Target{{Address: "10.0.3.10", APIPort: 5003, APIProtocol: "http://"}})
	require.NoError(t, err)

	removed, err := db.CleanOldData(ctx, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	assertCount(t, db, "master_iterations", 1)
	assertCount(t, db, "master_iteration_pingers", 0)
	assertCount(t, db, "pinger_iterations", 1)
	assertCount(t, db, "targets", 1)

	removed, err = db.CleanOldData(ctx, testNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}
