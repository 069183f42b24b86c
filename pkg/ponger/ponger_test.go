package ponger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/piponger/pkg/config"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/probe"
)

func newTestService(t *testing.T, launcher probe.ServerLauncher, minPort, maxPort int) *Service {
	t.Helper()

	store, err := db.New(filepath.Join(t.TempDir(), "ponger.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return NewService(store, launcher, config.PongerConfig{PortRangeMin: minPort, PortRangeMax: maxPort})
}

func TestRequestServerReusesPort(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := probe.NewMockServerLauncher(ctrl)

	launcher.EXPECT().Start(gomock.Any(), 50000).Return(nil).Times(2)
	launcher.EXPECT().Start(gomock.Any(), 50001).Return(nil)

	s := newTestService(t, launcher, 50000, 50010)
	ctx := context.Background()

	p1, err := s.RequestServer(ctx, "10.0.1.5")
	require.NoError(t, err)
	assert.Equal(t, 50000, p1)

	p2, err := s.RequestServer(ctx, "10.0.2.5")
	require.NoError(t, err)
	assert.Equal(t, 50001, p2)

	again, err := s.RequestServer(ctx, "10.0.1.5")
	require.NoError(t, err)
	assert.Equal(t, p1, again)
}

func TestAllocatePortExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newTestService(t, probe.NewMockServerLauncher(ctrl), 50000, 50001)
	ctx := context.Background()

	_, err := s.AllocatePort(ctx, "10.0.1.5")
	require.NoError(t, err)

	_, err = s.AllocatePort(ctx, "10.0.2.5")
	require.ErrorIs(t, err, ErrNoFreePort)
}

func TestRequestServerLaunchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := probe.NewMockServerLauncher(ctrl)
	launcher.EXPECT().Start(gomock.Any(), 50000).Return(probe.ErrServerNotAlive)

	s := newTestService(t, launcher, 50000, 50010)

	_, err := s.RequestServer(context.Background(), "10.0.1.5")
	require.ErrorIs(t, err, ErrServerNotReady)
	assert.True(t, errors.Is(err, probe.ErrServerNotAlive))
}
