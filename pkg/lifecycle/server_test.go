package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	started  atomic.Bool
	stopped  atomic.Bool
	startErr error
}

func (f *fakeService) Start(ctx context.Context) error {
	f.started.Store(true)

	if f.startErr != nil {
		return f.startErr
	}

	<-ctx.Done()

	return nil
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped.Store(true)

	return nil
}

func TestRunServerStopsOnCancel(t *testing.T) {
	svc := &fakeService{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- RunServer(ctx, &ServerOptions{
			ListenAddr:     "127.0.0.1:0",
			ServiceName:    "test",
			Service:        svc,
			Handler:        http.NotFoundHandler(),
			MaxConnections: 4,
		})
	}()

	require.Eventually(t, svc.started.Load, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.True(t, svc.stopped.Load())
}

func TestRunServerReturnsServiceError(t *testing.T) {
	boom := errors.New("boom")
	svc := &fakeService{startErr: boom}

	err := RunServer(context.Background(), &ServerOptions{
		ListenAddr: "127.0.0.1:0",
		Service:    svc,
		Handler:    http.NotFoundHandler(),
	})

	require.ErrorIs(t, err, boom)
	assert.True(t, svc.stopped.Load())
}

func TestListenRejectsBadAddress(t *testing.T) {
	_, err := Listen("not-an-address", 0)
	require.Error(t, err)
}
