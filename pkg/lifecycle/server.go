package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"
	"golang.org/x/net/netutil"
)

const (
	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 10 * time.Second
)

// Service defines the interface that all services must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ServerOptions holds configuration for creating a server.
type ServerOptions struct {
	ListenAddr  string
	ServiceName string
	Service     Service
	Handler     http.Handler
	// MaxConnections caps concurrently open API connections. Zero means no cap.
	MaxConnections int
}

// RunServer serves the HTTP API and runs the service until a signal arrives,
// ctx is done or either of them fails.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("starting service", "service", opts.ServiceName, "addr", opts.ListenAddr)

	ln, err := Listen(opts.ListenAddr, opts.MaxConnections)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           opts.Handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	errChan := make(chan error, 2)

	go func() {
		if err := opts.Service.Start(ctx); err != nil {
			errChan <- fmt.Errorf("service error: %w", err)
		}
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return handleShutdown(ctx, cancel, srv, opts.Service, errChan)
}

// Listen opens a TCP listener on addr, limited to maxConns concurrent
// connections when maxConns is positive.
func Listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	return ln, nil
}

func handleShutdown(
	ctx context.Context, cancel context.CancelFunc, srv *http.Server, svc Service, errChan chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigChan)

	var runErr error

	select {
	case sig := <-sigChan:
		log.Info("received signal, initiating shutdown", "signal", sig)
	case runErr = <-errChan:
		log.Error("initiating shutdown", "error", runErr)
	case <-ctx.Done():
		log.Info("context canceled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	err := multierr.Combine(
		runErr,
		srv.Shutdown(shutdownCtx),
		svc.Stop(shutdownCtx),
	)
	if err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}
