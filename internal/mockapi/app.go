package mockapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// App runs a Server over HTTP until its context is cancelled.
type App struct {
	config *Config
	log    logging.Logger
	server *Server
}

func NewApp(c *Config, logger *zap.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := NewStore()
	if err != nil {
		return nil, err
	}
	srv, err := NewServer(c, store, logger)
	if err != nil {
		return nil, err
	}
	return &App{config: c, log: logging.NewZapLogger(logger).With("component", "app"), server: srv}, nil
}

// Run listens on the configured address and serves until ctx is done.
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.Addr)
	if err != nil {
		return err
	}
	return app.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info(ctx, "mock API listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.log.Info(ctx, "shutting down mock API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
