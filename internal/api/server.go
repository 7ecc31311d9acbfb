package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/casamack/tibber-refiner/internal/infrastructure/config"
	"github.com/casamack/tibber-refiner/internal/infrastructure/logging"
	"github.com/casamack/tibber-refiner/internal/journal"
	"github.com/casamack/tibber-refiner/internal/metrics"
	"github.com/casamack/tibber-refiner/internal/refiner"
	"github.com/casamack/tibber-refiner/internal/scheduler"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Store reads runs and refined hours from the journal.
type Store interface {
	GetRun(ctx context.Context, id string) (*journal.Run, error)
	ListRuns(ctx context.Context, limit int) ([]journal.Run, error)
	Refined(ctx context.Context, date string) ([]refiner.Refined, error)
	RefinedHour(ctx context.Context, date string, hour int) (*refiner.Refined, error)
}

// Scheduler accepts manual run requests.
type Scheduler interface {
	Trigger(req scheduler.Request) bool
	Status() scheduler.Status
}

// HealthChecker is implemented by every component the health endpoint reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check names a component for the health endpoint.
type Check struct {
	Name    string
	Checker HealthChecker
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Store     Store
	Scheduler Scheduler
	Metrics   *metrics.Metrics
	Checks    []Check
	Location  *time.Location
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	store     Store
	scheduler Scheduler
	metrics   *metrics.Metrics
	checks    []Check
	loc       *time.Location
	version   string
	startTime time.Time
	server    *http.Server
	listener  net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("journal store is required")
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		store:     deps.Store,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
		loc:       deps.Location,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
//
// Returns:
//   - error: If the listener cannot be opened (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
