// Package api provides the HTTP REST API and WebSocket server for vibrant.
//
// It exposes output listing, saturation get/set, stored profiles and the
// change history, and
// streams every applied change to WebSocket clients.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/vibrant/internal/history"
	"github.com/nerrad567/vibrant/internal/infrastructure/config"
	"github.com/nerrad567/vibrant/internal/infrastructure/logging"
	"github.com/nerrad567/vibrant/internal/profile"
	"github.com/nerrad567/vibrant/internal/saturation"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Saturation is the service surface the API drives.
// Satisfied by *saturation.Service.
type Saturation interface {
	Outputs(ctx context.Context) ([]saturation.OutputStatus, error)
	Get(ctx context.Context, name string) (float64, error)
	Set(ctx context.Context, name string, value float64, source string) (saturation.Change, error)
	OnChange(fn func(saturation.Change))
}

// ProfileLister lists stored profiles. Satisfied by *profile.SQLiteRepository.
type ProfileLister interface {
	List(ctx context.Context) ([]profile.Profile, error)
}

// HistoryLister pages through recorded changes.
// Satisfied by *history.SQLiteRepository.
type HistoryLister interface {
	List(ctx context.Context, filter history.Filter) (*history.ListResult, error)
}

// ConnectionStatus reports whether a client is connected.
// Satisfied by *mqtt.Client and *influxdb.Client.
type ConnectionStatus interface {
	IsConnected() bool
}

// DBStats reports connection pool statistics. Satisfied by *database.DB.
type DBStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Service Saturation

	// Optional.
	Profiles ProfileLister
	History  HistoryLister
	MQTT     ConnectionStatus
	InfluxDB ConnectionStatus
	DB       DBStats

	Version string
}

// Server is the HTTP API server for vibrant.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	service   Saturation
	profiles  ProfileLister
	history   HistoryLister
	mqtt      ConnectionStatus
	influx    ConnectionStatus
	db        DBStats
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// Every change applied through the service is broadcast to WebSocket
// clients from this point on, whatever channel made it.
//
// Parameters:
//   - deps: Required dependencies (config, logger, saturation service)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("saturation service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		service:   deps.Service,
		profiles:  deps.Profiles,
		history:   deps.History,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}
	s.hub = NewHub(deps.Logger, s.outputExists)
	s.service.OnChange(s.hub.PublishChange)

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub; cancelling it disconnects WebSocket clients
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
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
