// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartfarm/irrigation-hub/api"
	"github.com/smartfarm/irrigation-hub/internal/cache"
	"github.com/smartfarm/irrigation-hub/internal/config"
	"github.com/smartfarm/irrigation-hub/internal/database"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/monitoring"
	"github.com/smartfarm/irrigation-hub/internal/mqtt"
	"github.com/smartfarm/irrigation-hub/internal/repository/postgres"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	db         database.DB
	cache      *cache.Service
	publisher  *mqtt.Client
	listener   *mqtt.Listener
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	sweepStop  context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start wires all services and begins listening for requests. It blocks
// until an interrupt signal arrives, then shuts down gracefully.
func (s *Server) Start() error {
	if err := s.initialize(); err != nil {
		return err
	}

	router := api.NewRouter(s.hubservice, s.publisher, s.monitoring)
	router.SetHealthCheck(s.handleHealth())
	s.srv.Handler = router.Handler(s.config.Server.AllowedOrigins)

	s.setupCleanupHandlers()
	s.startSweeper()

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// initialize connects the database, cache and broker and builds the
// hub service on top of them.
func (s *Server) initialize() error {
	db, err := database.NewPostgresDB(s.config.Database.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	s.db = db

	readings, err := postgres.NewSensorReadingRepository(db)
	if err != nil {
		return fmt.Errorf("failed to initialize sensor reading repository: %w", err)
	}
	relayEvents, err := postgres.NewRelayEventRepository(db)
	if err != nil {
		return fmt.Errorf("failed to initialize relay event repository: %w", err)
	}

	if s.config.Redis.Enabled {
		cacheService, err := cache.NewService(s.config.Redis)
		if err != nil {
			nuts.L.Errorf("[Server] Redis unavailable, continuing without cache: %v", err)
		} else {
			s.cache = cacheService
		}
	}

	if s.config.MQTT.Enabled {
		client, err := mqtt.NewClient(s.config.MQTT)
		if err != nil {
			nuts.L.Errorf("[Server] MQTT broker unavailable, continuing without publisher: %v", err)
		} else {
			s.publisher = client
		}
	}

	s.monitoring = monitoring.NewService()
	s.hubservice = hubservice.New(readings, relayEvents, s.cache)
	if err := s.hubservice.Validate(); err != nil {
		return err
	}

	if s.publisher != nil {
		s.listener = mqtt.NewListener(s.publisher, s.hubservice, s.monitoring, s.config.MQTT)
		if err := s.listener.Start(); err != nil {
			nuts.L.Errorf("[Server] Failed to subscribe to broker topics: %v", err)
		}
	}

	return nil
}

// startSweeper runs the retention sweeper until shutdown. Retention
// of 0 disables it.
func (s *Server) startSweeper() {
	if s.config.Retention.Days <= 0 {
		nuts.L.Infof("[Server] Retention sweeper disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.sweepStop = cancel
	go s.hubservice.Cleanup.RunSweeper(ctx, s.config.Retention.Days, s.config.Retention.SweepInterval)
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if s.sweepStop != nil {
		s.sweepStop()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			nuts.L.Errorf("[Server] Error closing cache: %v", err)
		}
	}
	if err := s.db.Close(); err != nil {
		nuts.L.Errorf("[Server] Error closing database: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth reports process health including the database and, when
// enabled, broker connectivity.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		if err := s.db.Ping(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"status":%q,"version":%q,"mqtt_connected":%t}`,
			status, nuts.GetVersion(), s.publisher != nil && s.publisher.IsConnected())
	}
}

func (s *Server) setupCleanupHandlers() {
	s.hubservice.Cleanup.OnCleanup("relay_events.cleaned", func(deleted int64) {
		nuts.L.Infof("[Cleanup] Deleted %d old relay events", deleted)
		s.monitoring.RecordCleanup("relay_events", deleted)
	})

	s.hubservice.Cleanup.OnCleanup("sensor_readings.cleaned", func(deleted int64) {
		nuts.L.Infof("[Cleanup] Deleted %d old sensor readings", deleted)
		s.monitoring.RecordCleanup("sensor_readings", deleted)
	})
}
