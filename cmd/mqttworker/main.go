// FilePath: cmd/mqttworker/main.go
//
// mqttworker runs the broker-to-database ingest path without the HTTP
// surface. Useful on constrained field gateways where the API lives
// elsewhere.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartfarm/irrigation-hub/internal/cache"
	"github.com/smartfarm/irrigation-hub/internal/config"
	"github.com/smartfarm/irrigation-hub/internal/database"
	"github.com/smartfarm/irrigation-hub/internal/hubservice"
	"github.com/smartfarm/irrigation-hub/internal/monitoring"
	"github.com/smartfarm/irrigation-hub/internal/mqtt"
	"github.com/smartfarm/irrigation-hub/internal/repository/postgres"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	nuts.InitVersion()
	nuts.L.Infof("[Worker] Starting Irrigation MQTT worker v%s", nuts.GetVersion())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.MQTT.Enabled {
		log.Fatalf("MQTT is disabled in the configuration; nothing to do")
	}

	db, err := database.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		nuts.L.Fatalf("[Worker] Failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.Ping(ctx); err != nil {
		cancel()
		nuts.L.Fatalf("[Worker] Failed to ping postgres: %v", err)
	}
	cancel()

	readings, err := postgres.NewSensorReadingRepository(db)
	if err != nil {
		nuts.L.Fatalf("[Worker] Failed to initialize sensor reading repository: %v", err)
	}
	relayEvents, err := postgres.NewRelayEventRepository(db)
	if err != nil {
		nuts.L.Fatalf("[Worker] Failed to initialize relay event repository: %v", err)
	}

	var cacheService *cache.Service
	if cfg.Redis.Enabled {
		cacheService, err = cache.NewService(cfg.Redis)
		if err != nil {
			nuts.L.Errorf("[Worker] Redis unavailable, continuing without cache: %v", err)
		}
	}

	svc := hubservice.New(readings, relayEvents, cacheService)
	metrics := monitoring.NewService()

	// The worker has no API surface, but its counters still need to be
	// scrapeable. Serve only the metrics endpoint.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: metricsMux,
	}
	go func() {
		nuts.L.Infof("[Worker] Metrics listening on %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Worker] Metrics server failed: %v", err)
		}
	}()

	client, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		nuts.L.Fatalf("[Worker] Failed to connect to broker: %v", err)
	}
	defer client.Disconnect()

	listener := mqtt.NewListener(client, svc, metrics, cfg.MQTT)
	if err := listener.Start(); err != nil {
		nuts.L.Fatalf("[Worker] Failed to subscribe: %v", err)
	}

	if cfg.Retention.Days > 0 {
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go svc.Cleanup.RunSweeper(sweepCtx, cfg.Retention.Days, cfg.Retention.SweepInterval)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Worker] Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		nuts.L.Errorf("[Worker] Metrics server shutdown failed: %v", err)
	}
}
