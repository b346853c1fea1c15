// Command dbpoolctl runs a standalone connection pool: it loads a pool and
// an app configuration, starts the pool, exposes Prometheus metrics and a
// health/ready HTTP endpoint, optionally publishes stats to Redis for
// observability, and shuts everything down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polaris-dbpool/dbpool/internal/config"
	"github.com/polaris-dbpool/dbpool/internal/health"
	"github.com/polaris-dbpool/dbpool/internal/metrics"
	"github.com/polaris-dbpool/dbpool/internal/mysqlconn"
	"github.com/polaris-dbpool/dbpool/internal/poolcore"
	"github.com/polaris-dbpool/dbpool/internal/telemetry"
)

var appConfigPath = flag.String("config", "configs/app.yaml", "Path to app configuration file")

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[main] Starting dbpool")

	appCfg, err := config.LoadAppConfig(*appConfigPath)
	if err != nil {
		log.Fatalf("[main] failed to load app config: %v", err)
	}

	poolCfg, err := config.LoadPoolConfig(appCfg.Pool.ConfigPath)
	if err != nil {
		log.Fatalf("[main] failed to load pool config: %v", err)
	}
	log.Printf("[main] pool %q: %s:%d init=%d max=%d",
		poolCfg.Name, poolCfg.Endpoint.Host, poolCfg.Endpoint.Port, poolCfg.InitSize, poolCfg.MaxSize)

	recorder := metrics.NewRecorder(poolCfg.Name)

	opener := mysqlconn.Opener(poolCfg.Endpoint, poolCfg.Credentials, 5*time.Second)
	pool, err := poolcore.New(poolcore.Config{
		Name:           poolCfg.Name,
		InitSize:       poolCfg.InitSize,
		MaxSize:        poolCfg.MaxSize,
		MaxIdleTime:    poolCfg.MaxIdleTime,
		AcquireTimeout: poolCfg.AcquireTimeout,
	}, opener, poolcore.WithRecorder(recorder))
	if err != nil {
		log.Fatalf("[main] failed to construct pool: %v", err)
	}

	// ─── Metrics HTTP server ───────────────────────────────────────────
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:         appCfg.Metrics.ListenAddr,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[main] metrics server listening on %s/metrics", appCfg.Metrics.ListenAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[main] metrics server error: %v", err)
		}
	}()

	// ─── Health/ready HTTP server ──────────────────────────────────────
	checker := health.NewChecker(pool)
	healthServer := checker.ServeHTTP(appCfg.Health.ListenAddr)

	// ─── Optional Redis telemetry publisher ───────────────────────────
	var publisher *telemetry.Publisher
	if appCfg.Telemetry.Enabled {
		instanceID, _ := os.Hostname()
		publisher = telemetry.NewPublisher(
			appCfg.Telemetry.RedisAddr, appCfg.Telemetry.RedisDB, instanceID,
			pool, appCfg.Telemetry.Interval, appCfg.Telemetry.HeartbeatTTL)
		publisher.Start(context.Background())
	}

	log.Println("[main] dbpool is ready. Waiting for shutdown signal...")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[main] received signal %v, shutting down gracefully...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if publisher != nil {
		publisher.Stop()
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] health server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] metrics server shutdown error: %v", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] pool shutdown error: %v", err)
	}

	log.Println("[main] shutdown complete.")
}
