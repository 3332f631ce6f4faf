// Package app wires sentrywatch's components together and runs the process
// in one of three modes: the ingest/management API server, the background
// ML-retraining worker, or both combined in a single process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/corvidwatch/sentrywatch/internal/alertsvc"
	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/detect"
	"github.com/corvidwatch/sentrywatch/internal/detect/ml"
	"github.com/corvidwatch/sentrywatch/internal/engine"
	"github.com/corvidwatch/sentrywatch/internal/httpserver"
	"github.com/corvidwatch/sentrywatch/internal/livebus"
	"github.com/corvidwatch/sentrywatch/internal/platform"
	"github.com/corvidwatch/sentrywatch/internal/secretbox"
	"github.com/corvidwatch/sentrywatch/internal/telemetry"
	"github.com/corvidwatch/sentrywatch/internal/window"
)

const (
	sweepInterval       = 5 * time.Minute
	cacheRefreshInterval = 10 * time.Minute
)

// Run is the process entry point. It connects to infrastructure, applies
// migrations, and starts whatever cfg.Mode selects.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting sentrywatch", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)
	queries := db.New(pool)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, pool, rdb, metricsReg, queries)
	case "worker":
		return runWorker(ctx, cfg, logger, queries)
	case "all":
		return runAll(ctx, cfg, logger, pool, rdb, metricsReg, queries)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// detectionStack holds every component the ingest path's detector pipeline
// depends on, built once and shared by the HTTP server and (in "all" mode)
// the retrain loop.
type detectionStack struct {
	windows  *window.Store
	mlCache  *ml.Cache
	resolver *detect.ConfigResolver
	engine   *engine.Engine
	bus      *livebus.Bus
}

func buildDetectionStack(cfg *config.Config, queries *db.Queries, logger *slog.Logger) *detectionStack {
	windows := window.New()
	mlCache := ml.NewCache()
	resolver := detect.NewConfigResolver(cfg, queries, logger)

	ruleDetectors := []detect.Detector{
		detect.NewRateLimitDetector(windows, resolver),
		detect.NewBlacklistDetector(queries, resolver),
		detect.NewErrorRateDetector(queries, resolver),
	}
	ruleDetectors = append(ruleDetectors, detect.NewSignatureDetectors(resolver)...)

	otherDetectors := []detect.Detector{
		detect.NewStatisticalDetector(queries, resolver, cfg.Statistical.MinSamples, cfg.Statistical.SampleDepth),
		detect.NewMLDetector(mlCache, resolver, queries, cfg, logger),
	}

	alertSvc := alertsvc.NewService(cfg, queries, logger)
	eng := engine.New(ruleDetectors, otherDetectors, queries, alertSvc, logger, cfg.MediumThreshold, cfg.HighThreshold)
	bus := livebus.New()

	return &detectionStack{windows: windows, mlCache: mlCache, resolver: resolver, engine: eng, bus: bus}
}

// newHTTPServer builds the Server with every domain route mounted.
func newHTTPServer(cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, queries *db.Queries, stack *detectionStack) (*httpserver.Server, error) {
	box, err := secretbox.NewBox(cfg.SecretEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("building secret box: %w", err)
	}

	srv := httpserver.NewServer(cfg, logger, pool, rdb, metricsReg)

	ingestHandler := httpserver.NewIngestHandler(queries, stack.engine, stack.bus, logger)
	srv.Router.Post("/api/ingest", ingestHandler.Handle)

	liveHandler := httpserver.NewLiveHandler(stack.bus, logger)
	srv.Router.Get("/ws/live", liveHandler.Handle)

	apiHandler := httpserver.NewApiHandler(queries, box, logger)
	srv.APIRouter.Mount("/apis", apiHandler.Routes())

	alertHandler := httpserver.NewAlertHandler(queries, logger)
	srv.APIRouter.Mount("/alerts", alertHandler.Routes())

	return srv, nil
}

// serveHTTP runs the HTTP server until ctx is cancelled.
func serveHTTP(ctx context.Context, cfg *config.Config, logger *slog.Logger, srv *httpserver.Server) error {
	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runAPI serves ingest/management HTTP traffic. The ML cache is warmed once
// at startup and then periodically refreshed from storage, picking up
// models a separate "worker"-mode process trains and persists.
func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, queries *db.Queries) error {
	stack := buildDetectionStack(cfg, queries, logger)

	detect.LoadCacheFromStorage(ctx, queries, stack.mlCache, logger)
	go runCacheRefreshLoop(ctx, queries, stack.mlCache, logger)
	go stack.windows.RunSweeper(ctx, sweepInterval, cfg.RateLimit.WindowSec)

	srv, err := newHTTPServer(cfg, logger, pool, rdb, metricsReg, queries, stack)
	if err != nil {
		return err
	}
	return serveHTTP(ctx, cfg, logger, srv)
}

// runWorker runs only the ML retraining loop against shared storage; it
// serves no HTTP traffic and holds no window or live-bus state, since those
// are meaningful only within the process handling ingest.
func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, queries *db.Queries) error {
	cache := ml.NewCache()
	runRetrainLoop(ctx, cfg, queries, cache, logger)
	return nil
}

// runAll combines the API server and the retrain loop in a single process,
// sharing one ML cache so a freshly trained model is visible to the next
// request without a storage round trip.
func runAll(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, queries *db.Queries) error {
	stack := buildDetectionStack(cfg, queries, logger)

	detect.LoadCacheFromStorage(ctx, queries, stack.mlCache, logger)
	go runRetrainLoop(ctx, cfg, queries, stack.mlCache, logger)
	go stack.windows.RunSweeper(ctx, sweepInterval, cfg.RateLimit.WindowSec)

	srv, err := newHTTPServer(cfg, logger, pool, rdb, metricsReg, queries, stack)
	if err != nil {
		return err
	}
	return serveHTTP(ctx, cfg, logger, srv)
}

// runRetrainLoop retrains every known api_id once at startup, then on every
// RETRAIN_INTERVAL_HOURS tick, until ctx is cancelled. A panic or error in a
// single api_id's run is caught and logged by RetrainOne (which RetrainAll
// calls per api_id); the loop continues.
func runRetrainLoop(ctx context.Context, cfg *config.Config, queries *db.Queries, cache *ml.Cache, logger *slog.Logger) {
	interval := time.Duration(cfg.RetrainIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	detect.RetrainAll(ctx, queries, cache, cfg, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			detect.RetrainAll(ctx, queries, cache, cfg, logger)
		}
	}
}

// runCacheRefreshLoop periodically reloads persisted ML models into cache,
// the "api" mode's half of the worker/api split: a worker process trains and
// persists, this loop picks the result up without ever training itself.
func runCacheRefreshLoop(ctx context.Context, queries *db.Queries, cache *ml.Cache, logger *slog.Logger) {
	ticker := time.NewTicker(cacheRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			detect.LoadCacheFromStorage(ctx, queries, cache, logger)
		}
	}
}
