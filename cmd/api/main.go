// Package main is the entry point for the BrineGuard API server.
//
// It loads configuration, connects the PostgreSQL pool, the MinIO artifact
// store, the InfluxDB sensor store, and the AWS clients, builds the HTTP
// server with the core chassis (middleware, routing, health checks), and
// starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"brineguard/internal/api/handlers"
	"brineguard/internal/calibration"
	"brineguard/internal/config"
	"brineguard/internal/core"
	"brineguard/internal/db"
	"brineguard/internal/external"
	"brineguard/internal/reports"
	"brineguard/internal/sensors"
	"brineguard/internal/simulation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("brineguard API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Database pool with the configured tuning parameters.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	projectRepo := db.NewProjectRepository(pool)
	runRepo := db.NewRunRepository(pool)
	calibRepo := db.NewCalibrationStateRepository(pool)

	// MinIO-backed artifact store.
	artifactStore, err := reports.NewStore(reports.StoreConfig{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey.Unmask(),
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("creating artifact store: %w", err)
	}

	// InfluxDB sensor read path feeds calibration triggers.
	influxClient := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token.Unmask())
	defer influxClient.Close()
	sensorReader := sensors.NewInfluxReader(influxClient.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket, 0, logger)

	calibrationService := calibration.NewService(
		calibRepo,
		sensorReader,
		calibration.NewDriftDetectorWith(cfg.Engine.DriftThresholdPct, 0),
		calibration.NewCalibrator(cfg.Engine.LearningRate),
		logger,
	)

	reviewService := simulation.NewService(projectRepo, runRepo, artifactStore, calibRepo, logger, simulation.Config{
		ResolutionM:        cfg.Engine.GridResolutionM,
		SafetyFactorTarget: cfg.Engine.SafetyFactorTarget,
		MaxMonteCarloN:     cfg.Engine.MaxMonteCarloN,
	})

	weatherClient := external.NewWeatherClient(cfg.Weather)

	// CloudWatch metrics. LocalStack endpoints are honored when configured.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	metrics := core.NewCloudWatchMetrics(cwClient, cfg.AWS.MetricNamespace, logger)
	reviewService.SetMetrics(metrics)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.HealthProbes = []core.HealthProbe{databaseProbe{pool: pool}}

	validator := core.NewValidator()
	projectHandler := handlers.NewProjectHandler(projectRepo, validator, logger)
	runHandler := handlers.NewRunHandler(reviewService, runRepo, artifactStore, logger)
	presetHandler := handlers.NewPresetHandler(weatherClient, logger)
	calibrationHandler := handlers.NewCalibrationHandler(calibrationService, validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		projectHandler.RegisterRoutes,
		runHandler.RegisterRoutes,
		presetHandler.RegisterRoutes,
		calibrationHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// databaseProbe reports PostgreSQL connectivity for the health endpoint.
type databaseProbe struct {
	pool *pgxpool.Pool
}

func (p databaseProbe) Name() string { return "database" }

func (p databaseProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
