// Package main is the entrypoint for the sensor ingestion worker.
//
// The worker long-polls the sensor readings SQS queue, fills measurement
// gaps through physics-based imputation, writes the resulting series to
// InfluxDB, and runs the drift check and recalibration cycle for each
// asset that reported. It runs as a standalone process alongside the API
// server and stops cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"brineguard/internal/calibration"
	"brineguard/internal/config"
	"brineguard/internal/db"
	"brineguard/internal/physics"
	"brineguard/internal/sensors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("sensor worker starting",
		"environment", cfg.Environment,
		"queue_url", cfg.AWS.SensorQueueURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	influxClient := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token.Unmask())
	defer influxClient.Close()
	writer := sensors.NewInfluxWriter(influxClient.WriteAPIBlocking(cfg.Influx.Org, cfg.Influx.Bucket), logger)
	reader := sensors.NewInfluxReader(influxClient.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket, 0, logger)

	// Gaps in the incoming series are imputed with the thermal engine
	// before storage, so downstream consumers always see dense series.
	filler := calibration.NewPhysicsImputer(physics.NewThermalEngine())
	ingestor := sensors.NewIngestor(writer, filler, logger)

	calibrationService := calibration.NewService(
		db.NewCalibrationStateRepository(pool),
		reader,
		calibration.NewDriftDetectorWith(cfg.Engine.DriftThresholdPct, 0),
		calibration.NewCalibrator(cfg.Engine.LearningRate),
		logger,
	)

	// Each reading is stored first, then the asset's drift check runs.
	// Calibration problems must not poison the queue, so trigger failures
	// are logged and the message is still acknowledged.
	handler := func(ctx context.Context, msg sensors.ReadingMessage) error {
		if err := ingestor.Handle(ctx, msg); err != nil {
			return err
		}

		outcome, err := calibrationService.Trigger(ctx, msg.AssetID)
		if err != nil {
			logger.WarnContext(ctx, "calibration trigger failed",
				"asset_id", msg.AssetID,
				"error", err,
			)
			return nil
		}
		if outcome.Status == calibration.TriggerRecalibrated {
			logger.InfoContext(ctx, "asset recalibrated",
				"asset_id", msg.AssetID,
				"drift_pct", outcome.DriftPercentage,
			)
		}
		return nil
	}

	consumer := sensors.NewConsumer(sqsClient, cfg.AWS.SensorQueueURL, handler, logger)

	err = consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped: %w", err)
	}

	logger.Info("sensor worker stopped cleanly")
	return nil
}
