// Package config defines the global configuration structure for the
// brineguard services. Configuration is loaded once at process start and is
// immutable thereafter: OS environment takes priority over a local .env
// file, and any missing required value or invalid format fails the process
// immediately.
package config

import (
	"time"

	"brineguard/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"brineguard"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Engine   EngineConfig
	Artifact ArtifactConfig
	Influx   InfluxConfig
	Weather  WeatherConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	SensorQueueURL  string `envconfig:"SQS_SENSOR_READINGS" validate:"required,url"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"BrineGuard"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EngineConfig tunes the simulation and decision engines.
type EngineConfig struct {
	DefaultSeed        uint64  `envconfig:"ENGINE_DEFAULT_SEED" default:"42"`
	MonteCarloSamples  int     `envconfig:"ENGINE_MC_SAMPLES" default:"1000"`
	MaxMonteCarloN     int     `envconfig:"ENGINE_MC_MAX_SAMPLES" default:"100000"`
	GridResolutionM    float64 `envconfig:"ENGINE_GRID_RESOLUTION_M" default:"1.0"`
	SafetyFactorTarget float64 `envconfig:"ENGINE_SF_TARGET" default:"1.5"`
	DriftThresholdPct  float64 `envconfig:"ENGINE_DRIFT_THRESHOLD_PCT" default:"5.0"`
	LearningRate       float64 `envconfig:"ENGINE_LEARNING_RATE" default:"0.1"`
}

// ArtifactConfig holds the MinIO artifact store settings.
type ArtifactConfig struct {
	Endpoint  string       `envconfig:"ARTIFACT_ENDPOINT" validate:"required"`
	Region    string       `envconfig:"ARTIFACT_REGION" default:"us-east-1"`
	AccessKey string       `envconfig:"ARTIFACT_ACCESS_KEY" validate:"required"`
	SecretKey SecretString `envconfig:"ARTIFACT_SECRET_KEY" validate:"required"`
	Bucket    string       `envconfig:"ARTIFACT_BUCKET" default:"brineguard-artifacts"`
	UseSSL    bool         `envconfig:"ARTIFACT_USE_SSL" default:"true"`
}

// InfluxConfig holds the sensor time-series store settings.
type InfluxConfig struct {
	URL    string       `envconfig:"INFLUX_URL" validate:"required,url"`
	Token  SecretString `envconfig:"INFLUX_TOKEN" validate:"required"`
	Org    string       `envconfig:"INFLUX_ORG" default:"brineguard"`
	Bucket string       `envconfig:"INFLUX_BUCKET" default:"sensor_readings"`
}

// WeatherConfig holds the upstream weather observation API settings.
type WeatherConfig struct {
	BaseURL string        `envconfig:"WEATHER_BASE_URL" validate:"required,url"`
	APIKey  SecretString  `envconfig:"WEATHER_API_KEY"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}
