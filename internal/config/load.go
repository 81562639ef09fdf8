// Package config defines environment configuration structs and loaders.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

const (
	CheckpointBackendFile  = "file"
	CheckpointBackendRedis = "redis"
)

type AppConfig struct {
	Environment string `env:"ENVIRONMENT, default=prod"`

	Scan       ScanEnvConfig
	Checkpoint CheckpointEnvConfig
	Redis      RedisEnvConfig
	Data       DataEnvConfig
	Telemetry  TelemetryEnvConfig
}

// LoadConfig reads an optional .env file and processes the environment into an AppConfig.
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env not loaded; continuing with existing environment")
	}

	cfg := &AppConfig{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// ScanEnvConfig holds the subset-selection scan parameters.
type ScanEnvConfig struct {
	SubsetSize  int     `env:"CLIMSIPS_M, default=2"`
	AlphaSteps  int     `env:"CLIMSIPS_ALPHA_STEPS, default=10"`
	BetaSteps   int     `env:"CLIMSIPS_BETA_STEPS, default=10"`
	PerfCutoff  float64 `env:"CLIMSIPS_PERF_CUTOFF, default=2"`
	MaxWorkers  int     `env:"CLIMSIPS_MAX_WORKERS, default=1"`
	RunnerUp    bool    `env:"CLIMSIPS_RUNNER_UP, default=false"`
	OutDir      string  `env:"CLIMSIPS_OUT_DIR, default=."`
	ReportEvery int     `env:"CLIMSIPS_REPORT_EVERY"`
}

// Validate rejects scan parameters that can never produce a result.
func (c *ScanEnvConfig) Validate() error {
	if c.SubsetSize < 1 {
		return fmt.Errorf("subset size must be at least 1, got %d", c.SubsetSize)
	}
	if c.AlphaSteps < 1 || c.BetaSteps < 1 {
		return fmt.Errorf("alpha and beta steps must be at least 1, got %d/%d", c.AlphaSteps, c.BetaSteps)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1, got %d", c.MaxWorkers)
	}
	return nil
}

// CheckpointEnvConfig selects where per-grid-point checkpoints of parallel scans live.
type CheckpointEnvConfig struct {
	Backend string `env:"CLIMSIPS_CHECKPOINT_BACKEND, default=file"`
	Dir     string `env:"CLIMSIPS_CHECKPOINT_DIR, default=single_run_res"`
}

func (c *CheckpointEnvConfig) Validate() error {
	switch c.Backend {
	case CheckpointBackendFile, CheckpointBackendRedis:
		return nil
	}
	return fmt.Errorf("unsupported checkpoint backend %q", c.Backend)
}

// RedisEnvConfig configures the Redis connection used by the redis checkpoint backend.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST, default=127.0.0.1"`
	RedisPort     int    `env:"REDIS_PORT, default=6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB, default=0"`
	RedisUsername string `env:"REDIS_USERNAME"`
}

// DataEnvConfig locates the metric bundle and the ensemble catalog.
type DataEnvConfig struct {
	Bundle      string        `env:"CLIMSIPS_BUNDLE"`
	Catalog     string        `env:"CLIMSIPS_CATALOG"`
	HTTPTimeout time.Duration `env:"CLIMSIPS_HTTP_TIMEOUT, default=30s"`
	HTTPRetries int           `env:"CLIMSIPS_HTTP_RETRIES, default=3"`
	CacheSize   int           `env:"CLIMSIPS_CACHE_SIZE, default=4"`
}

// TelemetryEnvConfig configures the prometheus textfile export.
type TelemetryEnvConfig struct {
	MetricsFile string `env:"CLIMSIPS_METRICS_FILE"`
}

// ProgressConfig controls how often a running enumeration reports progress.
// ReportEvery must be a power of two.
type ProgressConfig struct {
	ReportEvery int
}

var (
	DevProgressConfig = &ProgressConfig{
		ReportEvery: 1 << 10,
	}
	TestProgressConfig = &ProgressConfig{
		ReportEvery: 1 << 13,
	}
	ProdProgressConfig = &ProgressConfig{
		ReportEvery: 1 << 13,
	}
)

func NewProgressConfig(environment string) *ProgressConfig {
	switch strings.ToLower(environment) {
	case "dev":
		return DevProgressConfig
	case "test":
		return TestProgressConfig
	case "prod":
		return ProdProgressConfig
	}

	return ProdProgressConfig
}
