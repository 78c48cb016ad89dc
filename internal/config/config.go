// Package config loads and hot-reloads the scheduler daemon's runtime
// configuration. Values come from environment variables via an
// env-tag/reflection loader (grounded on a sibling pack repo's
// internal/env — the teacher's own retrieved tree referenced a Load
// function for its hot-reload watcher but didn't carry the loader
// itself), and the file watcher that re-applies them on change is
// adapted directly from the teacher's internal/config/hotreload.go.
package config

import (
	"fmt"
	"time"

	"github.com/cronforge/scheduler/internal/domain"
)

// Config is the scheduler daemon's full runtime configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" default:"info"`

	// ConfigOverlayPath, if set, is watched by Watcher for live changes
	// to adjustable runtime knobs (log level, rescheduler enablement)
	// without a process restart.
	ConfigOverlayPath string `env:"CONFIG_OVERLAY_PATH" default:""`

	PostgresDSN string `env:"POSTGRES_DSN"`

	WorkerPoolConcurrency int `env:"WORKER_POOL_CONCURRENCY" default:"10"`

	DefaultRetryBudget       int           `env:"DEFAULT_RETRY_BUDGET" default:"3"`
	DefaultPerAttemptTimeout time.Duration `env:"DEFAULT_PER_ATTEMPT_TIMEOUT" default:"30s"`

	HTTPInvokerMaxIdleConnsPerHost int     `env:"HTTP_INVOKER_MAX_IDLE_CONNS_PER_HOST" default:"10"`
	HTTPInvokerMaxConnsPerHost     int     `env:"HTTP_INVOKER_MAX_CONNS_PER_HOST" default:"50"`
	HTTPInvokerProcessWideRate     float64 `env:"HTTP_INVOKER_PROCESS_WIDE_RATE" default:"0"`

	ReschedulerEnabled   bool          `env:"RESCHEDULER_ENABLED" default:"true"`
	ReschedulerInterval  time.Duration `env:"RESCHEDULER_INTERVAL" default:"1h"`
	ReschedulerBatchSize int           `env:"RESCHEDULER_BATCH_SIZE" default:"50"`

	OTelEnabled        bool   `env:"OTEL_ENABLED" default:"false"`
	OTelEndpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName    string `env:"OTEL_SERVICE_NAME" default:"scheduler"`
	OTelInsecure       bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Validate enforces the bounds also applied to individual jobs (spec
// §3) as defaults/ceilings for the whole process.
func (c *Config) Validate() error {
	if c.WorkerPoolConcurrency <= 0 {
		return fmt.Errorf("config: WORKER_POOL_CONCURRENCY must be positive, got %d", c.WorkerPoolConcurrency)
	}
	if c.DefaultRetryBudget < domain.MinRetryBudget || c.DefaultRetryBudget > domain.MaxRetryBudget {
		return fmt.Errorf("config: DEFAULT_RETRY_BUDGET must be in [%d,%d], got %d",
			domain.MinRetryBudget, domain.MaxRetryBudget, c.DefaultRetryBudget)
	}
	if c.DefaultPerAttemptTimeout < domain.MinPerAttemptTimeout || c.DefaultPerAttemptTimeout > domain.MaxPerAttemptTimeout {
		return fmt.Errorf("config: DEFAULT_PER_ATTEMPT_TIMEOUT must be in [%s,%s], got %s",
			domain.MinPerAttemptTimeout, domain.MaxPerAttemptTimeout, c.DefaultPerAttemptTimeout)
	}
	if c.ReschedulerBatchSize <= 0 {
		return fmt.Errorf("config: RESCHEDULER_BATCH_SIZE must be positive, got %d", c.ReschedulerBatchSize)
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("config: POSTGRES_DSN is required")
	}
	return nil
}

// Load reads the process environment into a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := loadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
