// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Verticals   VerticalsConfig   `yaml:"verticals" mapstructure:"verticals"`
	Aggregation AggregationConfig `yaml:"aggregation" mapstructure:"aggregation"`
	Indexation  IndexationConfig  `yaml:"indexation" mapstructure:"indexation"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the product store backend.
type StoreConfig struct {
	// Driver selects the backend: "postgres" or "sqlite".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// VerticalsConfig locates the vertical definitions.
type VerticalsConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// AggregationConfig configures the aggregation services.
type AggregationConfig struct {
	// TrustedSources is the ordered priority list used during attribute
	// reconciliation. Earlier entries outrank later ones.
	TrustedSources []string `yaml:"trusted_sources" mapstructure:"trusted_sources"`
}

// IndexationConfig sizes the indexation queue and its workers.
type IndexationConfig struct {
	QueueMaxSize        int     `yaml:"queue_max_size" mapstructure:"queue_max_size"`
	Workers             int     `yaml:"workers" mapstructure:"workers"`
	BulkPageSize        int     `yaml:"bulk_page_size" mapstructure:"bulk_page_size"`
	PauseSecs           int     `yaml:"pause_secs" mapstructure:"pause_secs"`
	MaxBatchesPerSecond float64 `yaml:"max_batches_per_second" mapstructure:"max_batches_per_second"`

	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig configures bulk-store retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// BreakerConfig configures the store circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// MonitoringConfig configures pipeline health alerts.
type MonitoringConfig struct {
	// WebhookURL receives alert payloads; empty disables sending.
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`

	// QueueSaturationThreshold is the queue-depth fraction of capacity
	// above which an alert fires.
	QueueSaturationThreshold float64 `yaml:"queue_saturation_threshold" mapstructure:"queue_saturation_threshold"`

	// DeadLetterThreshold is the number of dead-lettered products above
	// which an alert fires.
	DeadLetterThreshold int64 `yaml:"dead_letter_threshold" mapstructure:"dead_letter_threshold"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	// Keys without a meaningful default still need one registered so
	// AutomaticEnv exposes them to Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("aggregation.trusted_sources", []string{})
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("verticals.config_path", "verticals.yaml")
	v.SetDefault("indexation.queue_max_size", 5000)
	v.SetDefault("indexation.workers", 2)
	v.SetDefault("indexation.bulk_page_size", 200)
	v.SetDefault("indexation.pause_secs", 2)
	v.SetDefault("indexation.retry.max_attempts", 3)
	v.SetDefault("indexation.retry.initial_backoff_ms", 250)
	v.SetDefault("indexation.retry.max_backoff_ms", 10000)
	v.SetDefault("indexation.retry.multiplier", 2.0)
	v.SetDefault("indexation.retry.jitter_fraction", 0.25)
	v.SetDefault("indexation.breaker.failure_threshold", 5)
	v.SetDefault("indexation.breaker.reset_timeout_secs", 30)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.queue_saturation_threshold", 0.8)
	v.SetDefault("monitoring.dead_letter_threshold", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode ("serve",
// "batch", "import"). Collected problems are reported together so an
// operator can fix them in one pass.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url must point at a sqlite file")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	if c.Verticals.ConfigPath == "" {
		problems = append(problems, "verticals.config_path is required")
	}

	if c.Indexation.Workers < 0 || c.Indexation.Workers > 64 {
		problems = append(problems, "indexation.workers must be between 0 and 64")
	}
	if c.Indexation.BulkPageSize < 0 || c.Indexation.BulkPageSize > 10000 {
		problems = append(problems, "indexation.bulk_page_size must be between 0 and 10000")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "batch", "import", "migrate", "status":
		// No extra requirements beyond the store.
	default:
		problems = append(problems, "unknown mode: "+mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
