// Package config loads the sync engine's configuration from environment
// variables (and an optional .env file), the way a twelve-factor service
// does. It mirrors the environment table from the external interfaces
// design: indexer credentials, database DSN, optional cache endpoint, and
// worker tuning knobs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
)

// Config is the unified configuration for both the sync worker and the API
// adapter processes.
type Config struct {
	Indexer struct {
		URL     string        `mapstructure:"url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"indexer"`

	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`

	Cache struct {
		URL string `mapstructure:"url"` // empty disables the shared cache tier
	} `mapstructure:"cache"`

	Worker struct {
		BatchSize      int           `mapstructure:"batch_size"`
		PollInterval   time.Duration `mapstructure:"poll_interval"`
		HashDelay      time.Duration `mapstructure:"hash_delay"`
		MaxRetries     int           `mapstructure:"max_retries"`
		StuckThreshold time.Duration `mapstructure:"stuck_threshold"`
	} `mapstructure:"worker"`

	API struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"api"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// defaults mirrors the environment table: every key has a sensible fallback
// except the three marked Required, which validate() checks explicitly.
func defaults(v *viper.Viper) {
	v.SetDefault("worker.batch_size", 50)
	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.hash_delay", 50*time.Millisecond)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.stuck_threshold", 30*time.Minute)
	v.SetDefault("indexer.timeout", 20*time.Second)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("logging.level", "info")
}

// Load reads configuration from a .env file (if present) and the process
// environment. Env vars are upper-snake-case and map to dotted keys, e.g.
// INDEXER_URL -> indexer.url, WORKER_BATCH_SIZE -> worker.batch_size.
func Load() (*Config, error) {
	// A missing .env file is expected outside local development.
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind(v, "indexer.url", "INDEXER_URL")
	bind(v, "indexer.api_key", "INDEXER_KEY")
	bind(v, "indexer.timeout", "INDEXER_TIMEOUT")
	bind(v, "database.url", "DATABASE_URL")
	bind(v, "cache.url", "CACHE_URL")
	bind(v, "worker.batch_size", "WORKER_BATCH_SIZE")
	bind(v, "worker.poll_interval", "WORKER_POLL_INTERVAL")
	bind(v, "worker.hash_delay", "WORKER_HASH_DELAY")
	bind(v, "worker.max_retries", "JOB_MAX_RETRIES")
	bind(v, "worker.stuck_threshold", "JOB_STUCK_THRESHOLD")
	bind(v, "api.addr", "API_ADDR")
	bind(v, "logging.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bind(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}

func (c *Config) validate() error {
	missing := make([]string, 0, 3)
	if c.Indexer.URL == "" {
		missing = append(missing, "INDEXER_URL")
	}
	if c.Indexer.APIKey == "" {
		missing = append(missing, "INDEXER_KEY")
	}
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return apperrors.Validation(fmt.Sprintf("missing required environment variables: %v", missing))
	}
	return nil
}
