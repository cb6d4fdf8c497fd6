// Package config loads sentry configuration from YAML and SENTRY_* environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Tail       TailConfig       `mapstructure:"tail"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Reports    ReportsConfig    `mapstructure:"reports"`
	Ingestion  IngestionConfig  `mapstructure:"ingestion"`
	Redis      RedisConfig      `mapstructure:"redis"`
	DLQ        DLQConfig        `mapstructure:"dlq"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// TailConfig controls the eve.json follower.
type TailConfig struct {
	Path            string        `mapstructure:"path"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Resume          bool          `mapstructure:"resume"`
	CheckpointEvery int           `mapstructure:"checkpoint_every"`
}

// CheckpointConfig selects where the follower persists its offset when
// tail.resume is enabled.
type CheckpointConfig struct {
	Backend  string `mapstructure:"backend"` // "file" (default) or "redis"
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
}

type DatabaseConfig struct {
	Type           string           `mapstructure:"type"` // "postgres", "opensearch" or "memory"
	MigrateOnStart bool             `mapstructure:"migrate_on_start"`
	Postgres       PostgresConfig   `mapstructure:"postgres"`
	OpenSearch     OpenSearchConfig `mapstructure:"opensearch"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ConnString renders the libpq URL understood by both pgx and golang-migrate.
func (p PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type OpenSearchConfig struct {
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	Index         string `mapstructure:"index"`
}

// ReportsConfig controls the JSON report collection.
type ReportsConfig struct {
	Path string `mapstructure:"path"`
	Seed bool   `mapstructure:"seed"`
}

type IngestionConfig struct {
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// DLQConfig holds dead letter queue configuration
type DLQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Backend  string `mapstructure:"backend"`   // "file" (default) or "jetstream"
	BasePath string `mapstructure:"base_path"` // Only used for file backend
	NatsURL  string `mapstructure:"nats_url"`  // Only used for jetstream backend
}

// BreakerConfig guards alert-store writes.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("tail.path", "/var/log/suricata/eve.json")
	v.SetDefault("tail.poll_interval", "200ms")
	v.SetDefault("tail.resume", false)
	v.SetDefault("tail.checkpoint_every", 50)
	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.path", "/var/lib/sentry/eve.offset")
	v.SetDefault("checkpoint.redis_key", "sentry:tail:offset")
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "sentry_db")
	v.SetDefault("database.postgres.user", "admin")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_conns", 10)
	v.SetDefault("database.opensearch.url", "https://localhost:9200")
	v.SetDefault("database.opensearch.username", "admin")
	v.SetDefault("database.opensearch.password", "admin")
	v.SetDefault("database.opensearch.tls_skip_verify", true)
	v.SetDefault("database.opensearch.index", "sentry-alerts")
	v.SetDefault("reports.path", "server_reports.json")
	v.SetDefault("reports.seed", false)
	v.SetDefault("ingestion.max_body_size", 1048576)
	v.SetDefault("ingestion.rate_limit_enabled", false)
	v.SetDefault("ingestion.rate_limit_requests", 600)
	v.SetDefault("ingestion.rate_limit_window", "1m")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.backend", "file")
	v.SetDefault("dlq.base_path", "/var/lib/sentry/dlq")
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sentry")
	}

	// SENTRY_TAIL_PATH overrides tail.path, and so on.
	v.SetEnvPrefix("SENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "opensearch", "memory":
	default:
		return fmt.Errorf("unknown database type: %s (supported: postgres, opensearch, memory)", c.Database.Type)
	}
	switch c.Checkpoint.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown checkpoint backend: %s (supported: file, redis)", c.Checkpoint.Backend)
	}
	if c.Tail.Resume && c.Checkpoint.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("checkpoint backend redis requires redis.enabled")
	}
	switch c.DLQ.Backend {
	case "file", "jetstream":
	default:
		return fmt.Errorf("unknown DLQ backend: %s (supported: file, jetstream)", c.DLQ.Backend)
	}
	if c.Tail.PollInterval <= 0 {
		return fmt.Errorf("tail.poll_interval must be positive")
	}
	return nil
}
