package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port        int    `toml:"port"`
	Host        string `toml:"host"`
	Environment string `toml:"environment"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	LogMaxBackups int    `toml:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	MigrationsPath string `toml:"migrations_path"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// when set, completion and progress live in process memory instead of redis
	UseMemoryStores bool `toml:"use_memory_stores"`

	// engine
	RestSeconds           int  `toml:"rest_seconds"`
	ExerciseSeconds       int  `toml:"exercise_seconds"`
	PersistTimeoutSeconds int  `toml:"persist_timeout_seconds"`
	EngineIdleMinutes     int  `toml:"engine_idle_minutes"`
	UseMetric             bool `toml:"use_metric"`

	// completion and progress keys expire this long after their last write
	StateTTLDays int `toml:"state_ttl_days"`

	TemplateCacheSizeMB     int `toml:"template_cache_mb"`
	TemplateCacheTTLSeconds int `toml:"template_cache_ttl_seconds"`
	PRWriteTimeoutSeconds   int `toml:"pr_write_timeout_seconds"`

	RateLimitPerMin int      `toml:"rate_limit_per_min"`
	AllowedOrigins  []string `toml:"allowed_origins"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the toml file at path and returns the config of the given env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing in [%s]", env, path)
	}

	if cfg.Environment == "" {
		cfg.Environment = strings.ToLower(env)
	}
	return cfg, nil
}

func (c *Config) RestDuration() time.Duration {
	return time.Duration(c.RestSeconds) * time.Second
}

func (c *Config) ExerciseDuration() time.Duration {
	return time.Duration(c.ExerciseSeconds) * time.Second
}

func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutSeconds) * time.Second
}

func (c *Config) EngineIdleTimeout() time.Duration {
	return time.Duration(c.EngineIdleMinutes) * time.Minute
}

func (c *Config) StateTTL() time.Duration {
	return time.Duration(c.StateTTLDays) * 24 * time.Hour
}

func (c *Config) TemplateCacheTTL() time.Duration {
	return time.Duration(c.TemplateCacheTTLSeconds) * time.Second
}

func (c *Config) PRWriteTimeout() time.Duration {
	if c.PRWriteTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PRWriteTimeoutSeconds) * time.Second
}
