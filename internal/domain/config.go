package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	ExternalAPI ExternalAPIConfig `mapstructure:"external_api"`
	Cache       CacheConfig       `mapstructure:"cache"`
	History     HistoryConfig     `mapstructure:"history"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents the Postgres connection configuration used by the
// assessment repository. Disabled deployments fall back to the standalone
// sqlite history log.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ExternalAPIConfig represents external terminology/interaction API configuration
type ExternalAPIConfig struct {
	RxNorm  RxNormConfig  `mapstructure:"rxnorm"`
	OpenFDA OpenFDAConfig `mapstructure:"openfda"`
}

// RxNormConfig represents the RxNav/RxNorm REST API configuration
type RxNormConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RetryCount int           `mapstructure:"retry_count"`
	// MinApproxScore rejects weak approximate-term matches so random text
	// does not pass as a medication.
	MinApproxScore float64 `mapstructure:"min_approx_score"`
}

// OpenFDAConfig represents the openFDA drug-label API configuration, used as
// an interaction-evidence fallback when the primary source has no data.
type OpenFDAConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RetryCount int           `mapstructure:"retry_count"`
}

// CacheConfig represents the terminology response cache configuration.
// The in-process LRU tier is always on; Redis is the optional shared tier.
type CacheConfig struct {
	RedisEnabled   bool          `mapstructure:"redis_enabled"`
	RedisURL       string        `mapstructure:"redis_url"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PoolSize       int           `mapstructure:"pool_size"`
	PoolTimeout    time.Duration `mapstructure:"pool_timeout"`
	MemoryMaxItems int           `mapstructure:"memory_max_items"`
	RxCUITTL       time.Duration `mapstructure:"rxcui_ttl"`
	InteractionTTL time.Duration `mapstructure:"interaction_ttl"`
	LabelTTL       time.Duration `mapstructure:"label_ttl"`
}

// HistoryConfig represents the standalone sqlite assessment log used when no
// Postgres database is configured.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ScoringConfig carries the tunable scoring policy knobs that are exposed via
// configuration. The full policy tables live in the scoring package; these
// values override its defaults and are validated fatally at startup.
type ScoringConfig struct {
	// Weights must sum to 1.0.
	DDIWeight           float64 `mapstructure:"ddi_weight"`
	DoseWeight          float64 `mapstructure:"dose_weight"`
	VulnerabilityWeight float64 `mapstructure:"vulnerability_weight"`
	// Urgency thresholds must satisfy 0 < YellowThreshold < RedThreshold <= 10.
	RedThreshold    float64 `mapstructure:"red_threshold"`
	YellowThreshold float64 `mapstructure:"yellow_threshold"`
}
