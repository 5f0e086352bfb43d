package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/drugshield-risk-server/internal/domain"
	"github.com/drugshield-risk-server/internal/scoring"
)

// Manager loads and validates application configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/drugshield-risk-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("DRUGSHIELD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "drugshield")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 2)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle_time", "1m")
	viper.SetDefault("database.migrations_path", "migrations")

	// External API defaults
	viper.SetDefault("external_api.rxnorm.base_url", "https://rxnav.nlm.nih.gov/REST")
	viper.SetDefault("external_api.rxnorm.timeout", "10s")
	viper.SetDefault("external_api.rxnorm.rate_limit", 20)
	viper.SetDefault("external_api.rxnorm.retry_count", 3)
	viper.SetDefault("external_api.rxnorm.min_approx_score", 50)

	viper.SetDefault("external_api.openfda.base_url", "https://api.fda.gov/drug/label.json")
	viper.SetDefault("external_api.openfda.timeout", "10s")
	viper.SetDefault("external_api.openfda.rate_limit", 4)
	viper.SetDefault("external_api.openfda.retry_count", 3)

	// Cache defaults
	viper.SetDefault("cache.redis_enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")
	viper.SetDefault("cache.memory_max_items", 2048)
	viper.SetDefault("cache.rxcui_ttl", "1h")
	viper.SetDefault("cache.interaction_ttl", "10m")
	viper.SetDefault("cache.label_ttl", "12h")

	// History defaults
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", "drugshield_history.db")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Scoring defaults
	viper.SetDefault("scoring.ddi_weight", 0.50)
	viper.SetDefault("scoring.dose_weight", 0.30)
	viper.SetDefault("scoring.vulnerability_weight", 0.20)
	viper.SetDefault("scoring.red_threshold", 7.5)
	viper.SetDefault("scoring.yellow_threshold", 4.0)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// BuildPolicy merges the configured scoring knobs into the default policy
// tables. The result still has to pass scoring.Policy.Validate, which
// Validate below performs.
func (m *Manager) BuildPolicy() scoring.Policy {
	p := scoring.DefaultPolicy()
	s := m.config.Scoring
	p.Weights.DDI = s.DDIWeight
	p.Weights.Dose = s.DoseWeight
	p.Weights.Vulnerability = s.VulnerabilityWeight
	p.RedThreshold = s.RedThreshold
	p.YellowThreshold = s.YellowThreshold
	return p
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate database configuration when enabled
	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	// Validate external API URLs
	if config.ExternalAPI.RxNorm.BaseURL == "" {
		return fmt.Errorf("RxNorm base URL is required")
	}
	if config.ExternalAPI.OpenFDA.BaseURL == "" {
		return fmt.Errorf("openFDA base URL is required")
	}

	// Validate cache configuration
	if config.Cache.RedisEnabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when Redis is enabled")
	}
	if config.Cache.MemoryMaxItems <= 0 {
		return fmt.Errorf("memory cache size must be positive")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	// Validate the scoring policy; a broken policy is fatal at startup,
	// never silently corrected.
	if err := m.BuildPolicy().Validate(); err != nil {
		return err
	}

	return nil
}

// GetDatabaseURL returns the database connection string in URL form, as the
// migration tooling expects.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     db.Database,
		RawQuery: "sslmode=" + db.SSLMode,
	}
	return u.String()
}
