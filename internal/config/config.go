package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateSource RateSourceConfig `mapstructure:"rate_source"`
	Routing    RoutingConfig    `mapstructure:"routing"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Deals      DealsConfig      `mapstructure:"deals"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
}

// DatabaseConfig contains PostgreSQL settings backing the deals store
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig backs the treasury rate cache
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateSourceConfig contains treasury rate-source settings
type RateSourceConfig struct {
	FetchTimeoutMS   int     `mapstructure:"fetch_timeout_ms"`   // 2000, per spec §5
	StaleToleranceS  int     `mapstructure:"stale_tolerance_s"`  // 30, per spec §5
	CacheTTLS        int     `mapstructure:"cache_ttl_s"`        // default cache entry freshness window
	BreakerMinReqs   uint32  `mapstructure:"breaker_min_reqs"`   // gobreaker: requests before tripping
	BreakerFailRatio float64 `mapstructure:"breaker_fail_ratio"` // gobreaker: failure ratio threshold
	BreakerOpenS     int     `mapstructure:"breaker_open_s"`     // gobreaker: open-state duration
}

// RoutingConfig contains smart-routing-engine settings
type RoutingConfig struct {
	DefaultObjective string `mapstructure:"default_objective"` // BEST_RATE | OPTIMUM | FASTEST_EXECUTION | MAX_STP
}

// PricingConfig contains pricing-engine settings
type PricingConfig struct {
	QuoteValiditySeconds int `mapstructure:"quote_validity_seconds"` // 60, per spec §4.3
}

// DealsConfig contains deals-store persistence settings
type DealsConfig struct {
	WALPath string `mapstructure:"wal_path"` // path for a deals durability log; no component in this module reads it
}

// RulesConfig contains rules-engine settings
type RulesConfig struct {
	ProviderSelectionPath string `mapstructure:"provider_selection_path"`
	MarginAdjustmentPath  string `mapstructure:"margin_adjustment_path"`
	TimeZone              string `mapstructure:"time_zone"` // validated as non-empty; rules take time_of_day from the caller's timestamp and do not read this field
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("FXENGINE")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration using comprehensive validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fxengine")
	v.SetDefault("app.version", Version)
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "fxengine")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Rate source defaults, per spec §5
	v.SetDefault("rate_source.fetch_timeout_ms", 2000)
	v.SetDefault("rate_source.stale_tolerance_s", 30)
	v.SetDefault("rate_source.cache_ttl_s", 5)
	v.SetDefault("rate_source.breaker_min_reqs", 5)
	v.SetDefault("rate_source.breaker_fail_ratio", 0.6)
	v.SetDefault("rate_source.breaker_open_s", 30)

	// Routing defaults
	v.SetDefault("routing.default_objective", "OPTIMUM")

	// Pricing defaults, per spec §4.3
	v.SetDefault("pricing.quote_validity_seconds", 60)

	// Deals defaults
	v.SetDefault("deals.wal_path", "./data/deals.wal.json")

	// Rules defaults
	v.SetDefault("rules.provider_selection_path", "./configs/rules/provider_selection.json")
	v.SetDefault("rules.margin_adjustment_path", "./configs/rules/margin_adjustment.json")
	v.SetDefault("rules.time_zone", "UTC")

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// Note: Comprehensive validation is in validation.go.
// The Config.Validate() method is called during Load().

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FetchTimeout returns the rate-source fetch timeout as a time.Duration
func (c *RateSourceConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// StaleTolerance returns the maximum cache staleness tolerated before a fetch fails
func (c *RateSourceConfig) StaleTolerance() time.Duration {
	return time.Duration(c.StaleToleranceS) * time.Second
}

// CacheTTL returns the rate cache entry freshness window
func (c *RateSourceConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}

// BreakerOpenDuration returns how long the rate-source circuit breaker stays open
func (c *RateSourceConfig) BreakerOpenDuration() time.Duration {
	return time.Duration(c.BreakerOpenS) * time.Second
}

// QuoteValidity returns the default quote expiry window
func (c *PricingConfig) QuoteValidity() time.Duration {
	return time.Duration(c.QuoteValiditySeconds) * time.Second
}
