package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "fxengine",
			Version:     "1.0.0",
			Environment: "development",
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "",
			Database: "fxengine",
			SSLMode:  "disable",
			PoolSize: 10,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		RateSource: RateSourceConfig{
			FetchTimeoutMS:   2000,
			StaleToleranceS:  30,
			CacheTTLS:        5,
			BreakerMinReqs:   5,
			BreakerFailRatio: 0.6,
			BreakerOpenS:     30,
		},
		Routing: RoutingConfig{
			DefaultObjective: "OPTIMUM",
		},
		Pricing: PricingConfig{
			QuoteValiditySeconds: 60,
		},
		Rules: RulesConfig{
			ProviderSelectionPath: "./configs/rules/provider_selection.json",
			MarginAdjustmentPath:  "./configs/rules/margin_adjustment.json",
			TimeZone:              "UTC",
		},
		Monitoring: MonitoringConfig{
			PrometheusPort: 9100,
			EnableMetrics:  true,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := getValidConfig()
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_MissingAppName(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Name = ""

	err := cfg.Validate()
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Contains(t, verrs.Error(), "app.name")
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Environment = "qa"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.environment")
}

func TestValidate_DatabasePasswordRequiredOutsideDev(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Environment = "production"
	cfg.Database.Password = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")
}

func TestValidate_InvalidRedisPort(t *testing.T) {
	cfg := getValidConfig()
	cfg.Redis.Port = 99999

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.port")
}

func TestValidate_InvalidObjective(t *testing.T) {
	cfg := getValidConfig()
	cfg.Routing.DefaultObjective = "CHEAPEST"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing.default_objective")
}

func TestValidate_InvalidBreakerFailRatio(t *testing.T) {
	cfg := getValidConfig()
	cfg.RateSource.BreakerFailRatio = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_source.breaker_fail_ratio")
}

func TestValidate_MissingTimeZone(t *testing.T) {
	cfg := getValidConfig()
	cfg.Rules.TimeZone = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules.time_zone")
}

func TestValidationErrors_ErrorFormatsAllEntries(t *testing.T) {
	verrs := ValidationErrors{
		{Field: "a.b", Message: "first"},
		{Field: "c.d", Message: "second"},
	}
	msg := verrs.Error()
	assert.Contains(t, msg, "a.b")
	assert.Contains(t, msg, "c.d")
	assert.Contains(t, msg, "2 error(s)")
}
