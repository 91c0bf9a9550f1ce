package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateRedis()...)
	errors = append(errors, c.validateRateSource()...)
	errors = append(errors, c.validateRouting()...)
	errors = append(errors, c.validatePricing()...)
	errors = append(errors, c.validateRules()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	if c.App.Environment == "" {
		errors = append(errors, ValidationError{
			Field:   "app.environment",
			Message: "Environment is required (development, staging, or production)",
		})
	} else {
		validEnvs := []string{"development", "staging", "production"}
		valid := false
		for _, env := range validEnvs {
			if c.App.Environment == env {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "app.environment",
				Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
			})
		}
	}

	if c.App.LogLevel == "" {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: "Log level is required (debug, info, warn, error)",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "Database host is required",
		})
	}

	if c.Database.Port != 0 && (c.Database.Port < 1 || c.Database.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Database.Port),
		})
	}

	if c.Database.Password == "" && c.App.Environment != "development" {
		errors = append(errors, ValidationError{
			Field:   "database.password",
			Message: "Database password is required in non-development environments",
		})
	}

	if c.Database.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.pool_size",
			Message: "Database pool size must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateRedis() ValidationErrors {
	var errors ValidationErrors

	if c.Redis.Port != 0 && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Redis.Port),
		})
	}

	return errors
}

func (c *Config) validateRateSource() ValidationErrors {
	var errors ValidationErrors

	if c.RateSource.FetchTimeoutMS < 1 {
		errors = append(errors, ValidationError{
			Field:   "rate_source.fetch_timeout_ms",
			Message: "Fetch timeout must be greater than 0",
		})
	}

	if c.RateSource.StaleToleranceS < 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_source.stale_tolerance_s",
			Message: "Stale tolerance must be non-negative",
		})
	}

	if c.RateSource.BreakerFailRatio <= 0 || c.RateSource.BreakerFailRatio > 1 {
		errors = append(errors, ValidationError{
			Field:   "rate_source.breaker_fail_ratio",
			Message: fmt.Sprintf("Invalid breaker_fail_ratio %.2f. Must be in (0, 1]", c.RateSource.BreakerFailRatio),
		})
	}

	return errors
}

func (c *Config) validateRouting() ValidationErrors {
	var errors ValidationErrors

	validObjectives := []string{"BEST_RATE", "OPTIMUM", "FASTEST_EXECUTION", "MAX_STP"}
	valid := false
	for _, o := range validObjectives {
		if c.Routing.DefaultObjective == o {
			valid = true
			break
		}
	}
	if !valid {
		errors = append(errors, ValidationError{
			Field:   "routing.default_objective",
			Message: fmt.Sprintf("Invalid default_objective '%s'. Must be one of: %v", c.Routing.DefaultObjective, validObjectives),
		})
	}

	return errors
}

func (c *Config) validatePricing() ValidationErrors {
	var errors ValidationErrors

	if c.Pricing.QuoteValiditySeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "pricing.quote_validity_seconds",
			Message: "Quote validity must be greater than 0",
		})
	}

	return errors
}

func (c *Config) validateRules() ValidationErrors {
	var errors ValidationErrors

	if c.Rules.TimeZone == "" {
		errors = append(errors, ValidationError{
			Field:   "rules.time_zone",
			Message: "A single documented time zone is required for OUTSIDE_HOURS evaluation",
		})
	}

	return errors
}

// ValidateAndLoad loads and validates configuration.
// configPath can be empty to use default config locations.
func ValidateAndLoad(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
