// Package validation provides request-level validation helpers for the
// engine's entry points (deals, quotes, routing requests), ahead of the
// domain checks performed by deals.Store and the pricing/routing engines.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator provides validation utilities
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
}

// MinLength validates minimum string length
func (v *Validator) MinLength(field, value string, min int) {
	if len(value) < min {
		v.AddError(field, fmt.Sprintf("must be at least %d characters", min))
	}
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) {
	if len(value) > max {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// MinValue validates minimum numeric value
func (v *Validator) MinValue(field string, value, min float64) {
	if value < min {
		v.AddError(field, fmt.Sprintf("must be at least %v", min))
	}
}

// MaxValue validates maximum numeric value
func (v *Validator) MaxValue(field string, value, max float64) {
	if value > max {
		v.AddError(field, fmt.Sprintf("must be at most %v", max))
	}
}

// Positive validates that a number is positive
func (v *Validator) Positive(field string, value float64) {
	if value <= 0 {
		v.AddError(field, "must be positive")
	}
}

// NonNegative validates that a number is non-negative
func (v *Validator) NonNegative(field string, value float64) {
	if value < 0 {
		v.AddError(field, "must be non-negative")
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// UUID validates UUID format
func (v *Validator) UUID(field, value string) {
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
}

var currencyPairRegex = regexp.MustCompile(`^[A-Z][A-Z0-9\-]{1,9}[A-Z0-9]$`)

// CurrencyPair validates a six-letter-or-longer concatenated fiat
// currency pair code (e.g. "USDINR"), matching the ratesource package's
// canonical pair format.
func (v *Validator) CurrencyPair(field, value string) {
	if len(value) < 6 || !currencyPairRegex.MatchString(value) {
		v.AddError(field, "must be a valid currency pair (e.g. USDINR)")
	}
}

// Alphanumeric validates that a string contains only alphanumeric characters
func (v *Validator) Alphanumeric(field, value string) {
	alphanumericRegex := regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	if !alphanumericRegex.MatchString(value) {
		v.AddError(field, "must contain only alphanumeric characters")
	}
}

// NoSpecialChars validates that a string doesn't contain special characters that could be used for injection
func (v *Validator) NoSpecialChars(field, value string) {
	// Disallow characters commonly used in injection attacks
	dangerousChars := []string{"<", ">", "'", "\"", ";", "--", "/*", "*/", "DROP", "SELECT", "INSERT", "UPDATE", "DELETE"}
	upperValue := strings.ToUpper(value)
	for _, char := range dangerousChars {
		if strings.Contains(upperValue, char) {
			v.AddError(field, "contains disallowed characters")
			return
		}
	}
}

// DealValidator validates a forward/spot deal before it reaches the store.
type DealValidator struct {
	*Validator
}

// NewDealValidator creates a validator for deal creation requests.
func NewDealValidator() *DealValidator {
	return &DealValidator{Validator: NewValidator()}
}

// ValidateCurrencyPair validates the deal's currency pair field.
func (v *DealValidator) ValidateCurrencyPair(pair string) {
	v.Required("currency_pair", pair)
	if v.HasErrors() {
		return
	}
	v.CurrencyPair("currency_pair", pair)
}

// ValidateSide validates a deal's buy/sell side.
func (v *DealValidator) ValidateSide(side string) {
	v.Required("side", side)
	if v.HasErrors() {
		return
	}
	v.OneOf("side", side, []string{"BUY", "SELL"})
}

// ValidateAmount validates the deal's notional amount.
func (v *DealValidator) ValidateAmount(amount float64) {
	v.Positive("amount", amount)
	v.MaxValue("amount", amount, 1_000_000_000)
}

// ValidateRate validates a contracted deal rate.
func (v *DealValidator) ValidateRate(rate float64) {
	v.Positive("rate", rate)
}

// QuoteRequestValidator validates pricing engine quote requests.
type QuoteRequestValidator struct {
	*Validator
}

// NewQuoteRequestValidator creates a validator for quote requests.
func NewQuoteRequestValidator() *QuoteRequestValidator {
	return &QuoteRequestValidator{Validator: NewValidator()}
}

// ValidatePair validates the requested currency pair.
func (v *QuoteRequestValidator) ValidatePair(pair string) {
	v.Required("currency_pair", pair)
	if v.HasErrors() {
		return
	}
	v.CurrencyPair("currency_pair", pair)
}

// ValidateAmount validates the requested conversion amount.
func (v *QuoteRequestValidator) ValidateAmount(amount float64) {
	v.Positive("amount", amount)
}

// ValidateCustomerTier validates that a tier identifier was supplied.
func (v *QuoteRequestValidator) ValidateCustomerTier(tier string) {
	v.Required("customer_tier", tier)
}

// RouteRequestValidator validates smart routing engine requests.
type RouteRequestValidator struct {
	*Validator
}

// NewRouteRequestValidator creates a validator for routing requests.
func NewRouteRequestValidator() *RouteRequestValidator {
	return &RouteRequestValidator{Validator: NewValidator()}
}

// ValidateObjective validates the requested routing objective name.
func (v *RouteRequestValidator) ValidateObjective(objective string) {
	v.Required("objective", objective)
	if v.HasErrors() {
		return
	}
	v.OneOf("objective", objective, []string{"BEST_RATE", "OPTIMUM", "FASTEST_EXECUTION", "MAX_STP"})
}

// SanitizeInput sanitizes user input to prevent injection attacks
func SanitizeInput(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Trim whitespace
	input = strings.TrimSpace(input)

	// Limit length to prevent DoS
	if len(input) > 10000 {
		input = input[:10000]
	}

	return input
}
