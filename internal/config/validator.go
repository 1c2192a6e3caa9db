package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "price.bonus_percent")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validatePrice()...)
	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateStore validates the StoreConfig
func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if c.Store.CallTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "store.call_timeout_ms",
			Value:   c.Store.CallTimeoutMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validatePrice validates the PriceConfig
func (c *Config) validatePrice() []ValidationError {
	var errors []ValidationError

	if c.Price.Starting != "" {
		start, err := decimal.NewFromString(c.Price.Starting)
		if err != nil {
			errors = append(errors, ValidationError{
				Field:   "price.starting",
				Value:   c.Price.Starting,
				Message: "must be a decimal number",
			})
		} else if start.IsNegative() {
			errors = append(errors, ValidationError{
				Field:   "price.starting",
				Value:   c.Price.Starting,
				Message: "must be non-negative",
			})
		}
	}

	if c.Price.BonusPercent <= 0 || c.Price.BonusPercent > 1 {
		errors = append(errors, ValidationError{
			Field:   "price.bonus_percent",
			Value:   c.Price.BonusPercent,
			Message: "must be greater than 0 and at most 1",
		})
	}

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if c.Engine.ConflictRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.conflict_retries",
			Value:   c.Engine.ConflictRetries,
			Message: "must be non-negative",
		})
	}

	// Unbounded retry loops hide persistent contention; cap it.
	const maxConflictRetries = 100
	if c.Engine.ConflictRetries > maxConflictRetries {
		errors = append(errors, ValidationError{
			Field:   "engine.conflict_retries",
			Value:   c.Engine.ConflictRetries,
			Message: fmt.Sprintf("exceeds maximum of %d", maxConflictRetries),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
