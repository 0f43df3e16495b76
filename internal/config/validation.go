package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const clockLayout = "15:04"

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("clock", validateClock)
	_ = v.RegisterValidation("timezone", validateTimezone)
	_ = v.RegisterValidation("exitpolicy", validateExitPolicy)
	_ = v.RegisterValidation("barsource", validateBarSource)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateClock accepts HH:MM wall-clock times
func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse(clockLayout, fl.Field().String())
	return err == nil
}

func validateTimezone(fl validator.FieldLevel) bool {
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

func validateExitPolicy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "next_bar", "next_session_close", "constrained_intraday":
		return true
	default:
		return false
	}
}

func validateBarSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "yahoo", "polygon":
		return true
	default:
		return false
	}
}

// ParseClock converts an HH:MM value into the offset from midnight
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	open, err := ParseClock(cfg.Market.SessionOpen)
	if err != nil {
		return err
	}
	closeAt, err := ParseClock(cfg.Market.SessionClose)
	if err != nil {
		return err
	}
	if open >= closeAt {
		return fmt.Errorf("market session_open must be before session_close")
	}

	if err := validateWindow("market", cfg.Market.WindowStart, cfg.Market.WindowEnd, open, closeAt); err != nil {
		return err
	}
	if err := validateWindow("backtest replay", cfg.Backtest.ReplayWindowStart, cfg.Backtest.ReplayWindowEnd, open, closeAt); err != nil {
		return err
	}

	if cfg.DataSource.Provider == "polygon" && cfg.DataSource.APIKey == "" {
		return fmt.Errorf("data_source.api_key is required for the polygon provider")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics.port is required when metrics are enabled")
	}

	return nil
}

func validateWindow(name, start, end string, open, closeAt time.Duration) error {
	s, err := ParseClock(start)
	if err != nil {
		return err
	}
	e, err := ParseClock(end)
	if err != nil {
		return err
	}
	if s >= e {
		return fmt.Errorf("%s window start %s must be before end %s", name, start, end)
	}
	if s < open || e > closeAt {
		return fmt.Errorf("%s window %s-%s must lie within the trading session", name, start, end)
	}
	return nil
}

// ValidateDelivery checks the credentials needed to deliver live signals
func ValidateDelivery(cfg *Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		missing = append(missing, "telegram.bot_token")
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		missing = append(missing, "telegram.chat_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing delivery credentials: %s", strings.Join(missing, ", "))
	}
	if cfg.IsProduction() && isTestCredential(cfg.Telegram.BotToken) {
		return fmt.Errorf("production environment should not use a placeholder telegram token")
	}
	return nil
}

func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "clock":
			errMsg += fmt.Sprintf("- Field '%s' must be a HH:MM time, got '%v'\n", field, value)
		case "timezone":
			errMsg += fmt.Sprintf("- Field '%s' must be an IANA timezone, got '%v'\n", field, value)
		case "exitpolicy":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: next_bar, next_session_close, constrained_intraday\n", field)
		case "barsource":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: yahoo, polygon\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

func isTestCredential(credential string) bool {
	for _, pattern := range []string{"test", "demo", "example", "placeholder", "YOUR_"} {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}
	return false
}
