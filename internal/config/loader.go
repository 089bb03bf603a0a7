// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Load .env file via godotenv (non-fatal if absent; does not override
//     already-set environment variables).
//  2. Use envconfig to process struct tags and populate the Config struct.
//  3. Validate the struct using go-playground/validator, plus the
//     cross-field channel credential checks envconfig tags cannot express.
//
// Any failure here is fatal at process start; there is no per-tick
// configuration concern.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"commutewatch/internal/types"
)

// ConfigErrorType classifies configuration load failures for diagnostics.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "parsing"
	ErrValidation ConfigErrorType = "validation"
)

// ConfigError is a diagnostic error type returned by Load to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load loads and validates the commutewatch configuration from the
// environment, consulting a .env file for values not already set.
func Load() (*Config, error) {
	// Step 1: Load .env file (non-fatal if absent). godotenv.Load() silently
	// succeeds if no .env file exists and does NOT override existing
	// environment variables.
	_ = godotenv.Load()

	// Step 2: Process envconfig tags to populate the Config struct. The
	// empty prefix means envconfig uses the exact tag values (e.g.,
	// envconfig:"NJT_USERNAME" reads NJT_USERNAME directly).
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	// Step 3: Validate the populated struct.
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := validateChannels(cfg.Notify); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateChannels enforces the cross-field rule that every enabled delivery
// channel has its credentials present. Struct tags cannot express this
// because credentials are only required when the channel is active.
func validateChannels(n NotifyConfig) error {
	if len(n.Channels) == 0 {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "NOTIFY_CHANNELS must list at least one delivery channel",
		}
	}

	for _, name := range n.Channels {
		switch types.ChannelType(name) {
		case types.ChannelTelegram:
			if n.TelegramBotToken.Unmask() == "" || n.TelegramChatID == "" {
				return &ConfigError{
					Type:    ErrValidation,
					Message: "telegram channel enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is missing",
				}
			}
		case types.ChannelWhatsApp:
			if n.TwilioAccountSID.Unmask() == "" || n.TwilioAuthToken.Unmask() == "" ||
				n.TwilioFrom == "" || n.TwilioTo == "" {
				return &ConfigError{
					Type:    ErrValidation,
					Message: "whatsapp channel enabled but Twilio credentials are incomplete",
				}
			}
		default:
			return &ConfigError{
				Type:    ErrValidation,
				Message: fmt.Sprintf("unknown notification channel %q", name),
			}
		}
	}

	return nil
}
