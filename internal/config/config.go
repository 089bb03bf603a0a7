// Package config defines the global configuration structure for the
// commutewatch service. Configuration is loaded once at process start and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to exit
// immediately on startup (fail fast). Window tables, fallback offsets, and
// keyword sets are deployment constants, not runtime-editable settings.
package config

import (
	"strings"
	"time"

	"commutewatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the commutewatch service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"commutewatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Transit  TransitConfig
	Weather  WeatherConfig
	Subway   SubwayConfig
	Notify   NotifyConfig
	Database DatabaseConfig
	Trigger  TriggerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string `envconfig:"PORT" default:"8080"`
	AllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// TransitConfig holds NJ Transit API credentials and stop/station constants.
type TransitConfig struct {
	Username SecretString `envconfig:"NJT_USERNAME" validate:"required"`
	Password SecretString `envconfig:"NJT_PASSWORD" validate:"required"`

	BusBaseURL  string `envconfig:"NJT_BUS_BASE_URL" validate:"required,url"`
	RailBaseURL string `envconfig:"NJT_RAIL_BASE_URL" validate:"required,url"`

	// Deployment constants: the 113 route from the Fanwood stop toward
	// New York, and the rail stations the afternoon check watches.
	BusRoute     string `envconfig:"NJT_BUS_ROUTE" default:"113"`
	BusDirection string `envconfig:"NJT_BUS_DIRECTION" default:"New York"`
	BusStop      string `envconfig:"NJT_BUS_STOP" default:"28883"`
	RailStation  string `envconfig:"NJT_RAIL_STATION" default:"NY"`

	// TokenCacheDir is where daily provider tokens are cached between
	// restarts. Tokens expire at local midnight.
	TokenCacheDir string        `envconfig:"NJT_TOKEN_CACHE_DIR" default:"."`
	Timeout       time.Duration `envconfig:"NJT_TIMEOUT" default:"10s"`
}

// WeatherConfig holds the OpenWeather credentials and the monitored coordinates.
type WeatherConfig struct {
	APIKey  SecretString  `envconfig:"WEATHER_KEY" validate:"required"`
	BaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.openweathermap.org"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"20s"`
}

// SubwayConfig holds the MTA GTFS-RT feed configuration for the N/Q/R/W
// platform at 59th & Lexington.
type SubwayConfig struct {
	FeedURL string        `envconfig:"MTA_FEED_URL" validate:"required,url"`
	APIKey  SecretString  `envconfig:"MTA_API_KEY" validate:"required"`
	StopIDs []string      `envconfig:"MTA_STOP_IDS" default:"R15S,R16S,R17S"`
	Timeout time.Duration `envconfig:"MTA_TIMEOUT" default:"10s"`
}

// NotifyConfig holds outbound channel credentials. Channels lists which
// delivery channels are active; credentials are only required for the
// channels that are enabled (validated in Validate).
type NotifyConfig struct {
	Channels []string `envconfig:"NOTIFY_CHANNELS" default:"telegram"`

	TelegramBotToken SecretString `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string       `envconfig:"TELEGRAM_CHAT_ID"`

	TwilioAccountSID SecretString `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  SecretString `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string       `envconfig:"TWILIO_PHONE_FROM"`
	TwilioTo         string       `envconfig:"TWILIO_PHONE_TO"`

	Timeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
}

// ChannelEnabled reports whether the named channel is in the active set.
func (n NotifyConfig) ChannelEnabled(ch types.ChannelType) bool {
	for _, name := range n.Channels {
		if strings.EqualFold(strings.TrimSpace(name), string(ch)) {
			return true
		}
	}
	return false
}

// DatabaseConfig holds the optional Postgres connection used for the location
// store and delivery audit log. When URL is empty the service falls back to
// in-memory stores; trigger state is memory-only either way.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
}

// Enabled reports whether a database connection is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL.Unmask() != ""
}

// TriggerConfig holds the polling cadence and evaluation horizons shared by
// both auto-trigger pipelines.
type TriggerConfig struct {
	PollInterval time.Duration `envconfig:"TRIGGER_POLL_INTERVAL" default:"5m"`
	TickTimeout  time.Duration `envconfig:"TRIGGER_TICK_TIMEOUT" default:"60s"`
	LookAhead    time.Duration `envconfig:"TRIGGER_LOOKAHEAD" default:"30m"`

	// Timezone the window tables are expressed in. The transit provider
	// reports times in Eastern Time.
	Timezone string `envconfig:"TRIGGER_TIMEZONE" default:"America/New_York"`
}
