package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/tabletalkhq/tabletalk/ttk"

	"github.com/spf13/viper"
)

// Config stores all configuration of the engine.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Database DatabaseConfig `mapstructure:"database"`
	Menu     MenuConfig     `mapstructure:"menu"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Session  SessionConfig  `mapstructure:"session"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// EngineConfig stores turn-handling behavior.
type EngineConfig struct {
	Timezone           string        `mapstructure:"timezone"`             // restaurant's fixed local zone
	GraceBuffer        time.Duration `mapstructure:"grace_buffer"`         // reservations may be this far in the past
	MaxConfirmAttempts int           `mapstructure:"max_confirm_attempts"` // summary re-prompts before escalating
	EnableTracing      bool          `mapstructure:"enable_tracing"`       // structured span logging
}

// DatabaseConfig stores libsql connection details.
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn"`
	AuthToken      string `mapstructure:"auth_token"` // remote turso databases only
	JournalMode    string `mapstructure:"journal_mode"`
	SyncMode       string `mapstructure:"sync_mode"`
	CacheSize      int    `mapstructure:"cache_size"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	ConnMaxIdleSec int    `mapstructure:"conn_max_idle_sec"`
	ConnMaxLifeSec int    `mapstructure:"conn_max_life_sec"`
}

// MenuConfig stores catalog cache behavior.
type MenuConfig struct {
	Freshness     time.Duration `mapstructure:"freshness"`      // cache age bound
	MinItems      int           `mapstructure:"min_items"`      // below this a cache is invalid
	MaxItems      int           `mapstructure:"max_items"`      // above this a cache is invalid
	RetryAttempts int           `mapstructure:"retry_attempts"` // store reload attempts per refresh
	RetryDelay    time.Duration `mapstructure:"retry_delay"`    // delay between reload attempts
	FilePath      string        `mapstructure:"file_path"`      // JSON catalog for the file source
	Source        string        `mapstructure:"source"`         // "store" | "file"
}

// ExtractConfig stores signal extraction behavior.
type ExtractConfig struct {
	DefaultAreaCode string `mapstructure:"default_area_code"` // for bare 7-digit numbers
	MaxPartySize    int    `mapstructure:"max_party_size"`
}

// PaymentConfig stores payment handoff behavior.
type PaymentConfig struct {
	Currency          string        `mapstructure:"currency"`
	GatewayTopic      string        `mapstructure:"gateway_topic"`  // outbound payment requests
	CallbackTopic     string        `mapstructure:"callback_topic"` // inbound gateway results
	SubmitCapacity    int           `mapstructure:"submit_capacity"`
	SubmitRefillRate  time.Duration `mapstructure:"submit_refill_rate"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	DescriptionPrefix string        `mapstructure:"description_prefix"` // e.g. restaurant name on statements
}

// SessionConfig stores payment session store behavior.
type SessionConfig struct {
	Backend   string        `mapstructure:"backend"` // "memory" | "redis"
	TTL       time.Duration `mapstructure:"ttl"`     // sessions older than this are swept
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
}

// NotifyConfig stores notification fanout behavior.
type NotifyConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Timeout      time.Duration `mapstructure:"timeout"` // per-notification bound
	MaxInFlight  int           `mapstructure:"max_in_flight"`
	SMSFrom      string        `mapstructure:"sms_from"`
	VenueName    string        `mapstructure:"venue_name"`    // restaurant name on receipts
	WeatherBrief bool          `mapstructure:"weather_brief"` // ask the weather collaborator for a forecast note
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Engine defaults
	viper.SetDefault("engine.timezone", internal.DefaultTimezone)
	viper.SetDefault("engine.grace_buffer", "1m")
	viper.SetDefault("engine.max_confirm_attempts", 3)
	viper.SetDefault("engine.enable_tracing", true)

	// Database defaults (embedded libsql)
	viper.SetDefault("database.dsn", internal.DefaultDatabaseDSN)
	viper.SetDefault("database.journal_mode", "WAL")
	viper.SetDefault("database.sync_mode", "NORMAL")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 25)
	viper.SetDefault("database.conn_max_idle_sec", 300)
	viper.SetDefault("database.conn_max_life_sec", 3600)

	// Menu cache defaults
	viper.SetDefault("menu.freshness", "10m")
	viper.SetDefault("menu.min_items", 5)
	viper.SetDefault("menu.max_items", 500)
	viper.SetDefault("menu.retry_attempts", 3)
	viper.SetDefault("menu.retry_delay", "250ms")
	viper.SetDefault("menu.source", "store")

	// Extraction defaults
	viper.SetDefault("extract.default_area_code", internal.DefaultAreaCode)
	viper.SetDefault("extract.max_party_size", 20)

	// Payment defaults
	viper.SetDefault("payment.currency", internal.DefaultCurrency)
	viper.SetDefault("payment.gateway_topic", "payments.requests")
	viper.SetDefault("payment.callback_topic", "payments.results")
	viper.SetDefault("payment.rate_limit_enabled", true)
	viper.SetDefault("payment.submit_capacity", 1)
	viper.SetDefault("payment.submit_refill_rate", "5s")
	viper.SetDefault("payment.description_prefix", "Reservation")

	// Session store defaults (30 minute expiry matches the voice flow)
	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.ttl", "30m")
	viper.SetDefault("session.redis_addr", "localhost:6379")
	viper.SetDefault("session.redis_db", 0)

	// Notification defaults
	viper.SetDefault("notify.enabled", true)
	viper.SetDefault("notify.timeout", "5s")
	viper.SetDefault("notify.max_in_flight", 4)
	viper.SetDefault("notify.venue_name", internal.DefaultVenueName)
	viper.SetDefault("notify.weather_brief", false)

	viper.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. session.redis_addr becomes SESSION_REDIS_ADDR
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults are used. Not an error to halt on.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
