package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Remote backends.
const (
	BackendFirestore = "firestore"
	BackendRTDB      = "rtdb"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	LogFormat string `mapstructure:"LOG_FORMAT"` // "json" or "console"

	RemoteBackend                    string        `mapstructure:"REMOTE_BACKEND"`
	FirebaseProjectID                string        `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string        `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string        `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseDatabaseURL              string        `mapstructure:"FIREBASE_DATABASE_URL"`
	RTDBPollInterval                 time.Duration `mapstructure:"RTDB_POLL_INTERVAL"`

	RedisAddress  string `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	OrderEventsQueue string `mapstructure:"ORDER_EVENTS_QUEUE"`

	ClientURL string `mapstructure:"CLIENT_URL"`
	SeedFile  string `mapstructure:"SEED_FILE"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	MailFrom string `mapstructure:"MAIL_FROM"`
}

var keys = []string{
	"PORT", "GIN_MODE", "LOG_FORMAT",
	"REMOTE_BACKEND", "FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "FIREBASE_DATABASE_URL", "RTDB_POLL_INTERVAL",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"RABBITMQ_URL", "ORDER_EVENTS_QUEUE",
	"CLIENT_URL", "SEED_FILE",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "MAIL_FROM",
}

// LoadConfig loads configuration from environment variables using Viper.
// When CONFIG_FILE is set, that YAML file provides values the environment
// does not override.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("REMOTE_BACKEND", BackendFirestore)
	v.SetDefault("RTDB_POLL_INTERVAL", "2s")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ORDER_EVENTS_QUEUE", "storefront.orders")
	v.SetDefault("SMTP_PORT", 587)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	_ = v.BindEnv("CONFIG_FILE")
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings required by the selected backend are
// present.
func (c *Config) Validate() error {
	c.RemoteBackend = strings.ToLower(strings.TrimSpace(c.RemoteBackend))

	switch c.RemoteBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
	case BackendRTDB:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.FirebaseDatabaseURL == "" {
			return errors.New("FIREBASE_DATABASE_URL is required for the rtdb backend")
		}
		if c.RTDBPollInterval <= 0 {
			return errors.New("RTDB_POLL_INTERVAL must be positive")
		}
	case BackendRedis:
		if c.RedisAddress == "" {
			return errors.New("REDIS_ADDRESS is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown REMOTE_BACKEND '%s'", c.RemoteBackend)
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("unknown LOG_FORMAT '%s'", c.LogFormat)
	}
	return nil
}

// UsesFirebase reports whether the Firebase Admin SDK must be initialized.
// ID-token verification needs it even when another backend holds the data,
// as long as a project is configured.
func (c *Config) UsesFirebase() bool {
	return c.RemoteBackend == BackendFirestore || c.RemoteBackend == BackendRTDB || c.FirebaseProjectID != ""
}

// MailEnabled reports whether SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}
