package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Addr          string `validate:"required"`
	SessionSecret string `validate:"required,min=16"`
	LogFormat     string `validate:"oneof=text json"`
	LogLevel      string `validate:"oneof=debug info warn error"`

	ChatBuffer           int `validate:"gte=1"`
	ChatMaxSubscribers   int `validate:"gte=0"`
	ChatMaxMessageLength int `validate:"gte=1"`

	// AllowedOrigins lists extra host patterns accepted for cross-origin
	// websocket upgrades.
	AllowedOrigins []string

	// UsersFile optionally points at a JSON file of demo users. When empty the
	// built-in users are used.
	UsersFile string

	TracingEnabled     bool
	TracingServiceName string `validate:"required_if=TracingEnabled true"`
	TracingZipkinURL   string `validate:"omitempty,url"`
}

// Defaults returns a Config populated with development defaults.
func Defaults() *Config {
	return &Config{
		Addr:                 ":8080",
		LogFormat:            "text",
		LogLevel:             "debug",
		ChatBuffer:           64,
		ChatMaxSubscribers:   1024,
		ChatMaxMessageLength: 2000,
		TracingServiceName:   "livechat",
		TracingZipkinURL:     "http://localhost:9411/api/v2/spans",
	}
}

// New loads configuration from a .env file, if present, and the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using lookup to read variables.
func FromEnv(lookup func(string) string) (*Config, error) {
	cfg := Defaults()

	setString(&cfg.Addr, lookup("APP_ADDR"))
	setString(&cfg.SessionSecret, lookup("SESSION_SECRET"))
	setString(&cfg.LogFormat, lookup("LOG_FORMAT"))
	setString(&cfg.LogLevel, lookup("LOG_LEVEL"))
	setString(&cfg.UsersFile, lookup("USERS_FILE"))
	setString(&cfg.TracingServiceName, lookup("PUBSUB_TRACING_SERVICE_NAME"))
	setString(&cfg.TracingZipkinURL, lookup("PUBSUB_TRACING_ZIPKIN_URL"))

	if v := lookup("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.ChatBuffer, err = intVar(lookup, "CHAT_BUFFER", cfg.ChatBuffer); err != nil {
		return nil, err
	}
	if cfg.ChatMaxSubscribers, err = intVar(lookup, "CHAT_MAX_SUBSCRIBERS", cfg.ChatMaxSubscribers); err != nil {
		return nil, err
	}
	if cfg.ChatMaxMessageLength, err = intVar(lookup, "CHAT_MAX_MESSAGE_LENGTH", cfg.ChatMaxMessageLength); err != nil {
		return nil, err
	}
	if v := lookup("PUBSUB_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PUBSUB_TRACING_ENABLED %q: %w", v, err)
		}
		cfg.TracingEnabled = enabled
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the Config against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func intVar(lookup func(string) string, key string, def int) (int, error) {
	v := lookup(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
