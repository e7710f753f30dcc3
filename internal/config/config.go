package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" envDefault:"development"`

	// Publish endpoint
	Host       string `env:"BOLT_HOST" envDefault:"127.0.0.1"`
	Port       int    `env:"BOLT_PORT" envDefault:"5556"`
	SendBuffer int    `env:"SEND_BUFFER" envDefault:"256"`

	// Heartbeat
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"5s"`
	HeartbeatTopic    string        `env:"HEARTBEAT_TOPIC" envDefault:"heartbeat"`

	// Logging
	LogFile   string `env:"LOG_FILE" envDefault:"bolt.log"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP trigger
	APIHost      string  `env:"API_HOST" envDefault:"127.0.0.1"`
	APIPort      int     `env:"API_PORT" envDefault:"8085"`
	APIRateLimit float64 `env:"API_RATE_LIMIT" envDefault:"10"`
	APIRateBurst int     `env:"API_RATE_BURST" envDefault:"20"`

	// Redis relay, disabled when RedisURL is empty
	RedisURL           string        `env:"REDIS_URL"`
	RedisChannelPrefix string        `env:"REDIS_CHANNEL_PREFIX" envDefault:"bolt:"`
	RedisRetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RedisRetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
}

// LoadConfig loads configuration from environment variables, after an optional .env file
func LoadConfig() (*Config, error) {
	// a missing .env is fine, system env vars still apply
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv_load_failed", "error", err.Error())
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Port < 0 || c.Port > 65535 {
		errors = append(errors, "BOLT_PORT must be between 0 and 65535")
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		errors = append(errors, "API_PORT must be between 0 and 65535")
	}
	if c.Host == "" {
		errors = append(errors, "BOLT_HOST must not be empty")
	}
	if c.SendBuffer < 1 {
		errors = append(errors, "SEND_BUFFER must be at least 1")
	}
	if c.HeartbeatInterval <= 0 {
		errors = append(errors, "HEARTBEAT_INTERVAL must be positive")
	}
	if c.HeartbeatTopic == "" || strings.ContainsAny(c.HeartbeatTopic, "\r\n") {
		errors = append(errors, "HEARTBEAT_TOPIC must be a non-empty single line")
	}
	if c.LogFile == "" {
		errors = append(errors, "LOG_FILE must not be empty")
	}

	validLogLevels := []string{"error", "warning", "warn", "info", "debug"}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if c.APIRateLimit <= 0 {
		errors = append(errors, "API_RATE_LIMIT must be positive")
	}
	if c.APIRateBurst < 1 {
		errors = append(errors, "API_RATE_BURST must be at least 1")
	}
	if c.RedisURL != "" && c.RedisRetryAttempts < 1 {
		errors = append(errors, "REDIS_RETRY_ATTEMPTS must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// RelayEnabled reports whether frames are mirrored to Redis
func (c *Config) RelayEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}
