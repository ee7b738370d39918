package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNotConfigured is returned when the backend connection settings are missing.
var ErrNotConfigured = errors.New("backend is not configured")

// AppConfig holds the application configuration
type AppConfig struct {
	Env  string `mapstructure:"ENV"`
	Port string `mapstructure:"PORT"`

	DBURL string `mapstructure:"DB_URL"`

	RedisAddress      string        `mapstructure:"REDIS_URL"`
	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisMaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`

	SymmetricKey string   `mapstructure:"SYMMETRIC_KEY"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	MessagingGatewayURL   string `mapstructure:"MESSAGING_GATEWAY_URL"`
	MessagingGatewayToken string `mapstructure:"MESSAGING_GATEWAY_TOKEN"`

	ReminderInterval  time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderBatchSize int           `mapstructure:"REMINDER_BATCH_SIZE"`

	// BearerToken guards the /internal endpoints. They are disabled when empty.
	BearerToken string `mapstructure:"BEARER_TOKEN"`
}

var keys = []string{
	"ENV", "PORT", "DB_URL",
	"REDIS_URL", "REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_MAX_RETRIES",
	"SYMMETRIC_KEY", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM",
	"MESSAGING_GATEWAY_URL", "MESSAGING_GATEWAY_TOKEN",
	"REMINDER_INTERVAL", "REMINDER_BATCH_SIZE", "BEARER_TOKEN",
}

// Load reads the configuration from the environment, falling back to an
// optional .env file in the working directory.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("PORT", "8930")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 30*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 15)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("REMINDER_INTERVAL", time.Minute)
	v.SetDefault("REMINDER_BATCH_SIZE", 50)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// A missing .env file is fine; the environment is authoritative.
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	return cfg, nil
}

// Validate reports ErrNotConfigured when a required backend setting is missing.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.DBURL == "" {
		missing = append(missing, "DB_URL")
	}
	if c.RedisAddress == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(c.SymmetricKey) != 32 {
		missing = append(missing, "SYMMETRIC_KEY (32 bytes)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// IsDevelopment reports whether ENV is set to development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// SMTPConfigured reports whether outgoing email is available.
func (c *AppConfig) SMTPConfigured() bool {
	return c.SMTPHost != ""
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
