package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Postgres configuration
	Postgres PostgresConfig

	// Billing provider configuration
	Stripe StripeConfig

	// Notification email configuration
	Mail MailConfig

	// Mutation guard configuration
	Locks LocksConfig

	// Plan catalogue and seat audit configuration
	Billing BillingConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	OpsPort         string
	ShutdownTimeout time.Duration
}

// PostgresConfig holds database configuration
type PostgresConfig struct {
	URL      string
	MaxConns int
}

// StripeConfig holds billing provider credentials
type StripeConfig struct {
	APIKey string
}

// MailConfig holds SendGrid and notification settings
type MailConfig struct {
	SendGridAPIKey string
	From           string
	FromName       string
	// AppURL is the base URL used for links placed in emails
	AppURL        string
	NotifyTimeout time.Duration
}

// LocksConfig holds the optional Redis mutation guard settings.
// An empty RedisURL disables the guard.
type LocksConfig struct {
	RedisURL string
	TTL      time.Duration
}

// BillingConfig holds the plan catalogue and reconciliation settings
type BillingConfig struct {
	// PlansFile is an optional YAML plan catalogue; empty uses the built-in plans
	PlansFile string
	// ReconcileSchedule is a cron spec; empty disables the seat audit
	ReconcileSchedule string
	ReconcileWorkers  int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool    // Use insecure gRPC connection
	OTelSampleRatio    float64 // Fraction of root traces sampled, 0 < r <= 1
}

// OTel returns the tracing settings in the form observability.InitTracing takes
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			OpsPort:         getEnv("TEAMSEATS_OPS_PORT", "9090"),
			ShutdownTimeout: getEnvDuration("TEAMSEATS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      getEnv("TEAMSEATS_POSTGRES_URL", ""),
			MaxConns: getEnvInt("TEAMSEATS_POSTGRES_MAX_CONNS", 10),
		},
		Stripe: StripeConfig{
			APIKey: getEnv("TEAMSEATS_STRIPE_API_KEY", ""),
		},
		Mail: MailConfig{
			SendGridAPIKey: getEnv("TEAMSEATS_SENDGRID_API_KEY", ""),
			From:           getEnv("TEAMSEATS_MAIL_FROM", "team@example.com"),
			FromName:       getEnv("TEAMSEATS_MAIL_FROM_NAME", "Team Subscriptions"),
			AppURL:         getEnv("TEAMSEATS_APP_URL", "http://localhost:8080"),
			NotifyTimeout:  getEnvDuration("TEAMSEATS_NOTIFY_TIMEOUT", 10*time.Second),
		},
		Locks: LocksConfig{
			RedisURL: getEnv("TEAMSEATS_REDIS_URL", ""),
			TTL:      getEnvDuration("TEAMSEATS_LOCK_TTL", 30*time.Second),
		},
		Billing: BillingConfig{
			PlansFile:         getEnv("TEAMSEATS_PLANS_FILE", ""),
			ReconcileSchedule: lookupEnv("TEAMSEATS_RECONCILE_SCHEDULE", "@every 1h"),
			ReconcileWorkers:  getEnvInt("TEAMSEATS_RECONCILE_WORKERS", 4),
		},
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("TEAMSEATS_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("TEAMSEATS_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("TEAMSEATS_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("TEAMSEATS_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("TEAMSEATS_OTEL_SERVICE_NAME", "teamseats"),
		OTelServiceVersion: getEnv("TEAMSEATS_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("TEAMSEATS_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("TEAMSEATS_OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Postgres.MaxConns < 1 {
		return fmt.Errorf("postgres max connections must be at least 1")
	}

	if c.Stripe.APIKey == "" {
		return fmt.Errorf("stripe API key is required")
	}

	if c.Mail.SendGridAPIKey == "" {
		return fmt.Errorf("sendgrid API key is required")
	}
	if c.Mail.From == "" {
		return fmt.Errorf("mail sender address is required")
	}
	if u, err := url.Parse(c.Mail.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid app URL: %q", c.Mail.AppURL)
	}
	if c.Mail.NotifyTimeout <= 0 {
		return fmt.Errorf("notify timeout must be positive")
	}

	if c.Locks.RedisURL != "" && c.Locks.TTL <= 0 {
		return fmt.Errorf("lock TTL must be positive when redis is configured")
	}

	if c.Billing.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.Billing.ReconcileSchedule); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", c.Billing.ReconcileSchedule, err)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r <= 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be in (0, 1], got %v", r)
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is like getEnv but keeps an explicitly empty value
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
