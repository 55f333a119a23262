package config

import (
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLookupEnv tests that an explicitly empty value is kept
func TestLookupEnv(t *testing.T) {
	t.Setenv("TEST_LOOKUP_EMPTY", "")
	if got := lookupEnv("TEST_LOOKUP_EMPTY", "default"); got != "" {
		t.Errorf("lookupEnv() = %q, want empty", got)
	}
	if got := lookupEnv("TEST_LOOKUP_NOT_SET_ANYWHERE", "default"); got != "default" {
		t.Errorf("lookupEnv() = %q, want default", got)
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "returns true for 'true'", envValue: "true", want: true},
		{name: "returns true for '1'", envValue: "1", want: true},
		{name: "returns false for 'false'", envValue: "false", defaultValue: true, want: false},
		{name: "returns default when not set", envValue: "", defaultValue: true, want: true},
		{name: "returns true for 'TRUE' (case insensitive)", envValue: "TRUE", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)

			got := getEnvBool("TEST_BOOL", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{name: "parses integer", envValue: "42", want: 42},
		{name: "returns default when not set", envValue: "", want: 7},
		{name: "returns default for invalid value", envValue: "many", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)

			if got := getEnvInt("TEST_INT", 7); got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "parses duration", envValue: "45s", want: 45 * time.Second},
		{name: "returns default when not set", envValue: "", want: time.Minute},
		{name: "returns default for invalid value", envValue: "soon", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TEAMSEATS_POSTGRES_URL", "postgres://localhost/teamseats?sslmode=disable")
	t.Setenv("TEAMSEATS_STRIPE_API_KEY", "sk_test_123")
	t.Setenv("TEAMSEATS_SENDGRID_API_KEY", "SG.test")
}

// TestLoadConfig tests loading from the environment
func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.OpsPort != "9090" {
			t.Errorf("OpsPort = %v, want 9090", cfg.Server.OpsPort)
		}
		if cfg.Mail.NotifyTimeout != 10*time.Second {
			t.Errorf("NotifyTimeout = %v, want 10s", cfg.Mail.NotifyTimeout)
		}
		if cfg.Locks.RedisURL != "" {
			t.Errorf("RedisURL = %v, want empty", cfg.Locks.RedisURL)
		}
		if cfg.Billing.ReconcileSchedule != "@every 1h" {
			t.Errorf("ReconcileSchedule = %v, want @every 1h", cfg.Billing.ReconcileSchedule)
		}
		if cfg.Observability.LogLevel != observability.InfoLevel {
			t.Errorf("LogLevel = %v, want info", cfg.Observability.LogLevel)
		}
		if !cfg.Observability.MetricsEnabled {
			t.Error("MetricsEnabled = false, want true")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TEAMSEATS_OPS_PORT", "9191")
		t.Setenv("TEAMSEATS_REDIS_URL", "redis://cache:6379/1")
		t.Setenv("TEAMSEATS_LOCK_TTL", "5s")
		t.Setenv("TEAMSEATS_RECONCILE_SCHEDULE", "")
		t.Setenv("TEAMSEATS_LOG_LEVEL", "debug")
		t.Setenv("TEAMSEATS_APP_URL", "https://app.example.com")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.OpsPort != "9191" {
			t.Errorf("OpsPort = %v, want 9191", cfg.Server.OpsPort)
		}
		if cfg.Locks.RedisURL != "redis://cache:6379/1" || cfg.Locks.TTL != 5*time.Second {
			t.Errorf("Locks = %+v", cfg.Locks)
		}
		if cfg.Billing.ReconcileSchedule != "" {
			t.Errorf("ReconcileSchedule = %q, want disabled", cfg.Billing.ReconcileSchedule)
		}
		if cfg.Observability.LogLevel != observability.DebugLevel {
			t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("TEAMSEATS_POSTGRES_URL", "postgres://localhost/teamseats")
		t.Setenv("TEAMSEATS_STRIPE_API_KEY", "")
		t.Setenv("TEAMSEATS_SENDGRID_API_KEY", "SG.test")

		if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "stripe API key is required") {
			t.Errorf("LoadConfig() error = %v, want stripe key error", err)
		}
	})
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{OpsPort: "9090", ShutdownTimeout: 30 * time.Second},
		Postgres: PostgresConfig{URL: "postgres://localhost/teamseats", MaxConns: 10},
		Stripe:   StripeConfig{APIKey: "sk_test_123"},
		Mail: MailConfig{
			SendGridAPIKey: "SG.test",
			From:           "team@example.com",
			AppURL:         "https://app.example.com",
			NotifyTimeout:  10 * time.Second,
		},
		Locks:   LocksConfig{TTL: 30 * time.Second},
		Billing: BillingConfig{ReconcileSchedule: "@every 1h"},
	}
}

// TestConfigValidate tests configuration validation
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing ops port", mutate: func(c *Config) { c.Server.OpsPort = "" }, wantErr: "ops port is required"},
		{name: "missing postgres URL", mutate: func(c *Config) { c.Postgres.URL = "" }, wantErr: "postgres URL is required"},
		{name: "no connections", mutate: func(c *Config) { c.Postgres.MaxConns = 0 }, wantErr: "postgres max connections must be at least 1"},
		{name: "missing stripe key", mutate: func(c *Config) { c.Stripe.APIKey = "" }, wantErr: "stripe API key is required"},
		{name: "missing sendgrid key", mutate: func(c *Config) { c.Mail.SendGridAPIKey = "" }, wantErr: "sendgrid API key is required"},
		{name: "relative app URL", mutate: func(c *Config) { c.Mail.AppURL = "/invites" }, wantErr: "invalid app URL"},
		{name: "redis without TTL", mutate: func(c *Config) { c.Locks.RedisURL = "redis://localhost"; c.Locks.TTL = 0 }, wantErr: "lock TTL must be positive"},
		{name: "bad schedule", mutate: func(c *Config) { c.Billing.ReconcileSchedule = "hourly-ish" }, wantErr: "invalid reconcile schedule"},
		{name: "disabled schedule", mutate: func(c *Config) { c.Billing.ReconcileSchedule = "" }},
		{name: "cron schedule", mutate: func(c *Config) { c.Billing.ReconcileSchedule = "15 * * * *" }},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelServiceName = "teamseats"
			},
			wantErr: "OpenTelemetry endpoint is required when OTel is enabled",
		},
		{
			name: "otel enabled without service name",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = "localhost:4317"
			},
			wantErr: "OpenTelemetry service name is required when OTel is enabled",
		},
		{
			name: "otel sample ratio out of range",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = "localhost:4317"
				c.Observability.OTelServiceName = "teamseats"
				c.Observability.OTelSampleRatio = 1.5
			},
			wantErr: "OpenTelemetry sample ratio must be in (0, 1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

// TestObservabilityConfig_OTel tests the tracing settings conversion
func TestObservabilityConfig_OTel(t *testing.T) {
	cfg := ObservabilityConfig{
		OTelEnabled:        true,
		OTelEndpoint:       "collector:4317",
		OTelServiceName:    "teamseats",
		OTelServiceVersion: "2.0.0",
		OTelInsecure:       true,
		OTelSampleRatio:    0.25,
	}

	want := observability.OTelConfig{
		Enabled:        true,
		Endpoint:       "collector:4317",
		ServiceName:    "teamseats",
		ServiceVersion: "2.0.0",
		Insecure:       true,
		SampleRatio:    0.25,
	}
	if got := cfg.OTel(); got != want {
		t.Errorf("OTel() = %+v, want %+v", got, want)
	}
}
