// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for everything except credentials.
//
// # Configuration Structure
//
// Required settings:
//
//	TEAMSEATS_POSTGRES_URL="postgres://localhost/teamseats?sslmode=disable"
//	TEAMSEATS_STRIPE_API_KEY="sk_live_..."
//	TEAMSEATS_SENDGRID_API_KEY="SG...."
//
// Server settings:
//
//	TEAMSEATS_OPS_PORT="9090"
//	TEAMSEATS_SHUTDOWN_TIMEOUT="30s"
//
// Notification settings:
//
//	TEAMSEATS_MAIL_FROM="team@example.com"
//	TEAMSEATS_MAIL_FROM_NAME="Team Subscriptions"
//	TEAMSEATS_APP_URL="https://app.example.com"
//	TEAMSEATS_NOTIFY_TIMEOUT="10s"
//
// Seat settings:
//
//	TEAMSEATS_REDIS_URL="redis://localhost:6379/0"  # enables the mutation guard
//	TEAMSEATS_LOCK_TTL="30s"
//	TEAMSEATS_PLANS_FILE="/etc/teamseats/plans.yaml"
//	TEAMSEATS_RECONCILE_SCHEDULE="@every 1h"  # empty disables the seat audit
//	TEAMSEATS_RECONCILE_WORKERS="4"
//
// Observability settings:
//
//	TEAMSEATS_LOG_LEVEL="info"  # debug, info, warn, error
//	TEAMSEATS_METRICS_ENABLED="true"
//	TEAMSEATS_OTEL_ENABLED="true"
//	TEAMSEATS_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	tp, err := observability.InitTracing(ctx, cfg.Observability.OTel(), logger)
package config
