// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	CONDOPLANE_HOST="0.0.0.0"
//	CONDOPLANE_PORT="8080"
//	CONDOPLANE_HEALTH_PORT="9090"
//	CONDOPLANE_READ_TIMEOUT="15s"
//	CONDOPLANE_WRITE_TIMEOUT="15s"
//
// Gateway settings:
//
//	CONDOPLANE_OIDC_ISSUER="https://auth.example.com"
//	CONDOPLANE_OIDC_CLIENT_ID="condoplane"
//	CONDOPLANE_ROUTE_TABLE="/etc/condoplane/routes.yaml"
//
// Registry settings:
//
//	CONDOPLANE_POSTGRES_URL="postgres://localhost/condoplane"
//	CONDOPLANE_REDIS_URL="localhost:6379"
//	CONDOPLANE_CACHE_TTL="15s"
//	CONDOPLANE_SWEEP_ENABLED="true"
//	CONDOPLANE_SWEEP_INTERVAL="1m"
//	CONDOPLANE_HEARTBEAT_MAX_SILENCE="90s"
//
// Observability settings:
//
//	CONDOPLANE_LOG_LEVEL="info"  # debug, info, warn, error
//	CONDOPLANE_METRICS_ENABLED="true"
//	CONDOPLANE_OTEL_ENABLED="true"
//	CONDOPLANE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/registry: Uses registry configuration
//   - pkg/gateway: Uses gateway configuration
//   - pkg/observability: Uses observability configuration
package config
