package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/condoplane/condoplane/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Gateway configuration
	Gateway GatewayConfig

	// Registry configuration
	Registry RegistryConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// GatewayConfig holds request authorization settings
type GatewayConfig struct {
	// OIDCIssuer is the token issuer URL. Empty disables the gateway.
	OIDCIssuer string
	// OIDCClientID restricts accepted audiences. Empty skips the check.
	OIDCClientID string
	// RouteTablePath points at a YAML route policy file. Empty uses the
	// built-in table.
	RouteTablePath string
}

// RegistryConfig holds service registry settings
type RegistryConfig struct {
	// PostgresURL selects the durable store. Empty falls back to the
	// in-memory store.
	PostgresURL string

	// RedisURL enables the read-through cache in front of the store.
	RedisURL      string
	RedisPassword string
	CacheTTL      time.Duration

	// Stale sweeping
	SweepEnabled        bool
	SweepInterval       time.Duration
	HeartbeatMaxSilence time.Duration
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
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Gateway:       loadGatewayConfig(),
		Registry:      loadRegistryConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CONDOPLANE_HOST", "0.0.0.0"),
		Port:            getEnv("CONDOPLANE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("CONDOPLANE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CONDOPLANE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("CONDOPLANE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CONDOPLANE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("CONDOPLANE_HEALTH_PORT", "9090"),
	}
}

// loadGatewayConfig loads gateway configuration from environment
func loadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		OIDCIssuer:     getEnv("CONDOPLANE_OIDC_ISSUER", ""),
		OIDCClientID:   getEnv("CONDOPLANE_OIDC_CLIENT_ID", ""),
		RouteTablePath: getEnv("CONDOPLANE_ROUTE_TABLE", ""),
	}
}

// loadRegistryConfig loads registry configuration from environment
func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{
		PostgresURL:         getEnv("CONDOPLANE_POSTGRES_URL", ""),
		RedisURL:            getEnv("CONDOPLANE_REDIS_URL", ""),
		RedisPassword:       getEnv("CONDOPLANE_REDIS_PASSWORD", ""),
		CacheTTL:            getEnvDuration("CONDOPLANE_CACHE_TTL", 15*time.Second),
		SweepEnabled:        getEnvBool("CONDOPLANE_SWEEP_ENABLED", false),
		SweepInterval:       getEnvDuration("CONDOPLANE_SWEEP_INTERVAL", time.Minute),
		HeartbeatMaxSilence: getEnvDuration("CONDOPLANE_HEARTBEAT_MAX_SILENCE", 90*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CONDOPLANE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CONDOPLANE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CONDOPLANE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CONDOPLANE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CONDOPLANE_OTEL_SERVICE_NAME", "condoplane"),
		OTelServiceVersion: getEnv("CONDOPLANE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CONDOPLANE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate registry config
	if c.Registry.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Registry.SweepEnabled {
		if c.Registry.SweepInterval <= 0 {
			return fmt.Errorf("sweep interval must be positive when sweeping is enabled")
		}
		if c.Registry.HeartbeatMaxSilence <= 0 {
			return fmt.Errorf("heartbeat max silence must be positive when sweeping is enabled")
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
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
