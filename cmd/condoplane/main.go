package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/condoplane/condoplane/pkg/config"
	"github.com/condoplane/condoplane/pkg/gateway"
	"github.com/condoplane/condoplane/pkg/httputil"
	"github.com/condoplane/condoplane/pkg/observability"
	"github.com/condoplane/condoplane/pkg/registry"
	"github.com/condoplane/condoplane/pkg/routes"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "condoplane: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting condoplane")

	ctx := context.Background()

	// Tracing
	otelShutdown, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	// Registry store: postgres when configured, otherwise in-memory.
	var (
		store registry.Store
		db    *sql.DB
	)
	if cfg.Registry.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.Registry.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to open postgres connection: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
		store = registry.NewPostgresStore(db)
		logger.Info("Using postgres registry store")
	} else {
		store = registry.NewMemoryStore()
		logger.Warn("No postgres URL configured, using in-memory registry store")
	}

	var redisCache *registry.RedisCache
	if cfg.Registry.RedisURL != "" {
		redisCache, err = registry.NewRedisCache(store, cfg.Registry.RedisURL, cfg.Registry.RedisPassword, cfg.Registry.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisCache
		logger.WithField("ttl", cfg.Registry.CacheTTL.String()).Info("Redis registry cache enabled")
	}
	defer store.Close()

	registrySvc := registry.NewService(store, logger, registry.WithMetrics(metrics))

	// Route policy
	policy, err := loadPolicy(cfg.Gateway.RouteTablePath)
	if err != nil {
		return err
	}

	// API router
	router := mux.NewRouter()

	registryHandlers := registry.NewHandlers(registrySvc, logger)
	registryHandlers.RegisterRoutes(router.PathPrefix("/discovery").Subrouter())

	if cfg.Gateway.OIDCIssuer == "" {
		logger.Warn("No OIDC issuer configured, gateway endpoint disabled")
	} else if db == nil {
		logger.Warn("Gateway requires a postgres role store, gateway endpoint disabled")
	} else {
		identity, err := gateway.NewOIDCIdentityProvider(ctx, cfg.Gateway.OIDCIssuer, cfg.Gateway.OIDCClientID)
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC provider: %w", err)
		}
		gw := gateway.New(policy, identity, gateway.NewSQLRoleStore(db), logger, gateway.WithMetrics(metrics))
		gatewayHandlers := gateway.NewHandlers(gw, logger)
		gatewayHandlers.RegisterRoutes(router.PathPrefix("/gateway").Subrouter())
		logger.WithField("issuer", cfg.Gateway.OIDCIssuer).Info("Gateway endpoint enabled")
	}

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger, metrics),
		httputil.RecoveryMiddleware(logger),
		httputil.CORSMiddleware,
	)(router)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "condoplane")
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes.
	var redisClient *redis.Client
	if redisCache != nil {
		redisClient = redisCache.Client()
	}
	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	if otelShutdown != nil {
		shutdown.Register(otelShutdown)
	}

	// Stale instance sweeping
	if cfg.Registry.SweepEnabled {
		sweeper, err := registry.NewSweeper(registrySvc, cfg.Registry.SweepInterval, cfg.Registry.HeartbeatMaxSilence, logger)
		if err != nil {
			return fmt.Errorf("failed to create sweeper: %w", err)
		}
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start sweeper: %w", err)
		}
		shutdown.Register(func(context.Context) error {
			sweeper.Stop()
			return nil
		})
		logger.WithFields(map[string]interface{}{
			"interval":    cfg.Registry.SweepInterval.String(),
			"max_silence": cfg.Registry.HeartbeatMaxSilence.String(),
		}).Info("Stale instance sweeper started")
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", server.Addr).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	return shutdown.Wait()
}

// loadPolicy returns the route policy from path, or the built-in table
// when no path is configured.
func loadPolicy(path string) (*routes.Policy, error) {
	if path == "" {
		return routes.NewPolicy(routes.DefaultRules())
	}
	policy, err := routes.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load route table %s: %w", path, err)
	}
	return policy, nil
}
