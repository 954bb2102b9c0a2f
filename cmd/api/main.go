package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/ghuser/productcatalog/docs/swagger"
	"github.com/ghuser/productcatalog/pkg/app"
	"github.com/ghuser/productcatalog/pkg/auth"
	"github.com/ghuser/productcatalog/pkg/cache"
	"github.com/ghuser/productcatalog/pkg/config"
	"github.com/ghuser/productcatalog/pkg/events"
	"github.com/ghuser/productcatalog/pkg/httpx"
	"github.com/ghuser/productcatalog/pkg/logger"
	"github.com/ghuser/productcatalog/pkg/telemetry"
	catalogApi "github.com/ghuser/productcatalog/services/catalog/application/api"
	catalogsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
	"github.com/ghuser/productcatalog/services/catalog/application/subscribers"
)

// @title					Product Catalog API
// @version				1.0
// @description			Items, bundles, and special offers, scoped per workspace session.
// @termsOfService			http://swagger.io/terms/
// @contact.name			API Support
// @contact.email			support@productcatalog.dev
// @license.name			MIT
// @license.url			https://opensource.org/licenses/MIT
// @host					localhost:8080
// @BasePath				/api
// @schemes				http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	// Telemetry: OTel tracing + metrics
	ctx := context.Background()
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	// Crash reporting: Sentry (optional, log and continue on failure)
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	eventBus, err := events.NewEventBusWithForwarder(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
	}
	defer eventBus.Close() //nolint:errcheck

	if eventBus.Transport() == config.TransportPostgres {
		if err := eventBus.StartForwarder(ctx); err != nil {
			log.Error("failed to start event forwarder", "error", err)
			os.Exit(1) //nolint:gocritic
		}
	}

	var redisClient *cache.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(cfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1) //nolint:gocritic // intentional: startup failure
		}
		defer redisClient.Close() //nolint:errcheck
		log.Info("redis connected")
	}

	var sessionStore sessions.Store
	secure := cfg.Environment == config.EnvProduction
	if redisClient != nil {
		sessionStore = auth.NewSessionStore(redisClient.Client(), []byte(cfg.SessionAuthKey), []byte(cfg.SessionEncryptionKey), secure)
		log.Info("session store initialized", "backend", "redis")
	} else {
		sessionStore = auth.NewCookieSessionStore([]byte(cfg.SessionAuthKey), []byte(cfg.SessionEncryptionKey), secure)
		log.Info("session store initialized", "backend", "cookie")
	}

	appConfig := &app.Application{
		Logger:       log,
		EventBus:     eventBus,
		Redis:        redisClient,
		SessionStore: sessionStore,
	}

	// The worker owns the cache on the postgres transport; in memory mode
	// nobody else can see the events, so warm it here.
	if redisClient != nil && eventBus.Transport() == config.TransportMemory {
		if err := subscribers.RegisterListingCache(ctx, eventBus, cache.NewListingCache(redisClient), log); err != nil {
			log.Error("failed to register subscribers", "error", err)
			os.Exit(1) //nolint:gocritic
		}
	}

	catalogServices := catalogsvcs.New(appConfig, catalogsvcs.WorkspaceLimits{
		IdleTTL: cfg.WorkspaceIdleTTL,
		Max:     cfg.MaxWorkspaces,
	})
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go catalogServices.Workspaces.Run(sweepCtx, cfg.WorkspaceSweepInterval)

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			MaxBodyBytes:       cfg.HTTPMaxBodyBytes,
			RateLimit:          cfg.HTTPRateLimit,
		},
		logger.Middleware(log),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)

	checks := httpx.HealthChecks{EventBus: eventBus}
	if redisClient != nil {
		checks.Redis = redisClient
	}
	r.Get("/health", httpx.HealthHandler(checks))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get(httpx.SwaggerPrefix+"*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Route("/api", func(r chi.Router) {
		registerRoutes(r, appConfig, catalogServices)
	})

	srv := httpx.NewServer(cfg.Addr(), r)

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment, "events", eventBus.Transport())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// registerRoutes mounts all service routes under /api.
func registerRoutes(r chi.Router, a *app.Application, catalog *catalogsvcs.Services) {
	catalogApi.CatalogRoutes(r, a, catalog)
}
