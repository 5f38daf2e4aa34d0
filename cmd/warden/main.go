package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/wardenhq/warden/pkg/api"
	"github.com/wardenhq/warden/pkg/audit"
	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/authz"
	"github.com/wardenhq/warden/pkg/config"
	"github.com/wardenhq/warden/pkg/middleware"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// auditRetention is how long audit events are kept before the daily
// prune removes them.
const auditRetention = 90 * 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"log_level": cfg.Observability.LogLevel.String(),
		"auth_mode": cfg.Auth.Mode,
	}).Info("starting warden")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	if err := orgs.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if err := audit.Migrate(ctx, db); err != nil {
		return fmt.Errorf("running audit migrations: %w", err)
	}
	logger.Info("database ready")

	// Redis is optional. With it, rate limiting is shared across
	// replicas; without it, each replica keeps its own counters.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, continuing")
		}
		defer redisClient.Close()
	}

	// Principal resolution
	var resolver auth.PrincipalResolver
	switch cfg.Auth.Mode {
	case "oidc":
		resolver, err = auth.NewOIDCResolver(ctx, auth.OIDCConfig{
			IssuerURL: cfg.Auth.OIDCIssuerURL,
			ClientID:  cfg.Auth.OIDCClientID,
		})
		if err != nil {
			return fmt.Errorf("building OIDC resolver: %w", err)
		}
	default:
		resolver = auth.NewServiceResolver(cfg.Auth.ServiceURL, nil)
	}
	directory := auth.NewServiceDirectory(cfg.Auth.ServiceURL, cfg.Auth.ServiceToken, nil)

	// Domain services and guards
	orgService := orgs.NewPostgresService(db)
	trail := audit.NewPostgresRecorder(db)
	checker := authz.NewChecker(orgService, logger, metrics)
	guards := authz.NewGuards(checker, logger, metrics)
	authMW := middleware.NewAuthMiddleware(resolver, logger)

	var extra []mux.MiddlewareFunc
	if metrics != nil {
		extra = append(extra, metrics.HTTPMetricsMiddleware)
	}
	if cfg.RateLimit.Enabled {
		limits := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.WindowDuration,
		}
		if redisClient != nil {
			rl := middleware.NewDistributedRateLimitMiddleware(redisClient, limits, logger, metrics)
			extra = append(extra, rl.Handler)
		} else {
			rl := middleware.NewRateLimitMiddleware(limits, metrics)
			rl.StartCleanup(ctx)
			extra = append(extra, rl.Handler)
		}
	}

	server := api.NewServer(orgService, directory, checker, guards, authMW, trail, logger)
	router := server.Router(extra...)

	// Invitations expire lazily at acceptance time; the sweep keeps the
	// table from accumulating rows nobody will ever touch again.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@hourly", func() {
		n, err := orgService.CleanupExpiredInvitations(context.Background())
		if err != nil {
			logger.WithError(err).Error("invitation sweep failed")
			return
		}
		if n > 0 {
			logger.WithField("count", n).Info("swept expired invitations")
		}
	}); err != nil {
		return fmt.Errorf("scheduling invitation sweep: %w", err)
	}
	if _, err := sweeper.AddFunc("@daily", func() {
		n, err := trail.Prune(context.Background(), auditRetention)
		if err != nil {
			logger.WithError(err).Error("audit prune failed")
			return
		}
		if n > 0 {
			logger.WithField("count", n).Info("pruned audit events")
		}
	}); err != nil {
		return fmt.Errorf("scheduling audit prune: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Health and metrics on a separate port for probes
	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.LivenessHandler)
	healthMux.HandleFunc("/readyz", health.ReadinessHandler)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	healthSrv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("health server failed")
		}
	}()

	apiSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", apiSrv.Addr).Info("listening")
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("health server shutdown")
	}
	return nil
}
