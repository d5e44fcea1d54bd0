package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/malikhaddad/gatewatch-backend/api/routes"
	"github.com/malikhaddad/gatewatch-backend/internal/activities"
	"github.com/malikhaddad/gatewatch-backend/internal/cache"
	"github.com/malikhaddad/gatewatch-backend/internal/documents"
	"github.com/malikhaddad/gatewatch-backend/internal/entries"
	"github.com/malikhaddad/gatewatch-backend/internal/notifications"
	"github.com/malikhaddad/gatewatch-backend/internal/plates"
	"github.com/malikhaddad/gatewatch-backend/internal/sweep"
	"github.com/malikhaddad/gatewatch-backend/internal/tempaccess"
	"github.com/malikhaddad/gatewatch-backend/internal/users"
	"github.com/malikhaddad/gatewatch-backend/pkg/config"
	"github.com/malikhaddad/gatewatch-backend/pkg/db"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/metrics"
	"github.com/malikhaddad/gatewatch-backend/pkg/migrate"
	"github.com/malikhaddad/gatewatch-backend/pkg/redis"
	"github.com/malikhaddad/gatewatch-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing object storage", err)
		}
	}()

	conn := dbClient.DB()
	platesRepo := plates.NewRepository(conn)
	documentsRepo := documents.NewRepository(conn)
	entriesRepo := entries.NewRepository(conn)
	activitiesRepo := activities.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)
	tempAccessRepo := tempaccess.NewRepository(conn)
	usersRepo := users.NewRepository(conn)

	listCache := cache.NewStore(redisClient, cfg.Cache.ListTTL, logg)
	invalidator := cache.NewInvalidator(redisClient, logg)

	platesService, err := plates.NewService(
		dbClient,
		platesRepo,
		documentsRepo,
		entriesRepo,
		notificationsRepo,
		activitiesRepo,
		tempAccessRepo,
		invalidator,
		listCache,
		gcsClient,
		logg,
		cfg.Sweep.GuestAccess,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create plates service", err)
		os.Exit(1)
	}

	entriesService, err := entries.NewService(entriesRepo, platesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create entries service", err)
		os.Exit(1)
	}

	tempAccessService, err := tempaccess.NewService(
		dbClient,
		tempAccessRepo,
		platesRepo,
		activitiesRepo,
		invalidator,
		logg,
		cfg.Sweep.GuestAccess,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create temporary access service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	metricsRegistry := prometheus.NewRegistry()
	sweepService, err := sweep.NewService(
		platesRepo,
		tempAccessRepo,
		invalidator,
		metrics.NewCronJobMetrics(metricsRegistry),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gcsClient,
			metricsRegistry,
			platesService,
			entriesService,
			tempAccessService,
			notificationsService,
			sweepService,
			usersRepo,
			activitiesRepo,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
