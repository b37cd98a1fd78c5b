package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"bizreport/api/internal/cache"
	"bizreport/api/internal/config"
	"bizreport/api/internal/database"
	"bizreport/api/internal/handlers"
	"bizreport/api/internal/jobs"
	"bizreport/api/internal/log"
	"bizreport/api/internal/models"
	"bizreport/api/internal/repository"
	"bizreport/api/internal/security"
	"bizreport/api/internal/server"
	"bizreport/api/internal/service"
	"bizreport/api/internal/storage"
	"bizreport/api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(cfg.Postgres.DSN, "up"); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}
	db := database.OpenDB(dbPool)

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	businesses := repository.NewBusinessRepository(db)
	reports := repository.NewReportRepository(db)

	codec := security.NewCodec(security.CodecConfig{
		AccessSecret:  cfg.Security.AccessSecret,
		RefreshSecret: cfg.Security.RefreshSecret,
		AccessTTL:     security.ParseExpiresIn(cfg.Security.AccessExpiresIn, security.DefaultAccessTTL),
		RefreshTTL:    security.ParseExpiresIn(cfg.Security.RefreshExpiresIn, security.DefaultRefreshTTL),
	})
	cookies := security.NewCookieBinder(security.CookiePolicy{
		Secure:     cfg.Cookie.Secure || cfg.IsProduction(),
		SameSite:   cfg.Cookie.SameSite,
		Domain:     cfg.Cookie.Domain,
		AccessTTL:  codec.AccessTTL(),
		RefreshTTL: codec.RefreshTTL(),
	})

	janitor := jobs.NewJanitor(sessions, cfg.Janitor.QueueSize, cfg.Janitor.PruneTimeout, logger)
	janitor.Start(ctx)

	scheduler := jobs.NewScheduler(sessions, cfg.Janitor.SweepSpec, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	location, err := time.LoadLocation(cfg.Dashboard.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Dashboard.Timezone).Msg("unknown dashboard timezone, using UTC")
		location = time.UTC
	}
	dashboardCache := cache.NewDashboardCache(redisClient, cfg.Dashboard.CacheTTL)

	assignable := make([]models.UserRole, 0, len(cfg.Security.SelfAssignableRoles))
	for _, role := range cfg.Security.SelfAssignableRoles {
		assignable = append(assignable, models.UserRole(role))
	}

	authService := service.NewAuthService(users, sessions, codec, security.NewSessionHasher(cfg.Security.SessionHashCost), janitor, service.AuthOptions{
		SessionWindow:       cfg.Security.SessionWindow,
		SelfAssignableRoles: assignable,
	}, logger)

	handlerSet := handlers.NewHandlerSet(logger, handlers.Deps{
		Environment: cfg.Environment,
		Cookies:     cookies,
		Auth:        authService,
		Users:       service.NewUserService(users, logger),
		Businesses:  service.NewBusinessService(businesses, users, logger),
		Reports: service.NewReportService(reports, businesses, objectStore, dashboardCache, service.ReportOptions{
			MaxPhotoBytes: cfg.Storage.MaxPhotoBytes,
			MaxVideoBytes: cfg.Storage.MaxVideoBytes,
		}, logger),
		Dashboards: service.NewDashboardService(users, businesses, reports, dashboardCache, service.DashboardOptions{
			Location: location,
		}, logger),
		Checks:         healthChecks(dbPool, redisClient, objectStore),
		MaxUploadBytes: cfg.HTTP.MaxMultipartMB << 20,
	})
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, "bizreport-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telemetry")
	}
	otel.SetMeterProvider(meterProvider)
	httpServer := server.NewHTTPServer(cfg, logger, meterProvider.Meter("bizreport/api"), handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, janitor, scheduler, meterProvider, db, dbPool, redisClient)
}

func healthChecks(db *pgxpool.Pool, redisClient *redis.Client, store *storage.ObjectStore) []handlers.HealthCheck {
	return []handlers.HealthCheck{
		{Name: "database", Probe: db.Ping},
		{Name: "cache", Probe: cache.Probe(redisClient)},
		{Name: "storage", Probe: func(ctx context.Context) error {
			if !store.Healthy(ctx) {
				return errors.New("bucket unavailable")
			}
			return nil
		}},
	}
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	janitor *jobs.Janitor,
	scheduler *jobs.Scheduler,
	meterProvider *sdkmetric.MeterProvider,
	db *sql.DB,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler sweep still running at shutdown")
	}
	janitor.Stop(shutdownCtx)

	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown error")
	}

	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("sql db close error")
	}
	pool.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
