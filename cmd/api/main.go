package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"arts/api/internal/cache"
	"arts/api/internal/config"
	"arts/api/internal/database"
	"arts/api/internal/feed"
	"arts/api/internal/handlers"
	"arts/api/internal/jobs"
	"arts/api/internal/log"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/seed"
	"arts/api/internal/server"
	"arts/api/internal/session"
	"arts/api/internal/storage"
	"arts/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if err := database.EnsureSchema(ctx, dbPool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

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

	userRepo := repository.NewUserRepository(dbPool)
	patientRepo := repository.NewPatientRepository(dbPool)

	if err := seed.Users(ctx, userRepo, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed users failed")
	}
	if cfg.SeedDemoData {
		if err := seed.Patients(ctx, patientRepo, logger); err != nil {
			logger.Warn().Err(err).Msg("seed demo patients failed")
		}
	}

	notifications := feed.New()

	persister := session.NewRedisPersister(redisClient, cfg.Session.Timeout)
	sessions := session.NewManager(cfg.Session.Timeout, persister, logger)
	sessions.OnExpire(func(entry session.Entry) {
		notifications.Add(models.NotificationSessionClosed, "Session for "+entry.Principal.Username+" expired")
	})
	if err := sessions.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("session restore failed")
	}

	patientStore := store.NewPatientStore(patientRepo, logger)
	patientStore.OnSyncError(func(err error) {
		notifications.Add(models.NotificationSyncFailed, "Patient list refresh failed: "+err.Error())
	})
	if err := patientStore.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial patient fetch failed, starting with empty snapshot")
	}
	patientStore.Subscribe(ctx, redisClient, logger)
	go patientStore.Run(ctx)

	scheduler := jobs.NewScheduler(sessions, cfg.Session.SweepInterval, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, objectStore, sessions, patientStore, notifications, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, cancel, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, cancel context.CancelFunc, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()
	cancel()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
