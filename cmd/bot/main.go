package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dentalisa/clinic-booking-bot/internal/api"
	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/config"
	"github.com/dentalisa/clinic-booking-bot/internal/db"
	"github.com/dentalisa/clinic-booking-bot/internal/dialog"
	"github.com/dentalisa/clinic-booking-bot/internal/notify"
	redisclient "github.com/dentalisa/clinic-booking-bot/internal/redis"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("bot starting", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	repo := booking.NewPgRepository(pgPool, cfg.StorageTimeout)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, logger)

	tg := telegram.NewClient(cfg.BotToken)
	notifier := notify.NewService(tg, cfg.AdminIDs, logger)

	manager := dialog.NewManager(dialog.ManagerOptions{
		Gateway:       tg,
		Bookings:      svc,
		Notifier:      notifier,
		IsAdmin:       cfg.IsAdmin,
		ClinicAddress: cfg.ClinicAddress,
		ClinicPhone:   cfg.ClinicPhone,
		Logger:        logger,
	})

	// Staff / health HTTP server
	httpServer := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service:    svc,
			PgPool:     pgPool,
			Redis:      rdb,
			StaffToken: cfg.StaffToken,
			Env:        cfg.Env,
			Version:    version,
			Logger:     logger,
		}),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
		}
	}()

	// Draft sweeper: memory hygiene for abandoned conversations.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if removed := manager.Drafts().SweepStale(cfg.DraftTTL); removed > 0 {
					logger.Info("stale drafts swept", "count", removed)
				}
			}
		}
	}()

	poller := telegram.NewPoller(tg, manager, cfg.PollTimeout, logger)
	go poller.Run(rootCtx)

	logger.Info("bot running", "admins", len(cfg.AdminIDs))

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}
