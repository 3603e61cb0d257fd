package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/config"
	"github.com/dentalisa/clinic-booking-bot/internal/db"
	"github.com/dentalisa/clinic-booking-bot/internal/reminder"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("reminder-worker starting", "env", cfg.Env, "interval", cfg.ReminderInterval.String())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	repo := booking.NewPgRepository(pgPool, cfg.StorageTimeout)
	tg := telegram.NewClient(cfg.BotToken)

	dispatcher := reminder.NewDispatcher(repo, tg, cfg.ClinicAddress, cfg.ClinicPhone, cfg.ClinicLocation, logger)
	dispatcher.Run(rootCtx, cfg.ReminderInterval)

	logger.Info("reminder-worker stopped")
}
