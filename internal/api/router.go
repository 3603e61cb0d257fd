package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

type RouterConfig struct {
	Service    *booking.Service
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	StaffToken string
	Env        string
	Version    string
	Logger     *logging.Logger
}

// NewRouter wires health probes and the token-guarded staff views.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/staff", func(r chi.Router) {
		r.Use(StaffAuthMiddleware(cfg.StaffToken))
		r.Get("/appointments/today", todayAppointmentsHandler(cfg.Service))
		r.Get("/stats", statsHandler(cfg.Service))
	})

	return r
}
