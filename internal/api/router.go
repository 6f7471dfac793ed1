package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinidesk/slot-ledger/internal/ledger"
	"github.com/clinidesk/slot-ledger/internal/report"
)

type RouterConfig struct {
	Service    *ledger.Service
	Aggregator *report.Aggregator
	Dispatcher *report.Dispatcher
	PgPool     *pgxpool.Pool // nil in memory mode
	Redis      *redis.Client // nil when not configured
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/bookings", createBookingHandler(cfg.Service))
	r.Get("/reports/daily", dailyReportHandler(cfg.Aggregator))
	r.Get("/reports/monthly", monthlyReportHandler(cfg.Aggregator))
	r.Post("/reports/run", runReportHandler(cfg.Dispatcher))

	return r
}
