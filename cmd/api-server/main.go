package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinidesk/slot-ledger/internal/api"
	"github.com/clinidesk/slot-ledger/internal/config"
	"github.com/clinidesk/slot-ledger/internal/db"
	"github.com/clinidesk/slot-ledger/internal/ledger"
	"github.com/clinidesk/slot-ledger/internal/lock"
	redisclient "github.com/clinidesk/slot-ledger/internal/redis"
	"github.com/clinidesk/slot-ledger/internal/report"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Backend selection happens exactly once, on DSN presence alone.
	var store ledger.Store
	var pgPool *pgxpool.Pool
	if cfg.UseMemoryStore() {
		store = ledger.NewMemory()
		log.Println("no POSTGRES_DSN configured, using in-memory ledger store")
	} else {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()

		migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 10*time.Second)
		err = db.Migrate(migrateCtx, pgPool)
		cancelMigrate()
		if err != nil {
			log.Fatalf("postgres migration error: %v", err)
		}

		store = ledger.NewPgStore(pgPool)
		log.Println("connected to Postgres")
	}

	var rdb *redis.Client
	var locker lock.Locker = lock.NewProcessLocker()
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL)
		log.Println("connected to Redis")
	}

	policy := ledger.NewCapacityPolicy(ledger.CapacityLimits{
		ConsultationDaily:     cfg.ConsultationDailyLimit,
		ConsultationWednesday: cfg.ConsultationWednesdayLimit,
		ReimbursementDaily:    cfg.ReimbursementDailyLimit,
	})
	svc := ledger.NewService(store, policy, locker)
	agg := report.NewAggregator(store)

	var sender report.Sender = report.LogSender{}
	if email := report.NewEmailSender(report.EmailConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		To:        cfg.ReportRecipient,
	}); email != nil {
		sender = email
	}
	disp := report.NewDispatcher(agg, sender)

	router := api.NewRouter(api.RouterConfig{
		Service:    svc,
		Aggregator: agg,
		Dispatcher: disp,
		PgPool:     pgPool,
		Redis:      rdb,
		Env:        cfg.Env,
		Version:    version,
	})

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
