package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinidesk/slot-ledger/internal/config"
	"github.com/clinidesk/slot-ledger/internal/db"
	"github.com/clinidesk/slot-ledger/internal/ledger"
	"github.com/clinidesk/slot-ledger/internal/report"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("report-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running report worker in env=%s report_hour=%d", cfg.Env, cfg.ReportHour)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store ledger.Store
	if cfg.UseMemoryStore() {
		// A fresh memory store holds no history; the worker only makes sense
		// against the durable backend, but it still runs for dev parity.
		store = ledger.NewMemory()
		log.Println("no POSTGRES_DSN configured, using in-memory ledger store")
	} else {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		store = ledger.NewPgStore(pgPool)
		log.Println("connected to Postgres")
	}

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

	var lastDaily ledger.Date
	var lastMonthly ledger.Date

	runOnce(rootCtx, disp, cfg.ReportHour, &lastDaily, &lastMonthly)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping report worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, disp, cfg.ReportHour, &lastDaily, &lastMonthly)
		}
	}
}

// runOnce fires the daily report once per day at the configured hour, and the
// monthly report for the previous month on the first of each month.
func runOnce(ctx context.Context, disp *report.Dispatcher, reportHour int, lastDaily, lastMonthly *ledger.Date) {
	now := time.Now()
	today := ledger.DateOf(now)

	if now.Hour() < reportHour {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if *lastDaily != today {
		day := report.ReportDay(today)
		start := time.Now()
		if err := disp.DispatchDaily(runCtx, day); err != nil {
			log.Printf("daily report error: %v", err)
		} else {
			*lastDaily = today
			log.Printf("daily report run complete in %s", time.Since(start))
		}
	}

	if today.Day == 1 && *lastMonthly != today {
		prev := today.AddDays(-1)
		start := time.Now()
		if err := disp.DispatchMonthly(runCtx, prev.Year, prev.Month); err != nil {
			log.Printf("monthly report error: %v", err)
		} else {
			*lastMonthly = today
			log.Printf("monthly report run complete in %s", time.Since(start))
		}
	}
}
