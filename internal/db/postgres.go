package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// schema is idempotent. The partial unique index on (request_date,
// ticket_number) is part of the allocation contract: a raced ticket number
// must fail the insert, not land twice. Emergencies have NULL tickets and are
// exempt.
const schema = `
CREATE TABLE IF NOT EXISTS booking_records (
	id UUID PRIMARY KEY,
	request_type TEXT NOT NULL,
	request_date DATE NOT NULL,
	patient_id TEXT NOT NULL,
	given_name TEXT NOT NULL DEFAULT '',
	family_name TEXT NOT NULL DEFAULT '',
	ticket_number TEXT,
	payroll_number TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_ticket_per_day
	ON booking_records (request_date, ticket_number)
	WHERE ticket_number IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_booking_patient_day
	ON booking_records (patient_id, request_date);

CREATE INDEX IF NOT EXISTS idx_booking_date
	ON booking_records (request_date);
`

// Migrate creates the booking ledger schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate booking schema: %w", err)
	}
	return nil
}
