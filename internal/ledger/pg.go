package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of pgxpool.Pool the store needs. Narrow on purpose so tests
// can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore is the durable Store backend. All filtering happens server-side.
type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

const bookingColumns = `id, request_type, request_date, patient_id, given_name, family_name,
	ticket_number, payroll_number, department, message, created_at`

func scanBooking(row pgx.Row) (BookingRecord, error) {
	var rec BookingRecord
	var requestType string
	var requestDate time.Time
	var ticket *string

	err := row.Scan(
		&rec.ID,
		&requestType,
		&requestDate,
		&rec.PatientID,
		&rec.GivenName,
		&rec.FamilyName,
		&ticket,
		&rec.PayrollNumber,
		&rec.Department,
		&rec.Message,
		&rec.CreatedAt,
	)
	if err != nil {
		return BookingRecord{}, err
	}

	rec.RequestType = RequestType(requestType)
	rec.RequestDate = DateOf(requestDate)
	if ticket != nil {
		rec.TicketNumber = *ticket
	}
	return rec, nil
}

func (s *PgStore) CountMatching(ctx context.Context, types []RequestType, date Date) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM booking_records
		WHERE request_type = ANY($1)
		  AND request_date = $2
	`, typeStrings(types), date.Time()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

func (s *PgStore) CountMatchingRange(ctx context.Context, types []RequestType, from, to Date) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM booking_records
		WHERE request_type = ANY($1)
		  AND request_date BETWEEN $2 AND $3
	`, typeStrings(types), from.Time(), to.Time()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings in range: %w", err)
	}
	return count, nil
}

func (s *PgStore) Insert(ctx context.Context, rec BookingRecord) (BookingRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	var ticket *string
	if rec.TicketNumber != "" {
		ticket = &rec.TicketNumber
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO booking_records
			(id, request_type, request_date, patient_id, given_name, family_name,
			 ticket_number, payroll_number, department, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING `+bookingColumns+`
	`,
		rec.ID, string(rec.RequestType), rec.RequestDate.Time(), rec.PatientID,
		rec.GivenName, rec.FamilyName, ticket, rec.PayrollNumber, rec.Department, rec.Message,
	)

	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return BookingRecord{}, ErrTicketConflict
		}
		return BookingRecord{}, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

func (s *PgStore) FindByDateRange(ctx context.Context, from, to Date) ([]BookingRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM booking_records
		WHERE request_date BETWEEN $1 AND $2
		ORDER BY request_date, created_at
	`, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer rows.Close()

	var result []BookingRecord
	for rows.Next() {
		rec, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) ExistsForPatientOnDate(ctx context.Context, patientID string, date Date, types []RequestType) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM booking_records
			WHERE patient_id = $1
			  AND request_date = $2
			  AND request_type = ANY($3)
		)
	`, patientID, date.Time(), typeStrings(types)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing booking: %w", err)
	}
	return exists, nil
}

func typeStrings(types []RequestType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
