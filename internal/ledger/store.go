package ledger

import (
	"context"
	"errors"
)

var (
	// ErrTicketConflict means another writer took the same ticket number for
	// the same day. The unique index on (request_date, ticket_number) turns a
	// lost allocation race into this error instead of a silent duplicate.
	ErrTicketConflict = errors.New("ticket number already assigned for this day")
)

// Store is the dual-backend ledger contract. The Postgres implementation runs
// these as server-side filtered queries, the in-memory one as linear scans
// over a tail-append slice. Both must produce identical results for identical
// input sequences; the system runs unmodified on either.
type Store interface {
	// CountMatching counts records of the given types booked for the given day.
	CountMatching(ctx context.Context, types []RequestType, date Date) (int, error)

	// CountMatchingRange counts over an inclusive date range. Only the monthly
	// report path needs this; ticket numbering is single-day.
	CountMatchingRange(ctx context.Context, types []RequestType, from, to Date) (int, error)

	// Insert persists a record and returns it with its assigned ID.
	Insert(ctx context.Context, rec BookingRecord) (BookingRecord, error)

	// FindByDateRange returns all records booked within [from, to]. Order is
	// not significant to callers; reporting reorders as needed.
	FindByDateRange(ctx context.Context, from, to Date) ([]BookingRecord, error)

	// ExistsForPatientOnDate reports whether the patient already holds a record
	// of one of the given types on the given day.
	ExistsForPatientOnDate(ctx context.Context, patientID string, date Date, types []RequestType) (bool, error)
}
