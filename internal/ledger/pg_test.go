package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinidesk/slot-ledger/internal/ledger"
)

func newMockStore(t *testing.T) (*ledger.PgStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return ledger.NewPgStore(mock), mock
}

func TestPgStore_CountMatching(t *testing.T) {
	store, mock := newMockStore(t)
	day := ledger.NewDate(2024, time.June, 4)

	mock.ExpectQuery(`SELECT count\(\*\)\s+FROM booking_records`).
		WithArgs([]string{"consultation", "annual_exam"}, day.Time()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.CountMatching(context.Background(), ledger.FamilyTypes(ledger.FamilyConsultation), day)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_CountMatchingRange(t *testing.T) {
	store, mock := newMockStore(t)
	first, last := ledger.MonthRange(2024, time.February)

	mock.ExpectQuery(`SELECT count\(\*\)\s+FROM booking_records`).
		WithArgs([]string{"reimbursement"}, first.Time(), last.Time()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.CountMatchingRange(context.Background(), []ledger.RequestType{ledger.TypeReimbursement}, first, last)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func bookingRow(id uuid.UUID, day ledger.Date, ticket *string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "request_type", "request_date", "patient_id", "given_name", "family_name",
		"ticket_number", "payroll_number", "department", "message", "created_at",
	}).AddRow(
		id, "consultation", day.Time(), "12345", "Ana", "Diaz",
		ticket, "P-0042", "Finance", "", time.Now(),
	)
}

func TestPgStore_Insert(t *testing.T) {
	store, mock := newMockStore(t)
	day := ledger.NewDate(2024, time.June, 4)
	id := uuid.New()
	ticket := "C-001"

	mock.ExpectQuery(`INSERT INTO booking_records`).
		WithArgs(pgxmock.AnyArg(), "consultation", day.Time(), "12345", "Ana", "Diaz",
			pgxmock.AnyArg(), "P-0042", "Finance", "").
		WillReturnRows(bookingRow(id, day, &ticket))

	rec, err := store.Insert(context.Background(), ledger.BookingRecord{
		RequestType:   ledger.TypeConsultation,
		RequestDate:   day,
		PatientID:     "12345",
		GivenName:     "Ana",
		FamilyName:    "Diaz",
		TicketNumber:  "C-001",
		PayrollNumber: "P-0042",
		Department:    "Finance",
	})
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "C-001", rec.TicketNumber)
	assert.Equal(t, day, rec.RequestDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_Insert_UniqueViolationIsTicketConflict(t *testing.T) {
	store, mock := newMockStore(t)
	day := ledger.NewDate(2024, time.June, 4)

	mock.ExpectQuery(`INSERT INTO booking_records`).
		WithArgs(pgxmock.AnyArg(), "consultation", day.Time(), "12345", "", "",
			pgxmock.AnyArg(), "", "", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.Insert(context.Background(), ledger.BookingRecord{
		RequestType:  ledger.TypeConsultation,
		RequestDate:  day,
		PatientID:    "12345",
		TicketNumber: "C-001",
	})
	assert.ErrorIs(t, err, ledger.ErrTicketConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_ExistsForPatientOnDate(t *testing.T) {
	store, mock := newMockStore(t)
	day := ledger.NewDate(2024, time.June, 4)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("12345", day.Time(), []string{"consultation", "annual_exam"}).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ExistsForPatientOnDate(context.Background(), "12345", day, ledger.DuplicateGuardTypes())
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_FindByDateRange(t *testing.T) {
	store, mock := newMockStore(t)
	day := ledger.NewDate(2024, time.February, 29)
	ticket := "C-001"

	mock.ExpectQuery(`FROM booking_records\s+WHERE request_date BETWEEN`).
		WithArgs(day.Time(), day.Time()).
		WillReturnRows(bookingRow(uuid.New(), day, &ticket))

	recs, err := store.FindByDateRange(context.Background(), day, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ledger.TypeConsultation, recs[0].RequestType)
	assert.Equal(t, day, recs[0].RequestDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
