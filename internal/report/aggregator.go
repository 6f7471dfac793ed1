// Package report builds the periodic booking reports from the ledger.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/clinidesk/slot-ledger/internal/ledger"
)

// Aggregator reads ledger records for a day or month. Reads are not isolated
// from concurrent writes; a report reflects whatever exists at read time.
type Aggregator struct {
	store ledger.Store
}

func NewAggregator(store ledger.Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) Daily(ctx context.Context, day ledger.Date) ([]ledger.BookingRecord, error) {
	recs, err := a.store.FindByDateRange(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("daily report for %s: %w", day, err)
	}
	return recs, nil
}

func (a *Aggregator) Monthly(ctx context.Context, year int, month time.Month) ([]ledger.BookingRecord, error) {
	first, last := ledger.MonthRange(year, month)
	recs, err := a.store.FindByDateRange(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("monthly report for %04d-%02d: %w", year, int(month), err)
	}
	return recs, nil
}

// MonthlyCount returns how many records of the given types fall in the month,
// via the store's server-side range count.
func (a *Aggregator) MonthlyCount(ctx context.Context, year int, month time.Month, types []ledger.RequestType) (int, error) {
	first, last := ledger.MonthRange(year, month)
	return a.store.CountMatchingRange(ctx, types, first, last)
}

// Buckets is the presentation partition consumed by the dispatcher. It is
// never persisted.
type Buckets struct {
	Consultations  []ledger.BookingRecord
	AnnualExams    []ledger.BookingRecord
	Reimbursements []ledger.BookingRecord
	Emergencies    []ledger.BookingRecord
}

func Partition(recs []ledger.BookingRecord) Buckets {
	var b Buckets
	for _, rec := range recs {
		switch rec.RequestType {
		case ledger.TypeConsultation:
			b.Consultations = append(b.Consultations, rec)
		case ledger.TypeAnnualExam:
			b.AnnualExams = append(b.AnnualExams, rec)
		case ledger.TypeReimbursement:
			b.Reimbursements = append(b.Reimbursements, rec)
		case ledger.TypeEmergency:
			b.Emergencies = append(b.Emergencies, rec)
		}
	}
	return b
}

// ReportDay maps the trigger day to the day being reported. Weekends have no
// staffed bookings, so a Monday trigger reports the preceding Friday; any
// other day reports the previous calendar day.
func ReportDay(trigger ledger.Date) ledger.Date {
	if trigger.Weekday() == time.Monday {
		return trigger.AddDays(-3)
	}
	return trigger.AddDays(-1)
}
