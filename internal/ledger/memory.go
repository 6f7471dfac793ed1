package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-process Store used when no Postgres DSN is configured.
// Records live in a single tail-append slice guarded by an RWMutex; every
// query is a linear scan. Callers receive a handle from NewMemory, there is
// no package-level instance.
type Memory struct {
	mu      sync.RWMutex
	records []BookingRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) CountMatching(_ context.Context, types []RequestType, date Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if rec.RequestDate == date && typeIn(rec.RequestType, types) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountMatchingRange(_ context.Context, types []RequestType, from, to Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if inRange(rec.RequestDate, from, to) && typeIn(rec.RequestType, types) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Insert(_ context.Context, rec BookingRecord) (BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	// Same guarantee the Postgres unique index gives: a raced ticket number
	// fails observably rather than landing twice.
	if rec.TicketNumber != "" {
		for _, existing := range m.records {
			if existing.RequestDate == rec.RequestDate && existing.TicketNumber == rec.TicketNumber {
				return BookingRecord{}, ErrTicketConflict
			}
		}
	}

	m.records = append(m.records, rec)
	return rec, nil
}

func (m *Memory) FindByDateRange(_ context.Context, from, to Date) ([]BookingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []BookingRecord
	for _, rec := range m.records {
		if inRange(rec.RequestDate, from, to) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *Memory) ExistsForPatientOnDate(_ context.Context, patientID string, date Date, types []RequestType) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.PatientID == patientID && rec.RequestDate == date && typeIn(rec.RequestType, types) {
			return true, nil
		}
	}
	return false, nil
}

// Reset drops all records. Test-only.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

func typeIn(rt RequestType, types []RequestType) bool {
	for _, t := range types {
		if rt == t {
			return true
		}
	}
	return false
}

func inRange(d, from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}
