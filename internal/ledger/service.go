package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/clinidesk/slot-ledger/internal/lock"
)

var (
	ErrCapacityExceeded   = errors.New("no capacity left on this date")
	ErrDuplicateBooking   = errors.New("patient already has a booking on this date")
	ErrUnknownRequestType = errors.New("unknown request type")
)

// BookingRequest carries the already-parsed fields from the adapter layer.
type BookingRequest struct {
	RequestType RequestType
	Date        Date
	PatientID   string
	GivenName   string
	FamilyName  string

	PayrollNumber string
	Department    string
	Message       string
}

// Service is the allocation orchestrator: duplicate guard, capacity check,
// ticket numbering and insert as one logical operation.
type Service struct {
	store  Store
	policy *CapacityPolicy
	locker lock.Locker
}

func NewService(store Store, policy *CapacityPolicy, locker lock.Locker) *Service {
	return &Service{
		store:  store,
		policy: policy,
		locker: locker,
	}
}

// Book allocates a slot for the request. Capacity-exceeded and duplicate
// outcomes come back as typed errors so the adapter can answer the patient
// specifically; store faults pass through unchanged and are never retried
// here, since a safe retry would have to redo the checks too.
func (s *Service) Book(ctx context.Context, req BookingRequest) (BookingRecord, error) {
	// Emergencies are pass-through log entries: no capacity, no duplicate
	// guard, no ticket number.
	if req.RequestType == TypeEmergency {
		rec, err := s.store.Insert(ctx, recordFrom(req, ""))
		if err != nil {
			return BookingRecord{}, err
		}
		log.Printf("emergency recorded patient=%s date=%s id=%s", rec.PatientID, rec.RequestDate, rec.ID)
		return rec, nil
	}

	family, ok := FamilyOf(req.RequestType)
	if !ok {
		return BookingRecord{}, ErrUnknownRequestType
	}

	var created BookingRecord
	lockKey := fmt.Sprintf("%s:%s", family, req.Date)

	err := s.locker.WithAllocationLock(ctx, lockKey, func(lockCtx context.Context) error {
		// Only the consultation family is duplicate-guarded; a reimbursement
		// on the same day as a consultation is allowed.
		if family == FamilyConsultation {
			exists, err := s.store.ExistsForPatientOnDate(lockCtx, req.PatientID, req.Date, DuplicateGuardTypes())
			if err != nil {
				return fmt.Errorf("duplicate check: %w", err)
			}
			if exists {
				return ErrDuplicateBooking
			}
		}

		count, err := s.store.CountMatching(lockCtx, FamilyTypes(family), req.Date)
		if err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}

		if s.policy.CapacityFor(req.RequestType, req.Date)-count <= 0 {
			return ErrCapacityExceeded
		}

		rec, err := s.store.Insert(lockCtx, recordFrom(req, FormatTicket(family, count+1)))
		if err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return BookingRecord{}, err
	}

	log.Printf("booking created type=%s patient=%s date=%s ticket=%s",
		created.RequestType, created.PatientID, created.RequestDate, created.TicketNumber)
	return created, nil
}

func recordFrom(req BookingRequest, ticket string) BookingRecord {
	return BookingRecord{
		RequestType:   req.RequestType,
		RequestDate:   req.Date,
		PatientID:     req.PatientID,
		GivenName:     req.GivenName,
		FamilyName:    req.FamilyName,
		TicketNumber:  ticket,
		PayrollNumber: req.PayrollNumber,
		Department:    req.Department,
		Message:       req.Message,
	}
}
