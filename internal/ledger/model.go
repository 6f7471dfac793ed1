package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RequestType string

const (
	TypeConsultation  RequestType = "consultation"
	TypeAnnualExam    RequestType = "annual_exam"
	TypeReimbursement RequestType = "reimbursement"
	TypeEmergency     RequestType = "emergency"
)

// ParseRequestType maps the wire value to a known request type.
func ParseRequestType(s string) (RequestType, bool) {
	switch RequestType(s) {
	case TypeConsultation, TypeAnnualExam, TypeReimbursement, TypeEmergency:
		return RequestType(s), true
	}
	return "", false
}

// TicketFamily is the capacity and sequence sharing group of a request type.
// Consultations and annual exams share one sequence, reimbursements have
// their own. The family letter doubles as the ticket prefix.
type TicketFamily string

const (
	FamilyConsultation  TicketFamily = "C"
	FamilyReimbursement TicketFamily = "R"
)

// FamilyOf returns the ticket family of a request type. Emergencies belong to
// no family: they get no ticket and consume no capacity.
func FamilyOf(rt RequestType) (TicketFamily, bool) {
	switch rt {
	case TypeConsultation, TypeAnnualExam:
		return FamilyConsultation, true
	case TypeReimbursement:
		return FamilyReimbursement, true
	}
	return "", false
}

// FamilyTypes returns the request types counted together for capacity and
// ticket numbering within a family.
func FamilyTypes(f TicketFamily) []RequestType {
	if f == FamilyConsultation {
		return []RequestType{TypeConsultation, TypeAnnualExam}
	}
	return []RequestType{TypeReimbursement}
}

// DuplicateGuardTypes are the request types a patient may hold at most one of
// per day. Reimbursements are deliberately not duplicate-blocked.
func DuplicateGuardTypes() []RequestType {
	return []RequestType{TypeConsultation, TypeAnnualExam}
}

// FormatTicket renders the human-facing ticket string, e.g. C-001.
func FormatTicket(f TicketFamily, n int) string {
	return fmt.Sprintf("%s-%03d", f, n)
}

// BookingRecord is one entry of the append-only ledger. Records are never
// mutated or deleted after insertion.
type BookingRecord struct {
	ID          uuid.UUID
	RequestType RequestType
	RequestDate Date
	PatientID   string // national ID (cedula)
	GivenName   string
	FamilyName  string

	// TicketNumber is empty for emergencies.
	TicketNumber string

	// Carried opaquely for reporting; the core never validates these.
	PayrollNumber string
	Department    string
	Message       string

	CreatedAt time.Time
}
