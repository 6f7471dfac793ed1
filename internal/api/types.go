package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinidesk/slot-ledger/internal/ledger"
)

type CreateBookingRequest struct {
	RequestType   string `json:"request_type"`
	Date          string `json:"date"` // YYYY-MM-DD
	PatientID     string `json:"patient_id"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	PayrollNumber string `json:"payroll_number,omitempty"`
	Department    string `json:"department,omitempty"`
	Message       string `json:"message,omitempty"`
}

type BookingResponse struct {
	ID           uuid.UUID `json:"id"`
	RequestType  string    `json:"request_type"`
	Date         string    `json:"date"`
	PatientID    string    `json:"patient_id"`
	TicketNumber string    `json:"ticket_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReportResponse struct {
	Period         string            `json:"period"`
	Consultations  []BookingResponse `json:"consultations"`
	AnnualExams    []BookingResponse `json:"annual_exams"`
	Reimbursements []BookingResponse `json:"reimbursements"`
	Emergencies    []BookingResponse `json:"emergencies"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toBookingResponse(rec ledger.BookingRecord) BookingResponse {
	return BookingResponse{
		ID:           rec.ID,
		RequestType:  string(rec.RequestType),
		Date:         rec.RequestDate.String(),
		PatientID:    rec.PatientID,
		TicketNumber: rec.TicketNumber,
		CreatedAt:    rec.CreatedAt,
	}
}

func toBookingResponses(recs []ledger.BookingRecord) []BookingResponse {
	out := make([]BookingResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toBookingResponse(rec))
	}
	return out
}
