package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clinidesk/slot-ledger/internal/ledger"
	"github.com/clinidesk/slot-ledger/internal/lock"
	"github.com/clinidesk/slot-ledger/internal/report"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func createBookingHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rt, ok := ledger.ParseRequestType(req.RequestType)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_type", "request_type must be one of consultation, annual_exam, reimbursement, emergency")
			return
		}

		date, err := ledger.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		if req.PatientID == "" {
			writeError(w, http.StatusBadRequest, "missing_patient_id", "patient_id is required")
			return
		}

		rec, err := svc.Book(r.Context(), ledger.BookingRequest{
			RequestType:   rt,
			Date:          date,
			PatientID:     req.PatientID,
			GivenName:     req.GivenName,
			FamilyName:    req.FamilyName,
			PayrollNumber: req.PayrollNumber,
			Department:    req.Department,
			Message:       req.Message,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(rec))
	}
}

// handleBookingError keeps the distinction the conversation layer relies on:
// capacity and duplicate outcomes get specific codes, backend faults get a
// generic one with no internal detail.
func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, "duplicate_booking", "patient already has a booking for this date")
	case errors.Is(err, ledger.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "capacity_exceeded", "no slots left for this date, pick another day")
	case errors.Is(err, ledger.ErrUnknownRequestType):
		writeError(w, http.StatusBadRequest, "invalid_request_type", err.Error())
	case errors.Is(err, lock.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "allocation_busy", "slot allocation in progress, please retry shortly")
	case errors.Is(err, ledger.ErrTicketConflict):
		writeError(w, http.StatusConflict, "allocation_conflict", "allocation raced, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not process the booking")
	}
}

func dailyReportHandler(agg *report.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := report.ReportDay(ledger.DateOf(time.Now()))
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := ledger.ParseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			day = parsed
		}

		recs, err := agg.Daily(r.Context(), day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not build the report")
			return
		}

		writeJSON(w, http.StatusOK, reportResponse(day.String(), recs))
	}
}

func monthlyReportHandler(agg *report.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("month")
		var year, month int
		if _, err := fmt.Sscanf(raw, "%d-%d", &year, &month); err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "invalid_month", "month must be YYYY-MM")
			return
		}

		recs, err := agg.Monthly(r.Context(), year, time.Month(month))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not build the report")
			return
		}

		writeJSON(w, http.StatusOK, reportResponse(fmt.Sprintf("%04d-%02d", year, month), recs))
	}
}

// runReportHandler is the cron-style trigger: it reports the day the
// report-day rule selects for "now" and dispatches it through the configured
// sender.
func runReportHandler(disp *report.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := report.ReportDay(ledger.DateOf(time.Now()))
		if err := disp.DispatchDaily(r.Context(), day); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not dispatch the report")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "dispatched", "period": day.String()})
	}
}

func reportResponse(period string, recs []ledger.BookingRecord) ReportResponse {
	buckets := report.Partition(recs)
	return ReportResponse{
		Period:         period,
		Consultations:  toBookingResponses(buckets.Consultations),
		AnnualExams:    toBookingResponses(buckets.AnnualExams),
		Reimbursements: toBookingResponses(buckets.Reimbursements),
		Emergencies:    toBookingResponses(buckets.Emergencies),
	}
}
