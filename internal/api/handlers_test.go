package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinidesk/slot-ledger/internal/api"
	"github.com/clinidesk/slot-ledger/internal/ledger"
	"github.com/clinidesk/slot-ledger/internal/lock"
	"github.com/clinidesk/slot-ledger/internal/report"
)

type captureSender struct {
	sent int
}

func (c *captureSender) Send(_ context.Context, _ report.Artifact) error {
	c.sent++
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Memory, *captureSender) {
	t.Helper()

	store := ledger.NewMemory()
	policy := ledger.NewCapacityPolicy(ledger.CapacityLimits{
		ConsultationDaily:     20,
		ConsultationWednesday: 10,
		ReimbursementDaily:    15,
	})
	svc := ledger.NewService(store, policy, lock.NewProcessLocker())
	agg := report.NewAggregator(store)
	sender := &captureSender{}

	router := api.NewRouter(api.RouterConfig{
		Service:    svc,
		Aggregator: agg,
		Dispatcher: report.NewDispatcher(agg, sender),
		Env:        "test",
		Version:    "test",
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store, sender
}

func postBooking(t *testing.T, server *httptest.Server, body api.CreateBookingRequest) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/bookings", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateBooking_Success(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postBooking(t, server, api.CreateBookingRequest{
		RequestType: "consultation",
		Date:        "2024-06-04",
		PatientID:   "12345",
		GivenName:   "Ana",
		FamilyName:  "Diaz",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeJSON[api.BookingResponse](t, resp)
	assert.Equal(t, "C-001", body.TicketNumber)
	assert.Equal(t, "2024-06-04", body.Date)
	assert.Equal(t, "12345", body.PatientID)
}

func TestCreateBooking_DuplicateIsConflict(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := api.CreateBookingRequest{
		RequestType: "consultation",
		Date:        "2024-06-04",
		PatientID:   "12345",
	}
	resp := postBooking(t, server, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	req.RequestType = "annual_exam"
	resp = postBooking(t, server, req)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeJSON[api.ErrorResponse](t, resp)
	assert.Equal(t, "duplicate_booking", body.Error)
}

func TestCreateBooking_CapacityExceededIsConflict(t *testing.T) {
	server, _, _ := newTestServer(t)

	// 2024-02-14 is a Wednesday, limit 10.
	for i := 0; i < 10; i++ {
		resp := postBooking(t, server, api.CreateBookingRequest{
			RequestType: "consultation",
			Date:        "2024-02-14",
			PatientID:   "patient-" + string(rune('a'+i)),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := postBooking(t, server, api.CreateBookingRequest{
		RequestType: "consultation",
		Date:        "2024-02-14",
		PatientID:   "one-too-many",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeJSON[api.ErrorResponse](t, resp)
	assert.Equal(t, "capacity_exceeded", body.Error)
}

func TestCreateBooking_BadInput(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postBooking(t, server, api.CreateBookingRequest{
		RequestType: "consultation",
		Date:        "04/06/2024",
		PatientID:   "12345",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postBooking(t, server, api.CreateBookingRequest{
		RequestType: "house_call",
		Date:        "2024-06-04",
		PatientID:   "12345",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postBooking(t, server, api.CreateBookingRequest{
		RequestType: "consultation",
		Date:        "2024-06-04",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDailyReport(t *testing.T) {
	server, store, _ := newTestServer(t)
	day := ledger.NewDate(2024, time.June, 4)

	_, err := store.Insert(context.Background(), ledger.BookingRecord{
		RequestType: ledger.TypeConsultation, RequestDate: day, PatientID: "12345", TicketNumber: "C-001",
	})
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), ledger.BookingRecord{
		RequestType: ledger.TypeEmergency, RequestDate: day, PatientID: "12345", Message: "chest pain",
	})
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/reports/daily?date=2024-06-04")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[api.ReportResponse](t, resp)
	assert.Equal(t, "2024-06-04", body.Period)
	assert.Len(t, body.Consultations, 1)
	assert.Len(t, body.Emergencies, 1)
	assert.Empty(t, body.Reimbursements)
}

func TestMonthlyReport_LeapFebruary(t *testing.T) {
	server, store, _ := newTestServer(t)

	for _, day := range []ledger.Date{
		ledger.NewDate(2024, time.January, 31),
		ledger.NewDate(2024, time.February, 29),
		ledger.NewDate(2024, time.March, 1),
	} {
		_, err := store.Insert(context.Background(), ledger.BookingRecord{
			RequestType: ledger.TypeConsultation, RequestDate: day, PatientID: "p", TicketNumber: "C-001",
		})
		require.NoError(t, err)
	}

	resp, err := http.Get(server.URL + "/reports/monthly?month=2024-02")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[api.ReportResponse](t, resp)
	assert.Equal(t, "2024-02", body.Period)
	assert.Len(t, body.Consultations, 1)
}

func TestMonthlyReport_BadMonth(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/reports/monthly?month=February")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRunReport_Dispatches(t *testing.T) {
	server, _, sender := newTestServer(t)

	resp, err := http.Post(server.URL+"/reports/run", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 1, sender.sent)
}

func TestHealthEndpoints_MemoryMode(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health/live")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/health/ready")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[api.ReadinessResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "memory", body.Dependencies["store"])
}
