package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/clinidesk/slot-ledger/internal/ledger"
)

// Artifact is a rendered report ready for delivery.
type Artifact struct {
	PeriodLabel string
	Filename    string
	CSV         []byte
}

// Sender delivers a report artifact. Implementations can be swapped (email,
// chat, stub) without touching the dispatcher.
type Sender interface {
	Send(ctx context.Context, a Artifact) error
}

// Dispatcher turns aggregated records into a CSV artifact and hands it to the
// configured Sender. The artifact is staged through a temp file that is
// removed after delivery; only derived files are ever reclaimed, never the
// ledger itself.
type Dispatcher struct {
	agg    *Aggregator
	sender Sender
}

func NewDispatcher(agg *Aggregator, sender Sender) *Dispatcher {
	return &Dispatcher{agg: agg, sender: sender}
}

func (d *Dispatcher) DispatchDaily(ctx context.Context, day ledger.Date) error {
	recs, err := d.agg.Daily(ctx, day)
	if err != nil {
		return err
	}
	return d.dispatch(ctx, day.String(), recs)
}

func (d *Dispatcher) DispatchMonthly(ctx context.Context, year int, month time.Month) error {
	recs, err := d.agg.Monthly(ctx, year, month)
	if err != nil {
		return err
	}
	label := fmt.Sprintf("%04d-%02d", year, int(month))
	return d.dispatch(ctx, label, recs)
}

func (d *Dispatcher) dispatch(ctx context.Context, label string, recs []ledger.BookingRecord) error {
	data, err := RenderCSV(Partition(recs))
	if err != nil {
		return fmt.Errorf("render report %s: %w", label, err)
	}

	tmp, err := os.CreateTemp("", "booking-report-"+label+"-*.csv")
	if err != nil {
		return fmt.Errorf("stage report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	a := Artifact{
		PeriodLabel: label,
		Filename:    fmt.Sprintf("bookings-%s.csv", label),
		CSV:         data,
	}
	if err := d.sender.Send(ctx, a); err != nil {
		return fmt.Errorf("deliver report %s: %w", label, err)
	}

	log.Printf("report dispatched period=%s records=%d", label, len(recs))
	return nil
}

// RenderCSV writes one section per bucket. Reimbursements carry no payroll or
// department columns; emergencies carry only date, time and message.
func RenderCSV(b Buckets) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	writeStaffed := func(section string, recs []ledger.BookingRecord, withPayroll bool) {
		_ = w.Write([]string{section})
		if withPayroll {
			_ = w.Write([]string{"ticket", "cedula", "given_name", "family_name", "payroll", "department"})
		} else {
			_ = w.Write([]string{"ticket", "cedula", "given_name", "family_name"})
		}
		for _, rec := range recs {
			row := []string{rec.TicketNumber, rec.PatientID, rec.GivenName, rec.FamilyName}
			if withPayroll {
				row = append(row, rec.PayrollNumber, rec.Department)
			}
			_ = w.Write(row)
		}
		_ = w.Write([]string{})
	}

	writeStaffed("consultations", b.Consultations, true)
	writeStaffed("annual_exams", b.AnnualExams, true)
	writeStaffed("reimbursements", b.Reimbursements, false)

	_ = w.Write([]string{"emergencies"})
	_ = w.Write([]string{"date", "time", "message"})
	for _, rec := range b.Emergencies {
		_ = w.Write([]string{rec.RequestDate.String(), rec.CreatedAt.Format("15:04"), rec.Message})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EmailSender delivers report artifacts as SendGrid mail attachments.
type EmailSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	to        string
}

type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	To        string
}

// NewEmailSender returns nil when no API key is configured; callers fall back
// to the log sender.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.APIKey == "" || cfg.To == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Clinic Bookings"
	}
	return &EmailSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		to:        cfg.To,
	}
}

func (s *EmailSender) Send(ctx context.Context, a Artifact) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", s.to)
	subject := fmt.Sprintf("Booking report %s", a.PeriodLabel)
	body := fmt.Sprintf("Attached: booking report for %s.", a.PeriodLabel)

	message := mail.NewSingleEmail(from, subject, to, body, body)

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(a.CSV))
	attachment.SetType("text/csv")
	attachment.SetFilename(a.Filename)
	attachment.SetDisposition("attachment")
	message.AddAttachment(attachment)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender logs the report instead of delivering it. Used when email is not
// configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, a Artifact) error {
	log.Printf("report ready (no sender configured) period=%s bytes=%d", a.PeriodLabel, len(a.CSV))
	return nil
}
