package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/clinidesk/slot-ledger/internal/config"
	"github.com/clinidesk/slot-ledger/internal/db"
	"github.com/clinidesk/slot-ledger/internal/ledger"
	"github.com/clinidesk/slot-ledger/internal/lock"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.UseMemoryStore() {
		log.Fatal("POSTGRES_DSN is required, seeding a memory store is pointless")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	policy := ledger.NewCapacityPolicy(ledger.CapacityLimits{
		ConsultationDaily:     cfg.ConsultationDailyLimit,
		ConsultationWednesday: cfg.ConsultationWednesdayLimit,
		ReimbursementDaily:    cfg.ReimbursementDailyLimit,
	})
	svc := ledger.NewService(ledger.NewPgStore(pool), policy, lock.NewProcessLocker())

	if err := seedBookings(context.Background(), svc, 14, 200); err != nil {
		log.Fatalf("seed bookings: %v", err)
	}

	log.Println("seed complete")
}

// seedBookings books fake patients over the coming days. Capacity and
// duplicate rejections are expected once days fill up and are only counted.
func seedBookings(ctx context.Context, svc *ledger.Service, days, attempts int) error {
	log.Printf("seeding up to %d bookings over %d days", attempts, days)

	types := []ledger.RequestType{
		ledger.TypeConsultation,
		ledger.TypeConsultation,
		ledger.TypeAnnualExam,
		ledger.TypeReimbursement,
		ledger.TypeEmergency,
	}
	departments := []string{
		"Operations",
		"Finance",
		"Warehouse",
		"Human Resources",
		"Sales",
	}

	today := ledger.DateOf(time.Now())
	var created, rejected int

	for i := 0; i < attempts; i++ {
		rt := types[gofakeit.Number(0, len(types)-1)]
		req := ledger.BookingRequest{
			RequestType:   rt,
			Date:          today.AddDays(gofakeit.Number(0, days-1)),
			PatientID:     gofakeit.Numerify("#########"),
			GivenName:     gofakeit.FirstName(),
			FamilyName:    gofakeit.LastName(),
			PayrollNumber: gofakeit.Numerify("P-####"),
			Department:    departments[gofakeit.Number(0, len(departments)-1)],
		}
		if rt == ledger.TypeEmergency {
			req.Message = gofakeit.Sentence(8)
		}

		_, err := svc.Book(ctx, req)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ledger.ErrCapacityExceeded), errors.Is(err, ledger.ErrDuplicateBooking):
			rejected++
		default:
			return err
		}

		if (i+1)%50 == 0 {
			log.Printf("bookings seeded: %d/%d", i+1, attempts)
		}
	}

	log.Printf("bookings created=%d rejected=%d", created, rejected)
	return nil
}
