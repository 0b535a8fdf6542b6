package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelmed/booking-engine/internal/db"
	"github.com/channelmed/booking-engine/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.ApplySchema(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedClinicians(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed clinicians: %v", err)
	}

	log.Println("seed complete")
}

var weekdays = []schedule.Weekday{
	schedule.Monday,
	schedule.Tuesday,
	schedule.Wednesday,
	schedule.Thursday,
	schedule.Friday,
	schedule.Saturday,
}

func seedClinicians(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d clinicians with weekly availability", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		feeCents := int64(gofakeit.Number(20, 120)) * 100

		_, err := tx.Exec(ctx, `
			INSERT INTO clinicians (id, name, specialty, consultation_fee_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, feeCents)
		if err != nil {
			return err
		}

		if err := seedAvailability(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("clinicians seeded")
	return nil
}

// seedAvailability gives a clinician 3-5 working days of 30-minute windows
// between 09:00 and 13:00, with the 11:00 window occasionally disabled to
// exercise the structurally-unavailable path.
func seedAvailability(ctx context.Context, tx pgx.Tx, clinicianID uuid.UUID) error {
	dayCount := gofakeit.Number(3, 5)
	for d := 0; d < dayCount; d++ {
		day := weekdays[d]
		position := 0
		for startMin := 9 * 60; startMin < 13*60; startMin += 30 {
			var available *bool
			if startMin == 11*60 && gofakeit.Bool() {
				f := false
				available = &f
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO clinician_availability (clinician_id, day, position, start_minutes, end_minutes, is_available)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, clinicianID, string(day), position, startMin, startMin+30, available)
			if err != nil {
				return err
			}
			position++
		}
	}
	return nil
}
