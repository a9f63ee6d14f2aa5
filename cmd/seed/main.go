package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medimeet/scheduling/internal/db"
	"github.com/medimeet/scheduling/internal/ledger"
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

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

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

	today := time.Now().UTC().Truncate(24 * time.Hour)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, name, email, role, specialty, verification_status, credits, created_at, updated_at)
			VALUES ($1, $2, $3, 'DOCTOR', $4, 'VERIFIED', 0, now(), now())
		`, id, name, email, spec)
		if err != nil {
			return err
		}

		// A working window somewhere between 08:00 and 17:00, 3-8 hours long.
		startHour := gofakeit.Number(8, 12)
		hours := gofakeit.Number(3, 8)
		start := today.Add(time.Duration(startHour) * time.Hour)
		end := start.Add(time.Duration(hours) * time.Hour)

		_, err = tx.Exec(ctx, `
			INSERT INTO availability_windows (id, doctor_id, start_time, end_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'AVAILABLE', now(), now())
		`, uuid.New(), id, start, end)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			credits := ledger.PlanCredits[ledger.PlanStandard]

			_, err := tx.Exec(ctx, `
				INSERT INTO accounts (id, name, email, role, verification_status, credits, created_at, updated_at)
				VALUES ($1, $2, $3, 'PATIENT', 'PENDING', $4, now(), now())
			`, id, name, email, credits)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			// Keep the ledger consistent with the starting balance.
			pkg := ledger.PlanStandard
			_, err = tx.Exec(ctx, `
				INSERT INTO credit_transactions (id, account_id, amount, type, package_id, created_at)
				VALUES ($1, $2, $3, 'CREDIT_PURCHASE', $4, now())
			`, uuid.New(), id, credits, pkg)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}
