package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	"github.com/dentalisa/clinic-booking-bot/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	demoCount := flag.Int("demo", 0, "number of demo appointments to create")
	flag.Parse()

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

	if err := createSchema(context.Background(), pool); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	log.Println("schema ready")

	if *demoCount > 0 {
		if err := seedDemoAppointments(context.Background(), pool, *demoCount); err != nil {
			log.Fatalf("seed demo appointments: %v", err)
		}
	}

	log.Println("seed complete")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS appointments (
			id               uuid PRIMARY KEY,
			doctor_id        text NOT NULL,
			doctor_name      text NOT NULL,
			visit_date       date NOT NULL,
			visit_time       text NOT NULL,
			patient_name     text NOT NULL,
			patient_phone    text NOT NULL,
			requester_id     bigint NOT NULL,
			requester_handle text NOT NULL DEFAULT '',
			status           text NOT NULL,
			created_at       timestamptz NOT NULL DEFAULT now(),
			reminder_sent_at timestamptz
		);

		CREATE UNIQUE INDEX IF NOT EXISTS appointments_confirmed_slot_uq
			ON appointments (doctor_id, visit_date, visit_time)
			WHERE status = 'confirmed';

		CREATE INDEX IF NOT EXISTS appointments_requester_idx
			ON appointments (requester_id, visit_date, visit_time);

		CREATE INDEX IF NOT EXISTS appointments_date_idx
			ON appointments (visit_date)
			WHERE status = 'confirmed';

		CREATE TABLE IF NOT EXISTS patients (
			requester_id  bigint PRIMARY KEY,
			name          text NOT NULL,
			phone         text NOT NULL,
			handle        text NOT NULL DEFAULT '',
			registered_at timestamptz NOT NULL DEFAULT now(),
			visit_count   int NOT NULL DEFAULT 0
		);
	`)
	return err
}

// seedDemoAppointments fills the coming days with fake confirmed bookings
// for manual testing of availability and the staff views.
func seedDemoAppointments(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d demo appointments", count)

	gofakeit.Seed(time.Now().UnixNano())

	doctors := catalog.Doctors()
	slots := catalog.Slots()
	today := catalog.DateOnly(time.Now())

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for inserted < count {
		doctor := doctors[gofakeit.Number(0, len(doctors)-1)]
		date := today.AddDate(0, 0, gofakeit.Number(0, catalog.HorizonDays-1))
		slot := slots[gofakeit.Number(0, len(slots)-1)]
		requesterID := int64(gofakeit.Number(100_000_000, 999_999_999))

		tag, err := tx.Exec(ctx, `
			INSERT INTO appointments (
				id, doctor_id, doctor_name, visit_date, visit_time,
				patient_name, patient_phone, requester_id, requester_handle,
				status, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'confirmed', now())
			ON CONFLICT DO NOTHING
		`, uuid.New(), doctor.ID, doctor.DisplayName(), date, slot,
			gofakeit.Name(), "+79"+gofakeit.DigitN(9), requesterID, gofakeit.Username())
		if err != nil {
			return err
		}

		// Slot collisions just re-roll.
		if tag.RowsAffected() == 1 {
			inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("demo appointments seeded: %d", inserted)
	return nil
}
