package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careline/medical-scheduling/internal/db"
	"github.com/careline/medical-scheduling/internal/scheduling"
)

const schema = `
CREATE TABLE IF NOT EXISTS doctors (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	specialty TEXT NOT NULL,
	schedule JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	date_of_birth TIMESTAMPTZ,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	insurance_provider TEXT NOT NULL DEFAULT '',
	insurance_policy_number TEXT NOT NULL DEFAULT '',
	insurance_group_number TEXT NOT NULL DEFAULT '',
	is_new_patient BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS appointments (
	id UUID PRIMARY KEY,
	patient_id UUID NOT NULL REFERENCES patients(id),
	patient_name TEXT NOT NULL,
	doctor_id UUID NOT NULL REFERENCES doctors(id),
	doctor_name TEXT NOT NULL,
	specialty TEXT NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	time TEXT NOT NULL,
	duration_minutes INT NOT NULL,
	status TEXT NOT NULL,
	cancellation_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	rescheduled_at TIMESTAMPTZ,
	cancelled_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_appointments_doctor_date ON appointments (doctor_id, date);
CREATE INDEX IF NOT EXISTS idx_appointments_patient_name ON appointments (lower(patient_name));

CREATE TABLE IF NOT EXISTS event_logs (
	id BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	appointment_id UUID NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_event_logs_appointment ON event_logs (appointment_id, event_type);
`

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

	if _, err := pool.Exec(context.Background(), schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 20); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func weekdaySchedule() scheduling.WeeklySchedule {
	hours := scheduling.WorkHours{
		Start: scheduling.NewTimeOfDay(9, 0),
		End:   scheduling.NewTimeOfDay(17, 0),
	}

	return scheduling.WeeklySchedule{
		time.Monday.String():    hours,
		time.Tuesday.String():   hours,
		time.Wednesday.String(): hours,
		time.Thursday.String():  hours,
		time.Friday.String():    hours,
	}
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

	schedule, err := json.Marshal(weekdaySchedule())
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialties[i%len(specialties)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, first_name, last_name, specialty, schedule, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), spec, schedule)
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

	insurers := []string{
		"Blue Cross Blue Shield",
		"Aetna",
		"Cigna",
		"UnitedHealth",
		"Kaiser Permanente",
		"Humana",
	}

	const batchSize = 100

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
			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, date_of_birth, email, phone,
					insurance_provider, insurance_policy_number, insurance_group_number,
					is_new_patient, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			`, id, gofakeit.FirstName(), gofakeit.LastName(), dob, gofakeit.Email(), gofakeit.Phone(),
				insurers[gofakeit.Number(0, len(insurers)-1)],
				gofakeit.Numerify("POL-########"),
				gofakeit.Numerify("GRP-####"),
				gofakeit.Bool())
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

	log.Println("patients seeded")
	return nil
}
