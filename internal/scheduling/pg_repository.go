package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var schedule []byte

	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Specialty,
		&schedule,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &d.Schedule); err != nil {
			return nil, fmt.Errorf("decode doctor schedule: %w", err)
		}
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var dob *time.Time

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&dob,
		&p.Email,
		&p.Phone,
		&p.Insurance.Provider,
		&p.Insurance.PolicyNumber,
		&p.Insurance.GroupNumber,
		&p.IsNewPatient,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.DateOfBirth = dob
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var timeStr string
	var rescheduledAt, cancelledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.DoctorID,
		&a.DoctorName,
		&a.Specialty,
		&a.Date,
		&timeStr,
		&a.DurationMinutes,
		&a.Status,
		&a.CancellationReason,
		&a.CreatedAt,
		&rescheduledAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time, err = ParseTimeOfDay(timeStr)
	if err != nil {
		return nil, err
	}
	a.Date = DateOf(a.Date)
	a.RescheduledAt = rescheduledAt
	a.CancelledAt = cancelledAt
	return &a, nil
}

const appointmentColumns = `id, patient_id, patient_name, doctor_id, doctor_name, specialty,
	date, time, duration_minutes, status, cancellation_reason, created_at, rescheduled_at, cancelled_at`

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Doctors

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, specialty, schedule, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, specialty, schedule, created_at, updated_at
		FROM doctors
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, specialty, schedule, created_at, updated_at
		FROM doctors
		WHERE specialty ILIKE '%' || $1 || '%'
		ORDER BY last_name, first_name
	`, specialty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Patients

const patientColumns = `id, first_name, last_name, date_of_birth, email, phone,
	insurance_provider, insurance_policy_number, insurance_group_number, is_new_patient, created_at, updated_at`

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) FindPatientByName(ctx context.Context, firstName, lastName string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)
		ORDER BY created_at
		LIMIT 1
	`, firstName, lastName)
	return scanPatient(row)
}

func (r *PgRepository) FindPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE lower(email) = lower($1)
		ORDER BY created_at
		LIMIT 1
	`, email)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone,
		p.Insurance.Provider, p.Insurance.PolicyNumber, p.Insurance.GroupNumber,
		p.IsNewPatient, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET email = $2,
		    phone = $3,
		    insurance_provider = $4,
		    insurance_policy_number = $5,
		    insurance_group_number = $6,
		    is_new_patient = $7,
		    updated_at = $8
		WHERE id = $1
	`, p.ID, p.Email, p.Phone,
		p.Insurance.Provider, p.Insurance.PolicyNumber, p.Insurance.GroupNumber,
		p.IsNewPatient, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.PatientID, a.PatientName, a.DoctorID, a.DoctorName, a.Specialty,
		a.Date, a.Time.String(), a.DurationMinutes, a.Status, a.CancellationReason,
		a.CreatedAt, a.RescheduledAt, a.CancelledAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET date = $2,
		    time = $3,
		    status = $4,
		    cancellation_reason = $5,
		    rescheduled_at = $6,
		    cancelled_at = $7
		WHERE id = $1
	`, a.ID, a.Date, a.Time.String(), a.Status, a.CancellationReason,
		a.RescheduledAt, a.CancelledAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListDoctorAppointmentsRange(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date BETWEEN $2 AND $3 AND status <> 'cancelled'
		ORDER BY date, time
	`, doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) SearchAppointmentsByPatientName(ctx context.Context, tokens []string) ([]Appointment, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	conditions := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, tok := range tokens {
		conditions[i] = fmt.Sprintf("patient_name ILIKE '%%' || $%d || '%%'", i+1)
		args[i] = tok
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status <> 'cancelled' AND (`+strings.Join(conditions, " OR ")+`)
		ORDER BY date, time
	`, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsOnDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1 AND status <> 'cancelled'
		ORDER BY doctor_id, time
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Events

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func (r *PgRepository) HasEvent(ctx context.Context, appointmentID uuid.UUID, eventType string) (bool, error) {
	var exists int
	err := r.pool.QueryRow(ctx, `
		SELECT 1 FROM event_logs
		WHERE appointment_id = $1 AND event_type = $2
		LIMIT 1
	`, appointmentID, eventType).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
