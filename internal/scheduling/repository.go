package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotUnavailable is returned when the requested time is not in the
	// doctor's current availability, either because it never was or because
	// another booking claimed it first.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidDuration is returned when a duration is not a positive
	// multiple of the facility's minimum slot size.
	ErrInvalidDuration = errors.New("duration must be a positive multiple of 30 minutes")
)

// Repository contains all store interactions needed by the service.
// Implementations must perform read-modify-write against the latest persisted
// state; the service serializes conflicting writers with a per-doctor lock.
type Repository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	FindDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error)

	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindPatientByName(ctx context.Context, firstName, lastName string) (*Patient, error)
	FindPatientByEmail(ctx context.Context, email string) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) error
	UpdatePatient(ctx context.Context, p *Patient) error

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error

	// ListDoctorAppointments returns the non-cancelled appointments for one
	// doctor on one date, in ascending time order.
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	// ListDoctorAppointmentsRange returns the non-cancelled appointments for
	// one doctor between two dates inclusive, sorted by (date, time).
	ListDoctorAppointmentsRange(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]Appointment, error)

	// SearchAppointmentsByPatientName returns non-cancelled appointments whose
	// stored patient name contains any of the given tokens, case-insensitive.
	SearchAppointmentsByPatientName(ctx context.Context, tokens []string) ([]Appointment, error)

	// ListAppointmentsOnDate returns non-cancelled appointments across all
	// doctors on one date, used by the reminder worker.
	ListAppointmentsOnDate(ctx context.Context, date time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
	HasEvent(ctx context.Context, appointmentID uuid.UUID, eventType string) (bool, error)
}
