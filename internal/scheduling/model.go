package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCancelled   AppointmentStatus = "cancelled"
)

// Active reports whether the status still occupies its slot.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled
}

type Insurance struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policy_number"`
	GroupNumber  string `json:"group_number"`
}

type Patient struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	DateOfBirth  *time.Time
	Email        string
	Phone        string
	Insurance    Insurance
	IsNewPatient bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name for display and appointment lookup.
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Doctor struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Specialty string
	Schedule  WeeklySchedule
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	// PatientName is denormalized so the modification flow can match
	// appointments against a spoken name without joining patients.
	PatientName        string
	DoctorID           uuid.UUID
	DoctorName         string
	Specialty          string
	Date               time.Time
	Time               TimeOfDay
	DurationMinutes    int
	Status             AppointmentStatus
	CancellationReason string
	CreatedAt          time.Time
	RescheduledAt      *time.Time
	CancelledAt        *time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
