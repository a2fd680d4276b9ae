package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

type MessageRequest struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Step           string `json:"step"`
}

type ConversationResponse struct {
	ConversationID string    `json:"conversation_id"`
	Step           string    `json:"step"`
	PatientName    string    `json:"patient_name,omitempty"`
	Specialty      string    `json:"specialty,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PatientRequest struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	Phone             string `json:"phone,omitempty"`
	InsuranceProvider string `json:"insurance_provider,omitempty"`
	PolicyNumber      string `json:"policy_number,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID        string         `json:"doctor_id"`
	Date            string         `json:"date"` // YYYY-MM-DD
	Time            string         `json:"time"` // HH:MM
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	Patient         PatientRequest `json:"patient"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	PatientName     string     `json:"patient_name"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	DoctorName      string     `json:"doctor_name"`
	Specialty       string     `json:"specialty"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	RescheduledAt   *time.Time `json:"rescheduled_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

type DoctorResponse struct {
	ID        uuid.UUID                 `json:"id"`
	Name      string                    `json:"name"`
	Specialty string                    `json:"specialty"`
	Schedule  scheduling.WeeklySchedule `json:"schedule"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		PatientName:     a.PatientName,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		Specialty:       a.Specialty,
		Date:            scheduling.FormatDate(a.Date),
		Time:            a.Time.String(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		RescheduledAt:   a.RescheduledAt,
		CancelledAt:     a.CancelledAt,
	}
}

func toDoctorResponse(d *scheduling.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:        d.ID,
		Name:      d.DisplayName(),
		Specialty: d.Specialty,
		Schedule:  d.Schedule,
	}
}
