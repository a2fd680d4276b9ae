package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careline/medical-scheduling/internal/redisclient"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventReminderSent           = "REMINDER_SENT"
)

const (
	// MinSlotMinutes is the facility's minimum slot size. Durations must be
	// positive multiples of it.
	MinSlotMinutes = 30

	// NewPatientMinutes and ReturningPatientMinutes are the visit lengths
	// used when the dialogue engine books on a patient's behalf.
	NewPatientMinutes       = 60
	ReturningPatientMinutes = 30
)

// Lunch window. No slot interval may overlap it.
var (
	lunchStart = NewTimeOfDay(12, 0)
	lunchEnd   = NewTimeOfDay(13, 0)
)

// ErrCalendarBusy is returned when the per-doctor calendar lock stayed
// contended past the retry budget. Callers should retry shortly.
var ErrCalendarBusy = errors.New("doctor calendar is busy, please retry")

// Notifier delivers appointment notifications. Implementations are
// fire-and-forget: they log their own failures and never return one, so a
// notification problem cannot abort a mutation that already committed.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt *Appointment, patient *Patient)
	AppointmentRescheduled(ctx context.Context, appt *Appointment, patient *Patient)
	AppointmentCancelled(ctx context.Context, appt *Appointment, patient *Patient)
	AppointmentReminder(ctx context.Context, appt *Appointment, patient *Patient)
}

// Service is the slot engine: it computes availability and performs atomic
// book/reschedule/cancel mutations against the record store.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier

	// now is swapped in tests for a fixed clock.
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// AvailableSlots returns the open start times for a doctor on a date, in
// ascending order. The result is empty when the date is not strictly in the
// future or the doctor does not work that weekday.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, durationMinutes int) ([]TimeOfDay, error) {
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day := DateOf(date)
	if !day.After(DateOf(s.now())) {
		return nil, nil
	}

	hours, working := doctor.Schedule.HoursOn(day.Weekday())
	if !working {
		return nil, nil
	}

	booked, err := s.repo.ListDoctorAppointments(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}

	return openSlots(hours, durationMinutes, booked, uuid.Nil), nil
}

// openSlots enumerates candidate start times from the working window,
// stepping by max(1 hour, duration), and drops any candidate whose interval
// overlaps lunch or a non-cancelled appointment. The appointment with id
// exclude is ignored, which lets a reschedule move onto its own slot.
func openSlots(hours WorkHours, durationMinutes int, booked []Appointment, exclude uuid.UUID) []TimeOfDay {
	step := durationMinutes
	if step < 60 {
		step = 60
	}

	var slots []TimeOfDay
	for start := hours.Start; start.Add(durationMinutes) <= hours.End; start = start.Add(step) {
		if overlaps(start, durationMinutes, lunchStart, int(lunchEnd-lunchStart)) {
			continue
		}

		conflict := false
		for _, a := range booked {
			if a.ID == exclude || !a.Status.Active() {
				continue
			}
			if overlaps(start, durationMinutes, a.Time, a.DurationMinutes) {
				conflict = true
				break
			}
		}
		if !conflict {
			slots = append(slots, start)
		}
	}
	return slots
}

func overlaps(aStart TimeOfDay, aMinutes int, bStart TimeOfDay, bMinutes int) bool {
	return aStart < bStart.Add(bMinutes) && bStart < aStart.Add(aMinutes)
}

func validateDuration(minutes int) error {
	if minutes <= 0 || minutes%MinSlotMinutes != 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Book reserves a slot for a patient. Availability is re-checked inside the
// per-doctor calendar lock, so two concurrent bookings for the same slot
// cannot both succeed: the loser gets ErrSlotUnavailable.
func (s *Service) Book(ctx context.Context, doctorID uuid.UUID, date time.Time, at TimeOfDay, patient *Patient, durationMinutes int) (*Appointment, error) {
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day := DateOf(date)

	var created *Appointment
	err = s.withCalendarLock(ctx, doctorID, day, func(lockCtx context.Context) error {
		open, err := s.AvailableSlots(lockCtx, doctorID, day, durationMinutes)
		if err != nil {
			return err
		}
		if !containsSlot(open, at) {
			return ErrSlotUnavailable
		}

		appt := &Appointment{
			ID:              uuid.New(),
			PatientID:       patient.ID,
			PatientName:     patient.FullName(),
			DoctorID:        doctor.ID,
			DoctorName:      doctor.DisplayName(),
			Specialty:       doctor.Specialty,
			Date:            day,
			Time:            at,
			DurationMinutes: durationMinutes,
			Status:          StatusScheduled,
			CreatedAt:       s.now(),
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":  doctor.ID.String(),
			"patient_id": patient.ID.String(),
			"date":       FormatDate(day),
			"time":       at.String(),
			"duration":   durationMinutes,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, created, patient)
	}
	return created, nil
}

// Reschedule moves an existing appointment to a new slot. The appointment
// being moved is excluded from its own conflict check, so rescheduling onto
// its current slot succeeds.
func (s *Service) Reschedule(ctx context.Context, appointmentID uuid.UUID, newDate time.Time, newTime TimeOfDay) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Active() {
		// Cancellation is terminal; a cancelled appointment no longer exists
		// as far as the calendar is concerned.
		return nil, ErrAppointmentNotFound
	}

	doctor, err := s.repo.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	day := DateOf(newDate)

	var updated *Appointment
	err = s.withCalendarLock(ctx, appt.DoctorID, day, func(lockCtx context.Context) error {
		if !day.After(DateOf(s.now())) {
			return ErrSlotUnavailable
		}
		hours, working := doctor.Schedule.HoursOn(day.Weekday())
		if !working {
			return ErrSlotUnavailable
		}

		booked, err := s.repo.ListDoctorAppointments(lockCtx, appt.DoctorID, day)
		if err != nil {
			return fmt.Errorf("list doctor appointments: %w", err)
		}
		if !containsSlot(openSlots(hours, appt.DurationMinutes, booked, appt.ID), newTime) {
			return ErrSlotUnavailable
		}

		now := s.now()
		appt.Date = day
		appt.Time = newTime
		appt.Status = StatusRescheduled
		appt.RescheduledAt = &now
		if err := s.repo.UpdateAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		updated = appt
		s.logEvent(lockCtx, appt.ID, EventAppointmentRescheduled, map[string]any{
			"date": FormatDate(day),
			"time": newTime.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyPatient(ctx, updated, s.notifierRescheduled)
	return updated, nil
}

// Cancel marks an appointment cancelled. Cancelling one that is already
// cancelled is a no-op success returning the unchanged record, so retried
// cancellations never surface spurious errors.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	now := s.now()
	appt.Status = StatusCancelled
	appt.CancelledAt = &now
	appt.CancellationReason = reason
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
		"reason": reason,
	})

	s.notifyPatient(ctx, appt, s.notifierCancelled)
	return appt, nil
}

// DoctorSchedule returns a doctor's non-cancelled appointments between two
// dates inclusive, sorted by (date, time).
func (s *Service) DoctorSchedule(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]Appointment, error) {
	if _, err := s.repo.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	appts, err := s.repo.ListDoctorAppointmentsRange(ctx, doctorID, DateOf(startDate), DateOf(endDate))
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}

	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.Before(appts[j].Date)
		}
		return appts[i].Time < appts[j].Time
	})
	return appts, nil
}

// GetAppointment retrieves an appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

// Doctors lists all provisioned doctors.
func (s *Service) Doctors(ctx context.Context) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx)
}

// GetDoctor retrieves a doctor by id.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

// DoctorsBySpecialty returns doctors whose specialty contains the given
// string, case-insensitive.
func (s *Service) DoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	return s.repo.FindDoctorsBySpecialty(ctx, specialty)
}

// FindOrCreatePatient resolves a patient record keyed by name and email. A
// case-insensitive name match only counts when the stored email is empty or
// equals the supplied one; a namesake with a different email gets their own
// record. Matched patients get their contact fields refreshed and are marked
// returning.
func (s *Service) FindOrCreatePatient(ctx context.Context, firstName, lastName, email, phone string, insurance Insurance) (*Patient, error) {
	patient, err := s.repo.FindPatientByName(ctx, firstName, lastName)
	if err == nil && email != "" && patient.Email != "" && !strings.EqualFold(patient.Email, email) {
		patient, err = nil, ErrPatientNotFound
	}
	if errors.Is(err, ErrPatientNotFound) && email != "" {
		patient, err = s.repo.FindPatientByEmail(ctx, email)
	}
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("find patient: %w", err)
	}

	now := s.now()
	if patient == nil {
		patient = &Patient{
			ID:           uuid.New(),
			FirstName:    firstName,
			LastName:     lastName,
			Email:        email,
			Phone:        phone,
			Insurance:    insurance,
			IsNewPatient: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.CreatePatient(ctx, patient); err != nil {
			return nil, fmt.Errorf("create patient: %w", err)
		}
		return patient, nil
	}

	if email != "" {
		patient.Email = email
	}
	if phone != "" {
		patient.Phone = phone
	}
	if insurance.Provider != "" {
		patient.Insurance.Provider = insurance.Provider
	}
	patient.IsNewPatient = false
	patient.UpdatedAt = now
	if err := s.repo.UpdatePatient(ctx, patient); err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return patient, nil
}

// SearchAppointments returns non-cancelled appointments whose stored patient
// name contains any token of the given name, case-insensitive.
func (s *Service) SearchAppointments(ctx context.Context, patientName string) ([]Appointment, error) {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(patientName)) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return s.repo.SearchAppointmentsByPatientName(ctx, tokens)
}

// SendDayBeforeReminders emails a reminder for every non-cancelled
// appointment happening tomorrow. The event log deduplicates, so repeated
// runs do not re-send.
func (s *Service) SendDayBeforeReminders(ctx context.Context) error {
	tomorrow := DateOf(s.now()).AddDate(0, 0, 1)

	appts, err := s.repo.ListAppointmentsOnDate(ctx, tomorrow)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}

	for i := range appts {
		appt := &appts[i]

		sent, err := s.repo.HasEvent(ctx, appt.ID, EventReminderSent)
		if err != nil {
			log.Printf("reminder dedup check failed appointment=%s err=%v", appt.ID, err)
			continue
		}
		if sent {
			continue
		}

		patient, err := s.repo.GetPatient(ctx, appt.PatientID)
		if err != nil {
			log.Printf("reminder patient lookup failed appointment=%s err=%v", appt.ID, err)
			continue
		}

		if s.notifier != nil {
			s.notifier.AppointmentReminder(ctx, appt, patient)
		}
		s.logEvent(ctx, appt.ID, EventReminderSent, map[string]any{
			"date": FormatDate(appt.Date),
			"time": appt.Time.String(),
		})
	}
	return nil
}

// withCalendarLock retries briefly when the calendar lock is contended, so a
// caller racing another booking ends up re-checking availability instead of
// seeing a lock error.
func (s *Service) withCalendarLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	const attempts = 40
	const backoff = 25 * time.Millisecond

	for i := 0; ; i++ {
		err := s.locker.WithCalendarLock(ctx, doctorID, day, fn)
		if !errors.Is(err, redisclient.ErrLockNotAcquired) {
			return err
		}
		if i == attempts-1 {
			return ErrCalendarBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (s *Service) notifyPatient(ctx context.Context, appt *Appointment, deliver func(context.Context, *Appointment, *Patient)) {
	if s.notifier == nil || appt == nil {
		return
	}
	patient, err := s.repo.GetPatient(ctx, appt.PatientID)
	if err != nil {
		log.Printf("notify patient lookup failed appointment=%s err=%v", appt.ID, err)
		return
	}
	deliver(ctx, appt, patient)
}

func (s *Service) notifierRescheduled(ctx context.Context, appt *Appointment, p *Patient) {
	s.notifier.AppointmentRescheduled(ctx, appt, p)
}

func (s *Service) notifierCancelled(ctx context.Context, appt *Appointment, p *Patient) {
	s.notifier.AppointmentCancelled(ctx, appt, p)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}

func containsSlot(slots []TimeOfDay, at TimeOfDay) bool {
	for _, s := range slots {
		if s == at {
			return true
		}
	}
	return false
}
