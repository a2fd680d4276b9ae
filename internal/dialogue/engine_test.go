package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

func allWeekHours() scheduling.WeeklySchedule {
	hours := scheduling.WorkHours{
		Start: scheduling.NewTimeOfDay(9, 0),
		End:   scheduling.NewTimeOfDay(17, 0),
	}
	ws := scheduling.WeeklySchedule{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		ws[d.String()] = hours
	}
	return ws
}

func newTestEngine(t *testing.T) (*Engine, *scheduling.Service, *scheduling.MemoryRepository, scheduling.Doctor) {
	t.Helper()

	repo := scheduling.NewMemoryRepository()
	doctor := scheduling.Doctor{
		ID:        uuid.New(),
		FirstName: "Grace",
		LastName:  "Hsu",
		Specialty: "Cardiology",
		Schedule:  allWeekHours(),
	}
	repo.PutDoctor(doctor)

	svc := scheduling.NewService(repo, scheduling.NewLocalLocker(), nil)
	engine := NewEngine(svc, NewKeywordClassifier(), NewKeywordNormalizer())
	return engine, svc, repo, doctor
}

func tomorrow() time.Time {
	return scheduling.DateOf(time.Now()).AddDate(0, 0, 1)
}

func seedAppointment(t *testing.T, svc *scheduling.Service, doctorID uuid.UUID, at scheduling.TimeOfDay) *scheduling.Appointment {
	t.Helper()

	patient, err := svc.FindOrCreatePatient(context.Background(), "Jane", "Doe", "jane.doe@example.com", "", scheduling.Insurance{})
	require.NoError(t, err)

	appt, err := svc.Book(context.Background(), doctorID, tomorrow(), at, patient, 30)
	require.NoError(t, err)
	return appt
}

func TestFullBookingConversation(t *testing.T) {
	engine, _, repo, _ := newTestEngine(t)
	ctx := context.Background()
	state := NewState()

	reply := engine.Respond(ctx, &state, "Hello")
	assert.Contains(t, reply, "full name")
	assert.Equal(t, StepNameRequested, state.Step)

	reply = engine.Respond(ctx, &state, "My name is Jane Doe")
	assert.Contains(t, reply, "Jane Doe")
	assert.Equal(t, StepAppointmentType, state.Step)
	assert.Equal(t, "Jane Doe", state.PatientName)

	reply = engine.Respond(ctx, &state, "I need to see a cardiologist")
	assert.Contains(t, reply, "cardiology")
	assert.Equal(t, StepDatetimePreference, state.Step)

	reply = engine.Respond(ctx, &state, "tomorrow morning")
	assert.Contains(t, reply, "insurance")
	assert.Equal(t, StepInsuranceInfo, state.Step)

	reply = engine.Respond(ctx, &state, "Blue Cross")
	assert.Contains(t, reply, "email")
	assert.Equal(t, StepEmailCollection, state.Step)

	reply = engine.Respond(ctx, &state, "jane.doe@example.com")
	assert.Contains(t, reply, "Confirmation number")
	assert.Contains(t, reply, "Dr. Grace Hsu")
	assert.Contains(t, reply, "09:00")
	assert.Contains(t, reply, "60 minutes") // new patient visit length
	assert.Equal(t, StepConfirmation, state.Step)

	// The booking exists and carries the collected details.
	appts, err := repo.SearchAppointmentsByPatientName(ctx, []string{"jane"})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Jane Doe", appts[0].PatientName)
	assert.True(t, appts[0].Date.Equal(tomorrow()))

	reply = engine.Respond(ctx, &state, "No thanks")
	assert.Contains(t, reply, "Take care")
	assert.Equal(t, StepInitial, state.Step)
}

func TestBookingWhenSlotTakenApologizes(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()

	// Occupy tomorrow 09:00 with a long visit first.
	blocker, err := svc.FindOrCreatePatient(ctx, "Max", "Berg", "max@example.com", "", scheduling.Insurance{})
	require.NoError(t, err)
	_, err = svc.Book(ctx, doctor.ID, tomorrow(), scheduling.NewTimeOfDay(9, 0), blocker, 60)
	require.NoError(t, err)

	state := NewState()
	engine.Respond(ctx, &state, "I'd like to book an appointment")
	engine.Respond(ctx, &state, "Ada Okafor")
	engine.Respond(ctx, &state, "cardiology")
	engine.Respond(ctx, &state, "tomorrow morning")
	engine.Respond(ctx, &state, "Aetna")
	reply := engine.Respond(ctx, &state, "ada@example.com")

	assert.Contains(t, reply, "not available")
	assert.Contains(t, reply, "call our office")
	// The conversation still reaches the wrap-up step.
	assert.Equal(t, StepConfirmation, state.Step)
}

func TestCancelConversationSingleMatch(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()
	appt := seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(9, 0))

	state := NewState()
	reply := engine.Respond(ctx, &state, "I need to cancel my appointment for Jane Doe")
	assert.Contains(t, reply, "has been cancelled")
	assert.Equal(t, StepInitial, state.Step)

	current, err := svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, current.Status)
}

func TestCancelConversationNumberedSelection(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()
	first := seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(9, 0))
	second := seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(14, 0))

	state := NewState()
	reply := engine.Respond(ctx, &state, "cancel my appointment, Jane Doe")
	assert.Contains(t, reply, "2 appointments")
	assert.Equal(t, StepSelectAppointmentCancel, state.Step)
	require.Len(t, state.Candidates, 2)

	// Out-of-range and non-numeric selections re-prompt without side effects.
	reply = engine.Respond(ctx, &state, "5")
	assert.Contains(t, reply, "between 1 and 2")
	assert.Equal(t, StepSelectAppointmentCancel, state.Step)

	reply = engine.Respond(ctx, &state, "the later one")
	assert.Contains(t, reply, "between 1 and 2")

	reply = engine.Respond(ctx, &state, "2")
	assert.Contains(t, reply, "has been cancelled")
	assert.Contains(t, reply, "14:00")

	kept, err := svc.GetAppointment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusScheduled, kept.Status)

	gone, err := svc.GetAppointment(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, gone.Status)
}

func TestCancelUnknownNameKeepsState(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	state := NewState()
	reply := engine.Respond(ctx, &state, "cancel my appointment for Zelda Fitz")
	assert.Contains(t, reply, "couldn't find")
	assert.Equal(t, StepInitial, state.Step)
}

func TestRescheduleConversation(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()
	appt := seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(9, 0))

	state := NewState()
	reply := engine.Respond(ctx, &state, "I want to reschedule my appointment Jane Doe")
	assert.Contains(t, reply, "When would you like it instead")
	assert.Equal(t, StepRescheduleDatetime, state.Step)
	assert.Equal(t, appt.ID, state.TargetID)

	reply = engine.Respond(ctx, &state, "tomorrow at 15:00")
	assert.Contains(t, reply, "has been moved")
	assert.Contains(t, reply, "15:00")
	assert.Equal(t, StepInitial, state.Step)

	moved, err := svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusRescheduled, moved.Status)
	assert.Equal(t, "15:00", moved.Time.String())
}

func TestRescheduleOntoTakenSlotRePrompts(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()
	appt := seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(9, 0))

	blocker, err := svc.FindOrCreatePatient(ctx, "Max", "Berg", "max@example.com", "", scheduling.Insurance{})
	require.NoError(t, err)
	_, err = svc.Book(ctx, doctor.ID, tomorrow(), scheduling.NewTimeOfDay(15, 0), blocker, 30)
	require.NoError(t, err)

	state := NewState()
	engine.Respond(ctx, &state, "reschedule my appointment Jane Doe")
	require.Equal(t, StepRescheduleDatetime, state.Step)

	reply := engine.Respond(ctx, &state, "tomorrow at 15:00")
	assert.Contains(t, reply, "isn't available")
	assert.Equal(t, StepRescheduleDatetime, state.Step)

	// A free time on the next turn completes the move.
	reply = engine.Respond(ctx, &state, "tomorrow at 16:00")
	assert.Contains(t, reply, "has been moved")

	moved, err := svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "16:00", moved.Time.String())
}

func TestCheckAppointmentsLists(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()
	seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(9, 0))
	seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(14, 0))

	state := NewState()
	reply := engine.Respond(ctx, &state, "can you check my appointments, the name is Jane Doe")
	assert.Contains(t, reply, "09:00")
	assert.Contains(t, reply, "14:00")
	assert.Equal(t, StepInitial, state.Step)
}

func TestModifyWithoutNameAsks(t *testing.T) {
	engine, svc, _, doctor := newTestEngine(t)
	ctx := context.Background()
	appt := seedAppointment(t, svc, doctor.ID, scheduling.NewTimeOfDay(9, 0))

	state := NewState()
	reply := engine.Respond(ctx, &state, "cancel my appointment")
	assert.Contains(t, reply, "What name")
	assert.Equal(t, StepModificationType, state.Step)

	reply = engine.Respond(ctx, &state, "Jane Doe")
	assert.Contains(t, reply, "has been cancelled")

	current, err := svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, current.Status)
}

func TestSameInputSameReplyOnFreshStates(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	a, b := NewState(), NewState()
	assert.Equal(t,
		engine.Respond(ctx, &a, "Hello"),
		engine.Respond(ctx, &b, "Hello"))
	assert.Equal(t, a.Step, b.Step)
}
