package dialogue

import (
	"time"

	"github.com/google/uuid"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

// Step names the current state of one conversation's state machine.
type Step string

const (
	StepInitial            Step = "initial"
	StepNameRequested      Step = "name_requested"
	StepAppointmentType    Step = "appointment_type"
	StepDatetimePreference Step = "datetime_preference"
	StepInsuranceInfo      Step = "insurance_info"
	StepEmailCollection    Step = "email_collection"
	StepConfirmation       Step = "confirmation"

	StepModificationType            Step = "modification_type"
	StepSelectAppointmentCancel     Step = "select_appointment_cancel"
	StepSelectAppointmentReschedule Step = "select_appointment_reschedule"
	StepRescheduleDatetime          Step = "reschedule_datetime"
)

// ModifyAction is what the modification branch has been asked to do.
type ModifyAction string

const (
	ActionNone       ModifyAction = ""
	ActionCancel     ModifyAction = "cancel"
	ActionReschedule ModifyAction = "reschedule"
	ActionCheck      ModifyAction = "check"
)

// State is the mutable per-conversation record. It is owned by exactly one
// conversation; the manager serializes access per conversation id.
type State struct {
	Step Step

	PatientName       string
	Specialty         string
	DatePreference    string
	TimePreference    string
	InsuranceProvider string
	Email             string

	// Modification branch scratch space.
	PendingAction ModifyAction
	Candidates    []scheduling.Appointment
	TargetID      uuid.UUID

	UpdatedAt time.Time
}

// NewState returns an empty conversation at the initial step.
func NewState() State {
	return State{Step: StepInitial}
}

// Reset clears everything back to a fresh conversation.
func (s *State) Reset() {
	*s = NewState()
}

// clone copies the state, detaching the candidate slice so mutations to the
// copy never leak into the original.
func (s *State) clone() State {
	out := *s
	if len(s.Candidates) > 0 {
		out.Candidates = make([]scheduling.Appointment, len(s.Candidates))
		copy(out.Candidates, s.Candidates)
	}
	return out
}
