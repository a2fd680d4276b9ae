package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

const genericApology = "I apologize, but I'm experiencing some technical difficulties. Please try again."

// Engine drives the turn-based conversation state machine. One user message
// produces exactly one response; any unexpected failure inside a turn is
// converted into a generic apology and the state is left untouched so the
// user can retry the same step.
type Engine struct {
	scheduler  *scheduling.Service
	classifier Classifier
	normalizer DateTimeNormalizer

	now func() time.Time
}

func NewEngine(scheduler *scheduling.Service, classifier Classifier, normalizer DateTimeNormalizer) *Engine {
	return &Engine{
		scheduler:  scheduler,
		classifier: classifier,
		normalizer: normalizer,
		now:        time.Now,
	}
}

// Respond consumes one user message and returns the next assistant message,
// advancing the conversation state. State mutations are applied to a working
// copy and committed only when the turn succeeds.
func (e *Engine) Respond(ctx context.Context, state *State, input string) string {
	work := state.clone()

	reply, err := e.step(ctx, &work, input)
	if err != nil {
		log.Printf("dialogue turn failed step=%s err=%v", state.Step, err)
		return genericApology
	}

	work.UpdatedAt = e.now()
	*state = work
	return reply
}

// interruptible reports whether a modify intent may hijack the current step.
// The informational collection steps keep their input: a patient typing
// "cancel" while being asked for their insurance provider is more likely
// naming a carrier than abandoning the flow mid-collection.
func interruptible(step Step) bool {
	switch step {
	case StepInitial, StepNameRequested, StepAppointmentType, StepConfirmation:
		return true
	}
	return false
}

func (e *Engine) step(ctx context.Context, st *State, input string) (string, error) {
	cls := e.classifier.Classify(input)

	if cls.Intent == IntentModify && interruptible(st.Step) {
		return e.startModification(ctx, st, input)
	}

	switch st.Step {
	case StepInitial:
		return e.stepInitial(st, cls), nil
	case StepNameRequested:
		return e.stepNameRequested(st, input, cls), nil
	case StepAppointmentType:
		return e.stepAppointmentType(st, input, cls), nil
	case StepDatetimePreference:
		return e.stepDatetimePreference(st, input, cls), nil
	case StepInsuranceInfo:
		st.InsuranceProvider = strings.TrimSpace(input)
		st.Step = StepEmailCollection
		return "Almost done! To send you a confirmation with all your appointment details, what's the best email address to reach you at?", nil
	case StepEmailCollection:
		st.Email = strings.TrimSpace(input)
		return e.completeBooking(ctx, st)
	case StepConfirmation:
		return e.stepConfirmation(st, cls), nil
	case StepModificationType:
		return e.stepModificationType(ctx, st, input)
	case StepSelectAppointmentCancel:
		return e.stepSelect(ctx, st, input, ActionCancel)
	case StepSelectAppointmentReschedule:
		return e.stepSelect(ctx, st, input, ActionReschedule)
	case StepRescheduleDatetime:
		return e.stepRescheduleDatetime(ctx, st, input)
	default:
		st.Reset()
		return e.stepInitial(st, cls), nil
	}
}

func (e *Engine) stepInitial(st *State, cls Classification) string {
	switch cls.Intent {
	case IntentGreeting:
		st.Step = StepNameRequested
		return "Hello! Welcome to our medical scheduling system. I'm here to help you schedule, reschedule, or cancel appointments. Could you please tell me your full name?"
	case IntentSchedule:
		st.Step = StepNameRequested
		return "I'd be happy to help you schedule an appointment. Could you please tell me your full name?"
	case IntentEmpty:
		return "I'm here whenever you're ready. How can I help you today?"
	default:
		return "I'm here to help with scheduling medical appointments. You can ask me to schedule a new appointment, cancel or reschedule an existing one, or check your upcoming visits. How can I assist you today?"
	}
}

func (e *Engine) stepNameRequested(st *State, input string, cls Classification) string {
	switch cls.Intent {
	case IntentGreeting, IntentSchedule, IntentEmpty:
		return "Of course! To get started, could you please tell me your full name?"
	}

	name := cleanName(input)
	if name == "" {
		return "I didn't quite catch that. Could you please tell me your full name?"
	}

	st.PatientName = name
	st.Step = StepAppointmentType
	return fmt.Sprintf("Thank you, %s! What type of doctor would you like to see? We have specialists in cardiology, dermatology, orthopedics, pediatrics, and many other areas.", name)
}

func (e *Engine) stepAppointmentType(st *State, input string, cls Classification) string {
	specialty := cls.Entities.Specialty
	if specialty == "" {
		specialty = strings.TrimSpace(input)
	}
	st.Specialty = specialty
	st.Step = StepDatetimePreference
	return fmt.Sprintf("Excellent! I'll help you find a great %s specialist. When would be the most convenient time for you? You can say things like \"tomorrow morning\" or \"next Friday afternoon\".", specialty)
}

func (e *Engine) stepDatetimePreference(st *State, input string, cls Classification) string {
	datePhrase := cls.Entities.DatePhrase
	if datePhrase == "" {
		datePhrase = input
	}
	timePhrase := cls.Entities.TimePhrase
	if timePhrase == "" {
		timePhrase = input
	}

	st.DatePreference = datePhrase
	st.TimePreference = timePhrase
	st.Step = StepInsuranceInfo
	return "Perfect! To make sure everything goes smoothly with your visit, could you tell me what insurance provider you have?"
}

func (e *Engine) stepConfirmation(st *State, cls Classification) string {
	if cls.Intent == IntentNegative {
		st.Reset()
		return "You're welcome! Take care, and we'll see you at your appointment."
	}
	return "Is there anything else I can help you with? If not, just say \"no thanks\" and we're done."
}

// completeBooking runs the find-or-create patient and booking flow at the end
// of the collection steps. Booking failures are conversational outcomes, not
// errors: the user is directed to the office and the conversation moves on.
func (e *Engine) completeBooking(ctx context.Context, st *State) (string, error) {
	firstName, lastName := splitName(st.PatientName)

	patient, err := e.scheduler.FindOrCreatePatient(ctx, firstName, lastName, st.Email, "",
		scheduling.Insurance{Provider: st.InsuranceProvider})
	if err != nil {
		return "", fmt.Errorf("find or create patient: %w", err)
	}

	doctor, err := e.resolveDoctor(ctx, st.Specialty)
	if err != nil {
		return "", err
	}
	st.Step = StepConfirmation
	if doctor == nil {
		return fmt.Sprintf("I'm sorry, %s, I couldn't find a doctor matching \"%s\" right now. Please call our office and we'll find the right specialist for you. Is there anything else I can help you with?",
			st.PatientName, st.Specialty), nil
	}

	duration := scheduling.ReturningPatientMinutes
	if patient.IsNewPatient {
		duration = scheduling.NewPatientMinutes
	}

	date := e.normalizer.NormalizeDate(st.DatePreference, e.now())
	at := e.normalizer.NormalizeTime(st.TimePreference)

	appt, err := e.scheduler.Book(ctx, doctor.ID, date, at, patient, duration)
	if err != nil {
		if errors.Is(err, scheduling.ErrSlotUnavailable) || errors.Is(err, scheduling.ErrCalendarBusy) {
			return fmt.Sprintf("I'm sorry, %s is not available on %s at %s. Please call our office and we'll find a time that works for you. Is there anything else I can help you with?",
				doctor.DisplayName(), scheduling.FormatDate(date), at.String()), nil
		}
		return "", fmt.Errorf("book appointment: %w", err)
	}

	return fmt.Sprintf("You're all set, %s! Here are your appointment details:\n\n"+
		"- Doctor: %s (%s)\n"+
		"- Date: %s\n"+
		"- Time: %s\n"+
		"- Duration: %d minutes\n"+
		"- Confirmation number: %s\n\n"+
		"A confirmation email is on its way to %s. Is there anything else I can help you with?",
		st.PatientName, appt.DoctorName, appt.Specialty, scheduling.FormatDate(appt.Date),
		appt.Time.String(), appt.DurationMinutes, appt.ID, st.Email), nil
}

// resolveDoctor maps a free-text specialty to a doctor: canonicalize, match
// by specialty substring, and fall back to the first doctor on staff.
func (e *Engine) resolveDoctor(ctx context.Context, specialty string) (*scheduling.Doctor, error) {
	canonical := CanonicalSpecialty(specialty)
	if canonical != "" {
		doctors, err := e.scheduler.DoctorsBySpecialty(ctx, canonical)
		if err != nil {
			return nil, fmt.Errorf("find doctors by specialty: %w", err)
		}
		if len(doctors) > 0 {
			return &doctors[0], nil
		}
	}

	doctors, err := e.scheduler.Doctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if len(doctors) == 0 {
		return nil, nil
	}
	return &doctors[0], nil
}

// Modification branch

func (e *Engine) startModification(ctx context.Context, st *State, input string) (string, error) {
	action := modifyActionFrom(input)

	name := extractName(input)
	if name == "" {
		name = st.PatientName
	}

	if action == ActionNone || name == "" {
		st.PendingAction = action
		if name != "" {
			st.PatientName = name
		}
		st.Step = StepModificationType
		if action == ActionNone {
			return "I can help with that. Would you like to cancel, reschedule, or check your appointments? Please also tell me the name the appointment is under.", nil
		}
		return fmt.Sprintf("I can help you %s your appointment. What name is it under?", action), nil
	}

	return e.lookupAndRoute(ctx, st, action, name)
}

func (e *Engine) stepModificationType(ctx context.Context, st *State, input string) (string, error) {
	action := modifyActionFrom(input)
	if action == ActionNone {
		action = st.PendingAction
	}

	name := extractName(input)
	if name == "" {
		name = st.PatientName
	}

	if action == ActionNone {
		return "Would you like to cancel, reschedule, or check your appointments?", nil
	}
	if name == "" {
		st.PendingAction = action
		return "What name is the appointment under?", nil
	}

	return e.lookupAndRoute(ctx, st, action, name)
}

func (e *Engine) lookupAndRoute(ctx context.Context, st *State, action ModifyAction, name string) (string, error) {
	appts, err := e.scheduler.SearchAppointments(ctx, name)
	if err != nil {
		return "", fmt.Errorf("search appointments: %w", err)
	}

	if len(appts) == 0 {
		// State deliberately unchanged so the user can re-state the name.
		return fmt.Sprintf("I'm sorry, I couldn't find any upcoming appointments under \"%s\". Could you double-check the name, or call our office for help?", name), nil
	}

	st.PatientName = name
	st.PendingAction = action

	if action == ActionCheck {
		reply := fmt.Sprintf("Here's what I found for %s:\n\n%s\nIs there anything else I can help you with?", name, renderAppointments(appts))
		st.Reset()
		return reply, nil
	}

	if len(appts) == 1 {
		return e.actOnAppointment(ctx, st, action, &appts[0])
	}

	st.Candidates = appts
	switch action {
	case ActionCancel:
		st.Step = StepSelectAppointmentCancel
	case ActionReschedule:
		st.Step = StepSelectAppointmentReschedule
	}
	return fmt.Sprintf("I found %d appointments for %s:\n\n%sWhich one would you like to %s? Please reply with the number.",
		len(appts), name, renderAppointments(appts), action), nil
}

func (e *Engine) stepSelect(ctx context.Context, st *State, input string, action ModifyAction) (string, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > len(st.Candidates) {
		return fmt.Sprintf("Please reply with a number between 1 and %d to pick an appointment.", len(st.Candidates)), nil
	}

	appt := st.Candidates[idx-1]
	return e.actOnAppointment(ctx, st, action, &appt)
}

func (e *Engine) actOnAppointment(ctx context.Context, st *State, action ModifyAction, appt *scheduling.Appointment) (string, error) {
	switch action {
	case ActionCancel:
		cancelled, err := e.scheduler.Cancel(ctx, appt.ID, "patient requested cancellation")
		if err != nil {
			if errors.Is(err, scheduling.ErrAppointmentNotFound) {
				st.Reset()
				return "I'm sorry, I can no longer find that appointment. It may have already been cancelled.", nil
			}
			return "", fmt.Errorf("cancel appointment: %w", err)
		}
		st.Reset()
		return fmt.Sprintf("Your appointment with %s on %s at %s has been cancelled. A confirmation is on its way. Is there anything else I can help you with?",
			cancelled.DoctorName, scheduling.FormatDate(cancelled.Date), cancelled.Time.String()), nil

	case ActionReschedule:
		st.TargetID = appt.ID
		st.Candidates = nil
		st.Step = StepRescheduleDatetime
		return fmt.Sprintf("Sure, let's move your appointment with %s currently on %s at %s. When would you like it instead? You can say things like \"next Friday afternoon\".",
			appt.DoctorName, scheduling.FormatDate(appt.Date), appt.Time.String()), nil
	}

	return "", fmt.Errorf("unsupported modification action %q", action)
}

func (e *Engine) stepRescheduleDatetime(ctx context.Context, st *State, input string) (string, error) {
	date := e.normalizer.NormalizeDate(input, e.now())
	at := e.normalizer.NormalizeTime(input)

	appt, err := e.scheduler.Reschedule(ctx, st.TargetID, date, at)
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrSlotUnavailable), errors.Is(err, scheduling.ErrCalendarBusy):
			// Stay on this step so the user can offer a different time.
			return fmt.Sprintf("I'm sorry, %s at %s isn't available. Could you give me another date or time?",
				scheduling.FormatDate(date), at.String()), nil
		case errors.Is(err, scheduling.ErrAppointmentNotFound):
			st.Reset()
			return "I'm sorry, I can no longer find that appointment. Please call our office for help.", nil
		}
		return "", fmt.Errorf("reschedule appointment: %w", err)
	}

	st.Reset()
	return fmt.Sprintf("Done! Your appointment with %s has been moved to %s at %s. An updated confirmation is on its way. Is there anything else I can help you with?",
		appt.DoctorName, scheduling.FormatDate(appt.Date), appt.Time.String()), nil
}

// Text helpers

var nameFillers = []string{
	"my name is", "my name's", "this is", "i am", "i'm", "it is", "it's", "name:",
}

// cleanName strips filler prefixes and returns the remaining text verbatim.
func cleanName(input string) string {
	name := strings.TrimSpace(input)
	lower := strings.ToLower(name)
	for _, filler := range nameFillers {
		if strings.HasPrefix(lower, filler) {
			name = strings.TrimSpace(name[len(filler):])
			break
		}
	}
	return strings.Trim(name, ".,!?")
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// modification stopwords: everything that is part of the request rather than
// the patient's name.
var modifyStopwords = map[string]struct{}{
	"i": {}, "we": {}, "can": {}, "you": {}, "me": {}, "want": {}, "would": {}, "like": {}, "need": {}, "to": {},
	"cancel": {}, "reschedule": {}, "change": {}, "move": {}, "modify": {}, "check": {},
	"my": {}, "our": {}, "the": {}, "a": {}, "an": {}, "appointment": {}, "appointments": {},
	"please": {}, "for": {}, "under": {}, "name": {}, "is": {}, "hi": {}, "hello": {},
}

// extractName pulls a probable patient name out of a modification request,
// e.g. "I want to cancel my appointment Jane Doe" yields "Jane Doe".
func extractName(input string) string {
	var kept []string
	for _, word := range strings.Fields(input) {
		key := strings.ToLower(strings.Trim(word, ".,!?"))
		if _, stop := modifyStopwords[key]; stop || key == "" {
			continue
		}
		kept = append(kept, strings.Trim(word, ".,!?"))
	}
	return strings.Join(kept, " ")
}

func modifyActionFrom(input string) ModifyAction {
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "cancel"):
		return ActionCancel
	case strings.Contains(lower, "reschedule"), strings.Contains(lower, "move"), strings.Contains(lower, "change"):
		return ActionReschedule
	case strings.Contains(lower, "check"), strings.Contains(lower, "list"), strings.Contains(lower, "show"):
		return ActionCheck
	}
	return ActionNone
}

func renderAppointments(appts []scheduling.Appointment) string {
	var b strings.Builder
	for i, a := range appts {
		fmt.Fprintf(&b, "%d. %s at %s with %s (%s)\n", i+1,
			scheduling.FormatDate(a.Date), a.Time.String(), a.DoctorName, a.Status)
	}
	return b.String()
}
