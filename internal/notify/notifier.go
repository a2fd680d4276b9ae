package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/careline/medical-scheduling/internal/scheduling"
)

// EmailNotifier turns appointment lifecycle events into patient emails.
// Delivery is best effort: a failed email is logged, never surfaced to the
// booking path.
type EmailNotifier struct {
	sender EmailSender
}

func NewEmailNotifier(sender EmailSender) *EmailNotifier {
	if sender == nil {
		sender = StubSender{}
	}
	return &EmailNotifier{sender: sender}
}

var _ scheduling.Notifier = (*EmailNotifier)(nil)

func (n *EmailNotifier) AppointmentBooked(ctx context.Context, appt *scheduling.Appointment, patient *scheduling.Patient) {
	body := fmt.Sprintf(`Dear %s,

Your appointment has been successfully scheduled!

Appointment details:
- Confirmation number: %s
- Date: %s
- Time: %s
- Duration: %d minutes
- Doctor: %s
- Specialty: %s

Please arrive 15 minutes early and bring a valid ID, your insurance card,
and a list of current medications.

If you need to reschedule or cancel, please contact us at least 24 hours
in advance.

Best regards,
CareLine Scheduling
`, patient.FullName(), appt.ID, scheduling.FormatDate(appt.Date), appt.Time, appt.DurationMinutes, appt.DoctorName, appt.Specialty)

	n.send(ctx, patient, fmt.Sprintf("Appointment Confirmation - %s", appt.ID), body)
}

func (n *EmailNotifier) AppointmentRescheduled(ctx context.Context, appt *scheduling.Appointment, patient *scheduling.Patient) {
	body := fmt.Sprintf(`Dear %s,

Your appointment has been rescheduled.

Updated details:
- Confirmation number: %s
- Date: %s
- Time: %s
- Doctor: %s

If this new time does not work for you, please contact us as soon as
possible.

Best regards,
CareLine Scheduling
`, patient.FullName(), appt.ID, scheduling.FormatDate(appt.Date), appt.Time, appt.DoctorName)

	n.send(ctx, patient, fmt.Sprintf("Appointment Rescheduled - %s", appt.ID), body)
}

func (n *EmailNotifier) AppointmentCancelled(ctx context.Context, appt *scheduling.Appointment, patient *scheduling.Patient) {
	body := fmt.Sprintf(`Dear %s,

Your appointment with %s on %s at %s has been cancelled.

If you would like to book a new appointment, we are happy to help any
time.

Best regards,
CareLine Scheduling
`, patient.FullName(), appt.DoctorName, scheduling.FormatDate(appt.Date), appt.Time)

	n.send(ctx, patient, fmt.Sprintf("Appointment Cancelled - %s", appt.ID), body)
}

func (n *EmailNotifier) AppointmentReminder(ctx context.Context, appt *scheduling.Appointment, patient *scheduling.Patient) {
	body := fmt.Sprintf(`Dear %s,

This is a friendly reminder about your upcoming appointment.

Appointment details:
- Date: %s
- Time: %s
- Doctor: %s

Please arrive 15 minutes early and bring your insurance card and ID.

If you need to reschedule or cancel, please contact us as soon as
possible.

See you soon!

CareLine Scheduling
`, patient.FullName(), scheduling.FormatDate(appt.Date), appt.Time, appt.DoctorName)

	n.send(ctx, patient, "Appointment Reminder - 1 day to go", body)
}

func (n *EmailNotifier) send(ctx context.Context, patient *scheduling.Patient, subject, body string) {
	if patient.Email == "" {
		return
	}
	msg := EmailMessage{
		To:      patient.Email,
		ToName:  patient.FullName(),
		Subject: subject,
		Body:    body,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		log.Printf("notification send failed to=%s subject=%q err=%v", msg.To, subject, err)
	}
}
