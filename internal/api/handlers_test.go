package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careline/medical-scheduling/internal/dialogue"
	"github.com/careline/medical-scheduling/internal/scheduling"
)

func newTestServer(t *testing.T) (*httptest.Server, scheduling.Doctor) {
	t.Helper()

	hours := scheduling.WorkHours{
		Start: scheduling.NewTimeOfDay(9, 0),
		End:   scheduling.NewTimeOfDay(17, 0),
	}
	schedule := scheduling.WeeklySchedule{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		schedule[d.String()] = hours
	}

	repo := scheduling.NewMemoryRepository()
	doctor := scheduling.Doctor{
		ID:        uuid.New(),
		FirstName: "Grace",
		LastName:  "Hsu",
		Specialty: "Cardiology",
		Schedule:  schedule,
	}
	repo.PutDoctor(doctor)

	svc := scheduling.NewService(repo, scheduling.NewLocalLocker(), nil)
	engine := dialogue.NewEngine(svc, dialogue.NewKeywordClassifier(), dialogue.NewKeywordNormalizer())

	router := NewRouter(RouterConfig{
		Service:       svc,
		Conversations: dialogue.NewManager(engine, time.Hour),
		Env:           "test",
		Version:       "test",
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, doctor
}

func tomorrowDate() string {
	return scheduling.FormatDate(scheduling.DateOf(time.Now()).AddDate(0, 0, 1))
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func bookRequest(doctorID uuid.UUID, at, email string) map[string]any {
	return map[string]any{
		"doctor_id": doctorID.String(),
		"date":      tomorrowDate(),
		"time":      at,
		"patient": map[string]string{
			"first_name":         "Ada",
			"last_name":          "Okafor",
			"email":              email,
			"insurance_provider": "Aetna",
		},
	}
}

func TestListDoctors(t *testing.T) {
	server, doctor := newTestServer(t)

	resp, err := http.Get(server.URL + "/doctors")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doctors []DoctorResponse
	decode(t, resp, &doctors)
	require.Len(t, doctors, 1)
	assert.Equal(t, doctor.ID, doctors[0].ID)
	assert.Equal(t, "Dr. Grace Hsu", doctors[0].Name)
}

func TestGetDoctorErrors(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/doctors/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(server.URL + "/doctors/" + uuid.NewString())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDoctorSlots(t *testing.T) {
	server, doctor := newTestServer(t)

	url := fmt.Sprintf("%s/doctors/%s/slots?date=%s&duration_minutes=60", server.URL, doctor.ID, tomorrowDate())
	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var slots SlotsResponse
	decode(t, resp, &slots)
	assert.Equal(t, doctor.ID, slots.DoctorID)
	assert.Contains(t, slots.Slots, "09:00")
	assert.NotContains(t, slots.Slots, "12:00") // lunch
}

func TestBookAppointmentLifecycle(t *testing.T) {
	server, doctor := newTestServer(t)

	resp := postJSON(t, server.URL+"/appointments", bookRequest(doctor.ID, "10:00", "ada@example.com"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var appt AppointmentResponse
	decode(t, resp, &appt)
	assert.Equal(t, "scheduled", appt.Status)
	assert.Equal(t, "10:00", appt.Time)

	// The same slot again conflicts.
	resp = postJSON(t, server.URL+"/appointments", bookRequest(doctor.ID, "10:00", "ben@example.com"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var apiErr ErrorResponse
	decode(t, resp, &apiErr)
	assert.Equal(t, "slot_unavailable", apiErr.Error)

	// Reschedule to a free slot.
	resp = postJSON(t, fmt.Sprintf("%s/appointments/%s/reschedule", server.URL, appt.ID), map[string]string{
		"date": tomorrowDate(),
		"time": "14:00",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var moved AppointmentResponse
	decode(t, resp, &moved)
	assert.Equal(t, "rescheduled", moved.Status)
	assert.Equal(t, "14:00", moved.Time)

	// Cancel.
	resp = postJSON(t, fmt.Sprintf("%s/appointments/%s/cancel", server.URL, appt.ID), map[string]string{
		"reason": "patient request",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled AppointmentResponse
	decode(t, resp, &cancelled)
	assert.Equal(t, "cancelled", cancelled.Status)

	// Once cancelled, the slot is bookable again.
	resp = postJSON(t, server.URL+"/appointments", bookRequest(doctor.ID, "14:00", "ben@example.com"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBookAppointmentValidation(t *testing.T) {
	server, doctor := newTestServer(t)

	req := bookRequest(doctor.ID, "10:00", "ada@example.com")
	req["date"] = "June 2nd"
	resp := postJSON(t, server.URL+"/appointments", req)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req = bookRequest(doctor.ID, "10:00", "")
	resp = postJSON(t, server.URL+"/appointments", req)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req = bookRequest(doctor.ID, "10:00", "ada@example.com")
	req["duration_minutes"] = 45
	resp = postJSON(t, server.URL+"/appointments", req)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConversationEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/conversations/conv-1/messages", map[string]string{
		"message": "Hello",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var msg MessageResponse
	decode(t, resp, &msg)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Contains(t, msg.Reply, "full name")
	assert.Equal(t, "name_requested", msg.Step)

	resp, err := http.Get(server.URL + "/conversations/conv-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var conv ConversationResponse
	decode(t, resp, &conv)
	assert.Equal(t, "name_requested", conv.Step)

	resp, err = http.Get(server.URL + "/conversations/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
