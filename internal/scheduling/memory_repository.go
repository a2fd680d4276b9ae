package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by tests and by the
// dialogue engine's local harness. All methods copy records on the way in and
// out, so callers never share memory with the store.
type MemoryRepository struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	nextEventID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]Appointment),
		nextEventID:  1,
	}
}

// PutDoctor provisions a doctor record. Doctors are read-only to the engines,
// so there is no update path.
func (r *MemoryRepository) PutDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
}

func (r *MemoryRepository) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemoryRepository) FindDoctorsBySpecialty(_ context.Context, specialty string) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(specialty)
	var result []Doctor
	for _, d := range r.doctors {
		if strings.Contains(strings.ToLower(d.Specialty), needle) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemoryRepository) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindPatientByName(_ context.Context, firstName, lastName string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if strings.EqualFold(p.FirstName, firstName) && strings.EqualFold(p.LastName, lastName) {
			match := p
			return &match, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemoryRepository) FindPatientByEmail(_ context.Context, email string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.Email != "" && strings.EqualFold(p.Email, email) {
			match := p
			return &match, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemoryRepository) CreatePatient(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryRepository) UpdatePatient(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[a.ID] = *a
	return nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	r.appointments[a.ID] = *a
	return nil
}

func (r *MemoryRepository) ListDoctorAppointments(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			result = append(result, a)
		}
	}
	sortAppointments(result)
	return result, nil
}

func (r *MemoryRepository) ListDoctorAppointmentsRange(_ context.Context, doctorID uuid.UUID, startDate, endDate time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || !a.Status.Active() {
			continue
		}
		if a.Date.Before(startDate) || a.Date.After(endDate) {
			continue
		}
		result = append(result, a)
	}
	sortAppointments(result)
	return result, nil
}

func (r *MemoryRepository) SearchAppointmentsByPatientName(_ context.Context, tokens []string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if !a.Status.Active() {
			continue
		}
		name := strings.ToLower(a.PatientName)
		for _, tok := range tokens {
			if strings.Contains(name, tok) {
				result = append(result, a)
				break
			}
		}
	}
	sortAppointments(result)
	return result, nil
}

func (r *MemoryRepository) ListAppointmentsOnDate(_ context.Context, date time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.Date.Equal(date) && a.Status.Active() {
			result = append(result, a)
		}
	}
	sortAppointments(result)
	return result, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = r.nextEventID
	r.nextEventID++
	r.events = append(r.events, ev)
	return nil
}

func (r *MemoryRepository) HasEvent(_ context.Context, appointmentID uuid.UUID, eventType string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ev := range r.events {
		if ev.EventType == eventType && ev.AppointmentID != nil && *ev.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

// Events returns a snapshot of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func sortAppointments(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.Before(appts[j].Date)
		}
		return appts[i].Time < appts[j].Time
	})
}
