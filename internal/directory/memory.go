package directory

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used in development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	patients     []Patient
	appointments []Appointment
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory directory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SeedPatient inserts a patient directly, assigning an ID when absent.
func (s *MemoryStore) SeedPatient(p Patient) Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = nextID("P", s.patientIDs())
	}
	s.patients = append(s.patients, p)
	return p
}

// SeedAppointment inserts an appointment directly, assigning an ID when absent.
func (s *MemoryStore) SeedAppointment(a Appointment) Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = nextID("C", s.appointmentIDs())
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	s.appointments = append(s.appointments, a)
	return a
}

func (s *MemoryStore) FindPatientByDNI(ctx context.Context, dni string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.patients {
		if s.patients[i].DNI == dni {
			p := s.patients[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patientID := ""
	for i := range s.patients {
		if s.patients[i].DNI == req.DNI {
			patientID = s.patients[i].ID
			break
		}
	}
	if patientID == "" {
		patientID = nextID("P", s.patientIDs())
		s.patients = append(s.patients, Patient{
			ID:    patientID,
			DNI:   req.DNI,
			Name:  req.Name,
			Phone: req.Phone,
			Email: req.Email,
		})
	}

	appt := Appointment{
		ID:        nextID("C", s.appointmentIDs()),
		PatientID: patientID,
		Date:      req.Date,
		Time:      req.Time,
		Physician: req.Physician,
		Specialty: Specialty(req.Physician),
		Status:    StatusPending,
	}
	s.appointments = append(s.appointments, appt)
	return &appt, nil
}

func (s *MemoryStore) ListAppointmentsByDNI(ctx context.Context, dni string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patientID := ""
	for i := range s.patients {
		if s.patients[i].DNI == dni {
			patientID = s.patients[i].ID
			break
		}
	}
	if patientID == "" {
		return nil, nil
	}

	var out []Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) CancelAppointment(ctx context.Context, dni, date string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patientID := ""
	for i := range s.patients {
		if s.patients[i].DNI == dni {
			patientID = s.patients[i].ID
			break
		}
	}
	if patientID == "" {
		return nil, ErrNoPendingAppointment
	}

	for i := range s.appointments {
		a := &s.appointments[i]
		if a.PatientID == patientID && a.Date == date && a.Status == StatusPending {
			a.Status = StatusCancelled
			cancelled := *a
			return &cancelled, nil
		}
	}
	return nil, ErrNoPendingAppointment
}

func (s *MemoryStore) Physicians(ctx context.Context) ([]string, error) {
	return Roster(), nil
}

func (s *MemoryStore) SpecialtyOf(ctx context.Context, physician string) (string, error) {
	return Specialty(physician), nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) ([]Patient, []Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patients := make([]Patient, len(s.patients))
	copy(patients, s.patients)
	appointments := make([]Appointment, len(s.appointments))
	copy(appointments, s.appointments)
	return patients, appointments, nil
}

func (s *MemoryStore) patientIDs() []string {
	ids := make([]string, 0, len(s.patients))
	for _, p := range s.patients {
		ids = append(ids, p.ID)
	}
	return ids
}

func (s *MemoryStore) appointmentIDs() []string {
	ids := make([]string, 0, len(s.appointments))
	for _, a := range s.appointments {
		ids = append(ids, a.ID)
	}
	return ids
}
