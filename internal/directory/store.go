package directory

import (
	"context"
	"errors"
	"fmt"
)

// Appointment status values. Casing follows the clinic's existing records:
// new appointments are created "Pendiente", cancellations write "cancelado".
const (
	StatusPending   = "Pendiente"
	StatusCancelled = "cancelado"
	StatusCompleted = "completado"
)

// ErrNoPendingAppointment indicates no pending appointment matched a
// cancellation request.
var ErrNoPendingAppointment = errors.New("directory: no pending appointment for that date")

// Patient is a registered clinic patient.
type Patient struct {
	ID    string `json:"id"`
	DNI   string `json:"dni"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Appointment is a scheduled visit.
type Appointment struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM
	Physician string `json:"physician"`
	Specialty string `json:"specialty"`
	Status    string `json:"status"`
}

// AppointmentRequest carries the fields needed to book an appointment.
// The store looks the patient up by DNI and registers a new one when absent.
type AppointmentRequest struct {
	Name      string
	DNI       string
	Phone     string
	Email     string
	Date      string
	Time      string
	Physician string
}

// Store is the patient/appointment directory contract. Implementations exist
// for Google Sheets, Postgres and in-memory.
type Store interface {
	// FindPatientByDNI returns the patient with that DNI, or nil when unknown.
	FindPatientByDNI(ctx context.Context, dni string) (*Patient, error)
	// CreateAppointment registers the patient if needed and books the visit.
	CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error)
	// ListAppointmentsByDNI returns every appointment for the patient.
	ListAppointmentsByDNI(ctx context.Context, dni string) ([]Appointment, error)
	// CancelAppointment flips the pending appointment on that date to cancelled.
	// Returns ErrNoPendingAppointment when nothing matches.
	CancelAppointment(ctx context.Context, dni, date string) (*Appointment, error)
	// Physicians returns the roster in presentation order.
	Physicians(ctx context.Context) ([]string, error)
	// SpecialtyOf resolves a physician's specialty ("General" when unknown).
	SpecialtyOf(ctx context.Context, physician string) (string, error)
	// Snapshot dumps all rows, used by backups and the data view.
	Snapshot(ctx context.Context) ([]Patient, []Appointment, error)
}

// rosterOrder keeps the clinic roster in a stable presentation order.
var rosterOrder = []string{"Dr.Vega", "Dr.Perez", "Dra.Morales", "Dr.Castro", "Dra.Paredes"}

// rosterSpecialties maps each physician to their specialty.
var rosterSpecialties = map[string]string{
	"Dr.Vega":     "Endodoncia",
	"Dr.Perez":    "Periodoncia",
	"Dra.Morales": "Ortodoncia",
	"Dr.Castro":   "Protesis dental",
	"Dra.Paredes": "Cirugia Oral",
}

// Roster returns the clinic's physician keys in presentation order.
func Roster() []string {
	out := make([]string, len(rosterOrder))
	copy(out, rosterOrder)
	return out
}

// Specialty returns the specialty for a physician key, "General" when unknown.
func Specialty(physician string) string {
	if s, ok := rosterSpecialties[physician]; ok {
		return s
	}
	return "General"
}

// nextID computes the next sequential identifier with the given prefix,
// e.g. ("P", ["P001","P002"]) -> "P003".
func nextID(prefix string, existing []string) string {
	max := 0
	for _, id := range existing {
		if len(id) <= len(prefix) || id[:len(prefix)] != prefix {
			continue
		}
		n := 0
		ok := true
		for _, c := range id[len(prefix):] {
			if c < '0' || c > '9' {
				ok = false
				break
			}
			n = n*10 + int(c-'0')
		}
		if ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}
