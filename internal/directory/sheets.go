package directory

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/vozsalud/cita-platform/pkg/logging"
)

// Spreadsheet layout. Pacientes: ID_Paciente, DNI, Nombre, Telefono, Email.
// Citas: ID_Cita, ID_Paciente, Fecha, Hora, Medico, Especialidad, Estado.
const (
	patientsRange      = "Pacientes!A2:E"
	appointmentsRange  = "Citas!A2:G"
	patientsAppend     = "Pacientes!A:E"
	appointmentsAppend = "Citas!A:G"
)

// SheetsStore keeps the directory in a Google Sheets spreadsheet, the
// clinic's system of record. Row 1 of each sheet is the header.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *logging.Logger
}

var _ Store = (*SheetsStore)(nil)

// SheetsConfig configures the spreadsheet connection. Exactly one of
// CredentialsJSON or CredentialsFile must be set.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	Logger          *logging.Logger
}

// NewSheetsStore connects to the spreadsheet.
func NewSheetsStore(ctx context.Context, cfg SheetsConfig) (*SheetsStore, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("directory: spreadsheet id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("directory: google credentials are required")
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("directory: failed to create sheets client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsStore{svc: svc, spreadsheetID: cfg.SpreadsheetID, logger: logger}, nil
}

func (s *SheetsStore) FindPatientByDNI(ctx context.Context, dni string) (*Patient, error) {
	patients, err := s.readPatients(ctx)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		if patients[i].DNI == dni {
			p := patients[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *SheetsStore) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	patients, err := s.readPatients(ctx)
	if err != nil {
		return nil, err
	}

	patientID := ""
	for i := range patients {
		if patients[i].DNI == req.DNI {
			patientID = patients[i].ID
			break
		}
	}
	if patientID == "" {
		patientID = nextID("P", patientIDs(patients))
		row := []interface{}{patientID, req.DNI, req.Name, req.Phone, req.Email}
		if err := s.appendRow(ctx, patientsAppend, row); err != nil {
			return nil, fmt.Errorf("directory: failed to register patient: %w", err)
		}
		s.logger.Info("directory: patient registered", "patient_id", patientID)
	}

	appts, err := s.readAppointments(ctx)
	if err != nil {
		return nil, err
	}
	appt := Appointment{
		ID:        nextID("C", appointmentIDs(appts)),
		PatientID: patientID,
		Date:      req.Date,
		Time:      req.Time,
		Physician: req.Physician,
		Specialty: Specialty(req.Physician),
		Status:    StatusPending,
	}
	row := []interface{}{appt.ID, appt.PatientID, appt.Date, appt.Time, appt.Physician, appt.Specialty, appt.Status}
	if err := s.appendRow(ctx, appointmentsAppend, row); err != nil {
		return nil, fmt.Errorf("directory: failed to create appointment: %w", err)
	}
	s.logger.Info("directory: appointment created", "appointment_id", appt.ID, "patient_id", patientID)
	return &appt, nil
}

func (s *SheetsStore) ListAppointmentsByDNI(ctx context.Context, dni string) ([]Appointment, error) {
	patient, err := s.FindPatientByDNI(ctx, dni)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, nil
	}

	appts, err := s.readAppointments(ctx)
	if err != nil {
		return nil, err
	}
	var out []Appointment
	for _, a := range appts {
		if a.PatientID == patient.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *SheetsStore) CancelAppointment(ctx context.Context, dni, date string) (*Appointment, error) {
	patient, err := s.FindPatientByDNI(ctx, dni)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrNoPendingAppointment
	}

	appts, err := s.readAppointments(ctx)
	if err != nil {
		return nil, err
	}
	for i, a := range appts {
		if a.PatientID == patient.ID && a.Date == date && a.Status == StatusPending {
			// Data rows start at sheet row 2.
			cell := fmt.Sprintf("Citas!G%d", i+2)
			vr := &sheets.ValueRange{Values: [][]interface{}{{StatusCancelled}}}
			_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, cell, vr).
				ValueInputOption("USER_ENTERED").Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("directory: failed to cancel appointment %s: %w", a.ID, err)
			}
			a.Status = StatusCancelled
			s.logger.Info("directory: appointment cancelled", "appointment_id", a.ID)
			return &a, nil
		}
	}
	return nil, ErrNoPendingAppointment
}

func (s *SheetsStore) Physicians(ctx context.Context) ([]string, error) {
	return Roster(), nil
}

func (s *SheetsStore) SpecialtyOf(ctx context.Context, physician string) (string, error) {
	return Specialty(physician), nil
}

func (s *SheetsStore) Snapshot(ctx context.Context) ([]Patient, []Appointment, error) {
	patients, err := s.readPatients(ctx)
	if err != nil {
		return nil, nil, err
	}
	appts, err := s.readAppointments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return patients, appts, nil
}

func (s *SheetsStore) readPatients(ctx context.Context) ([]Patient, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, patientsRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("directory: failed to read patients: %w", err)
	}
	patients := make([]Patient, 0, len(resp.Values))
	for _, row := range resp.Values {
		patients = append(patients, patientFromRow(row))
	}
	return patients, nil
}

func (s *SheetsStore) readAppointments(ctx context.Context) ([]Appointment, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, appointmentsRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("directory: failed to read appointments: %w", err)
	}
	appts := make([]Appointment, 0, len(resp.Values))
	for _, row := range resp.Values {
		appts = append(appts, appointmentFromRow(row))
	}
	return appts, nil
}

func (s *SheetsStore) appendRow(ctx context.Context, rng string, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

// cellString tolerates short rows: trailing empty cells are omitted by the
// API.
func cellString(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return strings.TrimSpace(s)
}

func patientFromRow(row []interface{}) Patient {
	return Patient{
		ID:    cellString(row, 0),
		DNI:   cellString(row, 1),
		Name:  cellString(row, 2),
		Phone: cellString(row, 3),
		Email: cellString(row, 4),
	}
}

func appointmentFromRow(row []interface{}) Appointment {
	return Appointment{
		ID:        cellString(row, 0),
		PatientID: cellString(row, 1),
		Date:      cellString(row, 2),
		Time:      cellString(row, 3),
		Physician: cellString(row, 4),
		Specialty: cellString(row, 5),
		Status:    cellString(row, 6),
	}
}

func patientIDs(patients []Patient) []string {
	ids := make([]string, 0, len(patients))
	for _, p := range patients {
		ids = append(ids, p.ID)
	}
	return ids
}

func appointmentIDs(appts []Appointment) []string {
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.ID)
	}
	return ids
}
