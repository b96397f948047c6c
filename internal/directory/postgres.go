package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vozsalud/cita-platform/pkg/logging"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs; mocks implement
// it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the directory in Postgres.
type PostgresStore struct {
	db     pgxQuerier
	tracer trace.Tracer
	logger *logging.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *logging.Logger) *PostgresStore {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return newPostgresStore(pool, logger)
}

// NewPostgresStoreWithQuerier allows injecting mocks for tests.
func NewPostgresStoreWithQuerier(q pgxQuerier, logger *logging.Logger) *PostgresStore {
	return newPostgresStore(q, logger)
}

func newPostgresStore(q pgxQuerier, logger *logging.Logger) *PostgresStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresStore{
		db:     q,
		tracer: otel.Tracer("cita.internal.directory.postgres"),
		logger: logger,
	}
}

func (s *PostgresStore) FindPatientByDNI(ctx context.Context, dni string) (*Patient, error) {
	ctx, span := s.tracer.Start(ctx, "directory.postgres.find_patient")
	defer span.End()

	var p Patient
	err := s.db.QueryRow(ctx,
		`SELECT id, dni, name, phone, email FROM patients WHERE dni = $1`, dni).
		Scan(&p.ID, &p.DNI, &p.Name, &p.Phone, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("directory: find patient by dni: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "directory.postgres.create_appointment")
	defer span.End()

	patient, err := s.FindPatientByDNI(ctx, req.DNI)
	if err != nil {
		return nil, err
	}

	patientID := ""
	if patient != nil {
		patientID = patient.ID
	} else {
		patientID, err = s.nextSequentialID(ctx, "patients", "P")
		if err != nil {
			return nil, err
		}
		_, err = s.db.Exec(ctx,
			`INSERT INTO patients (id, dni, name, phone, email) VALUES ($1, $2, $3, $4, $5)`,
			patientID, req.DNI, req.Name, req.Phone, req.Email)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("directory: register patient: %w", err)
		}
		s.logger.Info("directory: patient registered", "patient_id", patientID)
	}

	apptID, err := s.nextSequentialID(ctx, "appointments", "C")
	if err != nil {
		return nil, err
	}
	appt := Appointment{
		ID:        apptID,
		PatientID: patientID,
		Date:      req.Date,
		Time:      req.Time,
		Physician: req.Physician,
		Specialty: Specialty(req.Physician),
		Status:    StatusPending,
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO appointments (id, patient_id, date, time, physician, specialty, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		appt.ID, appt.PatientID, appt.Date, appt.Time, appt.Physician, appt.Specialty, appt.Status)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("directory: create appointment: %w", err)
	}
	s.logger.Info("directory: appointment created", "appointment_id", appt.ID, "patient_id", patientID)
	return &appt, nil
}

func (s *PostgresStore) ListAppointmentsByDNI(ctx context.Context, dni string) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "directory.postgres.list_appointments")
	defer span.End()

	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.patient_id, a.date, a.time, a.physician, a.specialty, a.status
		 FROM appointments a JOIN patients p ON p.id = a.patient_id
		 WHERE p.dni = $1 ORDER BY a.id`, dni)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("directory: list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Date, &a.Time, &a.Physician, &a.Specialty, &a.Status); err != nil {
			return nil, fmt.Errorf("directory: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate appointments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CancelAppointment(ctx context.Context, dni, date string) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "directory.postgres.cancel_appointment")
	defer span.End()

	var a Appointment
	err := s.db.QueryRow(ctx,
		`UPDATE appointments SET status = $1
		 WHERE id = (
		   SELECT a.id FROM appointments a JOIN patients p ON p.id = a.patient_id
		   WHERE p.dni = $2 AND a.date = $3 AND a.status = $4
		   ORDER BY a.id LIMIT 1
		 )
		 RETURNING id, patient_id, date, time, physician, specialty, status`,
		StatusCancelled, dni, date, StatusPending).
		Scan(&a.ID, &a.PatientID, &a.Date, &a.Time, &a.Physician, &a.Specialty, &a.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPendingAppointment
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("directory: cancel appointment: %w", err)
	}
	s.logger.Info("directory: appointment cancelled", "appointment_id", a.ID)
	return &a, nil
}

func (s *PostgresStore) Physicians(ctx context.Context) ([]string, error) {
	return Roster(), nil
}

func (s *PostgresStore) SpecialtyOf(ctx context.Context, physician string) (string, error) {
	return Specialty(physician), nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]Patient, []Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "directory.postgres.snapshot")
	defer span.End()

	rows, err := s.db.Query(ctx, `SELECT id, dni, name, phone, email FROM patients ORDER BY id`)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("directory: snapshot patients: %w", err)
	}
	var patients []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.DNI, &p.Name, &p.Phone, &p.Email); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("directory: scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("directory: iterate patients: %w", err)
	}

	arows, err := s.db.Query(ctx,
		`SELECT id, patient_id, date, time, physician, specialty, status FROM appointments ORDER BY id`)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("directory: snapshot appointments: %w", err)
	}
	defer arows.Close()
	var appts []Appointment
	for arows.Next() {
		var a Appointment
		if err := arows.Scan(&a.ID, &a.PatientID, &a.Date, &a.Time, &a.Physician, &a.Specialty, &a.Status); err != nil {
			return nil, nil, fmt.Errorf("directory: scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	if err := arows.Err(); err != nil {
		return nil, nil, fmt.Errorf("directory: iterate appointments: %w", err)
	}
	return patients, appts, nil
}

// nextSequentialID keeps the clinic's human-readable P###/C### identifiers.
func (s *PostgresStore) nextSequentialID(ctx context.Context, table, prefix string) (string, error) {
	var max int
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM 2) AS INTEGER)), 0) FROM %s`, table)).
		Scan(&max)
	if err != nil {
		return "", fmt.Errorf("directory: next id for %s: %w", table, err)
	}
	return fmt.Sprintf("%s%03d", prefix, max+1), nil
}
