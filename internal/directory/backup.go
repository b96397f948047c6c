package directory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vozsalud/cita-platform/pkg/logging"
)

// BackupStore decorates a Store and writes a CSV snapshot of both tables
// after every successful mutation. Backups are best-effort: a failed snapshot
// is logged and never surfaces to the caller.
type BackupStore struct {
	Store
	dir    string
	logger *logging.Logger
}

var _ Store = (*BackupStore)(nil)

// NewBackupStore wraps inner with CSV snapshots under dir.
func NewBackupStore(inner Store, dir string, logger *logging.Logger) *BackupStore {
	if inner == nil {
		panic("directory: inner store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BackupStore{Store: inner, dir: dir, logger: logger}
}

func (b *BackupStore) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	appt, err := b.Store.CreateAppointment(ctx, req)
	if err != nil {
		return nil, err
	}
	b.snapshot(ctx)
	return appt, nil
}

func (b *BackupStore) CancelAppointment(ctx context.Context, dni, date string) (*Appointment, error) {
	appt, err := b.Store.CancelAppointment(ctx, dni, date)
	if err != nil {
		return nil, err
	}
	b.snapshot(ctx)
	return appt, nil
}

func (b *BackupStore) snapshot(ctx context.Context) {
	patients, appts, err := b.Store.Snapshot(ctx)
	if err != nil {
		b.logger.Error("directory: backup snapshot failed", "error", err)
		return
	}
	if err := writePatientsCSV(filepath.Join(b.dir, "pacientes.csv"), patients); err != nil {
		b.logger.Error("directory: patient backup failed", "error", err)
	}
	if err := writeAppointmentsCSV(filepath.Join(b.dir, "citas.csv"), appts); err != nil {
		b.logger.Error("directory: appointment backup failed", "error", err)
	}
}

func writePatientsCSV(path string, patients []Patient) error {
	records := [][]string{{"ID_Paciente", "DNI", "Nombre", "Telefono", "Email"}}
	for _, p := range patients {
		records = append(records, []string{p.ID, p.DNI, p.Name, p.Phone, p.Email})
	}
	return writeCSV(path, records)
}

func writeAppointmentsCSV(path string, appts []Appointment) error {
	records := [][]string{{"ID_Cita", "ID_Paciente", "Fecha", "Hora", "Medico", "Especialidad", "Estado"}}
	for _, a := range appts {
		records = append(records, []string{a.ID, a.PatientID, a.Date, a.Time, a.Physician, a.Specialty, a.Status})
	}
	return writeCSV(path, records)
}

// writeCSV replaces the file atomically so a crash mid-write never leaves a
// truncated backup.
func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("directory: create backup dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return fmt.Errorf("directory: create backup temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("directory: write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("directory: close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("directory: replace backup: %w", err)
	}
	return nil
}
