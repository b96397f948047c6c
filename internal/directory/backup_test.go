package directory

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestBackupStoreWritesSnapshotsAfterMutations(t *testing.T) {
	dir := t.TempDir()
	store := NewBackupStore(NewMemoryStore(), dir, nil)
	ctx := context.Background()

	_, err := store.CreateAppointment(ctx, AppointmentRequest{
		Name:      "Ana Torres",
		DNI:       "12345678",
		Phone:     "987654321",
		Email:     "ana@example.com",
		Date:      "2025-11-05",
		Time:      "09:00",
		Physician: "Dr.Vega",
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	patients := readCSV(t, filepath.Join(dir, "pacientes.csv"))
	if len(patients) != 2 {
		t.Fatalf("pacientes.csv rows = %d, want header + 1", len(patients))
	}
	if patients[0][0] != "ID_Paciente" {
		t.Errorf("header = %v", patients[0])
	}
	if patients[1][1] != "12345678" {
		t.Errorf("patient row = %v", patients[1])
	}

	citas := readCSV(t, filepath.Join(dir, "citas.csv"))
	if len(citas) != 2 {
		t.Fatalf("citas.csv rows = %d, want header + 1", len(citas))
	}
	if citas[1][6] != StatusPending {
		t.Errorf("estado = %q, want %q", citas[1][6], StatusPending)
	}

	if _, err := store.CancelAppointment(ctx, "12345678", "2025-11-05"); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}
	citas = readCSV(t, filepath.Join(dir, "citas.csv"))
	if citas[1][6] != StatusCancelled {
		t.Errorf("estado after cancel = %q, want %q", citas[1][6], StatusCancelled)
	}
}

func TestBackupStoreFailuresDoNotSurface(t *testing.T) {
	// An unwritable directory must not break the booking itself.
	store := NewBackupStore(NewMemoryStore(), string([]byte{0}), nil)

	_, err := store.CreateAppointment(context.Background(), AppointmentRequest{
		DNI: "12345678", Date: "2025-11-05", Time: "09:00", Physician: "Dr.Vega",
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}
