package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresStoreWithQuerier(mock, nil)
}

func TestPostgresFindPatientByDNI(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT id, dni, name, phone, email FROM patients`).
		WithArgs("12345678").
		WillReturnRows(pgxmock.NewRows([]string{"id", "dni", "name", "phone", "email"}).
			AddRow("P001", "12345678", "Ana Torres", "987654321", "ana@example.com"))

	p, err := store.FindPatientByDNI(context.Background(), "12345678")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "P001", p.ID)
	assert.Equal(t, "Ana Torres", p.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindPatientByDNIUnknown(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT id, dni, name, phone, email FROM patients`).
		WithArgs("99999999").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.FindPatientByDNI(context.Background(), "99999999")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateAppointmentRegistersPatient(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT id, dni, name, phone, email FROM patients`).
		WithArgs("12345678").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`FROM patients`).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs("P003", "12345678", "Ana Torres", "987654321", "ana@example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`FROM appointments`).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO appointments`).
		WithArgs("C008", "P003", "2025-11-05", "09:00", "Dr.Vega", "Endodoncia", StatusPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	appt, err := store.CreateAppointment(context.Background(), AppointmentRequest{
		Name:      "Ana Torres",
		DNI:       "12345678",
		Phone:     "987654321",
		Email:     "ana@example.com",
		Date:      "2025-11-05",
		Time:      "09:00",
		Physician: "Dr.Vega",
	})
	require.NoError(t, err)
	assert.Equal(t, "C008", appt.ID)
	assert.Equal(t, "P003", appt.PatientID)
	assert.Equal(t, "Endodoncia", appt.Specialty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAppointmentsByDNI(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`FROM appointments a JOIN patients p`).
		WithArgs("12345678").
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "date", "time", "physician", "specialty", "status"}).
			AddRow("C001", "P001", "2025-11-05", "09:00", "Dr.Vega", "Endodoncia", StatusPending).
			AddRow("C002", "P001", "2025-11-12", "16:00", "Dr.Perez", "Periodoncia", StatusCancelled))

	appts, err := store.ListAppointmentsByDNI(context.Background(), "12345678")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "C001", appts[0].ID)
	assert.Equal(t, StatusCancelled, appts[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCancelAppointment(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`UPDATE appointments SET status`).
		WithArgs(StatusCancelled, "12345678", "2025-11-05", StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "date", "time", "physician", "specialty", "status"}).
			AddRow("C001", "P001", "2025-11-05", "09:00", "Dr.Vega", "Endodoncia", StatusCancelled))

	appt, err := store.CancelAppointment(context.Background(), "12345678", "2025-11-05")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCancelAppointmentNothingPending(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`UPDATE appointments SET status`).
		WithArgs(StatusCancelled, "12345678", "2025-11-05", StatusPending).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.CancelAppointment(context.Background(), "12345678", "2025-11-05")
	assert.True(t, errors.Is(err, ErrNoPendingAppointment))
	assert.NoError(t, mock.ExpectationsWereMet())
}
