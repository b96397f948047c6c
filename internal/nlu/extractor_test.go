package nlu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vozsalud/cita-platform/internal/dialog"
	"github.com/vozsalud/cita-platform/internal/directory"
)

func TestClassifyIntent(t *testing.T) {
	e := New(directory.Roster(), nil)

	tests := []struct {
		message string
		want    dialog.Intent
	}{
		{"quiero agendar una cita", dialog.IntentBook},
		{"Quisiera reservar para el viernes", dialog.IntentBook},
		{"necesito una nueva cita", dialog.IntentBook},
		{"consultar mis citas por favor", dialog.IntentLookup},
		{"¿qué citas tengo?", dialog.IntentLookup},
		{"quiero cancelar mi cita", dialog.IntentCancel},
		{"anular la cita del viernes", dialog.IntentCancel},
		{"CANCELACIÓN", dialog.IntentCancel},
		{"hola buenas tardes", dialog.IntentUnknown},
		{"12345678", dialog.IntentUnknown},
	}
	for _, tt := range tests {
		got, _ := e.Classify(context.Background(), tt.message)
		assert.Equal(t, tt.want, got, "message %q", tt.message)
	}
}

func TestExtractEntities(t *testing.T) {
	e := New(directory.Roster(), nil)

	tests := []struct {
		message string
		want    map[dialog.Field]string
	}{
		{
			message: "mi DNI es 12345678 y mi teléfono 987654321",
			want: map[dialog.Field]string{
				dialog.FieldDNI:   "12345678",
				dialog.FieldPhone: "987654321",
			},
		},
		{
			// The nine phone digits contain an eight-digit run; it must not
			// leak into the DNI slot.
			message: "llámame al 987654321",
			want: map[dialog.Field]string{
				dialog.FieldPhone: "987654321",
			},
		},
		{
			message: "mi correo es Ana.Torres@Example.com",
			want: map[dialog.Field]string{
				dialog.FieldEmail: "ana.torres@example.com",
			},
		},
		{
			message: "para el 2025-10-30 a las 15:30",
			want: map[dialog.Field]string{
				dialog.FieldDate: "2025-10-30",
				dialog.FieldTime: "15:30",
			},
		},
		{
			message: "el 30/10 a las 3 pm",
			want: map[dialog.Field]string{
				dialog.FieldDate: "30/10",
				dialog.FieldTime: "a las 3 pm",
			},
		},
		{
			message: "mañana con la doctora Morales",
			want: map[dialog.Field]string{
				dialog.FieldDate:      "manana",
				dialog.FieldPhysician: "Dra.Morales",
			},
		},
		{
			message: "me llamo Ana Torres",
			want: map[dialog.Field]string{
				dialog.FieldName: "ana torres",
			},
		},
	}
	for _, tt := range tests {
		_, got := e.Classify(context.Background(), tt.message)
		assert.Equal(t, tt.want, got, "message %q", tt.message)
	}
}

func TestBookingIntentCarriesEntities(t *testing.T) {
	e := New(directory.Roster(), nil)

	intent, entities := e.Classify(context.Background(), "quiero agendar con el doctor Pérez para mañana a las 10:00")
	assert.Equal(t, dialog.IntentBook, intent)
	assert.Equal(t, "Dr.Perez", entities[dialog.FieldPhysician])
	assert.Equal(t, "manana", entities[dialog.FieldDate])
	assert.Equal(t, "10:00", entities[dialog.FieldTime])
}
