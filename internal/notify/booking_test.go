package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozsalud/cita-platform/internal/directory"
)

func TestBookingConfirmedSendsEmail(t *testing.T) {
	sender := NewStubEmailSender(nil)
	n := NewBookingNotifier(sender, nil, nil)

	appt := directory.Appointment{ID: "C001", Date: "2025-11-05", Time: "09:00", Physician: "Dr.Vega", Specialty: "Endodoncia"}
	req := directory.AppointmentRequest{Name: "Ana Torres", Email: "ana@example.com"}
	n.BookingConfirmed(context.Background(), appt, req)

	require.Len(t, sender.Sent, 1)
	msg := sender.Sent[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Contains(t, msg.Subject, "C001")
	assert.Contains(t, msg.Body, "2025-11-05")
	assert.Contains(t, msg.Body, "Dr.Vega")
}

func TestBookingConfirmedWithoutEmailOrSender(t *testing.T) {
	appt := directory.Appointment{ID: "C001"}

	// No sender configured.
	NewBookingNotifier(nil, nil, nil).BookingConfirmed(context.Background(), appt, directory.AppointmentRequest{Email: "ana@example.com"})

	// Patient without email.
	sender := NewStubEmailSender(nil)
	NewBookingNotifier(sender, nil, nil).BookingConfirmed(context.Background(), appt, directory.AppointmentRequest{})
	assert.Empty(t, sender.Sent)
}
