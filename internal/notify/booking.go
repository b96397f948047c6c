package notify

import (
	"context"
	"fmt"

	"github.com/vozsalud/cita-platform/internal/dialog"
	"github.com/vozsalud/cita-platform/internal/directory"
	"github.com/vozsalud/cita-platform/internal/observability/metrics"
	"github.com/vozsalud/cita-platform/pkg/logging"
)

// BookingNotifier emails the patient a confirmation when an appointment is
// created and records the booking metric. It never fails the booking: errors
// are logged and swallowed.
type BookingNotifier struct {
	sender  EmailSender
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
}

var _ dialog.Notifier = (*BookingNotifier)(nil)

// NewBookingNotifier creates the notifier. sender may be nil; the metric is
// still recorded.
func NewBookingNotifier(sender EmailSender, m *metrics.ChatMetrics, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{sender: sender, metrics: m, logger: logger}
}

// BookingConfirmed sends the confirmation email.
func (n *BookingNotifier) BookingConfirmed(ctx context.Context, appt directory.Appointment, req directory.AppointmentRequest) {
	n.metrics.ObserveBooking("created")

	if n.sender == nil || req.Email == "" {
		return
	}

	msg := EmailMessage{
		To:      req.Email,
		ToName:  req.Name,
		Subject: fmt.Sprintf("Confirmación de cita %s", appt.ID),
		Body: fmt.Sprintf(
			"Hola %s,\n\nTu cita quedó agendada:\n\nFecha: %s\nHora: %s\nMédico: %s (%s)\n\nSi no puedes asistir, respóndenos o cancélala desde el chat.\n\nVozSalud",
			req.Name, appt.Date, appt.Time, appt.Physician, appt.Specialty),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("notify: booking confirmation failed", "appointment_id", appt.ID, "error", err)
	}
}
