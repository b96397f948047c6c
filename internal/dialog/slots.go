package dialog

import "fmt"

// bookingFields is the slot order for a booking; the machine asks for the
// first missing field each turn.
var bookingFields = []Field{
	FieldDNI, FieldName, FieldPhone, FieldEmail, FieldPhysician, FieldDate, FieldTime,
}

// promptFor returns the question asked when a slot is missing.
func (m *Machine) promptFor(f Field) string {
	switch f {
	case FieldDNI:
		return "¿Cuál es tu número de DNI?"
	case FieldName:
		return "¿Cuál es tu nombre completo?"
	case FieldPhone:
		return "¿Cuál es tu número de teléfono?"
	case FieldEmail:
		return "¿Cuál es tu correo electrónico?"
	case FieldPhysician:
		return fmt.Sprintf("¿Con qué médico deseas atenderte? (%s)", m.roster.Describe())
	case FieldDate:
		return "¿Para qué fecha? Puedes decir \"mañana\" o una fecha como 2025-10-30."
	case FieldTime:
		return "¿A qué hora? (HH:MM)"
	default:
		return fmt.Sprintf("Necesito tu %s.", f)
	}
}

const (
	msgMenu = "Puedo ayudarte a agendar una cita, consultar tus citas o cancelar una cita. ¿Qué deseas hacer?"

	msgFallback = "Disculpa, algo salió mal de mi lado. Empecemos de nuevo: puedo agendar, consultar o cancelar citas."

	msgConfirmRetry = "¿Confirmamos la cita (Sí) o la cancelamos (No)?"

	msgBookingDeclined = "Entendido, no agendamos la cita. ¿Te ayudo en algo más?"

	msgIdentityRetry = "¿Disculpa? ¿Confirmas que eres tú? (Sí/No)"
)
