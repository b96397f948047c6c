package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vozsalud/cita-platform/internal/directory"
	"github.com/vozsalud/cita-platform/pkg/logging"
)

// Classifier is the NLU contract: free text in, intent plus entities out.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, map[Field]string)
}

// Predictor estimates no-show risk for a slot; ok is false when no model is
// available.
type Predictor interface {
	Predict(date, timeOfDay string) (float64, bool)
}

// Notifier is told about confirmed bookings. Failures are the notifier's
// problem; the machine never lets them touch the conversation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, appt directory.Appointment, req directory.AppointmentRequest)
}

// noShowWarnThreshold separates the "high risk" phrasing from the low one.
const noShowWarnThreshold = 0.6

// Machine drives one conversational turn at a time. All collaborators are
// injected; the machine itself holds no per-conversation data.
type Machine struct {
	nlu       Classifier
	store     directory.Store
	roster    *Roster
	predictor Predictor
	notifier  Notifier
	logger    *logging.Logger
	now       func() time.Time
}

// MachineConfig wires the machine's collaborators.
type MachineConfig struct {
	NLU       Classifier
	Store     directory.Store
	Roster    *Roster
	Predictor Predictor // optional
	Notifier  Notifier  // optional
	Logger    *logging.Logger
	Now       func() time.Time
}

// NewMachine builds the dialogue state machine.
func NewMachine(cfg MachineConfig) *Machine {
	if cfg.NLU == nil {
		panic("dialog: classifier required")
	}
	if cfg.Store == nil {
		panic("dialog: directory store required")
	}
	if cfg.Roster == nil {
		panic("dialog: roster required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{
		nlu:       cfg.NLU,
		store:     cfg.Store,
		roster:    cfg.Roster,
		predictor: cfg.Predictor,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// ProcessTurn consumes one user message and returns the reply plus the next
// state. The reply is never empty: an internal branch that produces nothing is
// a bug, answered with a fixed apology and a reset.
func (m *Machine) ProcessTurn(ctx context.Context, message string, st State) (string, State) {
	reply, next := m.processTurn(ctx, message, st)
	if strings.TrimSpace(reply) == "" {
		m.logger.Error("dialog: turn produced no reply", "intent", string(st.Intent), "pending", string(st.Pending))
		return msgFallback, State{}
	}
	return reply, next
}

func (m *Machine) processTurn(ctx context.Context, message string, st State) (string, State) {
	// Confirmation and identity questions intercept the turn before NLU: short
	// yes/no answers classify as anything at all, and must not.
	if st.AwaitingConfirmation {
		return m.handleConfirmation(ctx, message, st)
	}
	if st.AwaitingIdentity {
		return m.handleIdentity(ctx, message, st)
	}

	intentRaw, entities := m.nlu.Classify(ctx, message)
	if entities == nil {
		entities = make(map[Field]string)
	}

	// Priority resolution. The ordering is deliberate: a mid-slot answer must
	// never be allowed to reset the conversation just because the classifier
	// misread it, while an unambiguous action verb outside the protected
	// DNI-answer state always wins.
	protected := st.Intent == IntentBook && st.Pending == FieldDNI
	switch {
	case isMainIntent(intentRaw) && intentRaw != st.Intent && st.Intent != IntentNone && !protected:
		st = State{Intent: intentRaw}
	case st.Pending != "":
		if v, ok := entities[st.Pending]; !ok || strings.TrimSpace(v) == "" {
			entities[st.Pending] = strings.TrimSpace(message)
		}
		st.Pending = ""
	case st.Intent == IntentNone:
		st.Intent = intentRaw
	}

	// Entity consolidation: validated slots are immutable.
	for f, v := range entities {
		st.setSlot(f, strings.TrimSpace(v))
	}

	switch st.Intent {
	case IntentBook:
		return m.advanceBooking(ctx, st)
	case IntentLookup:
		return m.advanceLookup(ctx, st)
	case IntentCancel:
		return m.advanceCancellation(ctx, message, st)
	default:
		return msgMenu, State{}
	}
}

// handleConfirmation interprets the turn strictly as the answer to the booking
// summary. Yes fires the side effect; anything else is re-asked.
func (m *Machine) handleConfirmation(ctx context.Context, message string, st State) (string, State) {
	switch {
	case isAffirmative(message):
		return m.completeBooking(ctx, st)
	case isNegative(message):
		return msgBookingDeclined, State{}
	default:
		return msgConfirmRetry, st
	}
}

// completeBooking creates the appointment and decorates the result with the
// no-show estimate. Any failure aborts the whole transaction.
func (m *Machine) completeBooking(ctx context.Context, st State) (string, State) {
	req := directory.AppointmentRequest{
		Name:      st.value(FieldName),
		DNI:       st.value(FieldDNI),
		Phone:     st.value(FieldPhone),
		Email:     st.value(FieldEmail),
		Date:      st.value(FieldDate),
		Time:      st.value(FieldTime),
		Physician: st.value(FieldPhysician),
	}

	appt, err := m.store.CreateAppointment(ctx, req)
	if err != nil {
		m.logger.Error("dialog: booking failed", "dni", req.DNI, "error", err)
		return fmt.Sprintf("No pude agendar la cita: %v. Empecemos de nuevo cuando quieras.", err), State{}
	}

	reply := fmt.Sprintf("¡Éxito! Cita %s agendada para el paciente %s el %s a las %s con %s.",
		appt.ID, appt.PatientID, appt.Date, appt.Time, appt.Physician)

	if m.predictor != nil {
		if prob, ok := m.predictor.Predict(appt.Date, appt.Time); ok {
			if prob > noShowWarnThreshold {
				reply += fmt.Sprintf("\n⚠️ Advertencia: el riesgo de inasistencia es alto (%.0f%%). Te enviaremos un recordatorio.", prob*100)
			} else {
				reply += fmt.Sprintf("\n(Riesgo de inasistencia bajo: %.0f%%.)", prob*100)
			}
		}
	}

	if m.notifier != nil {
		m.notifier.BookingConfirmed(ctx, *appt, req)
	}

	return reply, State{}
}

// handleIdentity resolves the "¿Eres tú?" question for a DNI that matched an
// existing patient.
func (m *Machine) handleIdentity(ctx context.Context, message string, st State) (string, State) {
	found := st.FoundPatient
	switch {
	case isAffirmative(message) && found != nil:
		st.AwaitingIdentity = false
		st.FoundPatient = nil
		st.PatientID = found.ID
		st.markValidated(FieldName, found.Name)
		st.markValidated(FieldPhone, found.Phone)
		st.markValidated(FieldEmail, found.Email)
		return m.advanceBooking(ctx, st)
	case isNegative(message) && found != nil:
		// Same DNI, different person: unrecoverable conflict.
		return fmt.Sprintf("Entendido. El DNI %s ya está registrado a nombre de %s. Por favor comunícate con la clínica para corregirlo.",
			st.value(FieldDNI), found.Name), State{}
	default:
		return msgIdentityRetry, st
	}
}

// advanceBooking walks the ordered booking slots: validate what arrived, ask
// for the first gap, and show the summary once everything is validated.
func (m *Machine) advanceBooking(ctx context.Context, st State) (string, State) {
	// The DNI gates the rest of the flow: it decides whether we are talking to
	// a known patient and can skip three slots.
	if sl, ok := st.slot(FieldDNI); ok && sl.Status != SlotValidated {
		dni, err := NormalizeDNI(sl.Value)
		if err != nil {
			st.clearSlot(FieldDNI)
			st.Pending = FieldDNI
			return fmt.Sprintf("Lo siento, %s. %s", err, m.promptFor(FieldDNI)), st
		}
		st.markValidated(FieldDNI, dni)

		patient, err := m.store.FindPatientByDNI(ctx, dni)
		if err != nil {
			m.logger.Error("dialog: patient lookup failed", "error", err)
			return fmt.Sprintf("No pude consultar tus datos: %v. Intentémoslo de nuevo más tarde.", err), State{}
		}
		if patient != nil && st.PatientID == "" {
			st.AwaitingIdentity = true
			st.FoundPatient = patient
			return fmt.Sprintf("Encontré a %s con DNI %s. ¿Eres tú? (Sí/No)", patient.Name, dni), st
		}
	}

	for _, f := range bookingFields {
		sl, ok := st.slot(f)
		if !ok {
			st.Pending = f
			return m.promptFor(f), st
		}
		if sl.Status == SlotValidated {
			continue
		}

		switch f {
		case FieldDNI:
			// Already handled above; a present-but-unvalidated DNI cannot reach
			// this loop.
			continue
		case FieldName:
			st.markValidated(f, strings.TrimSpace(sl.Value))
		case FieldPhone:
			phone, err := NormalizePhone(sl.Value)
			if err != nil {
				st.clearSlot(f)
				st.Pending = f
				return fmt.Sprintf("Lo siento, %s. %s", err, m.promptFor(f)), st
			}
			st.markValidated(f, phone)
		case FieldEmail:
			st.markValidated(f, strings.TrimSpace(sl.Value))
		case FieldPhysician:
			canonical, ok := m.roster.Match(sl.Value)
			if !ok {
				st.clearSlot(f)
				st.Pending = f
				return fmt.Sprintf("No reconozco a ese médico. Nuestro equipo es: %s. ¿Con quién deseas atenderte?", m.roster.Describe()), st
			}
			st.markValidated(f, canonical)
		case FieldDate:
			date, err := NormalizeDate(sl.Value, m.now())
			if err != nil {
				st.clearSlot(f)
				st.Pending = f
				return fmt.Sprintf("Lo siento, %s. %s", err, m.promptFor(f)), st
			}
			st.markValidated(f, date)
		case FieldTime:
			st.markValidated(f, NormalizeTime(sl.Value))
		}
	}

	return m.presentSummary(ctx, st)
}

// presentSummary renders the confirmation card and arms the yes/no gate.
func (m *Machine) presentSummary(ctx context.Context, st State) (string, State) {
	patientKind := "paciente nuevo"
	if patient, err := m.store.FindPatientByDNI(ctx, st.value(FieldDNI)); err == nil && patient != nil {
		patientKind = "paciente existente"
	}

	physician := st.value(FieldPhysician)
	specialty := m.roster.Specialty(physician)

	var b strings.Builder
	b.WriteString("Revisa los datos de tu cita:\n")
	fmt.Fprintf(&b, "• Paciente: %s (%s) | DNI: %s\n", st.value(FieldName), patientKind, st.value(FieldDNI))
	fmt.Fprintf(&b, "• Contacto: %s | %s\n", st.value(FieldPhone), st.value(FieldEmail))
	fmt.Fprintf(&b, "• Cita: %s a las %s (%s) con %s — %s\n",
		st.value(FieldDate), st.value(FieldTime), FormatTime12(st.value(FieldTime)), physician, specialty)
	if m.predictor != nil {
		if prob, ok := m.predictor.Predict(st.value(FieldDate), st.value(FieldTime)); ok {
			fmt.Fprintf(&b, "• Riesgo estimado de inasistencia: %.0f%%\n", prob*100)
		}
	}
	b.WriteString("¿Agendamos? (Sí/No)")

	st.Pending = ""
	st.AwaitingConfirmation = true
	return b.String(), st
}

// advanceLookup needs only a valid DNI and is always single-shot.
func (m *Machine) advanceLookup(ctx context.Context, st State) (string, State) {
	sl, ok := st.slot(FieldDNI)
	if !ok {
		st.Pending = FieldDNI
		return "Para consultar tus citas necesito tu DNI. " + m.promptFor(FieldDNI), st
	}
	if sl.Status != SlotValidated {
		dni, err := NormalizeDNI(sl.Value)
		if err != nil {
			st.clearSlot(FieldDNI)
			st.Pending = FieldDNI
			return fmt.Sprintf("Lo siento, %s. %s", err, m.promptFor(FieldDNI)), st
		}
		st.markValidated(FieldDNI, dni)
	}

	dni := st.value(FieldDNI)
	appts, err := m.store.ListAppointmentsByDNI(ctx, dni)
	if err != nil {
		m.logger.Error("dialog: lookup failed", "dni", dni, "error", err)
		return fmt.Sprintf("No pude consultar tus citas: %v.", err), State{}
	}
	if len(appts) == 0 {
		return fmt.Sprintf("No encontré citas para el DNI %s.", dni), State{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Encontré %d cita(s) para el DNI %s:\n", len(appts), dni)
	for _, a := range appts {
		fmt.Fprintf(&b, "• %s: %s a las %s con %s (%s)\n", a.ID, a.Date, a.Time, a.Physician, a.Status)
	}
	return strings.TrimRight(b.String(), "\n"), State{}
}

// advanceCancellation collects the DNI, offers the pending appointments, and
// matches the user's pick by identifier or exact date.
func (m *Machine) advanceCancellation(ctx context.Context, message string, st State) (string, State) {
	// A selection turn: candidates were already offered.
	if len(st.Candidates) > 0 {
		reply := st.value(FieldCancelTarget)
		if reply == "" {
			reply = message
		}
		st.clearSlot(FieldCancelTarget)
		if target := matchCandidate(reply, st.Candidates); target != nil {
			return m.cancelTarget(ctx, st, *target)
		}
		st.Pending = FieldCancelTarget
		return m.renderCandidates(st.Candidates, "No identifiqué esa cita."), st
	}

	sl, ok := st.slot(FieldDNI)
	if !ok {
		st.Pending = FieldDNI
		return "Para cancelar una cita necesito tu DNI. " + m.promptFor(FieldDNI), st
	}
	if sl.Status != SlotValidated {
		dni, err := NormalizeDNI(sl.Value)
		if err != nil {
			st.clearSlot(FieldDNI)
			st.Pending = FieldDNI
			return fmt.Sprintf("Lo siento, %s. %s", err, m.promptFor(FieldDNI)), st
		}
		st.markValidated(FieldDNI, dni)
	}

	dni := st.value(FieldDNI)
	appts, err := m.store.ListAppointmentsByDNI(ctx, dni)
	if err != nil {
		m.logger.Error("dialog: cancellation lookup failed", "dni", dni, "error", err)
		return fmt.Sprintf("No pude consultar tus citas: %v.", err), State{}
	}

	var pending []directory.Appointment
	for _, a := range appts {
		if strings.EqualFold(a.Status, directory.StatusPending) {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return fmt.Sprintf("No tienes citas pendientes con el DNI %s.", dni), State{}
	}

	// A date given up front ("cancelar mi cita del 2025-10-30") selects
	// directly without the listing round-trip.
	if date := st.value(FieldDate); date != "" {
		if target := matchCandidate(date, pending); target != nil {
			return m.cancelTarget(ctx, st, *target)
		}
	}

	st.Candidates = pending
	st.Pending = FieldCancelTarget
	return m.renderCandidates(pending, "Estas son tus citas pendientes:"), st
}

func (m *Machine) cancelTarget(ctx context.Context, st State, target directory.Appointment) (string, State) {
	dni := st.value(FieldDNI)
	cancelled, err := m.store.CancelAppointment(ctx, dni, target.Date)
	if err != nil {
		m.logger.Error("dialog: cancellation failed", "dni", dni, "date", target.Date, "error", err)
		return fmt.Sprintf("No pude cancelar la cita: %v.", err), State{}
	}
	return fmt.Sprintf("Listo: la cita %s del %s a las %s con %s ha sido cancelada.",
		cancelled.ID, cancelled.Date, cancelled.Time, cancelled.Physician), State{}
}

func (m *Machine) renderCandidates(candidates []directory.Appointment, header string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, a := range candidates {
		fmt.Fprintf(&b, "• %s: %s a las %s con %s\n", a.ID, a.Date, a.Time, a.Physician)
	}
	b.WriteString("¿Cuál deseas cancelar? Indícame el ID o la fecha.")
	return b.String()
}

// matchCandidate picks a candidate by case-insensitive identifier substring or
// exact date string.
func matchCandidate(reply string, candidates []directory.Appointment) *directory.Appointment {
	needle := strings.ToLower(strings.TrimSpace(reply))
	if needle == "" {
		return nil
	}
	for i := range candidates {
		c := &candidates[i]
		if strings.Contains(needle, strings.ToLower(c.ID)) {
			return c
		}
		if strings.TrimSpace(reply) == c.Date {
			return c
		}
	}
	return nil
}

// affirmativeTokens are matched token-wise: the original substring check
// turned any word containing "si" into a yes.
var affirmativeTokens = map[string]struct{}{
	"si": {}, "sí": {}, "yes": {}, "claro": {}, "ok": {}, "dale": {}, "confirmo": {}, "correcto": {},
}

func isAffirmative(message string) bool {
	for _, w := range strings.Fields(strings.ToLower(strings.TrimSpace(message))) {
		w = strings.Trim(w, ".,;:!¡¿?")
		if _, ok := affirmativeTokens[w]; ok {
			return true
		}
	}
	return false
}

func isNegative(message string) bool {
	for _, w := range strings.Fields(strings.ToLower(strings.TrimSpace(message))) {
		w = strings.Trim(w, ".,;:!¡¿?")
		if w == "no" {
			return true
		}
	}
	return false
}
