package dialog

import (
	"github.com/vozsalud/cita-platform/internal/directory"
)

// Intent identifies the transaction a conversation is working on.
type Intent string

const (
	IntentNone    Intent = ""
	IntentBook    Intent = "agendar"
	IntentLookup  Intent = "consultar"
	IntentCancel  Intent = "cancelar"
	IntentUnknown Intent = "desconocido"
)

// mainIntents are the three actionable transactions. Only a message classified
// as one of these may trigger a topic switch.
func isMainIntent(i Intent) bool {
	return i == IntentBook || i == IntentLookup || i == IntentCancel
}

// Field names a slot the machine collects.
type Field string

const (
	FieldDNI       Field = "dni"
	FieldName      Field = "nombre"
	FieldPhone     Field = "telefono"
	FieldEmail     Field = "email"
	FieldPhysician Field = "medico"
	FieldDate      Field = "fecha"
	FieldTime      Field = "hora"

	// FieldCancelTarget holds the user's pick from the cancellation candidates.
	FieldCancelTarget Field = "seleccion_cancelacion"
)

// SlotStatus tracks how far a slot value has progressed.
type SlotStatus string

const (
	SlotPresent   SlotStatus = "present"
	SlotValidated SlotStatus = "validated"
)

// Slot is one collected field plus its validation status.
type Slot struct {
	Value  string     `json:"value"`
	Status SlotStatus `json:"status"`
}

// State is the full conversation state for one session. It is serialized as-is
// by the session store between turns; the shell never inspects it.
type State struct {
	Intent Intent         `json:"intent,omitempty"`
	Slots  map[Field]Slot `json:"slots,omitempty"`

	// Pending is the field the machine is waiting on; empty when not waiting.
	Pending Field `json:"pending,omitempty"`
	// AwaitingConfirmation is set once the booking summary has been shown.
	AwaitingConfirmation bool `json:"awaiting_confirmation,omitempty"`

	// Identity sub-flow: a known patient matched the DNI and we asked whether
	// the speaker is that person.
	AwaitingIdentity bool               `json:"awaiting_identity,omitempty"`
	FoundPatient     *directory.Patient `json:"found_patient,omitempty"`
	// PatientID is set once the speaker confirmed an existing record.
	PatientID string `json:"patient_id,omitempty"`

	// Candidates lists the pending appointments offered for cancellation.
	Candidates []directory.Appointment `json:"candidates,omitempty"`
}

// Empty reports whether the state carries no transaction at all.
func (s State) Empty() bool {
	return s.Intent == IntentNone && len(s.Slots) == 0 && s.Pending == "" &&
		!s.AwaitingConfirmation && !s.AwaitingIdentity && len(s.Candidates) == 0
}

func (s *State) slot(f Field) (Slot, bool) {
	if s.Slots == nil {
		return Slot{}, false
	}
	sl, ok := s.Slots[f]
	return sl, ok
}

func (s *State) value(f Field) string {
	sl, _ := s.slot(f)
	return sl.Value
}

func (s *State) isValidated(f Field) bool {
	sl, ok := s.slot(f)
	return ok && sl.Status == SlotValidated
}

// setSlot records a raw value unless the slot is already validated: validated
// data is immutable for the rest of the transaction.
func (s *State) setSlot(f Field, value string) {
	if value == "" || s.isValidated(f) {
		return
	}
	if s.Slots == nil {
		s.Slots = make(map[Field]Slot)
	}
	s.Slots[f] = Slot{Value: value, Status: SlotPresent}
}

// markValidated stores the normalized value and flags the slot validated.
func (s *State) markValidated(f Field, normalized string) {
	if s.Slots == nil {
		s.Slots = make(map[Field]Slot)
	}
	s.Slots[f] = Slot{Value: normalized, Status: SlotValidated}
}

// clearSlot drops the slot entirely, used when validation rejects a value.
func (s *State) clearSlot(f Field) {
	delete(s.Slots, f)
}
