// Package nlu turns free-form Spanish chat messages into an intent plus the
// entities the dialogue machine consumes. It is deliberately rule-based:
// keyword scoring for intents and regular expressions for entities, which is
// cheap, deterministic and easy to audit.
package nlu

import (
	"context"
	"regexp"
	"strings"

	"github.com/vozsalud/cita-platform/internal/dialog"
	"github.com/vozsalud/cita-platform/pkg/logging"
)

// intentLexicon maps each actionable intent to its trigger stems. Stems are
// matched against accent-folded text, so "cancelación" hits "cancela".
var intentLexicon = map[dialog.Intent][]string{
	dialog.IntentBook:   {"agendar", "agenda", "reservar", "reserva", "programar", "sacar una cita", "nueva cita", "quiero una cita", "separar una cita"},
	dialog.IntentLookup: {"consultar", "consulta", "ver mis citas", "revisar", "que citas tengo", "mis citas", "tengo cita"},
	dialog.IntentCancel: {"cancelar", "cancela", "anular", "anula", "eliminar mi cita", "ya no quiero la cita", "ya no podre"},
}

var (
	dniRE   = regexp.MustCompile(`\b\d{8}\b`)
	phoneRE = regexp.MustCompile(`\b9\d{8}\b`)
	emailRE = regexp.MustCompile(`[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	isoRE   = regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`)
	dmyRE   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{4})?\b`)
	clockRE = regexp.MustCompile(`\b\d{1,2}:\d{2}\s*(?:am|pm)?\b`)
	hourRE  = regexp.MustCompile(`a\s+las?\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?`)
	nameRE  = regexp.MustCompile(`(?:me llamo|mi nombre es|soy)\s+([a-zñ]+(?:\s+[a-zñ]+){0,3})`)
)

var relativeDates = []string{"pasado manana", "manana", "hoy", "lunes", "martes", "miercoles", "jueves", "viernes", "sabado", "domingo"}

// Extractor is the production Classifier.
type Extractor struct {
	physicians []string
	logger     *logging.Logger
}

// New builds an extractor aware of the clinic's physician roster so mentions
// like "con perez" surface as a medico entity.
func New(physicians []string, logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{physicians: physicians, logger: logger}
}

var _ dialog.Classifier = (*Extractor)(nil)

// Classify scores the intent lexicons against the folded message and collects
// every entity it can recognize. Ties go to booking, then lookup.
func (e *Extractor) Classify(_ context.Context, text string) (dialog.Intent, map[dialog.Field]string) {
	folded := dialog.Fold(text)

	intent := dialog.IntentUnknown
	best := 0
	for _, candidate := range []dialog.Intent{dialog.IntentBook, dialog.IntentLookup, dialog.IntentCancel} {
		score := 0
		for _, stem := range intentLexicon[candidate] {
			if strings.Contains(folded, stem) {
				score++
			}
		}
		if score > best {
			best = score
			intent = candidate
		}
	}

	entities := e.extractEntities(text, folded)
	e.logger.Debug("nlu: classified message", "intent", string(intent), "entities", len(entities))
	return intent, entities
}

func (e *Extractor) extractEntities(text, folded string) map[dialog.Field]string {
	entities := make(map[dialog.Field]string)

	// Phone first: its nine digits contain an eight-digit run that the DNI
	// pattern must not claim.
	if m := phoneRE.FindString(folded); m != "" {
		entities[dialog.FieldPhone] = m
	}
	if m := dniRE.FindString(folded); m != "" && m != entities[dialog.FieldPhone] {
		entities[dialog.FieldDNI] = m
	}
	if m := emailRE.FindString(folded); m != "" {
		entities[dialog.FieldEmail] = m
	}

	if m := isoRE.FindString(folded); m != "" {
		entities[dialog.FieldDate] = m
	} else if m := dmyRE.FindString(folded); m != "" {
		entities[dialog.FieldDate] = m
	} else {
		for _, rel := range relativeDates {
			if strings.Contains(folded, rel) {
				entities[dialog.FieldDate] = rel
				break
			}
		}
	}

	if m := clockRE.FindString(folded); m != "" {
		entities[dialog.FieldTime] = m
	} else if m := hourRE.FindString(folded); m != "" {
		entities[dialog.FieldTime] = m
	}

	for _, p := range e.physicians {
		if surname := physicianSurname(p); surname != "" && strings.Contains(folded, surname) {
			entities[dialog.FieldPhysician] = p
			break
		}
	}

	if m := nameRE.FindStringSubmatch(folded); m != nil {
		entities[dialog.FieldName] = strings.TrimSpace(m[1])
	}

	return entities
}

// physicianSurname strips the honorific prefix from a canonical roster key
// such as "Dra.Morales".
func physicianSurname(canonical string) string {
	folded := dialog.Fold(canonical)
	if i := strings.LastIndexAny(folded, ". "); i >= 0 && i+1 < len(folded) {
		return folded[i+1:]
	}
	return folded
}
