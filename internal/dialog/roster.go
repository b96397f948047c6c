package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/vozsalud/cita-platform/internal/directory"
)

// Roster holds the physician list with specialties and resolves free-text
// mentions to canonical keys.
type Roster struct {
	physicians  []string
	specialties map[string]string
	normalized  map[string]string // folded key -> canonical
}

// NewRoster builds a roster from canonical physician keys and specialties.
func NewRoster(physicians []string, specialties map[string]string) *Roster {
	r := &Roster{
		physicians:  physicians,
		specialties: specialties,
		normalized:  make(map[string]string, len(physicians)),
	}
	for _, p := range physicians {
		r.normalized[normalizePhysician(p)] = p
	}
	return r
}

// LoadRoster fetches the roster once from the directory at startup.
func LoadRoster(ctx context.Context, store directory.Store) (*Roster, error) {
	physicians, err := store.Physicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialog: load roster: %w", err)
	}
	specialties := make(map[string]string, len(physicians))
	for _, p := range physicians {
		s, err := store.SpecialtyOf(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("dialog: load specialty for %s: %w", p, err)
		}
		specialties[p] = s
	}
	return NewRoster(physicians, specialties), nil
}

// Physicians returns the canonical keys in presentation order.
func (r *Roster) Physicians() []string {
	return r.physicians
}

// Specialty returns the physician's specialty, empty when unknown.
func (r *Roster) Specialty(physician string) string {
	return r.specialties[physician]
}

// Describe renders "Dr.Vega (Endodoncia), ..." for prompts.
func (r *Roster) Describe() string {
	parts := make([]string, 0, len(r.physicians))
	for _, p := range r.physicians {
		if s := r.specialties[p]; s != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", p, s))
		} else {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Match resolves free text ("con el doctor pérez") to a canonical roster key.
// Matching is case- and accent-insensitive and ignores honorifics and
// punctuation; any substring overlap with a normalized name counts.
func (r *Roster) Match(raw string) (string, bool) {
	needle := normalizePhysician(raw)
	if needle == "" {
		return "", false
	}
	for _, p := range r.physicians {
		key := normalizePhysician(p)
		if strings.Contains(needle, key) || strings.Contains(key, needle) {
			return p, true
		}
	}
	return "", false
}

// honorifics stripped before matching; longer forms first so "doctora" is not
// left as "a" by a greedy "doctor" cut.
var honorifics = []string{"doctora", "doctor", "dra", "dr"}

func normalizePhysician(raw string) string {
	folded := Fold(raw)
	var b strings.Builder
	for _, r := range folded {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		skip := false
		for _, h := range honorifics {
			if w == h {
				skip = true
				break
			}
		}
		if !skip && !isStopword(w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, "")
}

// isStopword drops Spanish filler so "quiero con el doctor perez" matches.
func isStopword(w string) bool {
	switch w {
	case "con", "el", "la", "quiero", "cita", "una", "al", "a", "de", "por", "favor", "me", "gustaria", "atienda", "que":
		return true
	}
	return false
}
