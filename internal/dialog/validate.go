package dialog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Validation errors carry the user-facing Spanish message; the machine embeds
// them verbatim in re-prompts.
var (
	errDNIFormat   = errors.New("el DNI debe tener exactamente 8 dígitos")
	errPhoneFormat = errors.New("el teléfono debe tener 9 dígitos y empezar con 9")
	errDateFormat  = errors.New("no entendí la fecha")
	errDatePast    = errors.New("la fecha ya pasó")
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases text and strips accents, for accent-insensitive matching.
func Fold(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDNI strips non-digits and requires exactly 8 digits.
func NormalizeDNI(raw string) (string, error) {
	d := digitsOnly(raw)
	if len(d) != 8 {
		return "", errDNIFormat
	}
	return d, nil
}

// NormalizePhone strips non-digits and requires 9 digits starting with 9.
func NormalizePhone(raw string) (string, error) {
	d := digitsOnly(raw)
	if len(d) != 9 || d[0] != '9' {
		return "", errPhoneFormat
	}
	return d, nil
}

var (
	isoDateRE   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayFirstRE  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}))?\b`)
	clockTimeRE = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	spokenHrRE  = regexp.MustCompile(`a\s+las?\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
)

var weekdayNames = map[string]time.Weekday{
	"domingo":   time.Sunday,
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
}

// NormalizeDate parses a Spanish natural-language or absolute date and returns
// it as YYYY-MM-DD. Dates strictly before today are rejected.
func NormalizeDate(raw string, now time.Time) (string, error) {
	folded := Fold(strings.TrimSpace(raw))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var parsed time.Time
	switch {
	case strings.Contains(folded, "pasado manana"):
		parsed = today.AddDate(0, 0, 2)
	case strings.Contains(folded, "manana"):
		parsed = today.AddDate(0, 0, 1)
	case strings.Contains(folded, "hoy"):
		parsed = today
	default:
		if wd, ok := containedWeekday(folded); ok {
			parsed = nextWeekday(today, wd)
			break
		}
		if m := isoDateRE.FindStringSubmatch(folded); m != nil {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			var err error
			parsed, err = buildDate(y, mo, d, now.Location())
			if err != nil {
				return "", errDateFormat
			}
			break
		}
		if m := dayFirstRE.FindStringSubmatch(folded); m != nil {
			d, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			y := today.Year()
			if m[3] != "" {
				y, _ = strconv.Atoi(m[3])
			}
			var err error
			parsed, err = buildDate(y, mo, d, now.Location())
			if err != nil {
				return "", errDateFormat
			}
			// A day/month with no year that already passed means next year.
			if m[3] == "" && parsed.Before(today) {
				parsed = parsed.AddDate(1, 0, 0)
			}
			break
		}
		return "", errDateFormat
	}

	if parsed.Before(today) {
		return "", errDatePast
	}
	return parsed.Format("2006-01-02"), nil
}

func buildDate(y, mo, d int, loc *time.Location) (time.Time, error) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, errDateFormat
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); treat that as invalid.
	if t.Day() != d || t.Month() != time.Month(mo) {
		return time.Time{}, errDateFormat
	}
	return t, nil
}

func containedWeekday(folded string) (time.Weekday, bool) {
	for name, wd := range weekdayNames {
		if strings.Contains(folded, name) {
			return wd, true
		}
	}
	return 0, false
}

// nextWeekday returns the next occurrence of wd strictly after today, or today
// itself when the weekday matches.
func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, delta)
}

// NormalizeTime converts "15:30", "3:30 pm" or "a las 5" to HH:MM 24-hour
// form. Unparseable input is returned trimmed as-is: the time slot has no
// structural validation.
func NormalizeTime(raw string) string {
	folded := Fold(strings.TrimSpace(raw))

	if m := clockTimeRE.FindStringSubmatch(folded); m != nil {
		return clockFrom(m[1], m[2], m[3])
	}
	if m := spokenHrRE.FindStringSubmatch(folded); m != nil {
		return clockFrom(m[1], m[2], m[3])
	}
	if h, err := strconv.Atoi(folded); err == nil && h >= 0 && h <= 23 {
		return fmt.Sprintf("%02d:00", h)
	}
	return strings.TrimSpace(raw)
}

func clockFrom(hourStr, minStr, meridiem string) string {
	h, _ := strconv.Atoi(hourStr)
	m := 0
	if minStr != "" {
		m, _ = strconv.Atoi(minStr)
	}
	if meridiem == "pm" && h != 12 {
		h += 12
	} else if meridiem == "am" && h == 12 {
		h = 0
	}
	if h > 23 || m > 59 {
		return fmt.Sprintf("%s:%02d", hourStr, m)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// FormatTime12 restates a 24-hour HH:MM as a 12-hour time for summaries.
func FormatTime12(hhmm string) string {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return hhmm
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return hhmm
	}
	suffix := "am"
	display := h
	switch {
	case h == 0:
		display = 12
	case h == 12:
		suffix = "pm"
	case h > 12:
		display = h - 12
		suffix = "pm"
	}
	return fmt.Sprintf("%02d:%s %s", display, parts[1], suffix)
}
