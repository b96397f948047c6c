package dialog

import (
	"testing"
	"time"
)

func TestNormalizeDNI(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"12345678", "12345678", false},
		{"mi dni es 12345678", "12345678", false},
		{"12.345.678", "12345678", false},
		{"1234567", "", true},
		{"123456789", "", true},
		{"abcdefgh", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeDNI(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeDNI(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDNI(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"987654321", "987654321", false},
		{"es el 987 654 321", "987654321", false},
		{"987-654-321", "987654321", false},
		{"887654321", "", true}, // must start with 9
		{"98765432", "", true},
		{"9876543210", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizePhone(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	// A Wednesday.
	now := time.Date(2025, time.October, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{"hoy", "2025-10-01", nil},
		{"mañana", "2025-10-02", nil},
		{"manana", "2025-10-02", nil},
		{"pasado mañana", "2025-10-03", nil},
		{"el viernes", "2025-10-03", nil},
		{"miércoles", "2025-10-01", nil}, // same weekday resolves to today
		{"el lunes que viene", "2025-10-06", nil},
		{"2025-10-30", "2025-10-30", nil},
		{"el 2025-12-05 por favor", "2025-12-05", nil},
		{"30/10/2025", "2025-10-30", nil},
		{"30/10", "2025-10-30", nil},
		{"15/01", "2026-01-15", nil}, // day/month already past rolls to next year
		{"2020-01-01", "", errDatePast},
		{"ayer no, el 30/02", "", errDateFormat},
		{"2025-13-01", "", errDateFormat},
		{"un día de estos", "", errDateFormat},
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.raw, now)
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("NormalizeDate(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeDate(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"15:30", "15:30"},
		{"3:30 pm", "15:30"},
		{"3:30pm", "15:30"},
		{"12:00 am", "00:00"},
		{"12:15 pm", "12:15"},
		{"a las 5 pm", "17:00"},
		{"a la 1", "01:00"},
		{"9", "09:00"},
		{"como a media tarde", "como a media tarde"}, // passthrough
	}
	for _, tt := range tests {
		if got := NormalizeTime(tt.raw); got != tt.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatTime12(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"00:30", "12:30 am"},
		{"09:00", "09:00 am"},
		{"12:00", "12:00 pm"},
		{"15:30", "03:30 pm"},
		{"23:59", "11:59 pm"},
		{"siesta", "siesta"},
	}
	for _, tt := range tests {
		if got := FormatTime12(tt.in); got != tt.want {
			t.Errorf("FormatTime12(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pérez", "perez"},
		{"MAÑANA", "manana"},
		{"miércoles", "miercoles"},
		{"sin acentos", "sin acentos"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
