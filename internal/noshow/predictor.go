// Package noshow estimates the probability that a patient misses an
// appointment, from the weekday and the time block of the slot. The weights
// come from a small logistic model fitted offline on the clinic's history.
package noshow

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vozsalud/cita-platform/pkg/logging"
)

// Time blocks used as model features.
const (
	BlockMorning   = "manana"
	BlockAfternoon = "tarde"
	BlockEvening   = "noche"
)

// Weights is the serialized model. Weekday keys are lowercase English
// weekday names; block keys are the Block* constants.
type Weights struct {
	Bias    float64            `json:"bias"`
	Weekday map[string]float64 `json:"weekday"`
	Block   map[string]float64 `json:"block"`
}

// DefaultWeights is a conservative prior: Mondays and evenings slip the most.
func DefaultWeights() Weights {
	return Weights{
		Bias: -1.1,
		Weekday: map[string]float64{
			"monday":    0.6,
			"tuesday":   0.1,
			"wednesday": 0.0,
			"thursday":  0.1,
			"friday":    0.5,
			"saturday":  0.9,
			"sunday":    0.9,
		},
		Block: map[string]float64{
			BlockMorning:   -0.2,
			BlockAfternoon: 0.1,
			BlockEvening:   0.7,
		},
	}
}

// LoadWeights reads a weights file, falling back to nothing: callers decide
// what a missing file means.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("noshow: read weights: %w", err)
	}
	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("noshow: parse weights: %w", err)
	}
	return w, nil
}

// Predictor scores appointment slots.
type Predictor struct {
	weights Weights
	logger  *logging.Logger
}

// New creates a predictor with the given weights.
func New(weights Weights, logger *logging.Logger) *Predictor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Predictor{weights: weights, logger: logger}
}

// Predict returns the no-show probability for a YYYY-MM-DD date and an HH:MM
// time. ok is false when either input cannot be interpreted.
func (p *Predictor) Predict(date, timeOfDay string) (float64, bool) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		p.logger.Debug("noshow: unparseable date", "date", date)
		return 0, false
	}
	hour, ok := parseHour(timeOfDay)
	if !ok {
		p.logger.Debug("noshow: unparseable time", "time", timeOfDay)
		return 0, false
	}

	weekday := strings.ToLower(day.Weekday().String())
	score := p.weights.Bias + p.weights.Weekday[weekday] + p.weights.Block[blockOf(hour)]
	return 1 / (1 + math.Exp(-score)), true
}

func parseHour(timeOfDay string) (int, bool) {
	h, _, found := strings.Cut(strings.TrimSpace(timeOfDay), ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

func blockOf(hour int) string {
	switch {
	case hour < 12:
		return BlockMorning
	case hour < 18:
		return BlockAfternoon
	default:
		return BlockEvening
	}
}
