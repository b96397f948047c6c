package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the conversational flows.
type ChatMetrics struct {
	turnsTotal    *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	bookingsTotal *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cita",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"intent", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cita",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversation turn end to end",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cita",
			Subsystem: "chat",
			Name:      "bookings_total",
			Help:      "Appointment bookings reaching the directory",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.bookingsTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *ChatMetrics) ObserveTurnLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(channel).Observe(seconds)
}

func (m *ChatMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}
