package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	bookingsTotal       *prometheus.CounterVec
	confirmationEmails  *prometheus.CounterVec
	availabilityLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalespejo",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		confirmationEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalespejo",
			Subsystem: "booking",
			Name:      "confirmation_emails_total",
			Help:      "Confirmation email attempts by status",
		}, []string{"status"}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dentalespejo",
			Subsystem: "booking",
			Name:      "availability_latency_seconds",
			Help:      "Latency of occupied-slot lookups",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.confirmationEmails, m.availabilityLatency)
	return m
}

// Booking outcomes.
const (
	OutcomeCreated         = "created"
	OutcomeValidationError = "validation_error"
	OutcomeSlotConflict    = "slot_conflict"
	OutcomeWriteError      = "write_error"
)

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveConfirmationEmail(sent bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !sent {
		status = "failed"
	}
	m.confirmationEmails.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveAvailabilityLatency(seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.Observe(seconds)
}
