// Package metrics holds the Prometheus collectors of the crew planner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsAdded   prometheus.Counter
	RegistrationsRemoved *prometheus.CounterVec
	SlotRepairs          prometheus.Counter
	SlotOptimizations    prometheus.Counter
	ConfirmationsSent    *prometheus.CounterVec
	Notifications        *prometheus.CounterVec
	SweepDuration        prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "crew_registrations_added_total",
			Help: "Registrations added to events",
		}),
		RegistrationsRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_registrations_removed_total",
			Help: "Registrations removed from events, by whether a slot held them",
		}, []string{"assigned"}),
		SlotRepairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "crew_slot_assignment_repairs_total",
			Help: "Slot assignments cleared because their registration was gone",
		}),
		SlotOptimizations: factory.NewCounter(prometheus.CounterOpts{
			Name: "crew_slot_optimization_moves_total",
			Help: "Registrations moved into a higher-priority slot",
		}),
		ConfirmationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_confirmation_requests_total",
			Help: "Confirmation messages sent, by stage",
		}, []string{"stage"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_notifications_total",
			Help: "Notifications handed to delivery, by kind and outcome",
		}, []string{"kind", "outcome"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "crew_confirmation_sweep_duration_seconds",
			Help:    "Duration of confirmation sweeps",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncRegistrationsAdded() {
	if m == nil {
		return
	}
	m.RegistrationsAdded.Inc()
}

func (m *Metrics) IncRegistrationsRemoved(assigned bool) {
	if m == nil {
		return
	}
	label := "false"
	if assigned {
		label = "true"
	}
	m.RegistrationsRemoved.WithLabelValues(label).Inc()
}

func (m *Metrics) AddSlotRepairs(n int) {
	if m == nil || n == 0 {
		return
	}
	m.SlotRepairs.Add(float64(n))
}

func (m *Metrics) AddSlotOptimizations(n int) {
	if m == nil || n == 0 {
		return
	}
	m.SlotOptimizations.Add(float64(n))
}

func (m *Metrics) IncConfirmationsSent(stage string) {
	if m == nil {
		return
	}
	m.ConfirmationsSent.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncNotification(kind, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(seconds)
}
