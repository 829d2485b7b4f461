// Package metrics exposes Prometheus instrumentation for ingestion and postback delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service records to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	conversionsIngested *prometheus.CounterVec
	postbacksTriggered  prometheus.Counter
	attempts            *prometheus.CounterVec
	attemptDuration     prometheus.Histogram
	deliveries          *prometheus.CounterVec
	skips               *prometheus.CounterVec
	queueRejections     prometheus.Counter
	outboxRepublished   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversionsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpa_conversions_ingested_total",
				Help: "Total number of conversion events ingested",
			},
			[]string{"source", "type", "created"},
		),
		postbacksTriggered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cpa_postback_tasks_triggered_total",
				Help: "Total number of delivery tasks created by ingestion",
			},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpa_postback_attempts_total",
				Help: "Total number of outbound postback HTTP attempts",
			},
			[]string{"outcome"},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cpa_postback_attempt_duration_seconds",
				Help:    "Duration of outbound postback HTTP attempts",
				Buckets: prometheus.DefBuckets,
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpa_postback_deliveries_total",
				Help: "Final state of each profile/conversion delivery",
			},
			[]string{"state"},
		),
		skips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpa_postback_skips_total",
				Help: "Profiles skipped by the antifraud gate and filters",
			},
			[]string{"reason"},
		),
		queueRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cpa_dispatcher_queue_rejections_total",
				Help: "Tasks that could not be queued because the dispatcher was full",
			},
		),
		outboxRepublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpa_outbox_republished_total",
				Help: "Outbox events republished by the relay",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.conversionsIngested,
		m.postbacksTriggered,
		m.attempts,
		m.attemptDuration,
		m.deliveries,
		m.skips,
		m.queueRejections,
		m.outboxRepublished,
	)
	return m
}

func (m *Metrics) ConversionIngested(source, conversionType string, created bool) {
	if m == nil {
		return
	}
	label := "false"
	if created {
		label = "true"
	}
	m.conversionsIngested.WithLabelValues(source, conversionType, label).Inc()
}

func (m *Metrics) PostbackTriggered() {
	if m == nil {
		return
	}
	m.postbacksTriggered.Inc()
}

func (m *Metrics) AttemptFinished(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.attemptDuration.Observe(duration.Seconds())
}

func (m *Metrics) DeliveryFinished(state string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(state).Inc()
}

func (m *Metrics) ProfileSkipped(reason string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(reason).Inc()
}

func (m *Metrics) QueueRejected() {
	if m == nil {
		return
	}
	m.queueRejections.Inc()
}

func (m *Metrics) OutboxRepublished(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.outboxRepublished.WithLabelValues(result).Inc()
}
