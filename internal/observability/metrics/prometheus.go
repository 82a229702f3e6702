// Package metrics provides Prometheus metrics for the adherence engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	DosesMaterialized   prometheus.Counter
	DosesDuplicate      prometheus.Counter
	DosesMissed         prometheus.Counter
	DosesTaken          prometheus.Counter
	DosesSkipped        prometheus.Counter
	RemindersDispatched prometheus.Counter
	RemindersSent       *prometheus.CounterVec
	RemindersFailed     *prometheus.CounterVec
	SweepDuration       *prometheus.HistogramVec
	LowStockMedications prometheus.Gauge
	KafkaMessagesSent   prometheus.Counter
	KafkaMessagesRead   prometheus.Counter
	OutboxPending       prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		DosesMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doses_materialized_total",
			Help: "Dose instances created by horizon materialization",
		}),
		DosesDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doses_duplicate_total",
			Help: "Materialization inserts absorbed by the uniqueness guard",
		}),
		DosesMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doses_missed_total",
			Help: "Doses transitioned to MISSED by the sweep",
		}),
		DosesTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doses_taken_total",
			Help: "Doses marked taken",
		}),
		DosesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doses_skipped_total",
			Help: "Doses marked skipped",
		}),
		RemindersDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Reminder messages enqueued for delivery",
		}),
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminders delivered, by channel",
		}, []string{"channel"}),
		RemindersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_failed_total",
			Help: "Reminder deliveries that failed, by channel",
		}, []string{"channel"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Background sweep duration, by job",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"job"}),
		LowStockMedications: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_low_stock_medications",
			Help: "Medications currently at or below their low stock threshold",
		}),
		KafkaMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.DosesMaterialized,
		m.DosesDuplicate,
		m.DosesMissed,
		m.DosesTaken,
		m.DosesSkipped,
		m.RemindersDispatched,
		m.RemindersSent,
		m.RemindersFailed,
		m.SweepDuration,
		m.LowStockMedications,
		m.KafkaMessagesSent,
		m.KafkaMessagesRead,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
