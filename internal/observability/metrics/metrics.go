package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "cyclewatch_"

	resultSuccess = "success"
	resultError   = "error"

	tickOK      = "ok"
	tickNoData  = "no_data"
	tickSkipped = "skipped"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	tickTotal   *prometheus.CounterVec
	tickLatency *prometheus.HistogramVec

	phaseTransitions *prometheus.CounterVec

	alertEventsTotal *prometheus.CounterVec

	notifyTotal *prometheus.CounterVec

	exportTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges. cyclesTable
// names the cycle summary table; empty selects the default.
func Init(db *sql.DB, logger *log.Logger, cyclesTable string) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total sample ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total sample ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Sample ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		tickTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ticks_total",
				Help: "Total monitor ticks by result",
			},
			[]string{"result"},
		)
		tickLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tick_latency_seconds",
				Help:    "Monitor tick latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		phaseTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "phase_transitions_total",
				Help: "Total committed phase transitions by new phase",
			},
			[]string{"phase"},
		)

		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by kind and state",
			},
			[]string{"kind", "state"},
		)

		notifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total notification deliveries by result",
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total cycle exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			tickTotal,
			tickLatency,
			phaseTransitions,
			alertEventsTotal,
			notifyTotal,
			exportTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger, cyclesTable)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveTick records tick duration and result.
func ObserveTick(result string, duration time.Duration) {
	if result == "" {
		result = tickOK
	}
	if tickTotal != nil {
		tickTotal.WithLabelValues(result).Inc()
	}
	if tickLatency != nil {
		tickLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncPhaseTransition counts a committed phase transition.
func IncPhaseTransition(phase string) {
	if phase == "" {
		phase = "unknown"
	}
	if phaseTransitions != nil {
		phaseTransitions.WithLabelValues(phase).Inc()
	}
}

// IncAlertEvent counts an alert lifecycle event.
func IncAlertEvent(kind, state string) {
	if kind == "" {
		kind = "unknown"
	}
	if state == "" {
		state = "unknown"
	}
	if alertEventsTotal != nil {
		alertEventsTotal.WithLabelValues(kind, state).Inc()
	}
}

// IncNotification counts a notification delivery attempt.
func IncNotification(result string) {
	if result == "" {
		result = resultSuccess
	}
	if notifyTotal != nil {
		notifyTotal.WithLabelValues(result).Inc()
	}
}

// IncExport counts a cycle export.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	IngestResultSuccess = resultSuccess
	IngestResultError   = resultError

	TickOK      = tickOK
	TickNoData  = tickNoData
	TickSkipped = tickSkipped
)
