// Package metrics exposes Prometheus collectors for the tracking engine,
// the storage write path and the retention job. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SessionsOpened   *prometheus.CounterVec
	SessionsClosed   *prometheus.CounterVec
	TrackedSeconds   *prometheus.CounterVec
	RecordFailures   prometheus.Counter
	SwitchesDropped  prometheus.Counter
	TransitionErrors *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	RetentionDays    prometheus.Counter
	RetentionErrors  prometheus.Counter
	RetentionLast    prometheus.Gauge
}

// New creates the collectors and registers them with reg. Passing nil
// registers against prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		SessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwell_sessions_opened_total",
			Help: "Viewing sessions opened, partitioned by event source",
		}, []string{"source"}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwell_sessions_closed_total",
			Help: "Viewing sessions closed, partitioned by event source",
		}, []string{"source"}),
		TrackedSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwell_tracked_seconds_total",
			Help: "Active viewing time handed to storage, partitioned by event source",
		}, []string{"source"}),
		RecordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwell_record_failures_total",
			Help: "Closed sessions whose storage write failed",
		}),
		SwitchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwell_switches_debounced_total",
			Help: "Switch events replaced or cancelled before their debounce window elapsed",
		}),
		TransitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwell_transition_errors_total",
			Help: "Transitions skipped because of an error, partitioned by kind",
		}, []string{"kind"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dwell_transition_queue_depth",
			Help: "Transitions waiting for the serial worker",
		}),
		RetentionDays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwell_retention_days_aggregated_total",
			Help: "Raw history days folded into hourly rollups",
		}),
		RetentionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwell_retention_failures_total",
			Help: "Retention runs aborted by an error",
		}),
		RetentionLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dwell_retention_last_run_timestamp_seconds",
			Help: "Unix time of the last completed retention run",
		}),
	}

	reg.MustRegister(
		m.SessionsOpened, m.SessionsClosed, m.TrackedSeconds, m.RecordFailures,
		m.SwitchesDropped, m.TransitionErrors, m.QueueDepth,
		m.RetentionDays, m.RetentionErrors, m.RetentionLast,
	)
	return m
}

func (m *Metrics) SessionOpened(source string) {
	if m == nil {
		return
	}
	m.SessionsOpened.WithLabelValues(source).Inc()
}

func (m *Metrics) SessionClosed(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsClosed.WithLabelValues(source).Inc()
	m.TrackedSeconds.WithLabelValues(source).Add(d.Seconds())
}

func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.RecordFailures.Inc()
}

func (m *Metrics) SwitchDropped() {
	if m == nil {
		return
	}
	m.SwitchesDropped.Inc()
}

func (m *Metrics) TransitionError(kind string) {
	if m == nil {
		return
	}
	m.TransitionErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) RetentionRun(days int, err error, at time.Time) {
	if m == nil {
		return
	}
	m.RetentionDays.Add(float64(days))
	if err != nil {
		m.RetentionErrors.Inc()
		return
	}
	m.RetentionLast.Set(float64(at.Unix()))
}
