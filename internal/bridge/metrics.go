package bridge

import (
	"time"

	"github.com/Iron-Ham/agentbridge/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes used as metric labels.
const (
	outcomeResponse = "response_ready"
	outcomeTimeout  = "timeout"
	outcomeError    = "error"
)

var allStatuses = []ledger.Status{
	ledger.StatusIdle,
	ledger.StatusReady,
	ledger.StatusSending,
	ledger.StatusResponseReady,
	ledger.StatusTimeout,
	ledger.StatusError,
	ledger.StatusStopped,
}

// Metrics exposes Prometheus collectors that report watchdog activity.
type Metrics struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	loopErrors       prometheus.Counter
	status           *prometheus.GaugeVec
}

// MustNewMetrics constructs Metrics registered with reg. A nil reg uses the
// default registerer. Registration errors panic, as with promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentbridge",
				Subsystem: "bridge",
				Name:      "dispatches_total",
				Help:      "Commands handed to the agent, by outcome.",
			},
			[]string{"agent", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "agentbridge",
				Subsystem: "bridge",
				Name:      "dispatch_duration_seconds",
				Help:      "Time spent waiting for the agent per command.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"agent", "outcome"},
		),
		loopErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "agentbridge",
				Subsystem: "bridge",
				Name:      "loop_errors_total",
				Help:      "Errors the watchdog loop recovered from.",
			},
		),
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "agentbridge",
				Subsystem: "bridge",
				Name:      "status",
				Help:      "1 for the status most recently published by the watchdog, 0 otherwise.",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.dispatches, m.dispatchDuration, m.loopErrors, m.status)
	return m
}

// ObserveDispatch records one finished dispatch.
func (m *Metrics) ObserveDispatch(agent, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(agent, outcome).Inc()
	m.dispatchDuration.WithLabelValues(agent, outcome).Observe(duration.Seconds())
}

// IncLoopError counts a recovered loop error.
func (m *Metrics) IncLoopError() {
	if m == nil {
		return
	}
	m.loopErrors.Inc()
}

// SetStatus marks status as the current one.
func (m *Metrics) SetStatus(status ledger.Status) {
	if m == nil {
		return
	}
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.status.WithLabelValues(string(s)).Set(v)
	}
}
