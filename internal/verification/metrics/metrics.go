package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the verification workflow.
type Metrics struct {
	Initialized       prometheus.Counter
	CodesSent         *prometheus.CounterVec
	CodeFailures      *prometheus.CounterVec
	StepsCompleted    *prometheus.CounterVec
	Submissions       prometheus.Counter
	Decisions         *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
	UpstreamFailures  *prometheus.CounterVec
	WriteConflicts    prometheus.Counter
	OperationDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Initialized: f.NewCounter(prometheus.CounterOpts{
			Name: "jojo_verification_initialized_total",
			Help: "Verification records created",
		}),
		CodesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jojo_verification_codes_sent_total",
			Help: "One-time codes delivered, by channel",
		}, []string{"channel"}),
		CodeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jojo_verification_code_failures_total",
			Help: "Rejected code checks and sends, by channel and reason",
		}, []string{"channel", "reason"}),
		StepsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jojo_verification_steps_completed_total",
			Help: "Steps moved to verified, by step",
		}, []string{"step"}),
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "jojo_verification_submissions_total",
			Help: "Records submitted for admin review",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jojo_verification_decisions_total",
			Help: "Admin decisions, by decision",
		}, []string{"decision"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jojo_verification_notifications_total",
			Help: "Decision emails, by result",
		}, []string{"result"}),
		UpstreamFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jojo_verification_upstream_failures_total",
			Help: "Failed calls to email, SMS and storage providers",
		}, []string{"provider"}),
		WriteConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "jojo_verification_write_conflicts_total",
			Help: "Optimistic concurrency conflicts retried by the service",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jojo_verification_operation_duration_seconds",
			Help:    "Service operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementInitialized() {
	if m == nil {
		return
	}
	m.Initialized.Inc()
}

func (m *Metrics) IncrementCodesSent(channel string) {
	if m == nil {
		return
	}
	m.CodesSent.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncrementCodeFailure(channel, reason string) {
	if m == nil {
		return
	}
	m.CodeFailures.WithLabelValues(channel, reason).Inc()
}

func (m *Metrics) IncrementStepCompleted(step string) {
	if m == nil {
		return
	}
	m.StepsCompleted.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementSubmissions() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}

func (m *Metrics) IncrementDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementUpstreamFailure(provider string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) IncrementWriteConflict() {
	if m == nil {
		return
	}
	m.WriteConflicts.Inc()
}

func (m *Metrics) ObserveOperation(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}
