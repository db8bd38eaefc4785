package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics records how long sessions take to become observable and how
// sign-outs end.
type SessionMetrics struct {
	confirmDuration *prometheus.HistogramVec
	confirmAttempts *prometheus.HistogramVec
	confirmOutcome  *prometheus.CounterVec
	signOutOutcome  *prometheus.CounterVec
}

// NewSessionMetrics registers the session metrics on the provided registerer.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		return &SessionMetrics{}
	}
	confirmDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_confirm_duration_seconds",
		Help:    "Time until a new session was observed in the session store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	confirmAttempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_confirm_attempts",
		Help:    "Lookups needed to observe a new session.",
		Buckets: []float64{1, 2, 3, 4, 6, 8},
	}, []string{"flow"})
	confirmOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_confirm_total",
		Help: "Session confirmations by flow and outcome.",
	}, []string{"flow", "outcome"})
	signOutOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_signout_total",
		Help: "Sign-outs by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(confirmDuration, confirmAttempts, confirmOutcome, signOutOutcome)
	return &SessionMetrics{
		confirmDuration: confirmDuration,
		confirmAttempts: confirmAttempts,
		confirmOutcome:  confirmOutcome,
		signOutOutcome:  signOutOutcome,
	}
}

// ObserveConfirm records one confirmation run.
func (s *SessionMetrics) ObserveConfirm(flow string, attempts int, duration time.Duration, ok bool) {
	if s == nil || s.confirmDuration == nil {
		return
	}
	flow = normalizeLabel(flow)
	s.confirmDuration.WithLabelValues(flow).Observe(duration.Seconds())
	s.confirmAttempts.WithLabelValues(flow).Observe(float64(attempts))
	outcome := "confirmed"
	if !ok {
		outcome = "unconfirmed"
	}
	s.confirmOutcome.WithLabelValues(flow, outcome).Inc()
}

// IncSignOut counts a sign-out; outcome is clean, retried or residual.
func (s *SessionMetrics) IncSignOut(outcome string) {
	if s == nil || s.signOutOutcome == nil {
		return
	}
	s.signOutOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
