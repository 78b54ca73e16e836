package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scholarway"

var (
	PermissionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_checks_total",
		Help:      "Number of feature permission checks by decision.",
	}, []string{"decision"})

	PermissionUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_updates_total",
		Help:      "Number of accepted permission table updates.",
	})

	ExamSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "exam_sessions_active",
		Help:      "Number of exam sessions that are not yet submitted or exited.",
	})

	ExamSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exam_submissions_total",
		Help:      "Number of submitted exam sessions by reason.",
	}, []string{"reason"})

	ExamTimeWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exam_time_warnings_total",
		Help:      "Number of raised time warnings.",
	})
)

// Decision label value for a permission check.
func Decision(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
