package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics описывает счётчики модерации. Методы безопасны для nil-получателя,
// поэтому сервисы в тестах работают без регистрации метрик.
type Metrics struct {
	Submissions   *prometheus.CounterVec
	Decisions     *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	QuotaRejected prometheus.Counter
	OpLatency     *prometheus.HistogramVec
}

// New регистрирует метрики в reg. При reg == nil метрики создаются без регистрации.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharatalert_submissions_total",
			Help: "Accepted submissions by entity",
		}, []string{"entity"}), // entity: "report", "sighting"

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharatalert_moderation_decisions_total",
			Help: "Moderation decisions by entity and decision",
		}, []string{"entity", "decision"}),

		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharatalert_operation_failures_total",
			Help: "Failed core operations by operation and error code",
		}, []string{"operation", "code"}),

		QuotaRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "bharatalert_sighting_quota_rejections_total",
			Help: "Sighting submissions or approvals refused because the quota was reached",
		}),

		OpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bharatalert_operation_duration_seconds",
			Help:    "Duration of core operations including store access",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncSubmission(entity string) {
	if m != nil {
		m.Submissions.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) IncDecision(entity, decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(entity, decision).Inc()
	}
}

func (m *Metrics) IncFailure(operation, code string) {
	if m != nil {
		m.Failures.WithLabelValues(operation, code).Inc()
	}
}

func (m *Metrics) IncQuotaRejected() {
	if m != nil {
		m.QuotaRejected.Inc()
	}
}

// ObserveOperation записывает длительность операции, начатой в start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OpLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
