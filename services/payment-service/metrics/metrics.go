package metrics

import (
	"context"
	"time"

	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_outcomes_total",
			Help: "Reconciled checkout sessions by purchase kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ReconcileFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_failures_total",
			Help: "Reconciliations that failed and asked the provider to retry",
		},
		[]string{"kind"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_reconcile_duration_seconds",
			Help:    "Time spent in the core unit of work",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	NotifierFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notifier_failures_total",
			Help: "Best-effort side effects that failed after commit",
		},
		[]string{"step"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(WebhookOutcomes, ReconcileFailures, ReconcileDuration, NotifierFailures)
}

// Recorder feeds the Prometheus collectors and mirrors business counters to
// CloudWatch when that client is enabled. A nil Recorder records nothing.
type Recorder struct {
	cloudwatch *awspkg.MetricsClient
}

func NewRecorder(cw *awspkg.MetricsClient) *Recorder {
	return &Recorder{cloudwatch: cw}
}

func (r *Recorder) Outcome(kind, outcome string) {
	if r == nil {
		return
	}
	WebhookOutcomes.WithLabelValues(kind, outcome).Inc()

	var name string
	switch {
	case outcome == "processed" && kind == "training_booking":
		name = awspkg.MetricBookingsCreated
	case outcome == "processed":
		name = awspkg.MetricOrdersCreated
	case outcome == "already_processed":
		name = awspkg.MetricDuplicateDeliveries
	case outcome == "held_for_review":
		name = awspkg.MetricHeldForReview
	default:
		return
	}
	r.cloudwatchCount(name, kind)
}

func (r *Recorder) Failure(kind string) {
	if r == nil {
		return
	}
	ReconcileFailures.WithLabelValues(kind).Inc()
	r.cloudwatchCount(awspkg.MetricReconcileFailed, kind)
}

func (r *Recorder) Duration(kind string, d time.Duration) {
	if r == nil {
		return
	}
	ReconcileDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (r *Recorder) NotifierFailure(step string) {
	if r == nil {
		return
	}
	NotifierFailures.WithLabelValues(step).Inc()
}

func (r *Recorder) cloudwatchCount(name, kind string) {
	if !r.cloudwatch.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.cloudwatch.RecordCount(ctx, name, map[string]string{"Kind": kind})
	}()
}
