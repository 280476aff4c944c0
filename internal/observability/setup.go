package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Classification verdicts by content kind, tier and outcome",
		},
		[]string{"kind", "tier", "outcome"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_escalations_total",
			Help: "Escalation actions taken",
		},
		[]string{"action"},
	)

	sweepDeletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_sweep_deletions_total",
			Help: "Messages deleted by retention sweeps",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retention_sweep_duration_seconds",
			Help:    "Time spent running a retention sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init(ctx context.Context, metricsAddr string) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(verdictsTotal)
	prometheus.MustRegister(escalationsTotal)
	prometheus.MustRegister(sweepDeletionsTotal)
	prometheus.MustRegister(sweepDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordVerdict counts one classification outcome.
func RecordVerdict(kind, tier string, safe bool) {
	outcome := "unsafe"
	if safe {
		outcome = "safe"
	}
	verdictsTotal.WithLabelValues(kind, tier, outcome).Inc()
}

// RecordEscalation counts a warn or ban.
func RecordEscalation(action string) {
	escalationsTotal.WithLabelValues(action).Inc()
}

// RecordSweep records one finished retention sweep.
func RecordSweep(deleted int, seconds float64) {
	sweepDeletionsTotal.Add(float64(deleted))
	sweepDuration.Observe(seconds)
}
