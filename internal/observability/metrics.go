// Package observability holds process-wide Prometheus collectors shared by
// the pipeline stages.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	samplesAddedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "challenge_sync",
		Subsystem: "ingest",
		Name:      "samples_added_total",
		Help:      "Number of raw health samples accepted and stored.",
	})
	samplesSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "challenge_sync",
		Subsystem: "ingest",
		Name:      "samples_skipped_total",
		Help:      "Number of raw health samples skipped as invalid or duplicate.",
	})
	reconcileDecisionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "challenge_sync",
		Subsystem: "reconcile",
		Name:      "decisions_total",
		Help:      "Reconciliation outcomes per daily activity merge.",
	}, []string{"decision"})
	totalsRecalculatedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "challenge_sync",
		Subsystem: "standings",
		Name:      "last_recalculated_timestamp_seconds",
		Help:      "Unix timestamp of the most recent participant totals recalculation.",
	})
)

func init() {
	prometheus.MustRegister(samplesAddedCounter, samplesSkippedCounter, reconcileDecisionCounter, totalsRecalculatedGauge)
}

// RecordSamplesIngested adds one batch's counters.
func RecordSamplesIngested(added, skipped int) {
	samplesAddedCounter.Add(float64(added))
	samplesSkippedCounter.Add(float64(skipped))
}

// RecordReconcileDecision counts one merge outcome.
func RecordReconcileDecision(decision string) {
	reconcileDecisionCounter.WithLabelValues(decision).Inc()
}

// RecordTotalsRecalculated updates the standings watermark gauge.
func RecordTotalsRecalculated(ts time.Time) {
	if ts.IsZero() {
		return
	}
	totalsRecalculatedGauge.Set(float64(ts.Unix()))
}
