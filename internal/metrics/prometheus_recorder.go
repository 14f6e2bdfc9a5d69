package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	roundsProcessed  *prom.CounterVec
	roundDuration    prom.Histogram
	currentRound     prom.Gauge
	invalidDownloads prom.Counter
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the daemon metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		roundsProcessed: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tournauto",
			Name:      "rounds_processed_total",
			Help:      "Rounds processed by final outcome",
		}, []string{"outcome"}),
		roundDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "tournauto",
			Name:      "round_duration_seconds",
			Help:      "Duration of a full round processing pass",
			Buckets:   prom.ExponentialBuckets(1, 4, 10),
		}),
		currentRound: prom.NewGauge(prom.GaugeOpts{
			Namespace: "tournauto",
			Name:      "current_round",
			Help:      "Most recently observed round number",
		}),
		invalidDownloads: prom.NewCounter(prom.CounterOpts{
			Namespace: "tournauto",
			Name:      "invalid_downloads_total",
			Help:      "Dataset downloads discarded because no change was detected",
		}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tournauto",
			Name:      "api_retries_total",
			Help:      "Transient API failures that triggered a retry",
		}, []string{"operation"}),
		retriesExhausted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tournauto",
			Name:      "api_retry_exhausted_total",
			Help:      "API operations that exhausted the retry schedule",
		}, []string{"operation"}),
	}
	reg.MustRegister(pr.roundsProcessed, pr.roundDuration, pr.currentRound,
		pr.invalidDownloads, pr.retries, pr.retriesExhausted)
	return pr
}

func (p *PrometheusRecorder) IncRoundsProcessed(outcome RoundOutcome) {
	if p == nil {
		return
	}
	p.roundsProcessed.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveRoundDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.roundDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetCurrentRound(round int) {
	if p == nil {
		return
	}
	p.currentRound.Set(float64(round))
}

func (p *PrometheusRecorder) IncInvalidDownload() {
	if p == nil {
		return
	}
	p.invalidDownloads.Inc()
}

func (p *PrometheusRecorder) IncAPIRetry(operation string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) IncAPIRetryExhausted(operation string) {
	if p == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(operation).Inc()
}
