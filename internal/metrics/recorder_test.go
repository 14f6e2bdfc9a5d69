package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.IncRoundsProcessed(OutcomeSuccess)
	rec.IncRoundsProcessed(OutcomeSuccess)
	rec.IncRoundsProcessed(OutcomeFailed)
	rec.SetCurrentRound(182)
	rec.IncInvalidDownload()
	rec.IncAPIRetry("download_dataset")
	rec.IncAPIRetryExhausted("download_dataset")
	rec.ObserveRoundDuration(90 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.roundsProcessed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.roundsProcessed.WithLabelValues("failed")))
	assert.Equal(t, 182.0, testutil.ToFloat64(rec.currentRound))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.invalidDownloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.retries.WithLabelValues("download_dataset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.retriesExhausted.WithLabelValues("download_dataset")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *PrometheusRecorder
	rec.IncRoundsProcessed(OutcomeSuccess)
	rec.ObserveRoundDuration(time.Second)
	rec.SetCurrentRound(1)
	rec.IncInvalidDownload()
	rec.IncAPIRetry("op")
	rec.IncAPIRetryExhausted("op")
}
