package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.BookEvents.Inc()
	prom.Metrics.UpdatesSkipped.Inc()
	prom.Metrics.SamplesRecorded.Inc()
	prom.Metrics.ProhibitionsStarted.Inc()
	prom.Metrics.ProhibitionsEnded.Inc()
	prom.Metrics.RecordsDropped.Inc()

	assertCounter(t, prom.bookEvents, 1)
	assertCounter(t, prom.updatesSkipped, 1)
	assertCounter(t, prom.samplesRecorded, 1)
	assertCounter(t, prom.prohibitionsStarted, 1)
	assertCounter(t, prom.prohibitionsEnded, 1)
	assertCounter(t, prom.recordsDropped, 1)
}

func assertCounter(t *testing.T, counter prometheus.Counter, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(counter); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
