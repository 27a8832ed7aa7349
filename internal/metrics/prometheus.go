package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "mx_trend_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry            *prometheus.Registry
	bookEvents          prometheus.Counter
	updatesSkipped      prometheus.Counter
	samplesRecorded     prometheus.Counter
	prohibitionsStarted prometheus.Counter
	prohibitionsEnded   prometheus.Counter
	recordsDropped      prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	bookEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "book_events_total",
		Help:      "Total number of order book events routed through the coordinator.",
	})
	updatesSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "updates_skipped_total",
		Help:      "Total number of per-side updates skipped for missing snapshots or levels.",
	})
	samplesRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "samples_recorded_total",
		Help:      "Total number of delta-price samples pushed into sliding windows.",
	})
	prohibitionsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "prohibitions_started_total",
		Help:      "Total number of prohibition intervals started.",
	})
	prohibitionsEnded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "prohibitions_ended_total",
		Help:      "Total number of prohibition intervals ended.",
	})
	recordsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "history_records_dropped_total",
		Help:      "Total number of history records dropped on a full writer queue.",
	})

	registry.MustRegister(bookEvents, updatesSkipped, samplesRecorded, prohibitionsStarted, prohibitionsEnded, recordsDropped)

	m := &Metrics{
		BookEvents:          promCounter{bookEvents},
		UpdatesSkipped:      promCounter{updatesSkipped},
		SamplesRecorded:     promCounter{samplesRecorded},
		ProhibitionsStarted: promCounter{prohibitionsStarted},
		ProhibitionsEnded:   promCounter{prohibitionsEnded},
		RecordsDropped:      promCounter{recordsDropped},
	}

	return &Prometheus{
		Metrics:             m,
		registry:            registry,
		bookEvents:          bookEvents,
		updatesSkipped:      updatesSkipped,
		samplesRecorded:     samplesRecorded,
		prohibitionsStarted: prohibitionsStarted,
		prohibitionsEnded:   prohibitionsEnded,
		recordsDropped:      recordsDropped,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
