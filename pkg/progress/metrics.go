package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amosWeiskopf/corpusmith/internal/models"
)

const metricsNamespace = "corpusmith"

// MetricsSink turns events into Prometheus metrics.
type MetricsSink struct {
	Documents   *prometheus.CounterVec
	Links       prometheus.Counter
	FetchErrors prometheus.Counter
	Seeds       prometheus.Counter
	JobsRunning prometheus.Gauge
	JobsDone    prometheus.Counter
}

// NewMetricsSink registers the harvest metrics with reg. A nil reg uses
// the default registerer.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &MetricsSink{
		Documents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "documents_total",
			Help:      "Harvested documents by policy decision and language",
		}, []string{"decision", "language"}),
		Links: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "links_enqueued_total",
			Help:      "Links added to job frontiers",
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_errors_total",
			Help:      "Pages skipped because fetching failed",
		}),
		Seeds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "seeds_discovered_total",
			Help:      "Seeds found by seed discovery",
		}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_running",
			Help:      "Crawl jobs currently running",
		}),
		JobsDone: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_finished_total",
			Help:      "Crawl jobs finished",
		}),
	}
}

// Report implements Sink.
func (m *MetricsSink) Report(e models.Event) {
	switch e.Kind {
	case models.EventSeedsFound:
		m.Seeds.Add(float64(e.SeedsFound))
	case models.EventJobStarted:
		m.JobsRunning.Inc()
	case models.EventDocument:
		m.Documents.WithLabelValues(e.Decision, e.LastLanguage).Inc()
	case models.EventLinks:
		m.Links.Add(float64(e.URLsEnqueued))
	case models.EventFetchError:
		m.FetchErrors.Inc()
	case models.EventJobDone:
		m.JobsRunning.Dec()
		m.JobsDone.Inc()
	}
}
