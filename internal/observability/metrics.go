package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "forecast_history"

// Page kinds and skip reasons used as label values.
const (
	PageListing = "listing"
	PageDetail  = "detail"

	SkipNoLink       = "no_link"
	SkipNotFound     = "not_found"
	SkipMissingField = "missing_field"
	SkipNoMatch      = "no_match"
)

// Metrics holds the Prometheus collectors for the scrape pipeline and web shell.
type Metrics struct {
	PagesFetched     *prometheus.CounterVec // labels: page={listing,detail}
	DatesSkipped     *prometheus.CounterVec // labels: reason
	RecordsExtracted prometheus.Counter
	PipelineRuns     *prometheus.CounterVec // labels: outcome={success,empty,error}
	PipelineDuration prometheus.Histogram
	ChartRenders     *prometheus.CounterVec // labels: kind, outcome={success,error}

	HTTPRequests        *prometheus.CounterVec   // labels: method, route, status
	HTTPRequestDuration *prometheus.HistogramVec // labels: method, route
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Forecast pages fetched, by page kind.",
		}, []string{"page"}),
		DatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_dates_skipped_total",
			Help:      "Candidate issue dates that produced no record, by reason.",
		}, []string{"reason"}),
		RecordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Forecast records extracted from detail pages.",
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete fetch-extract-build run.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Chart renders by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the web shell.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PagesFetched,
		m.DatesSkipped,
		m.RecordsExtracted,
		m.PipelineRuns,
		m.PipelineDuration,
		m.ChartRenders,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	}
}
