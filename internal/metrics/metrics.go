// Package metrics exposes analysis counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loop_vision"

// OutcomeSuccess labels analyses that produced a record. Failures are
// labelled with their vision.Kind.
const OutcomeSuccess = "success"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal   *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	TokensTotal     *prometheus.CounterVec
	CostUSDTotal    prometheus.Counter
	ItemsRecorded   prometheus.Counter
}

// New creates a registry with the analysis collectors plus the standard Go
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Image analyses by outcome.",
		}, []string{"outcome"}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing one image, including the model call.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Model tokens consumed by direction.",
		}, []string{"direction"}),
		CostUSDTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Estimated model cost in US dollars.",
		}),
		ItemsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_recorded_total",
			Help:      "Items written to the ledger.",
		}),
	}

	m.registry.MustRegister(
		m.AnalysesTotal,
		m.AnalysisSeconds,
		m.TokensTotal,
		m.CostUSDTotal,
		m.ItemsRecorded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAnalysis records one analysis call. result is nil when err is set.
func (m *Metrics) ObserveAnalysis(elapsed time.Duration, result *vision.AIAnalysis, err error) {
	m.AnalysisSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.AnalysesTotal.WithLabelValues(vision.KindOf(err).String()).Inc()
		return
	}
	m.AnalysesTotal.WithLabelValues(OutcomeSuccess).Inc()
	if result != nil && result.RawResponse != nil {
		usage := result.RawResponse.Usage
		m.TokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
		m.TokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))
		m.CostUSDTotal.Add(usage.CostUSD)
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
