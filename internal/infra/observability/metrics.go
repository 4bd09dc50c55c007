package observability

import (
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Fallback reasons recorded by IncrFallback.
const (
	FallbackUntrained = "untrained"
	FallbackEmpty     = "empty_input"
	FallbackBackend   = "backend_error"
)

// Forecast outcomes recorded by IncrForecast.
const (
	ForecastOK           = "ok"
	ForecastInsufficient = "insufficient_data"
	ForecastDegraded     = "degraded"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	categorizations  *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	retrains         *prometheus.CounterVec
	forecasts        *prometheus.CounterVec
	trainingExamples prometheus.Gauge
	modelTrained     prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finml_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_external_errors_total",
				Help: "Total errors from external dependencies.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		categorizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_categorizations_total",
				Help: "Categorizations served, by resulting category.",
			},
			[]string{"category"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_categorization_fallbacks_total",
				Help: "Categorizations that degraded to OTHER, by reason.",
			},
			[]string{"reason"},
		),
		retrains: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_retrains_total",
				Help: "Retrain attempts by status.",
			},
			[]string{"status"},
		),
		forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finml_forecasts_total",
				Help: "Forecasts served, by outcome.",
			},
			[]string{"outcome"},
		),
		trainingExamples: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "finml_training_examples",
				Help: "Examples in the corpus of the serving model.",
			},
		),
		modelTrained: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "finml_model_trained",
				Help: "1 when a fitted model is serving.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCategorization counts a served categorization.
func (m *Metrics) IncrCategorization(category domain.Category) {
	m.categorizations.WithLabelValues(string(category)).Inc()
}

// IncrFallback counts a categorization that degraded to OTHER.
func (m *Metrics) IncrFallback(reason string) {
	m.fallbacks.WithLabelValues(reason).Inc()
}

// IncrRetrain counts a retrain attempt; status is "success" or "error".
func (m *Metrics) IncrRetrain(status string) {
	m.retrains.WithLabelValues(status).Inc()
}

// IncrForecast counts a forecast by outcome.
func (m *Metrics) IncrForecast(outcome string) {
	m.forecasts.WithLabelValues(outcome).Inc()
}

// SetModel publishes the state of the serving model.
func (m *Metrics) SetModel(trained bool, examples int) {
	if trained {
		m.modelTrained.Set(1)
	} else {
		m.modelTrained.Set(0)
	}
	m.trainingExamples.Set(float64(examples))
}

// GetModelSnapshot returns a snapshot of model-related metrics suitable for
// the GET /v1/metrics/model endpoint.
func (m *Metrics) GetModelSnapshot() *domain.ModelMetrics {
	// Prometheus counters expose cumulative values.
	categorizations := sumCounterVec(m.categorizations)
	fallbacks := sumCounterVec(m.fallbacks)
	cacheHits := getCounterValue(m.cacheHits, "categorize")
	cacheMisses := getCounterValue(m.cacheMisses, "categorize")
	retrainOK := getCounterValue(m.retrains, "success")
	retrainErr := getCounterValue(m.retrains, "error")
	forecasts := sumCounterVec(m.forecasts)
	degraded := getCounterValue(m.forecasts, ForecastDegraded)

	snap := &domain.ModelMetrics{
		Categorizations: int64(categorizations),
		Retrains:        int64(retrainOK + retrainErr),
		RetrainFailures: int64(retrainErr),
		Forecasts:       int64(forecasts),
		Period:          "all_time",
	}
	if categorizations > 0 {
		snap.FallbackRate = fallbacks / categorizations
	}
	if cacheHits+cacheMisses > 0 {
		snap.CacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}
	if forecasts > 0 {
		snap.DegradedRate = degraded / forecasts
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every label combination of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
