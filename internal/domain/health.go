package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthCheck is returned by GET /health.
type HealthCheck struct {
	Status       string `json:"status"`
	ModelTrained bool   `json:"model_trained"`
}

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
	Model    ModelHealth     `json:"model"`

	// PersistedExamples is the corpus store size; nil without a store or when
	// the store could not be read.
	PersistedExamples *int `json:"persisted_examples,omitempty"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ModelMetrics is returned by GET /v1/metrics/model.
type ModelMetrics struct {
	Categorizations int64   `json:"categorizations"`
	FallbackRate    float64 `json:"fallbackRate"`
	CacheHitRate    float64 `json:"cacheHitRate"`
	Retrains        int64   `json:"retrains"`
	RetrainFailures int64   `json:"retrainFailures"`
	Forecasts       int64   `json:"forecasts"`
	DegradedRate    float64 `json:"degradedForecastRate"`
	Period          string  `json:"period"`
}

// SuccessResponse wraps a successful operation without a payload.
type SuccessResponse struct {
	Message string `json:"message"`
}
