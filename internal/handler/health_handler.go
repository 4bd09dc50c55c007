package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/infra/observability"
	"github.com/boddenberg/finml/internal/service"
)

// ============================================================
// Health & Metrics
// ============================================================

// healthHandler answers GET /health with the legacy two-field shape.
func healthHandler(svc *service.Categorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthCheck{
			Status:       "healthy",
			ModelTrained: svc.IsTrained(),
		})
	}
}

func healthzHandler(svc *service.Categorizer, storeCount func(context.Context) (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)
		model := svc.Health()

		modelStatus := "healthy"
		if !model.Trained {
			modelStatus = "degraded"
		}
		services := []domain.ServiceHealth{
			{Name: "finml-api", Status: "healthy", LastChecked: now},
			{Name: "classifier", Status: modelStatus, LastChecked: now},
		}

		var persisted *int
		if storeCount != nil {
			start := time.Now()
			n, err := storeCount(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
			} else {
				persisted = &n
			}
			services = append(services, domain.ServiceHealth{
				Name: "corpus-store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
			Model:    model,

			PersistedExamples: persisted,
		})
	}
}

// readyzHandler reports ready only once a fitted model is serving.
func readyzHandler(svc *service.Categorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.IsTrained() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "model not trained"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func modelMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetModelSnapshot())
	}
}

// categoriesHandler lists every category with its seed keywords in enumeration order.
func categoriesHandler(keywords domain.KeywordTable) http.HandlerFunc {
	rows := make([]domain.CategoryKeywords, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		kw := keywords.Keywords(c)
		if kw == nil {
			kw = []string{}
		}
		rows = append(rows, domain.CategoryKeywords{Category: c, Keywords: kw})
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rows)
	}
}
