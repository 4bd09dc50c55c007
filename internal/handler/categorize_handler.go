package handler

import (
	"net/http"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// categorizeHandler answers POST /categorize. A missing or empty description
// is not an error; it classifies as OTHER with zero confidence.
func categorizeHandler(svc *service.Categorizer, opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /categorize")
		defer span.End()

		var req domain.CategorizeRequest
		if err := decodeBody(w, r, opts.MaxBodyBytes, &req); err != nil {
			writeBodyError(w, err, logger)
			return
		}

		result := svc.Categorize(ctx, req.Description)
		span.SetAttributes(attribute.String("category", string(result.Category)))
		writeJSON(w, http.StatusOK, result)
	}
}

// categorizeBatchHandler answers POST /categorize/batch; results keep request order.
func categorizeBatchHandler(svc *service.Categorizer, opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /categorize/batch")
		defer span.End()

		var req domain.BatchCategorizeRequest
		if err := decodeBody(w, r, opts.MaxBodyBytes, &req); err != nil {
			writeBodyError(w, err, logger)
			return
		}
		if err := checkLimit("descriptions", len(req.Descriptions), opts.MaxBatchSize); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("batch.size", len(req.Descriptions)))

		writeJSON(w, http.StatusOK, domain.BatchCategorizeResponse{
			Results: svc.CategorizeBatch(ctx, req.Descriptions),
		})
	}
}
