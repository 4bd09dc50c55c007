package handler

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const retrainSuccessMessage = "Model retrained successfully"

// retrainHandler answers POST /retrain.
func retrainHandler(svc *service.Categorizer, opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /retrain")
		defer span.End()

		var req domain.RetrainRequest
		if err := decodeBody(w, r, opts.MaxBodyBytes, &req); err != nil {
			writeBodyError(w, err, logger)
			return
		}
		if len(req.TrainingData) == 0 {
			handleServiceError(w, domain.ErrNoTrainingData, logger)
			return
		}
		if err := checkLimit("training_data", len(req.TrainingData), opts.MaxRetrainExamples); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		examples := make([]domain.TrainingExample, len(req.TrainingData))
		for i, ex := range req.TrainingData {
			category, err := domain.ParseCategory(ex.Category)
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{
					Field:   fmt.Sprintf("training_data[%d].category", i),
					Message: fmt.Sprintf("unknown category %q", ex.Category),
				}, logger)
				return
			}
			examples[i] = domain.TrainingExample{Text: ex.Description, Category: category}
		}
		span.SetAttributes(attribute.Int("examples", len(examples)))

		if err := svc.Retrain(ctx, examples); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("retrain accepted",
			zap.Int("examples", len(examples)),
			zap.String("subject", SubjectFromContext(ctx)),
		)
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: retrainSuccessMessage})
	}
}
