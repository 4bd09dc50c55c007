package handler

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/infra/resilience"
	"github.com/boddenberg/finml/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// forecastHandler answers POST /forecast. Insufficient or malformed history is
// not an HTTP error: the forecaster reports it in the recommendations.
func forecastHandler(svc *service.Forecaster, bulkhead *resilience.Bulkhead, opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /forecast")
		defer span.End()

		var req domain.ForecastRequest
		if err := decodeBody(w, r, opts.MaxBodyBytes, &req); err != nil {
			writeBodyError(w, err, logger)
			return
		}
		if err := checkLimit("historical_data", len(req.HistoricalData), opts.MaxHistoryRecords); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		monthsAhead := domain.DefaultMonthsAhead
		if req.MonthsAhead != nil {
			monthsAhead = *req.MonthsAhead
			if monthsAhead < 1 || (opts.MaxMonthsAhead > 0 && monthsAhead > opts.MaxMonthsAhead) {
				msg := "must be at least 1"
				if opts.MaxMonthsAhead > 0 {
					msg = fmt.Sprintf("must be between 1 and %d", opts.MaxMonthsAhead)
				}
				handleServiceError(w, &domain.ErrValidation{Field: "months_ahead", Message: msg}, logger)
				return
			}
		}
		span.SetAttributes(
			attribute.Int("history.records", len(req.HistoricalData)),
			attribute.Int("months_ahead", monthsAhead),
		)

		var result domain.ForecastResult
		err := bulkhead.Do(ctx, func() error {
			result = svc.PredictSpending(ctx, req.HistoricalData, monthsAhead)
			return nil
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
