package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/finml/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody decodes a JSON body capped at limit bytes. Trailing data after
// the first JSON value is rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.ErrValidation{Field: "body", Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// writeBodyError reports a request body that could not be decoded.
func writeBodyError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	if errors.As(err, &validation) {
		handleServiceError(w, err, logger)
		return
	}
	logger.Debug("invalid request body", zap.Error(err))
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// checkLimit returns a validation error when n exceeds a positive max.
func checkLimit(field string, n, max int) error {
	if max > 0 && n > max {
		return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("at most %d items allowed, got %d", max, n)}
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var unavailable *domain.ErrModelUnavailable
	var storage *domain.ErrStorage

	switch {
	case errors.Is(err, domain.ErrNoTrainingData):
		logger.Debug("retrain without data")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unavailable):
		logger.Warn("model could not be fitted", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &storage):
		logger.Error("corpus store failure", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "training data could not be persisted")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Warn("request cancelled", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "request cancelled or timed out")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
