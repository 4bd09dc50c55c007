package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/finml/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := observability.NewMetrics()

	r := chi.NewRouter()
	r.Use(observability.TraceRequests)
	r.Use(observability.RequestLogger(zap.New(core), metrics))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("expected error level for 500, got %s", entries[0].Level)
	}
	if got := entries[0].ContextMap()["route"]; got != "/items/{id}" {
		t.Errorf("expected route pattern, got %v", got)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Errorf("expected debug level for 200, got %s", entries[1].Level)
	}
	if got := entries[1].ContextMap()["bytes"]; got != int64(2) {
		t.Errorf("expected 2 bytes, got %v", got)
	}

	families, err := metrics.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	operations := map[string]bool{}
	for _, mf := range families {
		if mf.GetName() != "finml_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				operations[l.GetValue()] = true
			}
		}
	}
	for _, op := range []string{"http GET /items/{id}", "http GET /ok"} {
		if !operations[op] {
			t.Errorf("expected duration for %q, got %v", op, operations)
		}
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger := observability.NewLogger(tt.level)
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("%q: expected %s enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("%q: expected %s disabled", tt.level, tt.want-1)
		}
	}
}
