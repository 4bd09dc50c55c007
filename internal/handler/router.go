package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/infra/observability"
	"github.com/boddenberg/finml/internal/infra/resilience"
	"github.com/boddenberg/finml/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// defaultMaxBodyBytes caps request bodies when Options leaves it unset.
const defaultMaxBodyBytes = 4 << 20

// Options carries the request limits and optional collaborators of the router.
// Zero limits mean unlimited.
type Options struct {
	MaxHistoryRecords  int
	MaxMonthsAhead     int
	MaxBatchSize       int
	MaxRetrainExamples int
	MaxBodyBytes       int64
	MaxConcurrency     int

	CORSAllowedOrigins []string

	// StoreCount, when set, is queried by /healthz for the number of
	// persisted training examples.
	StoreCount func(ctx context.Context) (int, error)
}

// NewRouter creates the HTTP router with all routes and middleware.
// A nil auth leaves /retrain unauthenticated.
func NewRouter(
	categorizer *service.Categorizer,
	forecaster *service.Forecaster,
	auth *service.RetrainAuth,
	keywords domain.KeywordTable,
	opts Options,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	bulkhead := resilience.NewBulkhead(opts.MaxConcurrency)

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TraceRequests)
	r.Use(observability.RequestLogger(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(categorizer, opts.StoreCount))
	r.Get("/readyz", readyzHandler(categorizer))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Model API ---
	r.Get("/health", healthHandler(categorizer))
	r.Post("/categorize", categorizeHandler(categorizer, opts, logger))
	r.Post("/categorize/batch", categorizeBatchHandler(categorizer, opts, logger))
	r.Post("/forecast", forecastHandler(forecaster, bulkhead, opts, logger))
	r.With(RetrainAuthMiddleware(auth, logger)).
		Post("/retrain", retrainHandler(categorizer, opts, logger))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/categories", categoriesHandler(keywords))
		r.Get("/metrics/model", modelMetricsHandler(metrics))
	})

	return r
}
