package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/finml/internal/config"
	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/engine/bayes"
	"github.com/boddenberg/finml/internal/engine/corpus"
	"github.com/boddenberg/finml/internal/engine/textnorm"
	"github.com/boddenberg/finml/internal/handler"
	"github.com/boddenberg/finml/internal/infra/cache"
	"github.com/boddenberg/finml/internal/infra/observability"
	"github.com/boddenberg/finml/internal/infra/sqlstore"
	"github.com/boddenberg/finml/internal/port"
	"github.com/boddenberg/finml/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("max_features", cfg.MaxFeatures),
		zap.Float64("smoothing_alpha", cfg.SmoothingAlpha),
		zap.String("corpus_db", cfg.CorpusDBPath),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("retrain_auth", cfg.RetrainJWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finml")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Keyword table ---
	keywords, err := config.LoadKeywordTable(cfg.CategoryKeywordsPath)
	if err != nil {
		logger.Fatal("failed to load keyword table", zap.Error(err))
	}

	// --- Corpus store ---
	var corpusStore port.CorpusStore
	var storeCount func(context.Context) (int, error)
	if cfg.CorpusDBPath != "" {
		store, err := sqlstore.Open(cfg.CorpusDBPath, logger)
		if err != nil {
			logger.Fatal("failed to open corpus store", zap.Error(err))
		}
		defer store.Close()
		corpusStore = store
		storeCount = store.Count
	} else {
		logger.Warn("corpus store disabled, retrained examples will not survive a restart")
	}

	// --- Cache ---
	resultCache := cache.NewBounded[domain.ClassificationResult](cfg.CacheTTL, cfg.CacheMaxEntries)
	defer resultCache.Close()

	// --- Services ---
	categorizer := service.NewCategorizer(
		textnorm.NewDefault(logger),
		bayes.Factory(bayes.Options{MaxFeatures: cfg.MaxFeatures, Alpha: cfg.SmoothingAlpha}),
		corpusStore,
		resultCache,
		metrics,
		logger,
	)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), time.Minute)
	if err := categorizer.Bootstrap(bootCtx, corpus.Build(keywords)); err != nil {
		if categorizer.IsTrained() {
			logger.Warn("model trained without persisted examples", zap.Error(err))
		} else {
			// The service stays up and answers OTHER until a retrain succeeds.
			logger.Error("initial training failed", zap.Error(err))
		}
	}
	cancelBoot()

	forecaster := service.NewForecaster(metrics, logger)
	auth := service.NewRetrainAuth(cfg.RetrainJWTSecret)

	// --- Router ---
	router := handler.NewRouter(categorizer, forecaster, auth, keywords, handler.Options{
		MaxHistoryRecords:  cfg.MaxHistoryRecords,
		MaxMonthsAhead:     cfg.MaxMonthsAhead,
		MaxBatchSize:       cfg.MaxBatchSize,
		MaxRetrainExamples: cfg.MaxRetrainExamples,
		MaxConcurrency:     cfg.MaxConcurrency,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StoreCount:         storeCount,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
