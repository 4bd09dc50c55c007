package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/engine/bayes"
	"github.com/boddenberg/finml/internal/infra/observability"
	"github.com/boddenberg/finml/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/finml")

// batchParallelism bounds the goroutines used by CategorizeBatch.
const batchParallelism = 8

// modelSnapshot is an immutable fitted model together with the corpus it was
// fitted on. It is replaced wholesale, never mutated.
type modelSnapshot struct {
	examples  []domain.TrainingExample
	backend   port.TextClassificationBackend
	version   string
	trainedAt time.Time
}

// Categorizer classifies expense descriptions. Readers load the current
// snapshot without locking; writers are serialised by mu and publish a new
// snapshot only after it is fully fitted.
type Categorizer struct {
	normalizer port.Normalizer
	newBackend port.BackendFactory
	store      port.CorpusStore
	cache      port.Cache[domain.ClassificationResult]
	metrics    *observability.Metrics
	logger     *zap.Logger

	mu      sync.Mutex
	seed    []domain.TrainingExample // guarded by mu
	current atomic.Pointer[modelSnapshot]
}

// NewCategorizer creates an untrained categorizer with all dependencies injected.
// store may be nil, in which case retrain examples live only in memory.
func NewCategorizer(
	normalizer port.Normalizer,
	newBackend port.BackendFactory,
	store port.CorpusStore,
	cache port.Cache[domain.ClassificationResult],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Categorizer {
	return &Categorizer{
		normalizer: normalizer,
		newBackend: newBackend,
		store:      store,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Bootstrap trains on the seed corpus followed by every example held in the
// corpus store. The seed is also remembered as the base corpus for a retrain
// that runs while no model is serving. When the store cannot be read the
// model is still trained on the seed alone and the storage error is returned
// for the caller to report.
func (c *Categorizer) Bootstrap(ctx context.Context, seed []domain.TrainingExample) error {
	ctx, span := tracer.Start(ctx, "Categorizer.Bootstrap")
	defer span.End()

	c.mu.Lock()
	c.seed = append([]domain.TrainingExample(nil), seed...)
	c.mu.Unlock()

	examples := append([]domain.TrainingExample(nil), seed...)
	var storeErr error
	if c.store != nil {
		stored, err := c.store.ListExamples(ctx)
		if err != nil {
			c.metrics.IncrExternalError("corpus_store")
			c.logger.Error("failed to load persisted training examples, training on seed only", zap.Error(err))
			storeErr = &domain.ErrStorage{Operation: "list examples", Err: err}
		} else {
			examples = append(examples, stored...)
			c.logger.Info("loaded persisted training examples", zap.Int("count", len(stored)))
		}
	}

	if err := c.Train(ctx, examples); err != nil {
		return errors.Join(err, storeErr)
	}
	return storeErr
}

// Train fits a new model on examples and makes it current.
// An empty slice is a no-op.
func (c *Categorizer) Train(ctx context.Context, examples []domain.TrainingExample) error {
	_, span := tracer.Start(ctx, "Categorizer.Train")
	defer span.End()
	span.SetAttributes(attribute.Int("examples", len(examples)))

	if len(examples) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.fit(examples)
	if err != nil {
		return err
	}
	c.publish(snap)
	return nil
}

// Retrain appends examples to the current corpus, fits a new model, persists
// the examples and swaps the model in. Any failure leaves the previous model
// serving.
func (c *Categorizer) Retrain(ctx context.Context, examples []domain.TrainingExample) error {
	ctx, span := tracer.Start(ctx, "Categorizer.Retrain")
	defer span.End()
	span.SetAttributes(attribute.Int("examples", len(examples)))

	start := time.Now()
	defer func() {
		c.metrics.RecordRequestDuration("retrain", time.Since(start))
	}()

	if len(examples) == 0 {
		c.metrics.IncrRetrain("error")
		return domain.ErrNoTrainingData
	}
	for i, ex := range examples {
		if !ex.Category.IsValid() {
			c.metrics.IncrRetrain("error")
			return &domain.ErrValidation{
				Field:   fmt.Sprintf("training_data[%d].category", i),
				Message: fmt.Sprintf("unknown category %q", ex.Category),
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.seed
	if cur := c.current.Load(); cur != nil {
		base = cur.examples
	}
	combined := make([]domain.TrainingExample, 0, len(base)+len(examples))
	combined = append(combined, base...)
	combined = append(combined, examples...)

	snap, err := c.fit(combined)
	if err != nil {
		c.metrics.IncrRetrain("error")
		return err
	}

	if c.store != nil {
		if err := c.store.AppendExamples(ctx, examples); err != nil {
			c.metrics.IncrRetrain("error")
			c.metrics.IncrExternalError("corpus_store")
			c.logger.Error("failed to persist retrain examples", zap.Error(err))
			return &domain.ErrStorage{Operation: "append examples", Err: err}
		}
	}

	c.publish(snap)
	c.metrics.IncrRetrain("success")
	c.logger.Info("model retrained",
		zap.String("version", snap.version),
		zap.Int("added", len(examples)),
		zap.Int("examples", len(snap.examples)),
	)
	return nil
}

// Categorize returns the most probable category of description. It never
// fails: an untrained model, empty input or an inference failure all yield
// OTHER with zero confidence.
func (c *Categorizer) Categorize(ctx context.Context, description string) domain.ClassificationResult {
	_, span := tracer.Start(ctx, "Categorizer.Categorize")
	defer span.End()

	result := c.categorize(description)
	c.metrics.IncrCategorization(result.Category)
	span.SetAttributes(
		attribute.String("category", string(result.Category)),
		attribute.Float64("confidence", result.Confidence),
	)
	return result
}

// CategorizeBatch categorizes descriptions concurrently; results keep input order.
func (c *Categorizer) CategorizeBatch(ctx context.Context, descriptions []string) []domain.ClassificationResult {
	ctx, span := tracer.Start(ctx, "Categorizer.CategorizeBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(descriptions)))

	results := make([]domain.ClassificationResult, len(descriptions))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(batchParallelism)
	for i, d := range descriptions {
		g.Go(func() error {
			results[i] = c.Categorize(gCtx, d)
			return nil
		})
	}
	_ = g.Wait() // Categorize never fails

	return results
}

// vocabularySizer is implemented by backends that can report their feature count.
type vocabularySizer interface {
	VocabularySize() int
}

// Health describes the model currently serving requests.
func (c *Categorizer) Health() domain.ModelHealth {
	snap := c.current.Load()
	if snap == nil {
		return domain.ModelHealth{}
	}
	h := domain.ModelHealth{
		Trained:   true,
		Version:   snap.version,
		TrainedAt: snap.trainedAt,
		Examples:  len(snap.examples),
	}
	if vs, ok := snap.backend.(vocabularySizer); ok {
		h.Features = vs.VocabularySize()
	}
	return h
}

// IsTrained reports whether a fitted model is serving.
func (c *Categorizer) IsTrained() bool {
	return c.current.Load() != nil
}

func (c *Categorizer) categorize(description string) domain.ClassificationResult {
	snap := c.current.Load()
	if snap == nil {
		c.metrics.IncrFallback(observability.FallbackUntrained)
		return domain.FallbackClassification
	}
	if strings.TrimSpace(description) == "" {
		c.metrics.IncrFallback(observability.FallbackEmpty)
		return domain.FallbackClassification
	}

	normalized := c.normalizer.Normalize(description)
	cacheKey := snap.version + ":" + normalized
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.metrics.IncrCacheHit("categorize")
		return cached
	}
	c.metrics.IncrCacheMiss("categorize")

	dist, err := snap.backend.PredictProba(normalized)
	if err != nil {
		c.logger.Debug("prediction failed, falling back",
			zap.String("normalized", normalized),
			zap.Error(err),
		)
		c.metrics.IncrFallback(observability.FallbackBackend)
		return domain.FallbackClassification
	}

	best, ok := bayes.Argmax(dist)
	if !ok || math.IsNaN(best.Probability) || math.IsInf(best.Probability, 0) {
		c.logger.Debug("no usable posterior, falling back", zap.String("normalized", normalized))
		c.metrics.IncrFallback(observability.FallbackBackend)
		return domain.FallbackClassification
	}

	result := domain.ClassificationResult{
		Category:   best.Category,
		Confidence: math.Min(1, math.Max(0, best.Probability)),
	}
	c.cache.Set(cacheKey, result)
	return result
}

// fit normalizes examples and fits a fresh backend on them. Callers hold mu.
func (c *Categorizer) fit(examples []domain.TrainingExample) (*modelSnapshot, error) {
	start := time.Now()

	docs := make([]string, len(examples))
	labels := make([]domain.Category, len(examples))
	for i, ex := range examples {
		docs[i] = c.normalizer.Normalize(ex.Text)
		labels[i] = ex.Category
	}

	backend := c.newBackend()
	if err := backend.Fit(docs, labels); err != nil {
		c.logger.Error("model fit failed", zap.Int("examples", len(examples)), zap.Error(err))
		reason := "fit failed"
		if errors.Is(err, bayes.ErrEmptyVocabulary) {
			reason = "no usable terms in training data"
		}
		return nil, &domain.ErrModelUnavailable{Reason: reason, Err: err}
	}
	c.metrics.RecordRequestDuration("train", time.Since(start))

	return &modelSnapshot{
		examples:  append([]domain.TrainingExample(nil), examples...),
		backend:   backend,
		version:   uuid.NewString(),
		trainedAt: time.Now().UTC(),
	}, nil
}

// publish makes snap the serving model. Callers hold mu.
func (c *Categorizer) publish(snap *modelSnapshot) {
	c.current.Store(snap)
	c.metrics.SetModel(true, len(snap.examples))
	c.logger.Debug("model published",
		zap.String("version", snap.version),
		zap.Int("examples", len(snap.examples)),
	)
}
