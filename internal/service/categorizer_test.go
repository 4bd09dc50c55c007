package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/engine/bayes"
	"github.com/boddenberg/finml/internal/engine/corpus"
	"github.com/boddenberg/finml/internal/engine/textnorm"
	"github.com/boddenberg/finml/internal/infra/cache"
	"github.com/boddenberg/finml/internal/infra/observability"
	"github.com/boddenberg/finml/internal/port"
	"github.com/boddenberg/finml/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type memoryStore struct {
	mu        sync.Mutex
	examples  []domain.TrainingExample
	appendErr error
	listErr   error
}

func (m *memoryStore) AppendExamples(_ context.Context, examples []domain.TrainingExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.examples = append(m.examples, examples...)
	return nil
}

func (m *memoryStore) ListExamples(_ context.Context) ([]domain.TrainingExample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.TrainingExample(nil), m.examples...), nil
}

type stubBackend struct {
	dist   []domain.CategoryProbability
	err    error
	fitErr error
}

func (s *stubBackend) Fit([]string, []domain.Category) error { return s.fitErr }

func (s *stubBackend) PredictProba(string) ([]domain.CategoryProbability, error) {
	return s.dist, s.err
}

// --- Helpers ---

func newCategorizer(t *testing.T, store port.CorpusStore, factory port.BackendFactory) *service.Categorizer {
	t.Helper()
	if factory == nil {
		factory = bayes.Factory(bayes.DefaultOptions())
	}
	c := cache.New[domain.ClassificationResult](5 * time.Minute)
	t.Cleanup(c.Close)
	return service.NewCategorizer(
		textnorm.NewDefault(nil),
		factory,
		store,
		c,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func newTrainedCategorizer(t *testing.T) *service.Categorizer {
	t.Helper()
	c := newCategorizer(t, nil, nil)
	if err := c.Train(context.Background(), corpus.Build(domain.DefaultKeywordTable())); err != nil {
		t.Fatalf("train: %v", err)
	}
	return c
}

// --- Tests ---

func TestCategorize_SeedKeywords(t *testing.T) {
	c := newTrainedCategorizer(t)
	table := domain.DefaultKeywordTable()
	norm := textnorm.NewDefault(nil)

	// Keywords whose normalized form is shared by several categories are
	// legitimately ambiguous.
	owners := make(map[string]map[domain.Category]bool)
	for _, cat := range domain.Categories {
		for _, kw := range table.Keywords(cat) {
			n := norm.Normalize(kw)
			if owners[n] == nil {
				owners[n] = make(map[domain.Category]bool)
			}
			owners[n][cat] = true
		}
	}

	checked := 0
	for _, cat := range domain.Categories {
		for _, kw := range table.Keywords(cat) {
			n := norm.Normalize(kw)
			if n == "" || len(owners[n]) > 1 {
				continue
			}
			got := c.Categorize(context.Background(), "payment to "+kw)
			if got.Category != cat {
				t.Errorf("payment to %s: expected %s, got %s (%.3f)", kw, cat, got.Category, got.Confidence)
			}
			checked++
		}
	}
	if checked < 100 {
		t.Fatalf("expected to check most keywords, checked %d", checked)
	}
}

func TestCategorize_EmptyInput(t *testing.T) {
	c := newTrainedCategorizer(t)

	for _, in := range []string{"", "   \t"} {
		got := c.Categorize(context.Background(), in)
		if got != domain.FallbackClassification {
			t.Errorf("%q: expected fallback, got %+v", in, got)
		}
	}
}

func TestCategorize_NormalizesToEmptyUsesPrior(t *testing.T) {
	c := newTrainedCategorizer(t)

	// Only stopwords and digits: nothing survives normalization, but the
	// description is not blank, so the classifier scores the class prior.
	got := c.Categorize(context.Background(), "the 12")
	if got == domain.FallbackClassification {
		t.Fatalf("expected a prior-based result, got fallback")
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Errorf("expected confidence in (0,1], got %v", got.Confidence)
	}
}

func TestCategorize_Untrained(t *testing.T) {
	c := newCategorizer(t, nil, nil)

	got := c.Categorize(context.Background(), "restaurant dinner")
	if got != domain.FallbackClassification {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if c.IsTrained() || c.Health().Trained {
		t.Fatal("expected untrained model")
	}
}

func TestCategorize_CompoundBeatsSingleTemplate(t *testing.T) {
	c := newTrainedCategorizer(t)
	ctx := context.Background()

	compound := c.Categorize(ctx, "restaurant dinner")
	if compound.Category != domain.CategoryFoodDining {
		t.Fatalf("expected FOOD_DINING, got %s", compound.Category)
	}

	for _, single := range []string{"restaurant", "restaurant purchase", "payment to restaurant"} {
		got := c.Categorize(ctx, single)
		if got.Category != domain.CategoryFoodDining {
			t.Errorf("%q: expected FOOD_DINING, got %s", single, got.Category)
		}
		if compound.Confidence <= got.Confidence {
			t.Errorf("expected compound confidence %.4f above %q (%.4f)", compound.Confidence, single, got.Confidence)
		}
	}
}

func TestCategorize_ConfidenceInRange(t *testing.T) {
	c := newTrainedCategorizer(t)

	for _, in := range []string{"netflix", "zzzz qqqq", "12345", "hotel flight booking", "the and of"} {
		got := c.Categorize(context.Background(), in)
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Errorf("%q: confidence %f out of range", in, got.Confidence)
		}
		if !got.Category.IsValid() {
			t.Errorf("%q: invalid category %q", in, got.Category)
		}
	}
}

func TestCategorize_BackendFailureFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
	}{
		{name: "error", backend: &stubBackend{err: errors.New("boom")}},
		{name: "nan", backend: &stubBackend{dist: []domain.CategoryProbability{{Category: domain.CategoryTravel, Probability: math.NaN()}}}},
		{name: "empty", backend: &stubBackend{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCategorizer(t, nil, func() port.TextClassificationBackend { return tt.backend })
			if err := c.Train(context.Background(), corpus.Build(domain.DefaultKeywordTable())); err != nil {
				t.Fatalf("train: %v", err)
			}

			got := c.Categorize(context.Background(), "hotel")
			if got != domain.FallbackClassification {
				t.Fatalf("expected fallback, got %+v", got)
			}
		})
	}
}

func TestTrain_EmptyIsNoop(t *testing.T) {
	c := newCategorizer(t, nil, nil)

	if err := c.Train(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.IsTrained() {
		t.Fatal("expected model to stay untrained")
	}
}

func TestCategorizeBatch_PreservesOrder(t *testing.T) {
	c := newTrainedCategorizer(t)
	ctx := context.Background()

	inputs := []string{"hotel", "", "pizza", "netflix", "doctor", "stock dividend", "salon", "office supplies", "taxi", "grocery"}
	got := c.CategorizeBatch(ctx, inputs)

	if len(got) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(got))
	}
	for i, in := range inputs {
		if want := c.Categorize(ctx, in); got[i] != want {
			t.Errorf("result %d (%q): expected %+v, got %+v", i, in, want, got[i])
		}
	}
}

func TestRetrain_Empty(t *testing.T) {
	c := newTrainedCategorizer(t)
	before := c.Health()
	hotel := c.Categorize(context.Background(), "hotel")

	err := c.Retrain(context.Background(), nil)
	if !errors.Is(err, domain.ErrNoTrainingData) {
		t.Fatalf("expected ErrNoTrainingData, got %v", err)
	}
	if err.Error() != "No training data provided" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if c.Health() != before {
		t.Error("expected model to be unchanged")
	}
	if got := c.Categorize(context.Background(), "hotel"); got != hotel {
		t.Errorf("expected %+v, got %+v", hotel, got)
	}
}

func TestRetrain_UnknownCategoryRejected(t *testing.T) {
	c := newTrainedCategorizer(t)
	before := c.Health()

	err := c.Retrain(context.Background(), []domain.TrainingExample{
		{Text: "yacht club", Category: domain.CategoryEntertainment},
		{Text: "yacht fuel", Category: "BOATS"},
	})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if c.Health() != before {
		t.Error("expected model to be unchanged")
	}
}

func TestRetrain_AppendsAndSwaps(t *testing.T) {
	c := newTrainedCategorizer(t)
	ctx := context.Background()
	before := c.Health()

	var added []domain.TrainingExample
	for i := 0; i < 10; i++ {
		added = append(added, domain.TrainingExample{Text: "zorblax lounge", Category: domain.CategoryTravel})
	}
	if err := c.Retrain(ctx, added); err != nil {
		t.Fatalf("retrain: %v", err)
	}

	after := c.Health()
	if after.Examples != before.Examples+len(added) {
		t.Errorf("expected %d examples, got %d", before.Examples+len(added), after.Examples)
	}
	if after.Version == before.Version {
		t.Error("expected a new model version")
	}
	if got := c.Categorize(ctx, "zorblax lounge"); got.Category != domain.CategoryTravel {
		t.Errorf("expected TRAVEL, got %s", got.Category)
	}
}

func TestRetrain_FitFailureKeepsState(t *testing.T) {
	c := newCategorizer(t, nil, nil)

	err := c.Retrain(context.Background(), []domain.TrainingExample{
		{Text: "12 34", Category: domain.CategoryOther},
		{Text: "to the", Category: domain.CategoryOther},
	})

	var unavailable *domain.ErrModelUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if !errors.Is(err, bayes.ErrEmptyVocabulary) {
		t.Errorf("expected wrapped ErrEmptyVocabulary, got %v", err)
	}
	if c.IsTrained() {
		t.Fatal("expected model to stay untrained")
	}
}

func TestRetrain_PersistsAndSurvivesRestart(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	seed := corpus.Build(domain.DefaultKeywordTable())

	first := newCategorizer(t, store, nil)
	if err := first.Bootstrap(ctx, seed); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	added := []domain.TrainingExample{
		{Text: "zorblax lounge", Category: domain.CategoryTravel},
		{Text: "zorblax lounge", Category: domain.CategoryTravel},
	}
	if err := first.Retrain(ctx, added); err != nil {
		t.Fatalf("retrain: %v", err)
	}

	restarted := newCategorizer(t, store, nil)
	if err := restarted.Bootstrap(ctx, seed); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if got, want := restarted.Health().Examples, len(seed)+len(added); got != want {
		t.Fatalf("expected %d examples after restart, got %d", want, got)
	}
}

func TestBootstrap_UnreadableStoreTrainsOnSeed(t *testing.T) {
	store := &memoryStore{listErr: errors.New("database is locked")}
	ctx := context.Background()
	seed := corpus.Build(domain.DefaultKeywordTable())
	c := newCategorizer(t, store, nil)

	err := c.Bootstrap(ctx, seed)

	var serr *domain.ErrStorage
	if !errors.As(err, &serr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !c.IsTrained() {
		t.Fatal("expected the seed corpus to be trained")
	}
	if got := c.Categorize(ctx, "pizza").Category; got != domain.CategoryFoodDining {
		t.Errorf("expected FOOD_DINING, got %s", got)
	}

	added := []domain.TrainingExample{{Text: "zorblax lounge", Category: domain.CategoryTravel}}
	if err := c.Retrain(ctx, added); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if got, want := c.Health().Examples, len(seed)+len(added); got != want {
		t.Errorf("expected %d examples after retrain, got %d", want, got)
	}
}

func TestRetrain_UntrainedAppendsToSeed(t *testing.T) {
	ctx := context.Background()
	seed := corpus.Build(domain.DefaultKeywordTable())
	failing := true
	factory := func() port.TextClassificationBackend {
		if failing {
			return &stubBackend{fitErr: errors.New("out of memory")}
		}
		return bayes.NewBackend(bayes.DefaultOptions())
	}
	c := newCategorizer(t, nil, factory)

	if err := c.Bootstrap(ctx, seed); err == nil {
		t.Fatal("expected bootstrap to fail")
	}
	if c.IsTrained() {
		t.Fatal("expected no model after a failed fit")
	}

	failing = false
	added := []domain.TrainingExample{{Text: "zorblax lounge", Category: domain.CategoryTravel}}
	if err := c.Retrain(ctx, added); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if got, want := c.Health().Examples, len(seed)+len(added); got != want {
		t.Errorf("expected %d examples, got %d", want, got)
	}
	if got := c.Categorize(ctx, "hotel").Category; got != domain.CategoryTravel {
		t.Errorf("expected seed keywords to survive, got %s", got)
	}
}

func TestRetrain_StoreFailureKeepsModel(t *testing.T) {
	store := &memoryStore{appendErr: errors.New("disk full")}
	c := newCategorizer(t, store, nil)
	if err := c.Bootstrap(context.Background(), corpus.Build(domain.DefaultKeywordTable())); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	before := c.Health()

	err := c.Retrain(context.Background(), []domain.TrainingExample{{Text: "yacht", Category: domain.CategoryTravel}})

	var serr *domain.ErrStorage
	if !errors.As(err, &serr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if c.Health() != before {
		t.Error("expected model to be unchanged")
	}
}

func TestCategorize_ConsistentDuringRetrain(t *testing.T) {
	c := newTrainedCategorizer(t)
	ctx := context.Background()
	const word = "zorblax"

	before := c.Categorize(ctx, word)

	var added []domain.TrainingExample
	for i := 0; i < 20; i++ {
		added = append(added, domain.TrainingExample{Text: word, Category: domain.CategoryTravel})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		observed []domain.ClassificationResult
		stop     = make(chan struct{})
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r := c.Categorize(ctx, word)
				mu.Lock()
				observed = append(observed, r)
				mu.Unlock()
			}
		}()
	}

	if err := c.Retrain(ctx, added); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	close(stop)
	wg.Wait()

	after := c.Categorize(ctx, word)
	if after == before {
		t.Fatal("expected retrain to change the result")
	}
	for _, r := range observed {
		if r != before && r != after {
			t.Fatalf("observed %+v, neither pre-retrain %+v nor post-retrain %+v", r, before, after)
		}
	}
}
