// Package port defines the interfaces (ports) between the services and the
// engines or infrastructure they depend on. Following hexagonal architecture,
// these ports decouple the service layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/finml/internal/domain"
)

// Tokenizer splits normalized text into tokens.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// Stemmer reduces a token to its stem.
type Stemmer interface {
	Stem(token string) (string, error)
}

// Normalizer turns raw text into the canonical form seen by the backend.
type Normalizer interface {
	Normalize(text string) string
}

// TextClassificationBackend is a fitted-once text classifier over normalized documents.
// A backend is never refitted; a retrain builds a new one.
type TextClassificationBackend interface {
	Fit(docs []string, labels []domain.Category) error
	PredictProba(doc string) ([]domain.CategoryProbability, error)
}

// BackendFactory creates an unfitted backend.
type BackendFactory func() TextClassificationBackend

// CorpusStore persists operator-supplied training examples.
type CorpusStore interface {
	AppendExamples(ctx context.Context, examples []domain.TrainingExample) error
	ListExamples(ctx context.Context) ([]domain.TrainingExample, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
