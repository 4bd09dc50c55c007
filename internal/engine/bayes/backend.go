// Package bayes implements the text classification backend: a TF-IDF
// vectorizer over unigrams and bigrams feeding a multinomial Naive Bayes
// classifier. Documents are expected to be normalized already.
package bayes

import (
	"errors"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/port"
)

// Default hyper-parameters.
const (
	DefaultMaxFeatures = 1000
	DefaultAlpha       = 0.1
)

var (
	ErrNoExamples       = errors.New("bayes: no training examples")
	ErrLengthMismatch   = errors.New("bayes: documents and labels differ in length")
	ErrEmptyVocabulary  = errors.New("bayes: empty vocabulary")
	ErrNotFitted        = errors.New("bayes: model is not fitted")
	ErrNumeric          = errors.New("bayes: non-finite posterior")
	ErrInvalidSmoothing = errors.New("bayes: smoothing alpha must be positive and finite")
)

// Options configure a Backend.
type Options struct {
	MaxFeatures int
	Alpha       float64
}

// DefaultOptions returns the hyper-parameters the service trains with.
func DefaultOptions() Options {
	return Options{MaxFeatures: DefaultMaxFeatures, Alpha: DefaultAlpha}
}

// Backend implements port.TextClassificationBackend.
type Backend struct {
	vectorizer *Vectorizer
	nb         *MultinomialNB
	fitted     bool
}

var _ port.TextClassificationBackend = (*Backend)(nil)

// NewBackend creates an unfitted backend.
func NewBackend(opts Options) *Backend {
	return &Backend{
		vectorizer: NewVectorizer(opts.MaxFeatures),
		nb:         NewMultinomialNB(opts.Alpha),
	}
}

// Factory returns a port.BackendFactory producing backends with opts.
func Factory(opts Options) port.BackendFactory {
	return func() port.TextClassificationBackend {
		return NewBackend(opts)
	}
}

// Fit learns the vocabulary and class distributions. A Backend is fitted at
// most once; fitting again returns an error.
func (b *Backend) Fit(docs []string, labels []domain.Category) error {
	if b.fitted {
		return errors.New("bayes: backend already fitted")
	}
	if len(docs) == 0 {
		return ErrNoExamples
	}
	if len(docs) != len(labels) {
		return ErrLengthMismatch
	}
	if err := b.vectorizer.Fit(docs); err != nil {
		return err
	}

	rows := make([]sparseVector, len(docs))
	for i, doc := range docs {
		rows[i] = b.vectorizer.Transform(doc)
	}
	if err := b.nb.Fit(rows, labels, b.vectorizer.Size()); err != nil {
		return err
	}
	b.fitted = true
	return nil
}

// PredictProba returns the posterior over every fitted class in ascending
// class-name order.
func (b *Backend) PredictProba(doc string) ([]domain.CategoryProbability, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	probs, err := b.nb.PredictProba(b.vectorizer.Transform(doc))
	if err != nil {
		return nil, err
	}
	classes := b.nb.Classes()
	dist := make([]domain.CategoryProbability, len(classes))
	for i, c := range classes {
		dist[i] = domain.CategoryProbability{Category: c, Probability: probs[i]}
	}
	return dist, nil
}

// VocabularySize is the number of fitted features.
func (b *Backend) VocabularySize() int {
	return b.vectorizer.Size()
}

// Argmax returns the most probable entry. Ties resolve to the earliest entry,
// which for backend output is the alphabetically first category.
func Argmax(dist []domain.CategoryProbability) (domain.CategoryProbability, bool) {
	if len(dist) == 0 {
		return domain.CategoryProbability{}, false
	}
	best := dist[0]
	for _, p := range dist[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}
	return best, true
}
