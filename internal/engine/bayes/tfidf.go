package bayes

import (
	"math"
	"sort"
	"strings"
)

// entry is one non-zero component of a sparse row.
type entry struct {
	index int
	value float64
}

// sparseVector holds non-zero components ordered by index.
type sparseVector []entry

// Vectorizer converts normalized documents into L2-normalised TF-IDF rows
// over unigrams and bigrams.
type Vectorizer struct {
	// MaxFeatures caps the vocabulary to the most frequent terms; 0 means no cap.
	MaxFeatures int

	vocab map[string]int
	terms []string
	idf   []float64
}

// NewVectorizer creates an unfitted vectorizer.
func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// analyze returns the unigrams followed by the bigrams of a space-separated document.
func analyze(doc string) []string {
	tokens := strings.Fields(doc)
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(tokens)-1)
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// Fit learns the vocabulary and inverse document frequencies.
// When the vocabulary must be capped, terms are ranked by corpus frequency,
// ties broken by ascending term so the cap is deterministic.
func (v *Vectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return ErrNoExamples
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range analyze(doc) {
			termFreq[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}
	if len(termFreq) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return nil
}

// Transform returns the TF-IDF row of doc. Terms outside the vocabulary are
// ignored; a document with no known terms yields an empty row.
func (v *Vectorizer) Transform(doc string) sparseVector {
	counts := make(map[int]float64)
	for _, term := range analyze(doc) {
		if idx, ok := v.vocab[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	row := make(sparseVector, 0, len(counts))
	var norm float64
	for idx, tf := range counts {
		w := tf * v.idf[idx]
		row = append(row, entry{index: idx, value: w})
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range row {
		row[i].value /= norm
	}
	sort.Slice(row, func(i, j int) bool { return row[i].index < row[j].index })
	return row
}

// Size is the number of features in the fitted vocabulary.
func (v *Vectorizer) Size() int {
	return len(v.terms)
}

// Terms returns the fitted vocabulary in index order.
func (v *Vectorizer) Terms() []string {
	return append([]string(nil), v.terms...)
}
