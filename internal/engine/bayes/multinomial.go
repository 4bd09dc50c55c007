package bayes

import (
	"math"
	"sort"

	"github.com/boddenberg/finml/internal/domain"
)

// MultinomialNB is a multinomial-event Naive Bayes classifier with additive
// smoothing over real-valued (TF-IDF) features.
type MultinomialNB struct {
	Alpha float64

	classes        []domain.Category
	classLogPrior  []float64
	featureLogProb [][]float64 // [class][feature]
}

// NewMultinomialNB creates an unfitted classifier with smoothing alpha.
func NewMultinomialNB(alpha float64) *MultinomialNB {
	return &MultinomialNB{Alpha: alpha}
}

// Fit estimates priors and per-class feature distributions.
// Classes are kept in ascending name order.
func (m *MultinomialNB) Fit(rows []sparseVector, labels []domain.Category, nFeatures int) error {
	if len(rows) == 0 {
		return ErrNoExamples
	}
	if len(rows) != len(labels) {
		return ErrLengthMismatch
	}
	if !(m.Alpha > 0) || math.IsInf(m.Alpha, 0) {
		return ErrInvalidSmoothing
	}

	classIndex := make(map[domain.Category]int)
	for _, l := range labels {
		classIndex[l] = 0
	}
	classes := make([]domain.Category, 0, len(classIndex))
	for c := range classIndex {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	for i, c := range classes {
		classIndex[c] = i
	}

	classCount := make([]float64, len(classes))
	featureCount := make([][]float64, len(classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, nFeatures)
	}
	for i, row := range rows {
		ci := classIndex[labels[i]]
		classCount[ci]++
		for _, e := range row {
			featureCount[ci][e.index] += e.value
		}
	}

	total := float64(len(rows))
	m.classes = classes
	m.classLogPrior = make([]float64, len(classes))
	m.featureLogProb = make([][]float64, len(classes))
	for ci := range classes {
		m.classLogPrior[ci] = math.Log(classCount[ci] / total)

		var smoothedTotal float64
		for _, fc := range featureCount[ci] {
			smoothedTotal += fc + m.Alpha
		}
		logTotal := math.Log(smoothedTotal)

		flp := make([]float64, nFeatures)
		for j, fc := range featureCount[ci] {
			flp[j] = math.Log(fc+m.Alpha) - logTotal
		}
		m.featureLogProb[ci] = flp
	}
	return nil
}

// PredictProba returns the posterior over the fitted classes, in class order.
func (m *MultinomialNB) PredictProba(row sparseVector) ([]float64, error) {
	if m.classes == nil {
		return nil, ErrNotFitted
	}

	jll := make([]float64, len(m.classes))
	maxJLL := math.Inf(-1)
	for ci := range m.classes {
		score := m.classLogPrior[ci]
		for _, e := range row {
			score += e.value * m.featureLogProb[ci][e.index]
		}
		jll[ci] = score
		if score > maxJLL {
			maxJLL = score
		}
	}
	if math.IsInf(maxJLL, 0) || math.IsNaN(maxJLL) {
		return nil, ErrNumeric
	}

	var sum float64
	for _, s := range jll {
		sum += math.Exp(s - maxJLL)
	}
	logNorm := maxJLL + math.Log(sum)

	probs := make([]float64, len(jll))
	for ci, s := range jll {
		p := math.Exp(s - logNorm)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, ErrNumeric
		}
		probs[ci] = p
	}
	return probs, nil
}

// Classes returns the fitted classes in ascending order.
func (m *MultinomialNB) Classes() []domain.Category {
	return append([]domain.Category(nil), m.classes...)
}
