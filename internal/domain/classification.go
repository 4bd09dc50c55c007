package domain

import "time"

// ============================================================
// Classification
// ============================================================

// TrainingExample is one labelled description used to fit the classifier.
type TrainingExample struct {
	Text     string   `json:"description"`
	Category Category `json:"category"`
}

// ClassificationResult is the outcome of categorizing a single description.
// Confidence is the maximum posterior probability, not a calibrated accuracy.
type ClassificationResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// FallbackClassification is returned whenever a description cannot be classified.
var FallbackClassification = ClassificationResult{Category: CategoryOther, Confidence: 0}

// CategoryProbability is one entry of a posterior distribution.
type CategoryProbability struct {
	Category    Category
	Probability float64
}

// ModelHealth describes the classifier snapshot currently serving requests.
type ModelHealth struct {
	Trained   bool      `json:"trained"`
	Version   string    `json:"version,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Examples  int       `json:"examples"`
	Features  int       `json:"features,omitempty"`
}

// ============================================================
// Wire types
// ============================================================

// CategorizeRequest is the body of POST /categorize.
type CategorizeRequest struct {
	Description string `json:"description"`
}

// BatchCategorizeRequest is the body of POST /categorize/batch.
type BatchCategorizeRequest struct {
	Descriptions []string `json:"descriptions"`
}

// BatchCategorizeResponse keeps results in request order.
type BatchCategorizeResponse struct {
	Results []ClassificationResult `json:"results"`
}

// RetrainExample is a training example as received on the wire;
// the category is validated before it reaches the model.
type RetrainExample struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

// RetrainRequest is the body of POST /retrain.
type RetrainRequest struct {
	TrainingData []RetrainExample `json:"training_data"`
}

// CategoryKeywords is one row of GET /v1/categories.
type CategoryKeywords struct {
	Category Category `json:"category"`
	Keywords []string `json:"keywords"`
}
