// Package corpus expands the category keyword table into a labelled
// synthetic training set.
package corpus

import (
	"strings"

	"github.com/boddenberg/finml/internal/domain"
)

// keywordPlaceholder is substituted with each seed keyword.
const keywordPlaceholder = "{keyword}"

// Templates are the phrase variants generated for every keyword, in output order.
var Templates = []string{
	"payment to {keyword}",
	"{keyword} purchase",
	"bought from {keyword}",
	"{keyword} expense",
	"spending on {keyword}",
	"{keyword}",
	"{keyword} service",
	"{keyword} bill",
}

// Build returns len(Templates) examples per (category, keyword) pair,
// grouped by category in enumeration order, then keyword order, then
// template order. Categories missing from the table contribute nothing.
func Build(table domain.KeywordTable) []domain.TrainingExample {
	size := 0
	for _, c := range domain.Categories {
		size += len(table.Keywords(c)) * len(Templates)
	}

	examples := make([]domain.TrainingExample, 0, size)
	for _, c := range domain.Categories {
		for _, kw := range table.Keywords(c) {
			for _, tpl := range Templates {
				examples = append(examples, domain.TrainingExample{
					Text:     strings.ReplaceAll(tpl, keywordPlaceholder, kw),
					Category: c,
				})
			}
		}
	}
	return examples
}
