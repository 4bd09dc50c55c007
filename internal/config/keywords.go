package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/boddenberg/finml/internal/domain"

	"gopkg.in/yaml.v3"
)

// keywordFile is the YAML layout of a keyword table:
//
//	categories:
//	  FOOD_DINING: [restaurant, food]
//	  TRAVEL: [hotel, flight]
type keywordFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// LoadKeywordTable returns the built-in table when path is empty, otherwise
// the table read from the YAML file at path. Categories absent from the file
// get no keywords; unknown category names are an error.
func LoadKeywordTable(path string) (domain.KeywordTable, error) {
	if path == "" {
		return domain.DefaultKeywordTable(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	return ParseKeywordTable(raw)
}

// ParseKeywordTable decodes a YAML keyword table. Keywords are lowercased and
// trimmed; blanks and duplicates within a category are dropped.
func ParseKeywordTable(raw []byte) (domain.KeywordTable, error) {
	var file keywordFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("parse keyword table: no categories defined")
	}

	table := make(domain.KeywordTable, len(file.Categories))
	for name, keywords := range file.Categories {
		category, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("keyword table: %w", err)
		}

		seen := make(map[string]bool, len(keywords))
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			table[category] = append(table[category], kw)
		}
	}
	return table, nil
}
