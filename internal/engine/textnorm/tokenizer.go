package textnorm

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// ErrInvalidText is returned by WordTokenizer for input that is not valid UTF-8.
// Normalize filters such bytes out before tokenizing; direct callers can still hit it.
var ErrInvalidText = errors.New("textnorm: text is not valid UTF-8")

// WordTokenizer splits text on Unicode whitespace.
type WordTokenizer struct{}

// Tokenize implements port.Tokenizer.
func (WordTokenizer) Tokenize(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}
	return strings.FieldsFunc(text, unicode.IsSpace), nil
}

// whitespaceSplit is the degradation path used when no tokenizer is
// configured or the configured one fails.
func whitespaceSplit(text string) []string {
	return strings.Fields(text)
}

// SnowballStemmer stems tokens with the Snowball algorithm for one language.
type SnowballStemmer struct {
	Language string
}

// NewEnglishStemmer returns the stemmer used for category keywords.
func NewEnglishStemmer() SnowballStemmer {
	return SnowballStemmer{Language: "english"}
}

// Stem implements port.Stemmer.
func (s SnowballStemmer) Stem(token string) (string, error) {
	return snowball.Stem(token, s.Language, true)
}
