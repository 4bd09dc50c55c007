// Package textnorm turns free-text expense descriptions into the canonical
// token stream shared by training and inference: lowercase, letters only,
// stopwords and short tokens removed, English stems.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/boddenberg/finml/internal/port"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minTokenLen is the shortest token kept; anything at or below two letters is noise.
const minTokenLen = 3

// maxStemPasses bounds the fixed-point iteration in stem.
const maxStemPasses = 8

// Normalizer implements port.Normalizer.
type Normalizer struct {
	tokenizer port.Tokenizer
	stemmer   port.Stemmer
	logger    *zap.Logger
}

// New creates a Normalizer. A nil tokenizer means naive whitespace splitting;
// a nil stemmer leaves tokens unstemmed.
func New(tokenizer port.Tokenizer, stemmer port.Stemmer, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{tokenizer: tokenizer, stemmer: stemmer, logger: logger}
}

// NewDefault creates the normalizer used by the service: whitespace word
// tokenizer and the English Snowball stemmer.
func NewDefault(logger *zap.Logger) *Normalizer {
	return New(WordTokenizer{}, NewEnglishStemmer(), logger)
}

// Normalize returns the space-joined stems of text. The result is a fixed
// point: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Caser values are stateful; one per call.
	lowered := cases.Lower(language.English).String(text)
	cleaned := strings.Map(func(r rune) rune {
		if isLatinLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, lowered)

	tokens := n.tokenize(cleaned)

	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !keep(tok) {
			continue
		}
		s := n.stem(tok)
		if !keep(s) {
			continue
		}
		stems = append(stems, s)
	}
	return strings.Join(stems, " ")
}

func (n *Normalizer) tokenize(text string) []string {
	if n.tokenizer == nil {
		return whitespaceSplit(text)
	}
	// text is already letters and whitespace only, so WordTokenizer cannot
	// fail here; injected tokenizers may.
	tokens, err := n.tokenizer.Tokenize(text)
	if err != nil {
		n.logger.Debug("tokenizer failed, falling back to whitespace split", zap.Error(err))
		return whitespaceSplit(text)
	}
	return tokens
}

// stem applies the stemmer until the token stops changing, so stems of
// stems are stable.
func (n *Normalizer) stem(tok string) string {
	if n.stemmer == nil {
		return tok
	}
	cur := tok
	for i := 0; i < maxStemPasses; i++ {
		next, err := n.stemmer.Stem(cur)
		if err != nil {
			n.logger.Debug("stemmer failed, keeping token", zap.String("token", cur), zap.Error(err))
			return cur
		}
		if next == cur || next == "" {
			return cur
		}
		cur = next
	}
	return cur
}

func keep(tok string) bool {
	return len(tok) >= minTokenLen && !englishStopwords.contains(tok)
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
