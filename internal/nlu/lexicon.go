package nlu

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quote_assistant_backend/internal/shared/textfold"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon holds the keyword lists used by RuleExtractor. All entries are
// stored folded.
type Lexicon struct {
	Greetings       []string `yaml:"greetings"`
	Affirmatives    []string `yaml:"affirmatives"`
	Negatives       []string `yaml:"negatives"`
	Reset           []string `yaml:"reset"`
	QuoteRequests   []string `yaml:"quoteRequests"`
	QuantityCues    []string `yaml:"quantityCues"`
	QuantityMarkers []string `yaml:"quantityMarkers"`
	MeasureUnits    []string `yaml:"measureUnits"`
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

// LoadLexicon reads a lexicon file. An empty path yields the embedded default.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML lexicon data.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	if len(lex.Affirmatives) == 0 || len(lex.Negatives) == 0 {
		return nil, fmt.Errorf("decode lexicon: affirmatives and negatives are required")
	}

	for _, list := range []*[]string{
		&lex.Greetings, &lex.Affirmatives, &lex.Negatives, &lex.Reset,
		&lex.QuoteRequests, &lex.QuantityCues, &lex.QuantityMarkers, &lex.MeasureUnits,
	} {
		*list = foldAll(*list)
	}
	return &lex, nil
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		folded := textfold.Fold(w)
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	return out
}

// startsWithAny reports whether folded text begins with one of the phrases
// on a word boundary.
func startsWithAny(text string, phrases []string) bool {
	padded := text + " "
	for _, p := range phrases {
		if len(padded) > len(p) && padded[:len(p)+1] == p+" " {
			return true
		}
	}
	return false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if textfold.ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func isOneOf(word string, list []string) bool {
	for _, w := range list {
		if w == word {
			return true
		}
	}
	return false
}
