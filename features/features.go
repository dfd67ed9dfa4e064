// Package features turns sentences into the ten boolean predicates the
// classifiers are trained on. Every predicate is an indicator for Dutch text.
package features

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"langclass/ml"
)

// Predicate evaluates one linguistic feature over a tokenised sentence.
type Predicate struct {
	Name  string
	words map[string]struct{}
	// absent inverts the test: the predicate holds when none of the words occur.
	absent bool
}

func newPredicate(name string, absent bool, words ...string) Predicate {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return Predicate{Name: name, words: set, absent: absent}
}

// Eval applies the predicate to already tokenized words.
func (p Predicate) Eval(tokens []string) bool {
	for _, t := range tokens {
		if _, ok := p.words[t]; ok {
			return !p.absent
		}
	}
	return p.absent
}

var predicates = []Predicate{
	newPredicate("has_een", false, "een"),
	newPredicate("has_de", false, "de"),
	newPredicate("has_bij", false, "bij"),
	newPredicate("has_van", false, "van"),
	newPredicate("has_conj", false, "maar", "en", "als", "dan"),
	newPredicate("has_ij", false, "ik", "jij", "u", "gij", "hij", "zij", "wij", "het"),
	newPredicate("no_en_adverb", true, "this", "that", "there", "which", "where", "who", "whose", "when"),
	newPredicate("no_en_prep", true, "in", "on", "at", "to", "for", "by", "of", "with", "and", "or"),
	newPredicate("no_en_pron", true, "i", "you", "he", "she", "it", "we", "they", "him", "her", "us", "them", "the", "a", "an"),
	newPredicate("no_en_be", true, "am", "is", "are", "was", "were", "being", "been", "be"),
}

// Names returns the predicate names in feature order.
func Names() []string {
	names := make([]string, len(predicates))
	for i, p := range predicates {
		names[i] = p.Name
	}
	return names
}

// Tokenize lowercases the sentence, splits it on whitespace and strips every
// non-letter rune from each word. Words left empty are dropped.
func Tokenize(sentence string) []string {
	lower := cases.Lower(language.Und).String(norm.NFC.String(sentence))
	fields := strings.Fields(lower)
	tokens := fields[:0]
	for _, f := range fields {
		w := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return r
			}
			return -1
		}, f)
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Extract evaluates the predicates over sentence.
func Extract(sentence string) ml.FeatureVector {
	return ExtractTokens(Tokenize(sentence))
}

// ExtractTokens evaluates the ten predicates over tokens, in order.
func ExtractTokens(tokens []string) ml.FeatureVector {
	v := make(ml.FeatureVector, len(predicates))
	for i, p := range predicates {
		v[i] = p.Eval(tokens)
	}
	return v
}

// ExtractLabeled pairs the feature vector of sentence with label.
func ExtractLabeled(sentence string, label ml.Label) ml.LabeledExample {
	return ml.LabeledExample{Features: Extract(sentence), Label: label}
}

// ParseLabeledLine reads a training line of the form "en|sentence". Only the
// first '|' separates the label.
func ParseLabeledLine(line string) (ml.LabeledExample, error) {
	raw, sentence, ok := strings.Cut(line, "|")
	if !ok {
		return ml.LabeledExample{}, fmt.Errorf("%w: missing '|' separator", ml.ErrMalformedInput)
	}
	label, err := ml.ParseLabel(raw)
	if err != nil {
		return ml.LabeledExample{}, err
	}
	return ExtractLabeled(sentence, label), nil
}
