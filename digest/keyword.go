package digest

import (
	"context"
	"strings"
	"unicode"
)

// DefaultCriticalTerms flag hygiene and safety complaints
var DefaultCriticalTerms = []string{
	"cockroach", "cockroaches", "insect", "insects", "worm", "worms", "larva", "larvae",
	"fly", "flies", "lizard", "rat", "rats",
	"hair", "nail", "stone", "stones", "glass", "plastic", "metal",
	"foul smell", "smells foul", "stink", "stinks", "rotten", "spoiled", "stale",
	"fungus", "mould", "mold", "chemical", "vomit", "vomiting",
	"food poisoning", "diarrhea", "sick", "uncooked", "undercooked", "half cooked", "expired",
}

// KeywordClassifier labels text Critical when it contains any of its terms as
// whole words, ignoring case and punctuation.
type KeywordClassifier struct {
	terms []string
}

// NewKeywordClassifier creates a classifier over terms, or
// DefaultCriticalTerms when none are given
func NewKeywordClassifier(terms ...string) *KeywordClassifier {
	if len(terms) == 0 {
		terms = DefaultCriticalTerms
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := normalize(t); strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return &KeywordClassifier{terms: out}
}

func (k *KeywordClassifier) Classify(_ context.Context, text string) (Label, error) {
	s := normalize(text)
	for _, t := range k.terms {
		if strings.Contains(s, t) {
			return Critical, nil
		}
	}
	return Normal, nil
}

// normalize lowercases s, turns every run of non-alphanumerics into one space
// and pads both ends so terms only match whole words
func normalize(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}
