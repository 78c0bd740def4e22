package answers

import (
	"strings"
	"unicode"
)

// stopWords are filler words carrying no signal for question matching.
// Both English and Portuguese are covered because questionnaire locales mix.
var stopWords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "do": {}, "does": {}, "for": {}, "from": {}, "have": {},
	"how": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "will": {}, "with": {},
	"you": {}, "your": {},
	// Portuguese
	"com": {}, "como": {}, "da": {}, "das": {}, "de": {}, "dos": {},
	"em": {}, "na": {}, "nas": {}, "no": {}, "nos": {}, "o": {}, "os": {},
	"para": {}, "por": {}, "qual": {}, "que": {}, "se": {}, "seu": {},
	"sua": {}, "tem": {}, "um": {}, "uma": {}, "voce": {}, "você": {},
}

// Tokenize normalizes a question label into its significant tokens:
// lowercased, punctuation stripped, single characters and stop words dropped.
// Duplicate tokens are removed so Jaccard scoring works over sets.
func Tokenize(label string) []string {
	var current strings.Builder
	var raw []string

	flush := func() {
		if current.Len() > 0 {
			raw = append(raw, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	seen := make(map[string]struct{}, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len([]rune(tok)) <= 1 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Jaccard computes set similarity between two token lists: the size of the
// intersection over the size of the union. Two empty sets score zero, not
// one, so blank labels never match anything.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}

	union := make(map[string]struct{}, len(a)+len(b))
	for tok := range setA {
		union[tok] = struct{}{}
	}

	intersection := 0
	for _, tok := range b {
		if _, dup := union[tok]; dup {
			if _, inA := setA[tok]; inA {
				intersection++
				delete(setA, tok) // Count each shared token once
			}
		} else {
			union[tok] = struct{}{}
		}
	}

	return float64(intersection) / float64(len(union))
}
