package answers

import "strings"

// levenshtein computes the edit distance between two strings by runes
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// editSimilarity maps edit distance to a 0..1 score relative to the longer
// string
func editSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// MatchOption maps a free-text answer onto one of the field's options.
// An exact case-insensitive match wins outright. A verbose answer that opens
// with an option's text ("no, not applicable") snaps to that option.
// Failing both, the closest option by edit similarity is chosen if it clears
// the threshold.
func MatchOption(answer string, options []string, threshold float64) (string, bool) {
	if len(options) == 0 {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))
	for _, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt)) == normalized {
			return opt, true
		}
	}

	prefixBest := ""
	prefixLen := 0
	for _, opt := range options {
		o := strings.ToLower(strings.TrimSpace(opt))
		if o == "" || !strings.HasPrefix(normalized, o) {
			continue
		}
		rest := normalized[len(o):]
		if rest != "" {
			first := rune(rest[0])
			if first != ' ' && first != ',' && first != '.' && first != ';' && first != ':' {
				continue
			}
		}
		if len(o) > prefixLen {
			prefixLen = len(o)
			prefixBest = opt
		}
	}
	if prefixBest != "" {
		return prefixBest, true
	}

	best := ""
	bestScore := 0.0
	for _, opt := range options {
		if score := editSimilarity(answer, opt); score > bestScore {
			bestScore = score
			best = opt
		}
	}
	if bestScore >= threshold {
		return best, true
	}
	return "", false
}
