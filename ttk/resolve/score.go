package resolve

import "strings"

// Scoring weights for fuzzy lookup. A candidate is accepted only when its
// score reaches acceptScore.
const (
	weightExactToken  = 10
	weightContainment = 5
	weightEditClose   = 3
	weightSubstring   = 8
	weightCorrected   = 6
	lengthPenalty     = 2
	lengthSlack       = 5
	acceptScore       = 3
)

// fuzzyScore rates how well a search string fits a catalog name. The
// correction-rewritten form competes on equal token terms but earns a
// smaller substring bonus; search, corrected, and name are lowercase.
func fuzzyScore(search, corrected, name string) int {
	score := tokensScore(search, name)
	if corrected != search {
		if cs := tokensScore(corrected, name); cs > score {
			score = cs
		}
	}

	if strings.Contains(name, search) {
		score += weightSubstring
	} else if corrected != search && strings.Contains(name, corrected) {
		score += weightCorrected
	}

	diff := len(name) - len(search)
	if diff < 0 {
		diff = -diff
	}
	if diff > lengthSlack {
		score -= lengthPenalty
	}
	return score
}

func tokensScore(search, name string) int {
	score := 0
	nameTokens := strings.Fields(name)
	for _, tok := range strings.Fields(search) {
		score += bestTokenScore(tok, nameTokens)
	}
	return score
}

// bestTokenScore rates a single search token against the name tokens and
// keeps the strongest relation: exact beats containment beats a close edit.
// Edit distance is only consulted for tokens long enough to make two edits
// meaningful.
func bestTokenScore(tok string, nameTokens []string) int {
	best := 0
	for _, nt := range nameTokens {
		switch {
		case tok == nt:
			return weightExactToken
		case len(tok) >= 3 && (strings.Contains(nt, tok) || strings.Contains(tok, nt)):
			if best < weightContainment {
				best = weightContainment
			}
		case len(tok) >= 4 && levenshtein(tok, nt) <= 2:
			if best < weightEditClose {
				best = weightEditClose
			}
		}
	}
	return best
}

// levenshtein is the classic two-row edit distance.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// applyCorrections rewrites known transcription slips token by token,
// collapsing adjacent duplicates a phrase replacement can introduce.
func applyCorrections(search string) string {
	tokens := strings.Fields(search)
	changed := false
	for i, tok := range tokens {
		if repl, ok := corrections[tok]; ok {
			tokens[i] = repl
			changed = true
		}
	}
	if !changed {
		return search
	}
	flat := strings.Fields(strings.Join(tokens, " "))
	out := flat[:0]
	for _, tok := range flat {
		if len(out) > 0 && out[len(out)-1] == tok {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
