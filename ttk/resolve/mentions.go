package resolve

import (
	"strconv"
	"strings"

	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
)

// Mention is one menu reference found in an utterance, with the price
// captured at match time so later totals use the quoted figure. Start and
// End are byte offsets into the scanned text for proximity decisions.
type Mention struct {
	Text       string `json:"text"`
	ItemID     string `json:"item_id"`
	ItemName   string `json:"item_name"`
	Quantity   int    `json:"quantity"`
	Variation  string `json:"variation"`
	Score      int    `json:"score"` // match specificity, longer variations score higher
	PriceCents int64  `json:"price_cents"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

type span struct {
	start, end int
	entry      variationEntry
}

func (s span) length() int { return s.end - s.start }

// ExtractMentions scans an utterance for catalog variations, longest match
// first at every word boundary, resolves quantities from adjacent digits or
// number words, and applies the declared disambiguation rules. Unresolvable
// mentions are dropped and logged, never substituted.
func (r *Resolver) ExtractMentions(text string, cache *menu.Cache) []Mention {
	ix := r.indexFor(cache)
	lower := strings.ToLower(text)
	source := text
	if len(lower) != len(text) {
		// Lowercasing shifted byte offsets; slice the lowered copy instead.
		source = lower
	}

	var spans []span
	for i := 0; i < len(lower); i++ {
		if !isWordStart(lower, i) {
			continue
		}
		entry, ok := ix.longestAt(lower[i:])
		if !ok {
			continue
		}
		end := i + len(entry.variation)
		if end < len(lower) && isWordChar(lower[end]) {
			continue
		}
		spans = append(spans, span{start: i, end: end, entry: entry})
		i = end - 1
	}

	spans = filterOverlaps(spans)

	mentions := make([]Mention, 0, len(spans))
	for _, sp := range spans {
		entry, keep := r.disambiguate(sp, lower, cache)
		if !keep {
			continue
		}
		mentions = append(mentions, Mention{
			Text:       source[sp.start:sp.end],
			ItemID:     entry.itemID,
			ItemName:   entry.itemName,
			Quantity:   adjacentQuantity(lower, sp.start, sp.end),
			Variation:  entry.variation,
			Score:      len(entry.variation),
			PriceCents: entry.priceCents,
			Start:      sp.start,
			End:        sp.end,
		})
	}
	return mentions
}

// disambiguate applies the declared rule for the matched variation, if any.
// The co-occurrence check masks the matched span so a variation never
// disqualifies itself.
func (r *Resolver) disambiguate(sp span, lower string, cache *menu.Cache) (variationEntry, bool) {
	rule, guarded := disambiguationRules[sp.entry.variation]
	if !guarded {
		return sp.entry, true
	}
	masked := lower[:sp.start] + strings.Repeat(" ", sp.length()) + lower[sp.end:]
	if !rule.coWord.MatchString(masked) {
		return sp.entry, true
	}
	if item, ok := cache.Get(rule.redirect); ok && item.Available {
		return variationEntry{
			itemID:     item.ID,
			itemName:   item.Name,
			variation:  sp.entry.variation,
			priceCents: item.PriceCents,
		}, true
	}
	r.logger.Debug().
		Str("variation", sp.entry.variation).
		Str("redirect", rule.redirect).
		Msg("mention dropped, disambiguation target unavailable")
	return variationEntry{}, false
}

// filterOverlaps keeps only the longer of any two overlapping matches.
func filterOverlaps(spans []span) []span {
	kept := make([]span, 0, len(spans))
	for _, sp := range spans {
		overlapped := false
		for k := range kept {
			if sp.end <= kept[k].start || kept[k].end <= sp.start {
				continue
			}
			overlapped = true
			if sp.length() > kept[k].length() {
				kept[k] = sp
			}
			break
		}
		if !overlapped {
			kept = append(kept, sp)
		}
	}
	return kept
}

// adjacentQuantity reads a count from the word before the match, then the
// word after, defaulting to one.
func adjacentQuantity(lower string, start, end int) int {
	if q, ok := quantityToken(prevWord(lower, start)); ok {
		return q
	}
	if q, ok := quantityToken(nextWord(lower, end)); ok {
		return q
	}
	return 1
}

func quantityToken(word string) (int, bool) {
	if word == "" {
		return 0, false
	}
	if word == "a" || word == "an" {
		return 1, true
	}
	if n, err := strconv.Atoi(word); err == nil && n >= 1 && n <= 99 {
		return n, true
	}
	if n, ok := extract.WordToNumber(word); ok && n >= 1 {
		return n, true
	}
	return 0, false
}

func prevWord(s string, pos int) string {
	end := pos
	for end > 0 && !isWordChar(s[end-1]) {
		end--
	}
	start := end
	for start > 0 && isWordChar(s[start-1]) {
		start--
	}
	return s[start:end]
}

func nextWord(s string, pos int) string {
	start := pos
	for start < len(s) && !isWordChar(s[start]) {
		start++
	}
	end := start
	for end < len(s) && isWordChar(s[end]) {
		end++
	}
	return s[start:end]
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '\'' || c == '-'
}

func isWordStart(s string, i int) bool {
	return isWordChar(s[i]) && (i == 0 || !isWordChar(s[i-1]))
}
