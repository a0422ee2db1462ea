package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// namePatterns matches introductions in rough order of explicitness.
// Tables are ordered; within one turn the first pattern to yield a value wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)\bname'?s\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)\bthis is\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)\bi am\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)\bi'm\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)\b([a-z]+(?:\s+[a-z]+)?)\s+calling\b`),
	regexp.MustCompile(`(?i)\bcall me\s+([a-z]+(?:\s+[a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bunder the name\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)\breservation for\s+([a-z]+(?:\s+[a-z]+){0,2})`),
}

// strictNamePatterns is the re-extraction battery: capitalized names only,
// used after a candidate collided with a phone number.
var strictNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:[Mm]y name is|[Nn]ame'?s|[Tt]his is|I am|I'm)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\s+calling\b`),
	regexp.MustCompile(`\b(?:for|under)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`),
}

// nameStopwords are trimmed from candidate edges and disqualify a candidate
// when they appear inside it. The "I'm ..." and "reservation for ..." cues
// capture ordinary sentences too, so everyday verbs, prepositions, and
// schedule words have to be listed even though no stoplist is ever complete.
var nameStopwords = map[string]struct{}{
	"i": {}, "me": {}, "we": {}, "us": {}, "you": {}, "he": {}, "she": {},
	"they": {}, "it": {}, "its": {}, "this": {}, "that": {}, "just": {},
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"for": {}, "with": {}, "to": {}, "of": {}, "at": {}, "on": {}, "in": {},
	"my": {}, "our": {}, "your": {}, "so": {}, "not": {}, "very": {},
	"really": {}, "about": {}, "also": {}, "still": {},
	"like": {}, "need": {}, "want": {}, "get": {}, "have": {}, "would": {},
	"make": {}, "making": {}, "booking": {}, "planning": {}, "checking": {},
	"going": {}, "gonna": {}, "looking": {}, "wondering": {}, "hoping": {},
	"trying": {}, "sorry": {}, "afraid": {}, "interested": {}, "allergic": {},
	"able": {}, "available": {}, "busy": {}, "late": {}, "early": {},
	"party": {}, "table": {}, "reservation": {}, "tonight": {}, "today": {},
	"tomorrow": {}, "please": {}, "thanks": {}, "thank": {}, "again": {},
	"here": {}, "speaking": {}, "calling": {}, "everyone": {}, "everybody": {},
	"hungry": {}, "ready": {}, "sure": {}, "okay": {}, "ok": {}, "yes": {}, "no": {},
	"sunday": {}, "monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "weekend": {}, "night": {}, "evening": {},
	"morning": {}, "afternoon": {},
	// "reservation for January 2" reads like an introduction to the weaker
	// patterns, so month words disqualify a candidate even though a few
	// are legitimate first names.
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
}

// matchName runs the ordered introduction patterns over one utterance.
func matchName(text string) (string, bool) {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name, ok := cleanName(m[1]); ok {
			return name, true
		}
	}
	return "", false
}

// matchStrictName runs the capitalized-only battery over one utterance.
func matchStrictName(text string) (string, bool) {
	for _, re := range strictNamePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name, ok := cleanName(m[1]); ok {
			return name, true
		}
	}
	return "", false
}

// cleanName trims stopwords from the edges, rejects digit and number-word
// tokens, caps the result at three words, and title-cases it.
func cleanName(raw string) (string, bool) {
	tokens := strings.Fields(raw)

	// Trim stopwords from the front.
	for len(tokens) > 0 {
		if _, stop := nameStopwords[strings.ToLower(tokens[0])]; !stop {
			break
		}
		tokens = tokens[1:]
	}
	// And from the back.
	for len(tokens) > 0 {
		if _, stop := nameStopwords[strings.ToLower(tokens[len(tokens)-1])]; !stop {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) == 0 || len(tokens) > 3 {
		return "", false
	}

	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if strings.ContainsAny(tok, "0123456789") {
			return "", false
		}
		if isNumberWord(lower) {
			return "", false
		}
		if _, stop := nameStopwords[lower]; stop {
			return "", false
		}
	}

	for i, tok := range tokens {
		tokens[i] = titleCase(tok)
	}
	return strings.Join(tokens, " "), true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// partyPattern pairs an expression with a count normalizer.
type partyPattern struct {
	re   *regexp.Regexp
	norm func(m []string) (int, bool)
}

func digitCount(m []string) (int, bool) {
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

func wordCount(m []string) (int, bool) {
	return WordToNumber(strings.ToLower(m[1]))
}

func fixedCount(n int) func(m []string) (int, bool) {
	return func([]string) (int, bool) { return n, true }
}

// partyPatterns matches party sizes in rough order of explicitness.
// Bounds are enforced by the extractor, not here.
var partyPatterns = []partyPattern{
	{regexp.MustCompile(`(?i)\bparty of\s+(\d{1,2})\b`), digitCount},
	{regexp.MustCompile(`(?i)\bparty of\s+([a-z]+)\b`), wordCount},
	{regexp.MustCompile(`(?i)\btable for\s+(\d{1,2})\b`), digitCount},
	{regexp.MustCompile(`(?i)\btable for\s+([a-z]+)\b`), wordCount},
	{regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})\s+(?:people|persons|guests|adults)\b`), digitCount},
	{regexp.MustCompile(`(?i)\bfor\s+([a-z]+)\s+(?:people|persons|guests|adults)\b`), wordCount},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:people|persons|guests|of us)\b`), digitCount},
	{regexp.MustCompile(`(?i)\b([a-z]+)\s+(?:people|persons|guests|of us)\b`), wordCount},
	{regexp.MustCompile(`(?i)\bme and my\s+(?:wife|husband|partner|boyfriend|girlfriend|friend|date)\b`), fixedCount(2)},
	{regexp.MustCompile(`(?i)\bjust\s+(?:me|myself)\b`), fixedCount(1)},
}

// matchPartySize runs the ordered party patterns over one utterance.
func matchPartySize(text string) (int, bool) {
	for _, p := range partyPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if n, ok := p.norm(m); ok {
			return n, true
		}
	}
	return 0, false
}

// specialRequestPatterns captures notes worth carrying onto the reservation.
var specialRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b((?:allergic|allergy|allergies)\s+to\s+[a-z]+(?:\s+[a-z]+){0,3})`),
	regexp.MustCompile(`(?i)\b(birthday|anniversary|graduation|celebration)\b`),
	regexp.MustCompile(`(?i)\b(wheelchair|high\s?chair|booster seat|booth|window seat|quiet table|patio|outdoor seating|gluten[ -]?free|vegan|vegetarian)\b`),
}

// matchSpecialRequest returns the first request cue found in one utterance.
func matchSpecialRequest(text string) (string, bool) {
	for _, re := range specialRequestPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ToLower(strings.TrimSpace(m[1])), true
		}
	}
	return "", false
}
