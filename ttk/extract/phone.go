package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// phoneIntroRe captures whatever follows an explicit phone-number cue.
	phoneIntroRe = regexp.MustCompile(`(?i)\b(?:my (?:phone |cell )?number is|phone number is|reach me at|call me(?: back)? at|number'?s)[:\s]+([0-9a-z\s\-\.\(\)\+]+)`)

	// phoneFormattedRe matches conventional North American formatting.
	phoneFormattedRe = regexp.MustCompile(`\+?1?\s*\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// extractPhone pulls a callback number from one utterance. Each candidate
// source is tried in order and must survive normalization to win.
func extractPhone(text, defaultAreaCode string) (string, bool) {
	if m := phoneIntroRe.FindStringSubmatch(text); m != nil {
		if phone, ok := NormalizePhone(m[1], defaultAreaCode); ok {
			return phone, true
		}
	}
	if m := phoneFormattedRe.FindString(text); m != "" {
		if phone, ok := NormalizePhone(m, defaultAreaCode); ok {
			return phone, true
		}
	}
	if run := spokenDigitRun(text); len(run) >= 7 {
		if phone, ok := normalizeDigits(run, false, defaultAreaCode); ok {
			return phone, true
		}
	}
	return "", false
}

// NormalizePhone converts a raw phone mention, digits or spoken words, into
// E.164. Ten digits gain a "+1" prefix, eleven digits starting with 1 gain
// "+", seven digits gain "+1" and the default area code, and anything already
// carrying "+" with a plausible length passes through unchanged.
func NormalizePhone(raw, defaultAreaCode string) (string, bool) {
	raw = strings.TrimSpace(raw)
	hasPlus := strings.HasPrefix(raw, "+")
	return normalizeDigits(spokenDigits(raw), hasPlus, defaultAreaCode)
}

func normalizeDigits(digits string, hasPlus bool, defaultAreaCode string) (string, bool) {
	switch {
	case hasPlus && len(digits) >= 11 && len(digits) <= 15:
		return "+" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 7:
		return "+1" + defaultAreaCode + digits, true
	default:
		return "", false
	}
}

// spokenDigits flattens a phone mention into its digit characters, mapping
// spoken digit words ("five", "oh") and "double"/"triple" repetition.
func spokenDigits(s string) string {
	var b strings.Builder
	repeat := 1
	for _, field := range splitAlnum(s) {
		if field == "double" {
			repeat = 2
			continue
		}
		if field == "triple" {
			repeat = 3
			continue
		}
		if d, ok := digitWords[field]; ok {
			for i := 0; i < repeat; i++ {
				b.WriteByte(d)
			}
			repeat = 1
			continue
		}
		if isAllDigits(field) {
			b.WriteString(field)
		}
		repeat = 1
	}
	return b.String()
}

// SpokenDigitRun finds the longest unbroken run of digit tokens in free
// text, spoken or literal, and returns its flattened digits. Reservation
// and order number lookups share this with phone extraction, so "one two
// three four five six" and "123456" resolve the same way.
func SpokenDigitRun(text string) string {
	return spokenDigitRun(text)
}

// spokenDigitRun finds the longest unbroken run of digit tokens in free text
// and returns its flattened digits. Runs shorter than a local number are
// discarded by the caller.
func spokenDigitRun(text string) string {
	var best, current strings.Builder
	repeat := 1
	flush := func() {
		if current.Len() > best.Len() {
			best.Reset()
			best.WriteString(current.String())
		}
		current.Reset()
	}
	for _, field := range splitAlnum(text) {
		switch {
		case field == "double":
			repeat = 2
		case field == "triple":
			repeat = 3
		default:
			if d, ok := digitWords[field]; ok {
				for i := 0; i < repeat; i++ {
					current.WriteByte(d)
				}
				repeat = 1
				continue
			}
			if isAllDigits(field) {
				current.WriteString(field)
				repeat = 1
				continue
			}
			repeat = 1
			flush()
		}
	}
	flush()
	return best.String()
}

func splitAlnum(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
