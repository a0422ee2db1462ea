// Package extract pulls structured reservation signals out of noisy
// transcript text. Each signal type runs an ordered pattern battery over
// caller turns oldest to newest, so the most recent mention wins, seeded
// with whatever was already known from earlier in the call.
package extract

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	internal "github.com/tabletalkhq/tabletalk/ttk"
	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// PlaceholderName is the last-resort guest name when every candidate in the
// transcript was rejected.
const PlaceholderName = "Guest"

// Signals is the structured outcome of a pass over the transcript. Zero
// values mean the signal has not been heard yet. Phone is E.164, Date is
// YYYY-MM-DD in the restaurant's zone, Time is 24-hour HH:MM.
type Signals struct {
	Name            string `json:"name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	PartySize       int    `json:"party_size,omitempty"`
	Date            string `json:"date,omitempty"`
	Time            string `json:"time,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// Extractor runs the per-signal pattern batteries.
type Extractor struct {
	areaCode     string
	maxPartySize int
	loc          *time.Location
	logger       zerolog.Logger
}

func NewExtractor(cfg config.ExtractConfig, loc *time.Location, logger zerolog.Logger) *Extractor {
	areaCode := cfg.DefaultAreaCode
	if areaCode == "" {
		areaCode = internal.DefaultAreaCode
	}
	maxParty := cfg.MaxPartySize
	if maxParty <= 0 {
		maxParty = 20
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{
		areaCode:     areaCode,
		maxPartySize: maxParty,
		loc:          loc,
		logger:       logger.With().Str("component", "extract").Logger(),
	}
}

// Extract folds every caller turn into prior, newest mention winning per
// signal. A name that reads as a phone number never survives: the transcript
// is rescanned with the strict battery and "Guest" stands in if that fails.
func (e *Extractor) Extract(turns []ports.ConversationTurn, prior Signals) Signals {
	sig := prior
	now := time.Now().In(e.loc)
	for _, turn := range turns {
		if turn.Role != ports.RoleCaller {
			continue
		}
		e.extractTurn(turn.Text, now, &sig)
	}
	if sig.Name != "" && NameLooksLikePhone(sig.Name, sig.Phone) {
		e.logger.Warn().Str("candidate", sig.Name).Msg("rejecting name that reads as a phone number")
		sig.Name = e.reextractName(turns)
	}
	return sig
}

func (e *Extractor) extractTurn(text string, now time.Time, sig *Signals) {
	if name, ok := matchName(text); ok {
		sig.Name = name
	}
	if n, ok := matchPartySize(text); ok && n >= 1 && n <= e.maxPartySize {
		sig.PartySize = n
	}
	if date, ok := parseDate(text, now); ok {
		sig.Date = date
	}
	if clock, ok := parseClock(text); ok {
		sig.Time = clock
	}
	if phone, ok := extractPhone(text, e.areaCode); ok {
		sig.Phone = phone
	}
	if req, ok := matchSpecialRequest(text); ok {
		sig.SpecialRequests = mergeRequest(sig.SpecialRequests, req)
	}
}

// reextractName rescans caller turns newest first with the capitalized-only
// battery. Anything that still reads as a phone number is skipped.
func (e *Extractor) reextractName(turns []ports.ConversationTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != ports.RoleCaller {
			continue
		}
		name, ok := matchStrictName(turns[i].Text)
		if ok && !NameLooksLikePhone(name) {
			return name
		}
	}
	return PlaceholderName
}

// NameLooksLikePhone reports whether a name candidate is really a phone
// number: digits in the text, a token stream of number words, enough spoken
// digits to form a local number, or a suffix of a known phone.
func NameLooksLikePhone(name string, knownPhones ...string) bool {
	if strings.ContainsAny(name, "0123456789") {
		return true
	}
	tokens := splitAlnum(name)
	if len(tokens) == 0 {
		return false
	}
	numberish := 0
	for _, tok := range tokens {
		if _, ok := digitWords[tok]; ok {
			numberish++
			continue
		}
		if isNumberWord(tok) {
			numberish++
		}
	}
	if numberish == len(tokens) {
		return true
	}
	digits := spokenDigits(name)
	if len(digits) >= 7 {
		return true
	}
	if len(digits) >= 4 {
		for _, phone := range knownPhones {
			stripped := digitsOnly(phone)
			if stripped != "" && strings.HasSuffix(stripped, digits) {
				return true
			}
		}
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mergeRequest(existing, addition string) string {
	if existing == "" {
		return addition
	}
	if strings.Contains(strings.ToLower(existing), strings.ToLower(addition)) {
		return existing
	}
	return existing + "; " + addition
}
