package party

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tabletalkhq/tabletalk/ttk/extract"
)

// commonNames is the curated first-name lookup used to spot companions the
// caller mentions without an introduction ("Sarah will have the salad").
// Lookup is case-preserving: the token as spoken becomes the person's name.
var commonNames = map[string]struct{}{
	"james": {}, "jim": {}, "jimmy": {}, "john": {}, "johnny": {}, "jack": {},
	"robert": {}, "bob": {}, "bobby": {}, "rob": {}, "michael": {}, "mike": {},
	"william": {}, "bill": {}, "billy": {}, "will": {}, "david": {}, "dave": {},
	"richard": {}, "rick": {}, "joseph": {}, "joe": {}, "joey": {},
	"thomas": {}, "tom": {}, "tommy": {}, "charles": {}, "charlie": {},
	"christopher": {}, "chris": {}, "daniel": {}, "dan": {}, "danny": {},
	"matthew": {}, "matt": {}, "anthony": {}, "tony": {}, "mark": {},
	"donald": {}, "don": {}, "steven": {}, "stephen": {}, "steve": {},
	"paul": {}, "andrew": {}, "andy": {}, "drew": {}, "joshua": {}, "josh": {},
	"kenneth": {}, "ken": {}, "kenny": {}, "kevin": {}, "brian": {},
	"george": {}, "edward": {}, "ed": {}, "eddie": {}, "ronald": {}, "ron": {},
	"timothy": {}, "tim": {}, "jason": {}, "jeffrey": {}, "jeff": {},
	"ryan": {}, "jacob": {}, "jake": {}, "gary": {}, "nicholas": {},
	"nick": {}, "eric": {}, "jonathan": {}, "jon": {}, "larry": {},
	"justin": {}, "scott": {}, "brandon": {}, "benjamin": {}, "ben": {},
	"samuel": {}, "sam": {}, "gregory": {}, "greg": {}, "frank": {},
	"alexander": {}, "alex": {}, "patrick": {}, "pat": {}, "raymond": {},
	"ray": {}, "mary": {}, "patricia": {}, "jennifer": {}, "jenny": {},
	"jen": {}, "linda": {}, "elizabeth": {}, "liz": {}, "beth": {},
	"barbara": {}, "barb": {}, "susan": {}, "sue": {}, "susie": {},
	"jessica": {}, "jess": {}, "sarah": {}, "sara": {}, "karen": {},
	"nancy": {}, "lisa": {}, "betty": {}, "margaret": {}, "maggie": {},
	"meg": {}, "sandra": {}, "sandy": {}, "ashley": {}, "kimberly": {},
	"kim": {}, "emily": {}, "donna": {}, "michelle": {}, "carol": {},
	"amanda": {}, "mandy": {}, "melissa": {}, "deborah": {}, "debbie": {},
	"stephanie": {}, "steph": {}, "rebecca": {}, "becky": {}, "laura": {},
	"sharon": {}, "cynthia": {}, "cindy": {}, "kathleen": {}, "kathy": {},
	"amy": {}, "angela": {}, "angie": {}, "anna": {}, "annie": {},
	"ruth": {}, "brenda": {}, "pamela": {}, "pam": {}, "nicole": {},
	"nikki": {}, "katherine": {}, "kate": {}, "katie": {}, "christine": {},
	"samantha": {}, "rachel": {}, "emma": {}, "olivia": {}, "sophia": {},
	"grace": {}, "hannah": {}, "julia": {}, "julie": {}, "heather": {},
	"diane": {}, "alice": {}, "jean": {}, "joan": {}, "judy": {},
	"greta": {}, "spongebob": {},
}

// excludedWords are capitalized tokens that pair constructs keep matching
// but never denote a dinner guest.
var excludedWords = map[string]struct{}{
	"me": {}, "you": {}, "him": {}, "her": {}, "us": {}, "them": {},
	"i": {}, "we": {}, "they": {}, "he": {}, "she": {}, "it": {},
	"my": {}, "your": {}, "our": {}, "their": {}, "his": {}, "hers": {},
	"a": {}, "an": {}, "the": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "there": {}, "then": {}, "and": {}, "or": {}, "but": {},
	"so": {}, "if": {}, "when": {}, "where": {}, "what": {}, "who": {},
	"why": {}, "how": {}, "yes": {}, "no": {}, "ok": {}, "okay": {},
	"thanks": {}, "thank": {}, "please": {}, "sorry": {},
	"it's": {}, "he's": {}, "she's": {}, "we're": {}, "that's": {},
	"who's": {}, "let's": {},
	"guest": {}, "guests": {}, "table": {}, "party": {},
	"reservation": {}, "order": {},
	"sunday": {}, "monday": {}, "tuesday": {}, "wednesday": {},
	"thursday": {}, "friday": {}, "saturday": {},
	"today": {}, "tomorrow": {}, "tonight": {}, "morning": {},
	"afternoon": {}, "evening": {}, "night": {},
}

var (
	// pairRe matches "X and Y" where both sides read like capitalized
	// names, one or two tokens each.
	pairRe = regexp.MustCompile(`\b([A-Z][A-Za-z']+(?:\s+[A-Z][A-Za-z']+)?)\s+and\s+([A-Z][A-Za-z']+(?:\s+[A-Z][A-Za-z']+)?)\b`)

	// pairCueRe tests whether the text immediately before a pair is a
	// companion cue, which lets uncommon names through ("with Zorblax
	// and Greta").
	pairCueRe = regexp.MustCompile(`(?i)(?:for|with|plus|me and|joining(?:\s+us)?|party of \w+,?)\s*$`)

	nameTokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z']*`)
)

type nameCandidate struct {
	pos  int
	name string
}

// ExtractAdditionalNames pulls companion names out of caller text: "X and Y"
// constructs plus curated common-name hits on word boundaries. The primary
// caller and anything resembling a phone number are excluded. Names come
// back in order of first appearance, deduplicated by first token, in the
// casing the caller used.
func ExtractAdditionalNames(text, primaryName string) []string {
	primaryTokens := tokenSet(primaryName)

	var candidates []nameCandidate
	for _, m := range pairRe.FindAllStringSubmatchIndex(text, -1) {
		side1 := text[m[2]:m[3]]
		side2 := text[m[4]:m[5]]
		if !pairAccepted(text, m[0], side1, side2) {
			continue
		}
		candidates = appendSide(candidates, m[2], side1, primaryTokens)
		candidates = appendSide(candidates, m[4], side2, primaryTokens)
	}
	for _, loc := range nameTokenRe.FindAllStringIndex(text, -1) {
		tok := text[loc[0]:loc[1]]
		if tok[0] < 'A' || tok[0] > 'Z' {
			continue
		}
		lower := strings.ToLower(tok)
		if _, ok := commonNames[lower]; !ok {
			continue
		}
		if _, ok := primaryTokens[lower]; ok {
			continue
		}
		candidates = append(candidates, nameCandidate{pos: loc[0], name: tok})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].pos < candidates[j].pos })

	seen := make(map[string]struct{}, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		first := strings.ToLower(strings.Fields(c.name)[0])
		if _, ok := seen[first]; ok {
			continue
		}
		if extract.NameLooksLikePhone(c.name) {
			continue
		}
		seen[first] = struct{}{}
		names = append(names, c.name)
	}
	return names
}

// pairAccepted reports whether an "X and Y" match should be trusted: either
// a companion cue precedes it, or one side is a curated common name. Without
// that anchor the construct matches capitalized menu items too readily.
func pairAccepted(text string, start int, side1, side2 string) bool {
	if pairCueRe.MatchString(text[:start]) {
		return true
	}
	return isCommonName(side1) || isCommonName(side2)
}

func isCommonName(side string) bool {
	first := strings.ToLower(strings.Fields(side)[0])
	_, ok := commonNames[first]
	return ok
}

func appendSide(candidates []nameCandidate, pos int, side string, primaryTokens map[string]struct{}) []nameCandidate {
	for _, tok := range strings.Fields(side) {
		lower := strings.ToLower(tok)
		if _, ok := excludedWords[lower]; ok {
			return candidates
		}
		if _, ok := primaryTokens[lower]; ok {
			return candidates
		}
	}
	return append(candidates, nameCandidate{pos: pos, name: side})
}

func tokenSet(name string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		set[tok] = struct{}{}
	}
	return set
}

