package resolve

import "regexp"

// corrections rewrites recurring transcription slips before fuzzy scoring.
// Keys and replacements are lowercase; multi-word replacements are allowed.
var corrections = map[string]string{
	"kraft":      "craft",
	"fingers":    "chicken tenders",
	"coke":       "coca cola",
	"mozarella":  "mozzarella",
	"ceasar":     "caesar",
	"margherita": "margarita",
	"burguer":    "burger",
}

// itemSynonyms declares extra spoken aliases per catalog id, beyond the
// generated name variants. Everything lowercase.
var itemSynonyms = map[string][]string{
	"buffalo-wings":        {"wings", "hot wings"},
	"bbq-wings":            {"barbecue wings", "barbeque wings"},
	"chicken-tenders":      {"fingers", "chicken fingers", "tenders", "chicken strips"},
	"classic-cheeseburger": {"cheeseburger", "hamburger"},
	"coca-cola":            {"coke"},
	"craft-lemonade":       {"kraft lemonade"},
	"dr-pepper":            {"doctor pepper"},
	"draft-beer":           {"beer"},
	"fish-and-chips":       {"fish n chips"},
	"iced-tea":             {"ice tea"},
	"mozzarella-sticks":    {"mozz sticks", "cheese sticks"},
	"new-york-strip":       {"strip steak"},
	"ribeye-steak":         {"ribeye", "rib eye", "rib eye steak"},
	"root-beer":            {"rootbeer"},
}

// disambiguationRule redirects or drops a generic variation match when a
// qualifying word appears elsewhere in the same utterance. Redirect targets
// missing from the cache cause the match to be dropped instead.
type disambiguationRule struct {
	coWord   *regexp.Regexp
	redirect string
}

// disambiguationRules is keyed by the guarded variation. The bare "pepsi"
// only stands for generic Pepsi when "diet" is absent; a stray "wings" with
// "bbq" nearby belongs to the BBQ Wings, not the Buffalo ones.
var disambiguationRules = map[string]disambiguationRule{
	"pepsi":     {coWord: regexp.MustCompile(`\bdiet\b`), redirect: "diet-pepsi"},
	"pepsis":    {coWord: regexp.MustCompile(`\bdiet\b`), redirect: "diet-pepsi"},
	"wings":     {coWord: regexp.MustCompile(`\bbbq\b`), redirect: "bbq-wings"},
	"lemonade":  {coWord: regexp.MustCompile(`\bcraft\b`), redirect: "craft-lemonade"},
	"lemonades": {coWord: regexp.MustCompile(`\bcraft\b`), redirect: "craft-lemonade"},
}
