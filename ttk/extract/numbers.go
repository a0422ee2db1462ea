package extract

// numberWords maps spelled counts to values, used for party sizes and
// quantities. "a"/"an" count as one ("a table for two, an appetizer").
var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// digitWords maps spoken digits to characters for phone reconstruction.
var digitWords = map[string]byte{
	"zero": '0', "oh": '0', "o": '0',
	"one": '1', "two": '2', "three": '3', "four": '4', "five": '5',
	"six": '6', "seven": '7', "eight": '8', "nine": '9',
}

// ordinalWords maps spelled day ordinals to day-of-month values.
var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"fifteenth": 15, "sixteenth": 16, "seventeenth": 17, "eighteenth": 18,
	"nineteenth": 19, "twentieth": 20, "twenty-first": 21, "twenty first": 21,
	"twenty-second": 22, "twenty second": 22, "twenty-third": 23, "twenty third": 23,
	"twenty-fourth": 24, "twenty fourth": 24, "twenty-fifth": 25, "twenty fifth": 25,
	"twenty-sixth": 26, "twenty sixth": 26, "twenty-seventh": 27, "twenty seventh": 27,
	"twenty-eighth": 28, "twenty eighth": 28, "twenty-ninth": 29, "twenty ninth": 29,
	"thirtieth": 30, "thirty-first": 31, "thirty first": 31,
}

// monthNames maps month names and common abbreviations to month numbers.
var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

// WordToNumber resolves a spelled count; it rejects the indefinite articles
// so "a" only counts when a caller explicitly allows it.
func WordToNumber(word string) (int, bool) {
	if word == "a" || word == "an" {
		return 0, false
	}
	n, ok := numberWords[word]
	return n, ok
}

// isNumberWord reports whether the token spells a count or digit.
func isNumberWord(word string) bool {
	if _, ok := numberWords[word]; ok && word != "a" && word != "an" {
		return true
	}
	_, ok := digitWords[word]
	return ok
}
