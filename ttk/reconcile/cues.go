package reconcile

import "strings"

// Cue tables are declared data so precedence between transitions stays
// reviewable. Matching is containment on a normalized utterance with word
// boundaries preserved, so "wait" never fires on "waiter".

var affirmativePhrases = []string{
	"that's right", "that is right", "that's correct", "that is correct",
	"sounds good", "sounds great", "sounds perfect", "that works",
	"let's do it", "go ahead", "book it", "place the order",
	"looks good", "looks right", "that'll be all", "that will be all",
	"that's everything", "that's all", "confirm it", "confirm that",
	"yes please",
}

// bareAffirmatives are trusted only immediately after the agent asked a
// confirmation question; on their own they are too ambiguous.
var bareAffirmatives = map[string]struct{}{
	"yes": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {},
	"ok": {}, "okay": {}, "correct": {}, "right": {},
	"absolutely": {}, "definitely": {}, "perfect": {},
}

var bareNegatives = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "not": {},
}

// fillerWords may trail a bare cue without changing its meaning.
var fillerWords = map[string]struct{}{
	"please": {}, "thanks": {}, "thank": {}, "you": {},
	"now": {}, "today": {}, "ma'am": {}, "sir": {},
}

var agentConfirmCues = []string{
	"is that correct", "is that right", "is that all correct",
	"does that look right", "does that sound right", "sound good",
	"shall i confirm", "should i confirm", "can i confirm",
	"shall i book", "should i book", "shall i place", "should i place",
	"ready to confirm", "want me to confirm", "want me to book",
}

var agentFoodCues = []string{
	"like to order", "like to pre-order", "anything to eat",
	"any food", "add any food", "pre-order anything",
	"order anything", "order any items",
}

var paymentIntentPhrases = []string{
	"pay now", "i'll pay", "i will pay", "pay with", "pay by",
	"my card", "credit card", "debit card", "take my card",
	"charge me", "charge it", "charge the card", "put it on",
	"pay ahead", "pay in advance", "prepay", "pre-pay",
}

// declinePhrases close a payment offer without charging. "i'll pay at the
// restaurant" also contains a payment-intent phrase, so callers must check
// for a decline before checking for intent.
var declinePhrases = []string{
	"not now", "not right now", "not today", "maybe later",
	"pay later", "pay at the restaurant", "pay there",
	"pay when we get there", "settle up there",
	"settle at the restaurant", "at the restaurant",
}

var modifyCues = []string{
	"actually", "instead", "change", "remove", "take off", "swap",
	"make that", "make it", "scratch that", "wait", "hold on",
	"one more", "add a", "add an", "add the", "also want", "forgot",
	"not right", "not correct", "that's wrong", "no wait",
	"different",
}

var cancelCues = []string{
	"cancel", "never mind", "nevermind", "forget it",
	"forget the whole thing", "don't book", "do not book",
	"don't need the reservation", "changed my mind",
	"call back another time",
}

var tableOnlyCues = []string{
	"just the table", "table only", "just a table", "no food",
	"won't order", "won't be ordering", "not ordering",
	"order when we get there", "order at the restaurant",
	"order there", "decide there", "decide when we get there",
	"menu when we arrive", "nothing to order", "no pre-order",
}

var menuQuestionCues = []string{
	"what's on the menu", "what is on the menu", "what do you have",
	"what do you serve", "what can i order", "what can we order",
	"hear the menu", "read the menu", "menu options",
	"tell me the menu", "tell me about the menu", "what's good",
	"any specials", "what kind of food",
}

// normalizeCueText lowercases and strips sentence punctuation while keeping
// apostrophes, so declared phrases like "that's right" still match.
func normalizeCueText(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	lastSpace := true
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r == '-':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func hasCue(text string, phrases []string) bool {
	padded := " " + normalizeCueText(text) + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// ContainsAffirmative reports an explicit confirmation phrase.
func ContainsAffirmative(text string) bool { return hasCue(text, affirmativePhrases) }

// ContainsPaymentIntent reports an utterance implying the caller wants to
// pay, which doubles as order confirmation.
func ContainsPaymentIntent(text string) bool { return hasCue(text, paymentIntentPhrases) }

// ContainsPaymentDecline reports the caller passing on paying now.
func ContainsPaymentDecline(text string) bool { return hasCue(text, declinePhrases) }

// ContainsModifyCue reports a negation or modification request.
func ContainsModifyCue(text string) bool { return hasCue(text, modifyCues) }

// ContainsCancelCue reports a request to abandon the reservation.
func ContainsCancelCue(text string) bool { return hasCue(text, cancelCues) }

// ContainsTableOnlyCue reports the caller declining to pre-order food.
func ContainsTableOnlyCue(text string) bool { return hasCue(text, tableOnlyCues) }

// ContainsMenuQuestion reports the caller asking what can be ordered.
func ContainsMenuQuestion(text string) bool { return hasCue(text, menuQuestionCues) }

// AgentAskedConfirmation reports whether an agent message posed a
// confirmation question, which arms bare affirmatives for the next turn.
func AgentAskedConfirmation(text string) bool { return hasCue(text, agentConfirmCues) }

// AgentAskedAboutFood reports whether an agent message asked about
// pre-ordering, which lets a bare "no" mean table-only.
func AgentAskedAboutFood(text string) bool { return hasCue(text, agentFoodCues) }

// IsBareAffirmative matches short standalone agreement ("yes", "ok then",
// "sure thanks"). Longer utterances must carry an explicit phrase instead.
func IsBareAffirmative(text string) bool { return isBareCue(text, bareAffirmatives) }

// IsBareNegative matches short standalone refusal ("no", "no thanks").
func IsBareNegative(text string) bool { return isBareCue(text, bareNegatives) }

func isBareCue(text string, cues map[string]struct{}) bool {
	fields := strings.Fields(normalizeCueText(text))
	if len(fields) == 0 || len(fields) > 3 {
		return false
	}
	if _, ok := cues[fields[0]]; !ok {
		return false
	}
	for _, f := range fields[1:] {
		_, filler := fillerWords[f]
		_, cue := cues[f]
		if !filler && !cue {
			return false
		}
	}
	return true
}
