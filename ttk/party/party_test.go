package party

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletalkhq/tabletalk/ttk/resolve"
)

func mentionAt(t *testing.T, text, phrase, itemID string) resolve.Mention {
	t.Helper()
	idx := strings.Index(text, phrase)
	require.GreaterOrEqual(t, idx, 0, "phrase %q not in text", phrase)
	return resolve.Mention{
		Text:       phrase,
		ItemID:     itemID,
		ItemName:   phrase,
		Quantity:   1,
		PriceCents: 1899,
		Start:      idx,
		End:        idx + len(phrase),
	}
}

func TestExtractAdditionalNamesPair(t *testing.T) {
	names := ExtractAdditionalNames("It's Jim Smith and SpongeBob tonight.", "Jim Smith")
	assert.Equal(t, []string{"SpongeBob"}, names)
}

func TestExtractAdditionalNamesCurated(t *testing.T) {
	names := ExtractAdditionalNames("Sarah will have the salad and maybe Tom too.", "Bob Jones")
	assert.Equal(t, []string{"Sarah", "Tom"}, names)
}

func TestExtractAdditionalNamesCue(t *testing.T) {
	names := ExtractAdditionalNames("We need a table with Zorblax and Greta.", "Alice Munro")
	assert.Equal(t, []string{"Zorblax", "Greta"}, names)
}

func TestExtractAdditionalNamesRejectsMenuPair(t *testing.T) {
	names := ExtractAdditionalNames("I'll take the Buffalo Wings and Ribeye Steak.", "Jim Smith")
	assert.Empty(t, names)
}

func TestExtractAdditionalNamesRejectsNumberWords(t *testing.T) {
	names := ExtractAdditionalNames("It's a table with One and Two.", "Jim Smith")
	assert.Empty(t, names)
}

func TestExtractAdditionalNamesDeduplicates(t *testing.T) {
	text := "Sarah and Tom are coming. Sarah wants a booth, Tom doesn't care."
	names := ExtractAdditionalNames(text, "Bob Jones")
	assert.Equal(t, []string{"Sarah", "Tom"}, names)
}

func TestDistributeTwoPersonConversation(t *testing.T) {
	text := "Hi, party of two for tonight, Jim Smith and SpongeBob. Jim wants the Ribeye Steak, SpongeBob wants the Buffalo Wings."
	additional := ExtractAdditionalNames(text, "Jim Smith")
	require.Equal(t, []string{"SpongeBob"}, additional)

	items := []resolve.Mention{
		mentionAt(t, text, "Ribeye Steak", "ribeye-steak"),
		mentionAt(t, text, "Buffalo Wings", "buffalo-wings"),
	}

	orders := Distribute(items, "Jim Smith", 2, additional, text)
	require.Len(t, orders, 2)

	assert.Equal(t, "Jim Smith", orders[0].PersonName)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "ribeye-steak", orders[0].Items[0].ItemID)

	assert.Equal(t, "SpongeBob", orders[1].PersonName)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "buffalo-wings", orders[1].Items[0].ItemID)
}

func TestDistributePrecedingNameOutranksFollowing(t *testing.T) {
	// "and SpongeBob" sits closer to the Ribeye than "Jim" does, but a
	// name after an item binds only through a connector like "for", so
	// the Ribeye stays with Jim.
	text := "Jim wants the Ribeye Steak and SpongeBob wants the Buffalo Wings."
	items := []resolve.Mention{
		mentionAt(t, text, "Ribeye Steak", "ribeye-steak"),
		mentionAt(t, text, "Buffalo Wings", "buffalo-wings"),
	}

	orders := Distribute(items, "Jim Smith", 2, []string{"SpongeBob"}, text)
	require.Len(t, orders, 2)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "ribeye-steak", orders[0].Items[0].ItemID)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "buffalo-wings", orders[1].Items[0].ItemID)
}

func TestDistributeFollowingNameBinds(t *testing.T) {
	text := "Let's do the Ribeye Steak for Jim please."
	items := []resolve.Mention{mentionAt(t, text, "Ribeye Steak", "ribeye-steak")}

	orders := Distribute(items, "Sarah Lee", 2, []string{"Jim"}, text)
	require.Len(t, orders, 2)
	assert.Empty(t, orders[0].Items)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "ribeye-steak", orders[1].Items[0].ItemID)
}

func TestDistributeConnectorOutranksFarPrecedingName(t *testing.T) {
	text := "Jim will have two pepsis and the ribeye steak, buffalo wings for SpongeBob."
	items := []resolve.Mention{
		mentionAt(t, text, "ribeye steak", "ribeye-steak"),
		mentionAt(t, text, "buffalo wings", "buffalo-wings"),
	}

	orders := Distribute(items, "Jim Smith", 2, []string{"SpongeBob"}, text)
	require.Len(t, orders, 2)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "ribeye-steak", orders[0].Items[0].ItemID)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "buffalo-wings", orders[1].Items[0].ItemID)
}

func TestDistributeRoundRobinWithoutNames(t *testing.T) {
	text := "We'll have the Caesar Salad, the Loaded Nachos, and the Iced Tea."
	items := []resolve.Mention{
		mentionAt(t, text, "Caesar Salad", "caesar-salad"),
		mentionAt(t, text, "Loaded Nachos", "loaded-nachos"),
		mentionAt(t, text, "Iced Tea", "iced-tea"),
	}

	orders := Distribute(items, "Alice Munro", 2, nil, text)
	require.Len(t, orders, 2)

	assert.Equal(t, "Alice Munro", orders[0].PersonName)
	assert.Equal(t, "Guest 2", orders[1].PersonName)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, "caesar-salad", orders[0].Items[0].ItemID)
	assert.Equal(t, "iced-tea", orders[0].Items[1].ItemID)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "loaded-nachos", orders[1].Items[0].ItemID)
}

func TestDistributeFarNameDoesNotBind(t *testing.T) {
	filler := strings.Repeat("we were thinking about dessert as well ", 2)
	text := "We would like the Ribeye Steak. " + filler + "Jim is parking the car."
	items := []resolve.Mention{mentionAt(t, text, "Ribeye Steak", "ribeye-steak")}

	orders := Distribute(items, "Sarah Lee", 2, []string{"Jim"}, text)
	require.Len(t, orders, 2)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Sarah Lee", orders[0].PersonName)
	assert.Empty(t, orders[1].Items)
}

func TestDistributePadsRosterToPartySize(t *testing.T) {
	orders := Distribute(nil, "Jim Smith", 4, []string{"Sarah"}, "")
	require.Len(t, orders, 4)

	assert.Equal(t, "Jim Smith", orders[0].PersonName)
	assert.Equal(t, "Sarah", orders[1].PersonName)
	assert.Equal(t, "Guest 3", orders[2].PersonName)
	assert.Equal(t, "Guest 4", orders[3].PersonName)
	for _, o := range orders {
		assert.NotNil(t, o.Items)
		assert.Empty(t, o.Items)
	}
}

func TestDistributeKeepsNamedOverflow(t *testing.T) {
	orders := Distribute(nil, "Jim Smith", 2, []string{"Sarah", "Tom"}, "")
	require.Len(t, orders, 3)
	assert.Equal(t, "Tom", orders[2].PersonName)
}

func TestDistributeEmptyPrimaryUsesPlaceholder(t *testing.T) {
	orders := Distribute(nil, "  ", 1, nil, "")
	require.Len(t, orders, 1)
	assert.Equal(t, "Guest", orders[0].PersonName)
}

func BenchmarkDistribute(b *testing.B) {
	text := "Hi, party of two for tonight, Jim Smith and SpongeBob. Jim wants the Ribeye Steak, SpongeBob wants the Buffalo Wings."
	items := []resolve.Mention{
		{Text: "Ribeye Steak", ItemID: "ribeye-steak", Quantity: 1, Start: strings.Index(text, "Ribeye Steak"), End: strings.Index(text, "Ribeye Steak") + len("Ribeye Steak")},
		{Text: "Buffalo Wings", ItemID: "buffalo-wings", Quantity: 1, Start: strings.Index(text, "Buffalo Wings"), End: strings.Index(text, "Buffalo Wings") + len("Buffalo Wings")},
	}
	additional := []string{"SpongeBob"}
	for b.Loop() {
		Distribute(items, "Jim Smith", 2, additional, text)
	}
}
