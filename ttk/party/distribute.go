// Package party splits resolved order items across the people in a
// reservation. Companion names are mined from the transcript, items spoken
// next to a name bind to that person, and whatever remains is dealt
// round-robin so every seat ends up with an order entry.
package party

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/resolve"
)

// PersonOrder holds the items assigned to one member of the party.
type PersonOrder struct {
	PersonName string            `json:"person_name"`
	Items      []resolve.Mention `json:"items"`
}

// proximityWindow is how many bytes of transcript may separate a name from
// an item mention before the two stop counting as "spoken together".
const proximityWindow = 48

// Distribute assigns item mentions to people. Mentions must carry offsets
// into text, so extract them from the same string. Assignment runs in three
// passes: a mention adjacent to someone's name binds to that person, unbound
// mentions go round-robin across the roster, and the roster is padded with
// "Guest N" placeholders up to partySize so every seat gets an entry.
func Distribute(items []resolve.Mention, primaryName string, partySize int, additionalNames []string, text string) []PersonOrder {
	named := 1 + len(additionalNames)
	roster := buildRoster(primaryName, partySize, additionalNames)

	orders := make([]PersonOrder, len(roster))
	for i, name := range roster {
		orders[i] = PersonOrder{PersonName: name, Items: []resolve.Mention{}}
	}

	sites := nameSites(text, roster[:named])
	next := 0
	for _, item := range items {
		person, bound := nearestPerson(item, sites, text)
		if !bound {
			person = next % len(roster)
			next++
		}
		orders[person].Items = append(orders[person].Items, item)
	}
	return orders
}

func buildRoster(primaryName string, partySize int, additionalNames []string) []string {
	if strings.TrimSpace(primaryName) == "" {
		primaryName = extract.PlaceholderName
	}
	roster := append([]string{primaryName}, additionalNames...)
	for len(roster) < partySize {
		roster = append(roster, fmt.Sprintf("Guest %d", len(roster)+1))
	}
	return roster
}

// site is one occurrence of a person's name in the transcript.
type site struct {
	start  int
	end    int
	person int
}

// nameSites locates every occurrence of each roster name. Multi-word names
// are also matched by first name alone, since callers say "Jim wants the
// Ribeye" after introducing Jim Smith.
func nameSites(text string, roster []string) []site {
	var sites []site
	for person, name := range roster {
		keys := []string{strings.ToLower(name)}
		if fields := strings.Fields(keys[0]); len(fields) > 1 {
			keys = append(keys, fields[0])
		}
		for _, key := range keys {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(key) + `\b`)
			if err != nil {
				continue
			}
			for _, loc := range re.FindAllStringIndex(text, -1) {
				sites = append(sites, site{start: loc[0], end: loc[1], person: person})
			}
		}
	}
	return sites
}

// connectorGapRe matches the text allowed between an item and a name spoken
// after it: "buffalo wings for SpongeBob" binds, "Ribeye and SpongeBob"
// does not, because "and" starts SpongeBob's own order.
var connectorGapRe = regexp.MustCompile(`^[\s,]*(?:is\s+)?(?:for|goes\s+to)\s*$`)

// nearestPerson picks the name occurrence that claims an item. A name
// anywhere before the mention competes on distance; a name after it counts
// only when joined by an explicit connector like "for".
func nearestPerson(item resolve.Mention, sites []site, text string) (int, bool) {
	person, best := -1, proximityWindow+1
	for _, s := range sites {
		switch {
		case s.end <= item.Start:
			if d := item.Start - s.end; d < best {
				best, person = d, s.person
			}
		case s.start >= item.End:
			d := s.start - item.End
			if d < best && connectorGapRe.MatchString(text[item.End:s.start]) {
				best, person = d, s.person
			}
		}
	}
	if person >= 0 {
		return person, true
	}
	return 0, false
}
