package reconcile

import (
	"fmt"
	"strings"
	"time"

	internal "github.com/tabletalkhq/tabletalk/ttk"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
	"github.com/tabletalkhq/tabletalk/ttk/party"
)

// RenderSummary builds the itemized read-back for a draft. The closing
// question is a confirmation cue, so a bare "yes" on the next turn counts.
func RenderSummary(d *Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Let me read that back. Table for %d under %s on %s.",
		d.Signals.PartySize, d.Signals.Name, renderWhen(d.Signals.Date, d.Signals.Time))

	if d.TableOnly {
		b.WriteString(" No pre-order, you'll order at the table.")
	} else {
		for _, po := range d.Orders {
			if len(po.Items) == 0 {
				continue
			}
			fmt.Fprintf(&b, " %s: %s.", po.PersonName, renderItems(po))
		}
		if d.TotalCents > 0 {
			fmt.Fprintf(&b, " That comes to %s.", internal.FormatCents(d.TotalCents))
		}
	}
	if d.Signals.SpecialRequests != "" {
		fmt.Fprintf(&b, " Noted: %s.", d.Signals.SpecialRequests)
	}
	b.WriteString(" Is that correct?")
	return b.String()
}

// RenderCommitted is the success read-back after the reservation persists.
func RenderCommitted(res *ports.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You're all set! Reservation #%s for %d under %s on %s.",
		res.Number, res.PartySize, res.Name, renderStart(res.StartAt))

	var total int64
	for _, o := range res.Orders {
		total += o.TotalCents
	}
	if total > 0 {
		fmt.Fprintf(&b, " Your pre-order total is %s, payable at the restaurant or by card now.",
			internal.FormatCents(total))
	}
	b.WriteString(" See you then!")
	return b.String()
}

// menuBriefPerCategory bounds how many items are spoken per category; a
// phone menu read-back has to stay short.
const menuBriefPerCategory = 3

// RenderMenuBrief speaks an abridged menu: each category with a few of its
// available items and prices, in deterministic catalog order.
func RenderMenuBrief(cache *menu.Cache) string {
	idx := menu.NewIndex(cache)
	cats := idx.Categories()
	if len(cats) == 0 {
		return "I'm sorry, I can't pull up the menu right now. Would you like to just book the table?"
	}

	var b strings.Builder
	b.WriteString("Here's a taste of our menu.")
	for _, cat := range cats {
		items := idx.AvailableInCategory(cat)
		if len(items) == 0 {
			continue
		}
		if len(items) > menuBriefPerCategory {
			items = items[:menuBriefPerCategory]
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, fmt.Sprintf("%s (%s)", item.Name, internal.FormatCents(item.PriceCents)))
		}
		fmt.Fprintf(&b, " For %s: %s.", speakCategory(cat), strings.Join(parts, ", "))
	}
	b.WriteString(" Would you like to pre-order anything?")
	return b.String()
}

// speakCategory turns a catalog category slug into spoken words.
func speakCategory(cat string) string {
	return strings.ReplaceAll(cat, "-", " ")
}

func renderItems(po party.PersonOrder) string {
	parts := make([]string, 0, len(po.Items))
	for _, item := range po.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		if qty == 1 {
			parts = append(parts, fmt.Sprintf("1x %s (%s)", item.ItemName, internal.FormatCents(item.PriceCents)))
		} else {
			parts = append(parts, fmt.Sprintf("%dx %s (%s each)", qty, item.ItemName, internal.FormatCents(item.PriceCents)))
		}
	}
	return strings.Join(parts, ", ")
}

func renderWhen(date, clock string) string {
	start, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		return strings.TrimSpace(date + " at " + clock)
	}
	return start.Format("Monday, January 2 at 3:04 PM")
}

func renderStart(start time.Time) string {
	return start.Format("Monday, January 2 at 3:04 PM")
}
