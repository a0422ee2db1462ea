package payment

import (
	"fmt"
	"strings"

	internal "github.com/tabletalkhq/tabletalk/ttk"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// RenderBill lays out the itemized pre-order bill for one reservation and
// closes with the pay-now question that arms the next turn's answer.
func RenderBill(res *ports.Reservation, due int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's the bill for reservation #%s:\n", res.Number)

	for _, o := range res.Orders {
		if len(o.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", o.PersonName)
		for _, it := range o.Items {
			if it.Quantity > 1 {
				fmt.Fprintf(&b, "  %dx %s (%s each)\n", it.Quantity, it.Name, internal.FormatCents(it.PriceCents))
			} else {
				fmt.Fprintf(&b, "  1x %s (%s)\n", it.Name, internal.FormatCents(it.PriceCents))
			}
		}
	}

	fmt.Fprintf(&b, "Your total is %s. Would you like to pay now?", internal.FormatCents(due))
	return b.String()
}

// totalDue is the outstanding balance: the sum of the linked order totals.
func totalDue(res *ports.Reservation) int64 {
	var due int64
	for _, o := range res.Orders {
		due += o.TotalCents
	}
	return due
}
