package notify

import (
	"fmt"
	"strings"
	"time"

	internal "github.com/tabletalkhq/tabletalk/ttk"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// seatingWindow is how long a table stays blocked on the venue calendar.
const seatingWindow = 2 * time.Hour

// smsFooter closes every outbound text. Carriers require the opt-out line.
const smsFooter = "Reply STOP to stop."

// ConfirmationSMS renders the booking text: reservation details, per-person
// pre-orders when any exist, and the running total.
func ConfirmationSMS(res *ports.Reservation, venue string, loc *time.Location) string {
	start := res.StartAt.In(loc)
	var b strings.Builder
	fmt.Fprintf(&b, "%s reservation confirmed!\n\n", venue)
	fmt.Fprintf(&b, "Name: %s\n", res.Name)
	fmt.Fprintf(&b, "Date: %s\n", start.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Time: %s\n", clock12(start))
	fmt.Fprintf(&b, "Party Size: %d %s\n", res.PartySize, partyWord(res.PartySize))
	fmt.Fprintf(&b, "Reservation #: %s\n", res.Number)
	if res.SpecialRequests != "" {
		fmt.Fprintf(&b, "Special Requests: %s\n", res.SpecialRequests)
	}
	writeOrderLines(&b, res)
	fmt.Fprintf(&b, "\nWe look forward to serving you!\n%s", smsFooter)
	return b.String()
}

// ReceiptSMS renders the payment receipt text sent after a gateway success.
func ReceiptSMS(res *ports.Reservation, amountCents int64, confirmation, venue string, loc *time.Location) string {
	start := res.StartAt.In(loc)
	var b strings.Builder
	fmt.Fprintf(&b, "%s payment received!\n\n", venue)
	if confirmation != "" {
		fmt.Fprintf(&b, "Confirmation: %s\n", confirmation)
	}
	fmt.Fprintf(&b, "Amount Paid: %s\n\n", internal.FormatCents(amountCents))
	fmt.Fprintf(&b, "Reservation #: %s\n", res.Number)
	fmt.Fprintf(&b, "Name: %s\n", res.Name)
	fmt.Fprintf(&b, "Date: %s\n", start.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Time: %s\n", clock12(start))
	fmt.Fprintf(&b, "Party Size: %d %s\n", res.PartySize, partyWord(res.PartySize))
	fmt.Fprintf(&b, "\nThank you, see you soon!\n%s", smsFooter)
	return b.String()
}

// UpdateSMS renders the change notice sent after a reservation edit.
func UpdateSMS(res *ports.Reservation, venue string, loc *time.Location) string {
	start := res.StartAt.In(loc)
	var b strings.Builder
	fmt.Fprintf(&b, "%s reservation updated.\n\n", venue)
	fmt.Fprintf(&b, "Reservation #: %s\n", res.Number)
	fmt.Fprintf(&b, "Name: %s\n", res.Name)
	fmt.Fprintf(&b, "Date: %s\n", start.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Time: %s\n", clock12(start))
	fmt.Fprintf(&b, "Party Size: %d %s\n", res.PartySize, partyWord(res.PartySize))
	if res.SpecialRequests != "" {
		fmt.Fprintf(&b, "Special Requests: %s\n", res.SpecialRequests)
	}
	writeOrderLines(&b, res)
	fmt.Fprintf(&b, "\n%s", smsFooter)
	return b.String()
}

// CancelSMS renders the cancellation notice.
func CancelSMS(res *ports.Reservation, venue string, loc *time.Location) string {
	start := res.StartAt.In(loc)
	var b strings.Builder
	fmt.Fprintf(&b, "%s reservation cancelled.\n\n", venue)
	fmt.Fprintf(&b, "Reservation #: %s\n", res.Number)
	fmt.Fprintf(&b, "Name: %s\n", res.Name)
	fmt.Fprintf(&b, "Date: %s at %s\n", start.Format("Monday, January 2, 2006"), clock12(start))
	fmt.Fprintf(&b, "\nWe hope to see you another time.\n%s", smsFooter)
	return b.String()
}

// CalendarEvent is the payload posted to the venue calendar collaborator.
// Start and End are RFC 3339 in the restaurant zone.
type CalendarEvent struct {
	Title             string `json:"title"`
	Start             string `json:"start"`
	End               string `json:"end"`
	PartySize         int    `json:"party_size"`
	Phone             string `json:"phone"`
	ReservationNumber string `json:"reservation_number"`
	SpecialRequests   string `json:"special_requests,omitempty"`
}

// NewCalendarEvent builds the calendar entry for a committed reservation.
func NewCalendarEvent(res *ports.Reservation, loc *time.Location) CalendarEvent {
	start := res.StartAt.In(loc)
	return CalendarEvent{
		Title:             fmt.Sprintf("%s (%d %s)", res.Name, res.PartySize, partyWord(res.PartySize)),
		Start:             start.Format(time.RFC3339),
		End:               start.Add(seatingWindow).Format(time.RFC3339),
		PartySize:         res.PartySize,
		Phone:             res.Phone,
		ReservationNumber: res.Number,
		SpecialRequests:   res.SpecialRequests,
	}
}

func writeOrderLines(b *strings.Builder, res *ports.Reservation) {
	var total int64
	var lines []string
	for _, o := range res.Orders {
		if len(o.Items) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s:", o.PersonName))
		for _, it := range o.Items {
			qty := it.Quantity
			if qty < 1 {
				qty = 1
			}
			lines = append(lines, fmt.Sprintf("  %dx %s (%s)", qty, it.Name, internal.FormatCents(it.PriceCents)))
			total += int64(qty) * it.PriceCents
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("\nPre-order:\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "Total: %s\n", internal.FormatCents(total))
}

func clock12(t time.Time) string {
	return t.Format("3:04 PM")
}

func partyWord(n int) string {
	if n == 1 {
		return "person"
	}
	return "people"
}
