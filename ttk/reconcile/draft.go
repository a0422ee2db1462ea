// Package reconcile drives one call session from loose conversational
// signals to a committed reservation: collect facts and items, read back an
// itemized summary, and persist only after the caller explicitly agrees.
package reconcile

import (
	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/party"
)

// State is the reconciliation workflow position for one call session.
type State string

const (
	StateCollecting State = "collecting"
	StateAwaiting   State = "awaiting_order_confirmation"
	StateConfirmed  State = "confirmed"
	StateCommitted  State = "committed"
	StateCancelled  State = "cancelled"
	StateError      State = "error"
)

// Draft is the in-memory reservation being negotiated. It is owned by one
// call session, rides the runtime's session metadata blob between turns, and
// is discarded on commit, cancel, or session end.
type Draft struct {
	Signals           extract.Signals     `json:"signals"`
	Orders            []party.PersonOrder `json:"orders,omitempty"`
	State             State               `json:"state"`
	TotalCents        int64               `json:"total_cents"`
	ConfirmAttempts   int                 `json:"confirm_attempts"`
	TableOnly         bool                `json:"table_only,omitempty"`
	ReservationNumber string              `json:"reservation_number,omitempty"`
}

// NewDraft starts a session in the collecting state.
func NewDraft() *Draft {
	return &Draft{State: StateCollecting}
}

// RecomputeTotal sums quantity times unit price across all person orders.
func (d *Draft) RecomputeTotal() {
	var total int64
	for _, po := range d.Orders {
		for _, item := range po.Items {
			qty := item.Quantity
			if qty < 1 {
				qty = 1
			}
			total += int64(qty) * item.PriceCents
		}
	}
	d.TotalCents = total
}

// HasItems reports whether anyone in the party ordered something.
func (d *Draft) HasItems() bool {
	for _, po := range d.Orders {
		if len(po.Items) > 0 {
			return true
		}
	}
	return false
}

// MissingFields lists reservation fields still needed before a summary can
// be read back. Phone is not required here: the caller line id fills it.
func (d *Draft) MissingFields() []string {
	var missing []string
	if d.Signals.Name == "" {
		missing = append(missing, "name")
	}
	if d.Signals.PartySize == 0 {
		missing = append(missing, "party size")
	}
	if d.Signals.Date == "" {
		missing = append(missing, "date")
	}
	if d.Signals.Time == "" {
		missing = append(missing, "time")
	}
	return missing
}

// ReadyForSummary reports whether the draft can move to the confirmation
// read-back: all reservation fields present, plus either at least one item
// or an explicit table-only decision.
func (d *Draft) ReadyForSummary() bool {
	if len(d.MissingFields()) > 0 {
		return false
	}
	return d.TableOnly || d.HasItems()
}
