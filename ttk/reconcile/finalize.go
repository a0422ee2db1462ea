package reconcile

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/party"
)

// numberDraws bounds identifier redraws before giving up. Uniqueness is
// ultimately enforced by the store's transactional insert; the redraw loop
// just avoids obvious collisions up front.
const numberDraws = 5

// Finalize is the commit step. It re-derives everything from the full
// transcript rather than trusting earlier per-turn assignments, validates
// the start time, generates identifiers, and persists the reservation with
// all orders and items atomically. Calling it again on a committed draft
// returns the persisted record unchanged.
func (m *Machine) Finalize(ctx context.Context, draft *Draft, turns []ports.ConversationTurn, callerLine string) (*ports.Reservation, error) {
	if draft.State == StateCommitted && draft.ReservationNumber != "" {
		return m.store.GetReservation(ctx, draft.ReservationNumber)
	}

	draft.Signals = m.extractor.Extract(turns, draft.Signals)
	if draft.Signals.Phone == "" && callerLine != "" {
		draft.Signals.Phone = callerLine
	}
	m.RebuildOrders(ctx, draft, turns)

	return m.CommitDraft(ctx, draft)
}

// CommitDraft validates and persists the draft exactly as it stands, with
// no transcript re-derivation. Runtime tool calls that supply structured
// fields and orders commit through here; Finalize is the transcript path.
// Idempotent once the draft records its reservation number.
func (m *Machine) CommitDraft(ctx context.Context, draft *Draft) (*ports.Reservation, error) {
	if draft.State == StateCommitted && draft.ReservationNumber != "" {
		return m.store.GetReservation(ctx, draft.ReservationNumber)
	}

	if missing := draft.MissingFields(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	now := time.Now().In(m.loc)
	start, err := ResolveStart(draft.Signals.Date, draft.Signals.Time, now, m.loc, m.cfg.GraceBuffer)
	if err != nil {
		return nil, err
	}

	draft.RecomputeTotal()

	res := &ports.Reservation{
		Name:            draft.Signals.Name,
		Phone:           draft.Signals.Phone,
		PartySize:       draft.Signals.PartySize,
		StartAt:         start.UTC(),
		SpecialRequests: draft.Signals.SpecialRequests,
		Status:          ports.ReservationConfirmed,
		TableOnly:       draft.TableOnly,
	}
	res.Number, err = m.uniqueNumber(ctx, m.store.ReservationNumberExists)
	if err != nil {
		return nil, err
	}

	res.Orders = OrdersFromDraft(draft.Orders)
	for i := range res.Orders {
		res.Orders[i].Number, err = m.uniqueNumber(ctx, m.store.OrderNumberExists)
		if err != nil {
			return nil, err
		}
	}

	if err := m.store.CreateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	draft.State = StateCommitted
	draft.ReservationNumber = res.Number
	m.logger.Info().
		Str("reservation", res.Number).
		Int("party", res.PartySize).
		Int("orders", len(res.Orders)).
		Int64("total_cents", draft.TotalCents).
		Msg("reservation committed")
	return res, nil
}

// uniqueNumber draws 6-digit identifiers until one is free in the store.
func (m *Machine) uniqueNumber(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < numberDraws; i++ {
		number, err := randomNumber()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check number %s: %w", number, err)
		}
		if !taken {
			return number, nil
		}
		m.logger.Debug().Str("number", number).Msg("identifier collision, redrawing")
	}
	return "", fmt.Errorf("no free identifier in %d draws", numberDraws)
}

// randomNumber draws uniformly from 100000 through 999999.
func randomNumber() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("draw identifier: %w", err)
	}
	n := 100000 + binary.BigEndian.Uint32(buf[:])%900000
	return strconv.Itoa(int(n)), nil
}

// OrdersFromDraft converts person orders to persistable rows without
// identifiers, for callers that assemble reservations directly.
func OrdersFromDraft(orders []party.PersonOrder) []ports.Order {
	out := make([]ports.Order, 0, len(orders))
	for _, po := range orders {
		if len(po.Items) == 0 {
			continue
		}
		order := ports.Order{PersonName: po.PersonName, Status: ports.OrderPending}
		for _, item := range po.Items {
			qty := item.Quantity
			if qty < 1 {
				qty = 1
			}
			order.Items = append(order.Items, ports.OrderItem{
				MenuItemID: item.ItemID,
				Name:       item.ItemName,
				Quantity:   qty,
				PriceCents: item.PriceCents,
			})
			order.TotalCents += int64(qty) * item.PriceCents
		}
		out = append(out, order)
	}
	return out
}
