package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tabletalkhq/tabletalk/ttk/engine/adapters"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
	"github.com/tabletalkhq/tabletalk/ttk/party"
	"github.com/tabletalkhq/tabletalk/ttk/payment"
	"github.com/tabletalkhq/tabletalk/ttk/reconcile"
	"github.com/tabletalkhq/tabletalk/ttk/resolve"
)

// Sentinel errors for direct operations.
var (
	ErrNoCriteria = errors.New("lookup needs a number, name, phone, or date")
	ErrBadNumber  = errors.New("identifier must be six digits")
	ErrBadStatus  = errors.New("order status moves pending to preparing to ready")
)

// ValidationError reports an argument the engine refused.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// OrderItemArgs is one structured pre-order line in a direct create.
type OrderItemArgs struct {
	Name     string
	Quantity int
}

// PartyOrderArgs groups structured pre-order lines under one person.
type PartyOrderArgs struct {
	PersonName string
	Items      []OrderItemArgs
}

// CreateReservationArgs is a direct booking request from the runtime's tool
// layer. Explicit fields win over anything extracted from Turns; the
// transcript only fills gaps. Date is YYYY-MM-DD, Time is 24-hour HH:MM.
type CreateReservationArgs struct {
	Name            string
	Phone           string
	PartySize       int
	Date            string
	Time            string
	SpecialRequests string
	TableOnly       bool
	Orders          []PartyOrderArgs
	Turns           []ports.ConversationTurn
	CallerLine      string
}

// CreateReservation books directly, without the conversational confirmation
// loop. Structured Orders take precedence over transcript item mentions;
// with neither, the booking persists as table-only.
func (e *Engine) CreateReservation(ctx context.Context, args CreateReservationArgs) (*ports.Reservation, error) {
	ctx, finish := e.tracer.StartSpan(ctx, "create_reservation", map[string]any{"party": args.PartySize})
	var opErr error
	defer func() { finish(opErr) }()

	draft := reconcile.NewDraft()
	draft.Signals = e.extractor.Extract(args.Turns, extract.Signals{})

	if args.Name != "" {
		draft.Signals.Name = args.Name
	}
	if args.Phone != "" {
		phone, ok := extract.NormalizePhone(args.Phone, e.areaCode)
		if !ok {
			opErr = &ValidationError{Field: "phone", Reason: fmt.Sprintf("%q is not a usable phone number", args.Phone)}
			return nil, opErr
		}
		draft.Signals.Phone = phone
	}
	if args.PartySize != 0 {
		if args.PartySize < 1 || args.PartySize > e.maxParty {
			opErr = &ValidationError{Field: "party_size", Reason: fmt.Sprintf("must be between 1 and %d", e.maxParty)}
			return nil, opErr
		}
		draft.Signals.PartySize = args.PartySize
	}
	if args.Date != "" {
		draft.Signals.Date = args.Date
	}
	if args.Time != "" {
		draft.Signals.Time = args.Time
	}
	if args.SpecialRequests != "" {
		draft.Signals.SpecialRequests = args.SpecialRequests
	}
	if draft.Signals.Phone == "" && args.CallerLine != "" {
		draft.Signals.Phone = args.CallerLine
	}

	if len(args.Orders) > 0 {
		draft.Orders = e.resolveStructuredOrders(ctx, args.Orders)
	} else if len(args.Turns) > 0 {
		e.machine.RebuildOrders(ctx, draft, args.Turns)
	}
	draft.TableOnly = args.TableOnly || !draft.HasItems()

	res, err := e.machine.CommitDraft(ctx, draft)
	if err != nil {
		opErr = err
		return nil, err
	}
	e.notify.ReservationConfirmed(res)
	return res, nil
}

// resolveStructuredOrders matches structured item names against the menu.
// Unknown items are logged and dropped rather than failing the booking.
func (e *Engine) resolveStructuredOrders(ctx context.Context, orders []PartyOrderArgs) []party.PersonOrder {
	cache := e.menus.Current(ctx)
	out := make([]party.PersonOrder, 0, len(orders))
	for _, po := range orders {
		person := party.PersonOrder{PersonName: po.PersonName, Items: []resolve.Mention{}}
		for _, line := range po.Items {
			item, ok := e.resolver.Resolve(line.Name, cache)
			if !ok {
				e.logger.Warn().Str("item", line.Name).Msg("pre-order item not on the menu, dropped")
				continue
			}
			qty := line.Quantity
			if qty < 1 {
				qty = 1
			}
			person.Items = append(person.Items, resolve.Mention{
				Text:       line.Name,
				ItemID:     item.ID,
				ItemName:   item.Name,
				Quantity:   qty,
				PriceCents: item.PriceCents,
			})
		}
		out = append(out, person)
	}
	return out
}

// LookupArgs selects reservations by any mix of criteria. Number may be
// spoken digit words; Name matches as a case-insensitive substring; Date is
// one calendar day, From/To an inclusive day range, all in the restaurant
// zone.
type LookupArgs struct {
	Number string
	Name   string
	Phone  string
	Date   string
	From   string
	To     string
}

// LookupReservation finds reservations flexibly. A number miss returns an
// empty result, not an error, so the conversational layer can apologize.
func (e *Engine) LookupReservation(ctx context.Context, args LookupArgs) ([]ports.Reservation, error) {
	if args.Number != "" {
		number, err := sixDigits(args.Number)
		if err != nil {
			return nil, err
		}
		res, err := e.store.GetReservation(ctx, number)
		if errors.Is(err, adapters.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("lookup reservation %s: %w", number, err)
		}
		return []ports.Reservation{*res}, nil
	}

	var f ports.ReservationFilter
	f.NameLike = strings.TrimSpace(args.Name)
	if args.Phone != "" {
		phone, ok := extract.NormalizePhone(args.Phone, e.areaCode)
		if !ok {
			return nil, &ValidationError{Field: "phone", Reason: fmt.Sprintf("%q is not a usable phone number", args.Phone)}
		}
		f.Phone = phone
	}

	switch {
	case args.Date != "":
		day, err := e.parseDay(args.Date, "date")
		if err != nil {
			return nil, err
		}
		f.From = day.UTC()
		f.To = day.AddDate(0, 0, 1).UTC()
	case args.From != "" || args.To != "":
		if args.From != "" {
			day, err := e.parseDay(args.From, "from")
			if err != nil {
				return nil, err
			}
			f.From = day.UTC()
		}
		if args.To != "" {
			day, err := e.parseDay(args.To, "to")
			if err != nil {
				return nil, err
			}
			f.To = day.AddDate(0, 0, 1).UTC()
		}
	}

	if f.NameLike == "" && f.Phone == "" && f.From.IsZero() && f.To.IsZero() {
		return nil, ErrNoCriteria
	}
	return e.store.FindReservations(ctx, f)
}

// UpdateReservationArgs carries the fields to change; zero values are left
// alone. Date is YYYY-MM-DD and Time 24-hour HH:MM, as in creation.
type UpdateReservationArgs struct {
	Number          string
	Name            string
	Phone           string
	PartySize       int
	Date            string
	Time            string
	SpecialRequests string
}

// UpdateReservation edits a persisted reservation. Date or time changes go
// back through temporal validation, so an update can never move a booking
// into the past.
func (e *Engine) UpdateReservation(ctx context.Context, args UpdateReservationArgs) (*ports.Reservation, error) {
	number, err := sixDigits(args.Number)
	if err != nil {
		return nil, err
	}
	res, err := e.store.GetReservation(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load reservation %s: %w", number, err)
	}
	if res.Status == ports.ReservationCancelled {
		return nil, &ValidationError{Field: "number", Reason: "reservation is cancelled"}
	}

	if args.Name != "" {
		res.Name = args.Name
	}
	if args.Phone != "" {
		phone, ok := extract.NormalizePhone(args.Phone, e.areaCode)
		if !ok {
			return nil, &ValidationError{Field: "phone", Reason: fmt.Sprintf("%q is not a usable phone number", args.Phone)}
		}
		res.Phone = phone
	}
	if args.PartySize != 0 {
		if args.PartySize < 1 || args.PartySize > e.maxParty {
			return nil, &ValidationError{Field: "party_size", Reason: fmt.Sprintf("must be between 1 and %d", e.maxParty)}
		}
		res.PartySize = args.PartySize
	}
	if args.SpecialRequests != "" {
		res.SpecialRequests = args.SpecialRequests
	}

	if args.Date != "" || args.Time != "" {
		existing := res.StartAt.In(e.loc)
		date := args.Date
		if date == "" {
			date = existing.Format("2006-01-02")
		}
		clock := args.Time
		if clock == "" {
			clock = existing.Format("15:04")
		}
		start, err := reconcile.ResolveStart(date, clock, time.Now().In(e.loc), e.loc, e.grace)
		if err != nil {
			return nil, err
		}
		res.StartAt = start.UTC()
	}

	if err := e.store.UpdateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("update reservation %s: %w", number, err)
	}
	e.logger.Info().Str("reservation", number).Msg("reservation updated")
	e.notify.ReservationUpdated(res)
	return res, nil
}

// CancelReservation cancels by number. Cancelling an already cancelled
// reservation returns it unchanged and sends nothing.
func (e *Engine) CancelReservation(ctx context.Context, rawNumber string) (*ports.Reservation, error) {
	number, err := sixDigits(rawNumber)
	if err != nil {
		return nil, err
	}
	res, err := e.store.GetReservation(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load reservation %s: %w", number, err)
	}
	if res.Status == ports.ReservationCancelled {
		return res, nil
	}
	if err := e.store.CancelReservation(ctx, number); err != nil {
		return nil, fmt.Errorf("cancel reservation %s: %w", number, err)
	}
	res.Status = ports.ReservationCancelled
	e.logger.Info().Str("reservation", number).Msg("reservation cancelled")
	e.notify.ReservationCancelled(res)
	return res, nil
}

// UpdateOrderStatus moves one person's order a single step through the
// kitchen workflow. Re-asserting the current status is a no-op.
func (e *Engine) UpdateOrderStatus(ctx context.Context, rawNumber, status string) (*ports.Order, error) {
	number, err := sixDigits(rawNumber)
	if err != nil {
		return nil, err
	}
	order, err := e.store.GetOrder(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", number, err)
	}
	if status == order.Status {
		return order, nil
	}
	if nextOrderStatus(order.Status) != status {
		return nil, fmt.Errorf("%s to %s: %w", order.Status, status, ErrBadStatus)
	}
	if err := e.store.UpdateOrderStatus(ctx, number, status); err != nil {
		return nil, fmt.Errorf("update order %s: %w", number, err)
	}
	order.Status = status
	e.logger.Info().Str("order", number).Str("status", status).Msg("order status advanced")
	return order, nil
}

func nextOrderStatus(current string) string {
	switch current {
	case ports.OrderPending:
		return ports.OrderPreparing
	case ports.OrderPreparing:
		return ports.OrderReady
	}
	return ""
}

// ListReservationsBetween returns reservations with a start inside [from, to).
func (e *Engine) ListReservationsBetween(ctx context.Context, from, to time.Time) ([]ports.Reservation, error) {
	return e.store.FindReservations(ctx, ports.ReservationFilter{From: from.UTC(), To: to.UTC()})
}

// BrowseMenu lists available items, optionally limited to one category.
func (e *Engine) BrowseMenu(ctx context.Context, category string) []ports.MenuItem {
	idx := menu.NewIndex(e.menus.Current(ctx))
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return idx.Available()
	}
	return idx.AvailableInCategory(category)
}

// StartPayment opens or advances the payment sub-protocol for a call. The
// reservation number is optional; when absent the coordinator derives it
// from the call's draft or transcript.
func (e *Engine) StartPayment(ctx context.Context, callID, rawNumber, callerPhone string, turns []ports.ConversationTurn) (payment.Result, error) {
	var number string
	if rawNumber != "" {
		var err error
		number, err = sixDigits(rawNumber)
		if err != nil {
			return payment.Result{}, err
		}
	}
	return e.payments.Advance(ctx, payment.Request{
		CallID:            callID,
		ReservationNumber: number,
		CallerPhone:       callerPhone,
		Turns:             turns,
	})
}

// CheckPaymentCompletion reports the call's payment outcome without
// advancing the sub-protocol.
func (e *Engine) CheckPaymentCompletion(ctx context.Context, callID string) (payment.Result, error) {
	return e.payments.CheckCompletion(ctx, callID)
}

// StartCallbacks subscribes the engine to asynchronous gateway results.
// Call once at startup; the subscription lives until ctx is cancelled.
func (e *Engine) StartCallbacks(ctx context.Context) error {
	return e.gateway.Subscribe(ctx, e.handleGatewayResult)
}

// SweepPaymentSessions evicts payment sessions older than the configured
// TTL, for a periodic runtime job.
func (e *Engine) SweepPaymentSessions(ctx context.Context) (int, error) {
	return e.payments.SweepExpired(ctx)
}

// sixDigits normalizes a caller-facing identifier: literal digits, spoken
// digit words, or a mix, anywhere in the raw string.
func sixDigits(raw string) (string, error) {
	digits := extract.SpokenDigitRun(raw)
	if len(digits) != 6 {
		return "", fmt.Errorf("%q: %w", raw, ErrBadNumber)
	}
	return digits, nil
}

func (e *Engine) parseDay(value, field string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", value, e.loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", value)}
	}
	return day, nil
}
