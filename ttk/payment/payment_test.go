package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	"github.com/tabletalkhq/tabletalk/ttk/engine/adapters"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

type fakeStore struct {
	reservations map[string]*ports.Reservation
	getErr       error
	markErr      error
}

func newFakeStore(res ...*ports.Reservation) *fakeStore {
	s := &fakeStore{reservations: make(map[string]*ports.Reservation)}
	for _, r := range res {
		s.reservations[r.Number] = r
	}
	return s
}

func (s *fakeStore) ListMenuItems(ctx context.Context) ([]ports.MenuItem, error) { return nil, nil }
func (s *fakeStore) UpsertMenuItems(ctx context.Context, items []ports.MenuItem) error {
	return nil
}
func (s *fakeStore) CreateReservation(ctx context.Context, res *ports.Reservation) error {
	s.reservations[res.Number] = res
	return nil
}

func (s *fakeStore) GetReservation(ctx context.Context, number string) (*ports.Reservation, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	res, ok := s.reservations[number]
	if !ok {
		return nil, errors.New("reservation not found")
	}
	return res, nil
}

func (s *fakeStore) FindReservations(ctx context.Context, f ports.ReservationFilter) ([]ports.Reservation, error) {
	return nil, nil
}
func (s *fakeStore) UpdateReservation(ctx context.Context, res *ports.Reservation) error { return nil }
func (s *fakeStore) CancelReservation(ctx context.Context, number string) error          { return nil }

func (s *fakeStore) MarkReservationPaid(ctx context.Context, number, confirmationNumber string, amountCents int64) error {
	if s.markErr != nil {
		return s.markErr
	}
	res, ok := s.reservations[number]
	if !ok {
		return errors.New("reservation not found")
	}
	res.Paid = true
	res.ConfirmationNumber = confirmationNumber
	res.PaidAmountCents = amountCents
	return nil
}

func (s *fakeStore) ReservationNumberExists(ctx context.Context, number string) (bool, error) {
	_, ok := s.reservations[number]
	return ok, nil
}
func (s *fakeStore) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return false, nil
}

func (s *fakeStore) GetOrder(ctx context.Context, number string) (*ports.Order, error) {
	for _, r := range s.reservations {
		for i := range r.Orders {
			if r.Orders[i].Number == number {
				return &r.Orders[i], nil
			}
		}
	}
	return nil, errors.New("order not found")
}

func (s *fakeStore) UpdateOrderStatus(ctx context.Context, number, status string) error { return nil }

func (s *fakeStore) FindReservationByOrderNumber(ctx context.Context, orderNumber string) (*ports.Reservation, error) {
	for _, r := range s.reservations {
		for i := range r.Orders {
			if r.Orders[i].Number == orderNumber {
				return r, nil
			}
		}
	}
	return nil, errors.New("order not found")
}

type fakeGateway struct {
	requests  []ports.PaymentRequest
	submitErr error
}

func (g *fakeGateway) Submit(ctx context.Context, req ports.PaymentRequest) error {
	if g.submitErr != nil {
		return g.submitErr
	}
	g.requests = append(g.requests, req)
	return nil
}

func (g *fakeGateway) Subscribe(ctx context.Context, handler ports.CallbackHandler) error {
	return nil
}

func testReservation() *ports.Reservation {
	return &ports.Reservation{
		ID:        1,
		Number:    "123456",
		Name:      "Jim Smith",
		Phone:     "+15551234567",
		PartySize: 2,
		Status:    ports.ReservationConfirmed,
		Orders: []ports.Order{
			{
				ID: 1, ReservationID: 1, Number: "222222",
				PersonName: "Jim Smith", Status: ports.OrderPending, TotalCents: 3497,
				Items: []ports.OrderItem{
					{MenuItemID: "pepsi", Name: "Pepsi", Quantity: 2, PriceCents: 299},
					{MenuItemID: "ribeye-steak", Name: "Ribeye Steak", Quantity: 1, PriceCents: 2899},
				},
			},
			{
				ID: 2, ReservationID: 1, Number: "333333",
				PersonName: "SpongeBob", Status: ports.OrderPending, TotalCents: 1299,
				Items: []ports.OrderItem{
					{MenuItemID: "buffalo-wings", Name: "Buffalo Wings", Quantity: 1, PriceCents: 1299},
				},
			},
		},
	}
}

func newTestCoordinator(store ports.DataStore, gw ports.PaymentGateway, limiter ports.RateLimiter) (*Coordinator, *adapters.MemorySessionStore) {
	sessions := adapters.NewMemorySessionStore(16)
	cfg := config.PaymentConfig{Currency: "USD", DescriptionPrefix: "Reservation"}
	return NewCoordinator(store, sessions, gw, limiter, cfg, 30*time.Minute, zerolog.Nop()), sessions
}

func payReq(callID, number, utterance string) Request {
	var turns []ports.ConversationTurn
	if utterance != "" {
		turns = append(turns, ports.ConversationTurn{Role: ports.RoleCaller, Text: utterance, CreatedAt: time.Now()})
	}
	return Request{
		CallID:            callID,
		ReservationNumber: number,
		CallerPhone:       "+15551234567",
		Turns:             turns,
	}
}

func TestFirstInvocationPresentsBillAndHalts(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, sessions := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	// Even a payment-intent opener only earns the bill; the go-ahead must
	// come on a later turn.
	res, err := coord.Advance(ctx, payReq("call-1", "123456", "I'd like to pay for my order now."))
	require.NoError(t, err)

	assert.Equal(t, StepAwaitingConfirmation, res.Step)
	assert.False(t, res.Ended)
	assert.Contains(t, res.Reply, "Here's the bill for reservation #123456")
	assert.Contains(t, res.Reply, "Jim Smith:")
	assert.Contains(t, res.Reply, "2x Pepsi ($2.99 each)")
	assert.Contains(t, res.Reply, "1x Ribeye Steak ($28.99)")
	assert.Contains(t, res.Reply, "SpongeBob:")
	assert.Contains(t, res.Reply, "Your total is $47.96. Would you like to pay now?")
	assert.Empty(t, gw.requests)

	sess, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StepAwaitingConfirmation, sess.Step)
	assert.Equal(t, int64(4796), sess.AmountCents)
	assert.Equal(t, "123456", sess.ReservationNumber)
}

func TestNoThanksEndsUnpaid(t *testing.T) {
	res := testReservation()
	res.Orders = []ports.Order{{
		ID: 1, ReservationID: 1, Number: "222222",
		PersonName: "Jim Smith", Status: ports.OrderPending, TotalCents: 3400,
		Items: []ports.OrderItem{
			{MenuItemID: "ribeye-steak", Name: "Ribeye Steak", Quantity: 1, PriceCents: 3400},
		},
	}}
	store := newFakeStore(res)
	gw := &fakeGateway{}
	coord, sessions := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	first, err := coord.Advance(ctx, payReq("call-1", "123456", "Can I pay ahead?"))
	require.NoError(t, err)
	assert.Contains(t, first.Reply, "$34.00")
	assert.Equal(t, StepAwaitingConfirmation, first.Step)

	second, err := coord.Advance(ctx, payReq("call-1", "", "No thanks."))
	require.NoError(t, err)
	assert.True(t, second.Ended)
	assert.Equal(t, StepNone, second.Step)
	assert.Contains(t, second.Reply, "settle up at the restaurant")
	assert.Contains(t, second.Reply, "still booked")

	assert.Empty(t, gw.requests)
	assert.False(t, store.reservations["123456"].Paid)

	_, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	assert.False(t, ok, "declined session should be evicted")
}

func TestPayAtTheRestaurantDeclines(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, _ := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "What do I owe?"))
	require.NoError(t, err)

	// Contains "i'll pay", but the decline must win.
	res, err := coord.Advance(ctx, payReq("call-1", "", "I'll pay at the restaurant."))
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Empty(t, gw.requests)
}

func TestAffirmativeSubmitsCharge(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, _ := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "How much is it?"))
	require.NoError(t, err)

	res, err := coord.Advance(ctx, payReq("call-1", "", "Yes please."))
	require.NoError(t, err)
	assert.Equal(t, StepProcessing, res.Step)
	assert.Contains(t, res.Reply, "$47.96")

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, "call-1", req.CallID)
	assert.Equal(t, "123456", req.ReservationNumber)
	assert.Equal(t, int64(4796), req.AmountCents)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "Reservation #123456", req.Description)
	assert.Equal(t, "+15551234567", req.Identity)
	assert.Equal(t, "call-1", req.Metadata["call_id"])
}

func TestCompletionIsIdempotent(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, sessions := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "I want to pay."))
	require.NoError(t, err)
	_, err = coord.Advance(ctx, payReq("call-1", "", "Yes."))
	require.NoError(t, err)

	err = coord.HandleGatewayCallback(ctx, ports.PaymentResult{
		CallID:            "call-1",
		ReservationNumber: "123456",
		Status:            ports.PaymentSucceeded,
		AmountCents:       4796,
	})
	require.NoError(t, err)

	sess, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StepCompleted, sess.Step)
	assert.Regexp(t, `^CONF-[0-9A-F]{8}$`, sess.ConfirmationNumber)
	assert.False(t, sess.Announced)

	stored := store.reservations["123456"]
	assert.True(t, stored.Paid)
	assert.Equal(t, sess.ConfirmationNumber, stored.ConfirmationNumber)
	assert.Equal(t, int64(4796), stored.PaidAmountCents)

	first, err := coord.CheckCompletion(ctx, "call-1")
	require.NoError(t, err)
	assert.True(t, first.Ended)
	assert.Contains(t, first.Reply, "went through")
	assert.Contains(t, first.Reply, sess.ConfirmationNumber)

	second, err := coord.CheckCompletion(ctx, "call-1")
	require.NoError(t, err)
	assert.True(t, second.Ended)
	assert.NotContains(t, second.Reply, "went through")
	assert.Contains(t, second.Reply, sess.ConfirmationNumber)

	after, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, after.Announced)
	assert.Equal(t, sess.ConfirmationNumber, after.ConfirmationNumber)
}

func TestGatewayFailureResetsForRetry(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, sessions := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "I want to pay."))
	require.NoError(t, err)
	_, err = coord.Advance(ctx, payReq("call-1", "", "Sure."))
	require.NoError(t, err)
	require.Len(t, gw.requests, 1)

	err = coord.HandleGatewayCallback(ctx, ports.PaymentResult{
		CallID:    "call-1",
		Status:    ports.PaymentFailed,
		ErrorType: ports.GatewayErrCardDeclined,
	})
	require.NoError(t, err)

	sess, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StepFailed, sess.Step)
	assert.Equal(t, ports.GatewayErrCardDeclined, sess.LastError)
	assert.False(t, store.reservations["123456"].Paid)

	res, err := coord.Advance(ctx, payReq("call-1", "", "Did it go through?"))
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "declined")
	assert.Equal(t, StepAwaitingConfirmation, res.Step)

	sess, _, err = sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	assert.Empty(t, sess.LastError)

	retry, err := coord.Advance(ctx, payReq("call-1", "", "Yes please."))
	require.NoError(t, err)
	assert.Equal(t, StepProcessing, retry.Step)
	assert.Len(t, gw.requests, 2)
}

func TestRetryPromptsAreDistinctPerCategory(t *testing.T) {
	categories := []string{
		ports.GatewayErrInvalidCardType,
		ports.GatewayErrInvalidCardNumber,
		ports.GatewayErrCardDeclined,
		ports.GatewayErrUnknown,
	}

	seen := make(map[string]string)
	for _, cat := range categories {
		prompt := retryPrompt(cat)
		require.NotEmpty(t, prompt)
		for other, p := range seen {
			assert.NotEqual(t, p, prompt, "%s and %s share a prompt", cat, other)
		}
		seen[cat] = prompt
	}
}

func TestThrottleBlocksDuplicateSubmit(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	limiter := adapters.NewTokenBucket(1, time.Hour)
	coord, sessions := newTestCoordinator(store, gw, limiter)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "I want to pay."))
	require.NoError(t, err)
	first, err := coord.Advance(ctx, payReq("call-1", "", "Yes."))
	require.NoError(t, err)
	assert.Equal(t, StepProcessing, first.Step)
	require.Len(t, gw.requests, 1)

	// Simulate a turn that recorded the go-ahead but never submitted.
	sess, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	sess.Step = StepConfirmed
	require.NoError(t, sessions.Put(ctx, sess))

	blocked, err := coord.Advance(ctx, payReq("call-1", "", "Yes."))
	require.NoError(t, err)
	assert.Equal(t, StepConfirmed, blocked.Step)
	assert.Contains(t, blocked.Reply, "still working")
	assert.Len(t, gw.requests, 1, "throttled turn must not re-submit")
}

func TestSubmitErrorFallsBackToAwaiting(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{submitErr: errors.New("bus unavailable")}
	coord, sessions := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "I want to pay."))
	require.NoError(t, err)

	res, err := coord.Advance(ctx, payReq("call-1", "", "Yes."))
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingConfirmation, res.Step)
	assert.Contains(t, res.Reply, "trouble reaching our payment system")

	sess, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StepAwaitingConfirmation, sess.Step)
}

func TestDeriveNumberPrecedence(t *testing.T) {
	turns := []ports.ConversationTurn{
		{Role: ports.RoleAgent, Text: "You're all set! Reservation #111111 on Friday."},
	}
	req := Request{ReservationNumber: "222222", DraftNumber: "333333", Turns: turns}
	sess := ports.PaymentSession{ReservationNumber: "444444"}

	assert.Equal(t, "222222", deriveNumber(req, sess, true))

	req.ReservationNumber = ""
	assert.Equal(t, "333333", deriveNumber(req, sess, true))

	req.DraftNumber = ""
	assert.Equal(t, "444444", deriveNumber(req, sess, true))

	assert.Equal(t, "111111", deriveNumber(req, ports.PaymentSession{}, false))

	assert.Equal(t, "", deriveNumber(Request{}, ports.PaymentSession{}, false))
}

func TestBackReferencePrefersLatestMention(t *testing.T) {
	turns := []ports.ConversationTurn{
		{Role: ports.RoleAgent, Text: "Reservation #111111 is booked."},
		{Role: ports.RoleCaller, Text: "Actually I want to pay for reservation 999999."},
	}
	assert.Equal(t, "999999", backReference(turns))
}

func TestAdvanceOpensFromTranscriptBackReference(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, _ := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	req := Request{
		CallID:      "call-1",
		CallerPhone: "+15551234567",
		Turns: []ports.ConversationTurn{
			{Role: ports.RoleAgent, Text: "You're all set! Reservation #123456 for Friday."},
			{Role: ports.RoleCaller, Text: "Great, can I pay now?"},
		},
	}
	res, err := coord.Advance(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "reservation #123456")
	assert.Equal(t, StepAwaitingConfirmation, res.Step)
}

func TestCallbackCorrelatesByDescription(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, _ := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	err := coord.HandleGatewayCallback(ctx, ports.PaymentResult{
		Status:      ports.PaymentSucceeded,
		AmountCents: 4796,
		Description: "Charge for Reservation #123456 at TableTalk",
	})
	require.NoError(t, err)
	assert.True(t, store.reservations["123456"].Paid)
}

func TestCallbackCorrelatesByOrderNumber(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, _ := newTestCoordinator(store, gw, nil)
	ctx := context.Background()

	err := coord.HandleGatewayCallback(ctx, ports.PaymentResult{
		Status:      ports.PaymentSucceeded,
		AmountCents: 4796,
		Description: "Charge for Order #333333",
	})
	require.NoError(t, err)
	assert.True(t, store.reservations["123456"].Paid)
}

func TestCallbackWithoutCorrelationErrors(t *testing.T) {
	store := newFakeStore(testReservation())
	gw := &fakeGateway{}
	coord, _ := newTestCoordinator(store, gw, nil)

	err := coord.HandleGatewayCallback(context.Background(), ports.PaymentResult{
		Status:      ports.PaymentSucceeded,
		Description: "Charge with no references at all",
	})
	require.Error(t, err)
	assert.False(t, store.reservations["123456"].Paid)
}

func TestAlreadyPaidShortCircuits(t *testing.T) {
	res := testReservation()
	res.Paid = true
	res.ConfirmationNumber = "CONF-AB12CD34"
	store := newFakeStore(res)
	coord, sessions := newTestCoordinator(store, &fakeGateway{}, nil)
	ctx := context.Background()

	out, err := coord.Advance(ctx, payReq("call-1", "123456", "I'd like to pay."))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Contains(t, out.Reply, "already paid")
	assert.Contains(t, out.Reply, "CONF-AB12CD34")

	_, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoBalanceShortCircuits(t *testing.T) {
	res := testReservation()
	res.Orders = nil
	res.TableOnly = true
	store := newFakeStore(res)
	coord, _ := newTestCoordinator(store, &fakeGateway{}, nil)

	out, err := coord.Advance(context.Background(), payReq("call-1", "123456", "Can I pay?"))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Contains(t, out.Reply, "no pre-order balance")
}

func TestUnknownReservationEnds(t *testing.T) {
	store := newFakeStore()
	coord, _ := newTestCoordinator(store, &fakeGateway{}, nil)

	out, err := coord.Advance(context.Background(), payReq("call-1", "999999", "Paying for 999999."))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Contains(t, out.Reply, "couldn't find reservation #999999")
}

func TestNoTargetAsksToBookFirst(t *testing.T) {
	store := newFakeStore(testReservation())
	coord, _ := newTestCoordinator(store, &fakeGateway{}, nil)

	out, err := coord.Advance(context.Background(), payReq("call-1", "", "I'd like to pay."))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Contains(t, out.Reply, "don't see a reservation")
}

func TestRetargetRestartsBeforeCharge(t *testing.T) {
	first := testReservation()
	second := testReservation()
	second.ID = 2
	second.Number = "654321"
	second.Orders = []ports.Order{{
		ID: 3, ReservationID: 2, Number: "444444",
		PersonName: "Jim Smith", Status: ports.OrderPending, TotalCents: 1299,
		Items: []ports.OrderItem{
			{MenuItemID: "buffalo-wings", Name: "Buffalo Wings", Quantity: 1, PriceCents: 1299},
		},
	}}
	store := newFakeStore(first, second)
	coord, sessions := newTestCoordinator(store, &fakeGateway{}, nil)
	ctx := context.Background()

	_, err := coord.Advance(ctx, payReq("call-1", "123456", "I'd like to pay."))
	require.NoError(t, err)

	out, err := coord.Advance(ctx, payReq("call-1", "654321", "Wait, the other reservation, 654321."))
	require.NoError(t, err)
	assert.Contains(t, out.Reply, "reservation #654321")
	assert.Contains(t, out.Reply, "$12.99")

	sess, ok, err := sessions.Get(ctx, "call-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "654321", sess.ReservationNumber)
	assert.Equal(t, int64(1299), sess.AmountCents)
}

func TestSweepEvictsExpiredSessions(t *testing.T) {
	store := newFakeStore(testReservation())
	coord, sessions := newTestCoordinator(store, &fakeGateway{}, nil)
	ctx := context.Background()

	stale := ports.PaymentSession{
		CallID:            "call-old",
		ReservationNumber: "123456",
		Step:              StepAwaitingConfirmation,
		AmountCents:       4796,
		StartedAt:         time.Now().UTC().Add(-31 * time.Minute),
	}
	require.NoError(t, sessions.Put(ctx, stale))

	removed, err := coord.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := sessions.Get(ctx, "call-old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdvanceSweepsBeforeLoading(t *testing.T) {
	store := newFakeStore(testReservation())
	coord, sessions := newTestCoordinator(store, &fakeGateway{}, nil)
	ctx := context.Background()

	stale := ports.PaymentSession{
		CallID:            "call-1",
		ReservationNumber: "123456",
		Step:              StepProcessing,
		AmountCents:       4796,
		StartedAt:         time.Now().UTC().Add(-31 * time.Minute),
	}
	require.NoError(t, sessions.Put(ctx, stale))

	// The stale session is gone by the time the turn is handled, so the
	// caller gets a fresh bill instead of a stuck "still processing".
	out, err := coord.Advance(ctx, payReq("call-1", "123456", "Can I pay now?"))
	require.NoError(t, err)
	assert.Contains(t, out.Reply, "Here's the bill")
	assert.Equal(t, StepAwaitingConfirmation, out.Step)
}

func TestConfirmationNumberFormat(t *testing.T) {
	a := NewConfirmationNumber()
	b := NewConfirmationNumber()
	assert.Regexp(t, `^CONF-[0-9A-F]{8}$`, a)
	assert.Regexp(t, `^CONF-[0-9A-F]{8}$`, b)
	assert.NotEqual(t, a, b)
}

func TestInFlight(t *testing.T) {
	assert.True(t, InFlight(StepAwaitingConfirmation))
	assert.True(t, InFlight(StepConfirmed))
	assert.True(t, InFlight(StepProcessing))
	assert.True(t, InFlight(StepFailed))
	assert.False(t, InFlight(StepCompleted))
	assert.False(t, InFlight(StepNone))
	assert.False(t, InFlight(""))
}
