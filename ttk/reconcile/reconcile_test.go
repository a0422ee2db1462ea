package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
	"github.com/tabletalkhq/tabletalk/ttk/resolve"
)

type fakeMenuSource struct {
	items []ports.MenuItem
	err   error
}

func (s *fakeMenuSource) FetchItems(ctx context.Context) ([]ports.MenuItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type fakeStore struct {
	created    []*ports.Reservation
	failCreate error
	taken      map[string]bool
}

func (s *fakeStore) ListMenuItems(ctx context.Context) ([]ports.MenuItem, error) {
	return testMenuItems(), nil
}

func (s *fakeStore) UpsertMenuItems(ctx context.Context, items []ports.MenuItem) error { return nil }

func (s *fakeStore) CreateReservation(ctx context.Context, res *ports.Reservation) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	res.ID = int64(len(s.created) + 1)
	s.created = append(s.created, res)
	return nil
}

func (s *fakeStore) GetReservation(ctx context.Context, number string) (*ports.Reservation, error) {
	for _, r := range s.created {
		if r.Number == number {
			return r, nil
		}
	}
	return nil, errors.New("reservation not found")
}

func (s *fakeStore) FindReservations(ctx context.Context, f ports.ReservationFilter) ([]ports.Reservation, error) {
	var out []ports.Reservation
	for _, r := range s.created {
		if f.Number != "" && r.Number != f.Number {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeStore) UpdateReservation(ctx context.Context, res *ports.Reservation) error {
	for i, r := range s.created {
		if r.Number == res.Number {
			s.created[i] = res
			return nil
		}
	}
	return errors.New("reservation not found")
}

func (s *fakeStore) CancelReservation(ctx context.Context, number string) error {
	for _, r := range s.created {
		if r.Number == number {
			r.Status = ports.ReservationCancelled
			return nil
		}
	}
	return errors.New("reservation not found")
}

func (s *fakeStore) MarkReservationPaid(ctx context.Context, number, confirmationNumber string, amountCents int64) error {
	for _, r := range s.created {
		if r.Number == number {
			r.Paid = true
			r.ConfirmationNumber = confirmationNumber
			r.PaidAmountCents = amountCents
			return nil
		}
	}
	return errors.New("reservation not found")
}

func (s *fakeStore) ReservationNumberExists(ctx context.Context, number string) (bool, error) {
	if s.taken[number] {
		return true, nil
	}
	for _, r := range s.created {
		if r.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return s.taken[number], nil
}

func (s *fakeStore) GetOrder(ctx context.Context, number string) (*ports.Order, error) {
	for _, r := range s.created {
		for i := range r.Orders {
			if r.Orders[i].Number == number {
				return &r.Orders[i], nil
			}
		}
	}
	return nil, errors.New("order not found")
}

func (s *fakeStore) UpdateOrderStatus(ctx context.Context, number, status string) error {
	o, err := s.GetOrder(ctx, number)
	if err != nil {
		return err
	}
	o.Status = status
	return nil
}

func (s *fakeStore) FindReservationByOrderNumber(ctx context.Context, orderNumber string) (*ports.Reservation, error) {
	for _, r := range s.created {
		for i := range r.Orders {
			if r.Orders[i].Number == orderNumber {
				return r, nil
			}
		}
	}
	return nil, errors.New("order not found")
}

func testMenuItems() []ports.MenuItem {
	return []ports.MenuItem{
		{ID: "ribeye-steak", Name: "Ribeye Steak", PriceCents: 2899, Category: "entrees", Available: true},
		{ID: "buffalo-wings", Name: "Buffalo Wings", PriceCents: 1299, Category: "appetizers", Available: true},
		{ID: "bbq-wings", Name: "BBQ Wings", PriceCents: 1349, Category: "appetizers", Available: true},
		{ID: "pepsi", Name: "Pepsi", PriceCents: 299, Category: "drinks", Available: true},
		{ID: "diet-pepsi", Name: "Diet Pepsi", PriceCents: 299, Category: "drinks", Available: true},
		{ID: "caesar-salad", Name: "Caesar Salad", PriceCents: 1099, Category: "salads", Available: true},
		{ID: "iced-tea", Name: "Iced Tea", PriceCents: 249, Category: "drinks", Available: true},
	}
}

func newTestMachine(t *testing.T) (*Machine, *fakeStore) {
	t.Helper()
	logger := zerolog.Nop()
	store := &fakeStore{taken: map[string]bool{}}
	extractor := extract.NewExtractor(config.ExtractConfig{DefaultAreaCode: "555", MaxPartySize: 20}, time.UTC, logger)
	resolver := resolve.NewResolver(logger)
	menus := menu.NewManager(&fakeMenuSource{items: testMenuItems()}, config.MenuConfig{}, logger)
	cfg := config.EngineConfig{GraceBuffer: time.Minute, MaxConfirmAttempts: 3}
	return NewMachine(extractor, resolver, menus, store, cfg, time.UTC, logger), store
}

func callerTurn(text string) ports.ConversationTurn {
	return ports.ConversationTurn{Role: ports.RoleCaller, Text: text}
}

func agentTurn(text string) ports.ConversationTurn {
	return ports.ConversationTurn{Role: ports.RoleAgent, Text: text}
}

// spokenFutureDate returns a date a week out, both as it would be spoken and
// as the extractor formats it.
func spokenFutureDate() (spoken, want string) {
	when := time.Now().UTC().AddDate(0, 0, 7)
	return when.Format("January 2"), when.Format("2006-01-02")
}

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestFullConversationCommits(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, wantDate := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("Hi, I'd like to make a reservation for " + spoken + " at 7 pm."),
	}
	res1 := mach.Advance(ctx, nil, turns, "+15559876543")
	assert.Equal(t, EventClarify, res1.Event)
	assert.Equal(t, wantDate, res1.Draft.Signals.Date)
	assert.Equal(t, "19:00", res1.Draft.Signals.Time)
	assert.Equal(t, "+15559876543", res1.Draft.Signals.Phone)

	turns = append(turns, agentTurn(res1.Reply),
		callerTurn("My name is Jim Smith, party of two. Jim Smith and SpongeBob are coming."))
	res2 := mach.Advance(ctx, res1.Draft, turns, "+15559876543")
	assert.Equal(t, EventClarify, res2.Event)
	assert.Equal(t, "Jim Smith", res2.Draft.Signals.Name)
	assert.Equal(t, 2, res2.Draft.Signals.PartySize)

	turns = append(turns, agentTurn(res2.Reply),
		callerTurn("Jim wants the Ribeye Steak, SpongeBob wants the Buffalo Wings."))
	res3 := mach.Advance(ctx, res2.Draft, turns, "+15559876543")
	require.Equal(t, EventSummary, res3.Event)
	assert.Equal(t, StateAwaiting, res3.Draft.State)
	assert.Contains(t, res3.Reply, "Ribeye Steak")
	assert.Contains(t, res3.Reply, "Buffalo Wings")
	assert.Contains(t, res3.Reply, "$41.98")
	assert.Contains(t, res3.Reply, "Is that correct?")

	turns = append(turns, agentTurn(res3.Reply), callerTurn("yes"))
	res4 := mach.Advance(ctx, res3.Draft, turns, "+15559876543")
	require.Equal(t, EventCommitted, res4.Event)
	require.NotNil(t, res4.Reservation)
	assert.Equal(t, StateCommitted, res4.Draft.State)

	committed := res4.Reservation
	assert.Regexp(t, sixDigits, committed.Number)
	assert.Equal(t, "Jim Smith", committed.Name)
	assert.Equal(t, 2, committed.PartySize)
	require.Len(t, committed.Orders, 2)
	assert.Equal(t, "Jim Smith", committed.Orders[0].PersonName)
	assert.Equal(t, "ribeye-steak", committed.Orders[0].Items[0].MenuItemID)
	assert.Equal(t, "SpongeBob", committed.Orders[1].PersonName)
	assert.Equal(t, "buffalo-wings", committed.Orders[1].Items[0].MenuItemID)
	require.Len(t, store.created, 1)
}

func TestCommittedTotalsAddUp(t *testing.T) {
	mach, _ := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, table for two on " + spoken + " at 6:30 pm."),
		callerTurn("Jim will have two pepsis and the ribeye steak, buffalo wings for SpongeBob."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)

	turns = append(turns, agentTurn(result.Reply), callerTurn("sounds good"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	require.Equal(t, EventCommitted, result.Event)

	var reservationTotal int64
	for _, order := range result.Reservation.Orders {
		var orderTotal int64
		for _, item := range order.Items {
			orderTotal += int64(item.Quantity) * item.PriceCents
		}
		assert.Equal(t, orderTotal, order.TotalCents)
		assert.Regexp(t, sixDigits, order.Number)
		reservationTotal += order.TotalCents
	}
	// 2x pepsi (299) + ribeye (2899) + wings (1299)
	assert.Equal(t, int64(4796), reservationTotal)
	assert.Equal(t, reservationTotal, result.Draft.TotalCents)
}

func TestBareYesNeedsAgentConfirmationCue(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. We'll take two pepsis."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)

	// The caller answers an unrelated agent remark with "yes".
	turns = append(turns, agentTurn("One moment while I check."), callerTurn("yes"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventClarify, result.Event)
	assert.Equal(t, StateAwaiting, result.Draft.State)
	assert.Equal(t, 1, result.Draft.ConfirmAttempts)
	assert.Empty(t, store.created)

	// After a real confirmation question the same word commits.
	turns = append(turns, agentTurn("Is that correct?"), callerTurn("yes"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventCommitted, result.Event)
	require.Len(t, store.created, 1)
}

func TestPaymentIntentConfirms(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. A caesar salad please."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)

	turns = append(turns, agentTurn(result.Reply), callerTurn("I'll pay with my card now"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventCommitted, result.Event)
	require.Len(t, store.created, 1)
}

func TestModifyReturnsToCollecting(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, wantDate := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. A caesar salad please."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)

	turns = append(turns, agentTurn(result.Reply), callerTurn("Actually, can we change the time to 8 pm?"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventModify, result.Event)
	assert.Equal(t, StateCollecting, result.Draft.State)
	// Fields survive the modification.
	assert.Equal(t, "Jim Smith", result.Draft.Signals.Name)
	assert.Equal(t, wantDate, result.Draft.Signals.Date)
	assert.Empty(t, store.created)

	// Next turn re-reads the transcript and picks up the new time.
	turns = append(turns, agentTurn(result.Reply), callerTurn("8 pm, same everything else."))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)
	assert.Equal(t, "20:00", result.Draft.Signals.Time)
	assert.Contains(t, result.Reply, "8:00 PM")
}

func TestCancelDiscardsDraft(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. A caesar salad please."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)

	turns = append(turns, agentTurn(result.Reply), callerTurn("You know what, never mind. Cancel it."))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventCancelled, result.Event)
	assert.Equal(t, StateCancelled, result.Draft.State)
	assert.Empty(t, store.created)
}

func TestTableOnlySkipsItemExtraction(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. Just the table, we'll order there."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)
	assert.True(t, result.Draft.TableOnly)
	assert.Contains(t, result.Reply, "order at the table")

	turns = append(turns, agentTurn(result.Reply), callerTurn("yes"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	require.Equal(t, EventCommitted, result.Event)
	assert.True(t, result.Reservation.TableOnly)
	assert.Empty(t, result.Reservation.Orders)
	require.Len(t, store.created, 1)
}

func TestBareNoAfterFoodQuestionMeansTableOnly(t *testing.T) {
	mach, _ := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm."),
		agentTurn("Would you like to order any food ahead, or just book the table?"),
		callerTurn("No thanks."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)
	assert.True(t, result.Draft.TableOnly)
}

func TestPersistFailureRollsBackToError(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. A caesar salad please."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)

	store.failCreate = errors.New("database locked")
	turns = append(turns, agentTurn(result.Reply), callerTurn("yes"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventError, result.Event)
	assert.Equal(t, StateError, result.Draft.State)
	assert.Empty(t, store.created)

	// The next turn recovers into collecting and can commit again.
	store.failCreate = nil
	turns = append(turns, agentTurn(result.Reply), callerTurn("Okay, try again please."))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	require.Equal(t, EventSummary, result.Event)
	assert.Equal(t, StateAwaiting, result.Draft.State)

	turns = append(turns, agentTurn(result.Reply), callerTurn("yes"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	assert.Equal(t, EventCommitted, result.Event)
	require.Len(t, store.created, 1)
}

func TestFinalizeIsIdempotentOnceCommitted(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()
	spoken, _ := spokenFutureDate()

	turns := []ports.ConversationTurn{
		callerTurn("This is Jim Smith, party of two, " + spoken + " at 7 pm. A caesar salad please."),
	}
	result := mach.Advance(ctx, nil, turns, "+15551230000")
	turns = append(turns, agentTurn(result.Reply), callerTurn("yes"))
	result = mach.Advance(ctx, result.Draft, turns, "+15551230000")
	require.Equal(t, EventCommitted, result.Event)

	again, err := mach.Finalize(ctx, result.Draft, turns, "+15551230000")
	require.NoError(t, err)
	assert.Equal(t, result.Reservation.Number, again.Number)
	assert.Len(t, store.created, 1)
}

func TestResolveStartGraceBoundary(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 19, 0, 59, 0, loc) // start is 59s back

	start, err := ResolveStart("2026-03-10", "19:00", now, loc, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 19, start.Hour())

	now = time.Date(2026, 3, 10, 19, 1, 1, 0, loc) // start is 61s back
	_, err = ResolveStart("2026-03-10", "19:00", now, loc, time.Minute)
	var past *PastStartError
	require.ErrorAs(t, err, &past)

	now = time.Date(2026, 3, 10, 19, 1, 0, 0, loc) // exactly on the buffer
	_, err = ResolveStart("2026-03-10", "19:00", now, loc, time.Minute)
	assert.NoError(t, err)
}

func TestResolveStartMissingPieces(t *testing.T) {
	_, err := ResolveStart("", "19:00", time.Now(), time.UTC, time.Minute)
	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"date"}, missing.Fields)
}

func TestPastTimePromptsForNewTime(t *testing.T) {
	mach, store := newTestMachine(t)
	ctx := context.Background()

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	draft := NewDraft()
	draft.Signals.Name = "Jim Smith"
	draft.Signals.PartySize = 2
	draft.Signals.Date = yesterday
	draft.Signals.Time = "19:00"
	draft.TableOnly = true
	draft.State = StateAwaiting

	turns := []ports.ConversationTurn{
		agentTurn("Is that correct?"),
		callerTurn("yes"),
	}
	result := mach.Advance(ctx, draft, turns, "+15551230000")
	assert.Equal(t, EventClarify, result.Event)
	assert.Equal(t, StateCollecting, result.Draft.State)
	assert.Contains(t, result.Reply, "already passed")
	assert.Empty(t, store.created)
}

func TestUniqueNumberRedrawsOnCollision(t *testing.T) {
	mach, _ := newTestMachine(t)
	calls := 0
	exists := func(ctx context.Context, number string) (bool, error) {
		calls++
		return calls <= 2, nil
	}
	number, err := mach.uniqueNumber(context.Background(), exists)
	require.NoError(t, err)
	assert.Regexp(t, sixDigits, number)
	assert.Equal(t, 3, calls)
}

func TestUniqueNumberGivesUpAfterMaxDraws(t *testing.T) {
	mach, _ := newTestMachine(t)
	exists := func(ctx context.Context, number string) (bool, error) { return true, nil }
	_, err := mach.uniqueNumber(context.Background(), exists)
	require.Error(t, err)
}

func TestRandomNumberRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		number, err := randomNumber()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, number)
	}
}

func TestCueTables(t *testing.T) {
	assert.True(t, ContainsAffirmative("Yes, that's right!"))
	assert.True(t, ContainsAffirmative("sounds good to me"))
	assert.False(t, ContainsAffirmative("that's not right"))

	assert.True(t, IsBareAffirmative("Yes."))
	assert.True(t, IsBareAffirmative("ok thanks"))
	assert.False(t, IsBareAffirmative("yes and add a pepsi"))

	assert.True(t, IsBareNegative("No thanks."))
	assert.False(t, IsBareNegative("no wait, add wings"))

	assert.True(t, ContainsModifyCue("actually make that two"))
	assert.False(t, ContainsModifyCue("the waiter was great"))

	assert.True(t, ContainsCancelCue("never mind, cancel it"))
	assert.True(t, ContainsPaymentIntent("can I pay with my credit card"))
	assert.True(t, ContainsTableOnlyCue("just the table please"))
	assert.True(t, AgentAskedConfirmation("Great, is that correct?"))
}

func BenchmarkAdvanceCollect(b *testing.B) {
	logger := zerolog.Nop()
	store := &fakeStore{taken: map[string]bool{}}
	extractor := extract.NewExtractor(config.ExtractConfig{DefaultAreaCode: "555", MaxPartySize: 20}, time.UTC, logger)
	resolver := resolve.NewResolver(logger)
	menus := menu.NewManager(&fakeMenuSource{items: testMenuItems()}, config.MenuConfig{}, logger)
	mach := NewMachine(extractor, resolver, menus, store, config.EngineConfig{GraceBuffer: time.Minute}, time.UTC, logger)

	spoken := time.Now().UTC().AddDate(0, 0, 7).Format("January 2")
	turns := []ports.ConversationTurn{
		callerTurn(fmt.Sprintf("This is Jim Smith, party of two, %s at 7 pm.", spoken)),
		callerTurn("Jim wants the Ribeye Steak, SpongeBob wants the Buffalo Wings."),
	}
	ctx := context.Background()
	for b.Loop() {
		mach.Advance(ctx, nil, turns, "+15551230000")
	}
}
