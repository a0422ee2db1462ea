package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
	"github.com/tabletalkhq/tabletalk/ttk/party"
	"github.com/tabletalkhq/tabletalk/ttk/resolve"
)

// Event classifies what a turn did to the draft, for logging and routing.
type Event string

const (
	EventNone      Event = "none"
	EventClarify   Event = "clarify"
	EventSummary   Event = "summary"
	EventModify    Event = "modify"
	EventCommitted Event = "committed"
	EventCancelled Event = "cancelled"
	EventError     Event = "error"
)

// TurnResult is what one turn of reconciliation produced.
type TurnResult struct {
	Draft       *Draft
	Reply       string
	Event       Event
	Reservation *ports.Reservation // set when the turn committed
}

// Machine advances one call session's draft per conversational turn. It is
// not safe for concurrent use on the same draft; sessions are independent.
type Machine struct {
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	menus     *menu.Manager
	store     ports.DataStore
	cfg       config.EngineConfig
	loc       *time.Location
	logger    zerolog.Logger
}

// NewMachine wires the reconciliation machine over its collaborators.
func NewMachine(extractor *extract.Extractor, resolver *resolve.Resolver, menus *menu.Manager, store ports.DataStore, cfg config.EngineConfig, loc *time.Location, logger zerolog.Logger) *Machine {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.GraceBuffer <= 0 {
		cfg.GraceBuffer = time.Minute
	}
	if cfg.MaxConfirmAttempts <= 0 {
		cfg.MaxConfirmAttempts = 3
	}
	return &Machine{
		extractor: extractor,
		resolver:  resolver,
		menus:     menus,
		store:     store,
		cfg:       cfg,
		loc:       loc,
		logger:    logger.With().Str("component", "reconcile").Logger(),
	}
}

// Advance applies the latest turn to the draft and returns the reply to
// speak. A session in the error state resumes collecting first.
func (m *Machine) Advance(ctx context.Context, draft *Draft, turns []ports.ConversationTurn, callerLine string) TurnResult {
	if draft == nil {
		draft = NewDraft()
	}
	if draft.State == StateError {
		draft.State = StateCollecting
	}

	last, ok := LastCallerText(turns)
	if !ok {
		return TurnResult{Draft: draft, Event: EventNone}
	}

	switch draft.State {
	case StateCollecting:
		return m.collect(ctx, draft, turns, last, callerLine)
	case StateAwaiting:
		return m.confirmStep(ctx, draft, turns, last, callerLine)
	case StateConfirmed:
		// A confirmed draft that did not commit last turn retries here.
		return m.commit(ctx, draft, turns, callerLine)
	default:
		return TurnResult{Draft: draft, Event: EventNone}
	}
}

func (m *Machine) collect(ctx context.Context, draft *Draft, turns []ports.ConversationTurn, last, callerLine string) TurnResult {
	if ContainsCancelCue(last) {
		draft.State = StateCancelled
		m.logger.Info().Msg("draft cancelled while collecting")
		return TurnResult{Draft: draft, Reply: "No problem, I won't book anything. Call back anytime!", Event: EventCancelled}
	}

	draft.Signals = m.extractor.Extract(turns, draft.Signals)
	if draft.Signals.Phone == "" && callerLine != "" {
		if normalized, ok := extract.NormalizePhone(callerLine, ""); ok {
			draft.Signals.Phone = normalized
		}
	}

	if ContainsTableOnlyCue(last) {
		draft.TableOnly = true
	} else if IsBareNegative(last) && AgentAskedAboutFood(prevAgentText(turns)) {
		draft.TableOnly = true
	}

	m.RebuildOrders(ctx, draft, turns)

	if ContainsMenuQuestion(last) {
		return TurnResult{Draft: draft, Reply: RenderMenuBrief(m.menus.Current(ctx)), Event: EventClarify}
	}

	if draft.ReadyForSummary() {
		draft.State = StateAwaiting
		draft.ConfirmAttempts = 0
		reply := RenderSummary(draft)
		m.logger.Debug().Int("party", draft.Signals.PartySize).Int64("total_cents", draft.TotalCents).Msg("summary read back")
		return TurnResult{Draft: draft, Reply: reply, Event: EventSummary}
	}
	return TurnResult{Draft: draft, Reply: clarifyPrompt(draft), Event: EventClarify}
}

func (m *Machine) confirmStep(ctx context.Context, draft *Draft, turns []ports.ConversationTurn, last, callerLine string) TurnResult {
	switch {
	case ContainsCancelCue(last):
		draft.State = StateCancelled
		m.logger.Info().Msg("draft cancelled at confirmation")
		return TurnResult{Draft: draft, Reply: "Understood, I've cancelled that. Nothing was booked.", Event: EventCancelled}

	case ContainsModifyCue(last) || IsBareNegative(last):
		// Fields survive; only the confirmation is withdrawn. The change
		// itself lands next turn when collection re-reads the transcript.
		draft.State = StateCollecting
		draft.ConfirmAttempts = 0
		return TurnResult{Draft: draft, Reply: "Sure, what should I change?", Event: EventModify}

	case m.isConfirmation(last, turns):
		return m.commit(ctx, draft, turns, callerLine)

	default:
		draft.ConfirmAttempts++
		if draft.ConfirmAttempts >= m.cfg.MaxConfirmAttempts {
			m.logger.Warn().Int("attempts", draft.ConfirmAttempts).Msg("confirmation stalled")
		}
		return TurnResult{Draft: draft, Reply: "Sorry, I didn't catch that. " + RenderSummary(draft), Event: EventClarify}
	}
}

// isConfirmation accepts an explicit affirmative phrase, payment intent, or
// a bare affirmative directly after the agent asked a confirmation question.
func (m *Machine) isConfirmation(last string, turns []ports.ConversationTurn) bool {
	if ContainsAffirmative(last) || ContainsPaymentIntent(last) {
		return true
	}
	return IsBareAffirmative(last) && AgentAskedConfirmation(prevAgentText(turns))
}

func (m *Machine) commit(ctx context.Context, draft *Draft, turns []ports.ConversationTurn, callerLine string) TurnResult {
	draft.State = StateConfirmed

	res, err := m.Finalize(ctx, draft, turns, callerLine)
	if err == nil {
		return TurnResult{Draft: draft, Reply: RenderCommitted(res), Event: EventCommitted, Reservation: res}
	}

	var past *PastStartError
	var missing *MissingFieldsError
	switch {
	case errors.As(err, &past):
		draft.State = StateCollecting
		return TurnResult{Draft: draft, Reply: "That time has already passed. What date and time should I book instead?", Event: EventClarify}
	case errors.As(err, &missing):
		draft.State = StateCollecting
		return TurnResult{Draft: draft, Reply: clarifyPrompt(draft), Event: EventClarify}
	default:
		draft.State = StateError
		m.logger.Error().Err(err).Msg("commit failed")
		return TurnResult{Draft: draft, Reply: "I'm sorry, something went wrong saving your reservation. Let's try that once more.", Event: EventError}
	}
}

// RebuildOrders re-reads the whole caller transcript for item mentions and
// redistributes them across the party. Table-only drafts keep empty orders.
func (m *Machine) RebuildOrders(ctx context.Context, draft *Draft, turns []ports.ConversationTurn) {
	text := joinCallerText(turns)
	var mentions []resolve.Mention
	if !draft.TableOnly {
		cache := m.menus.Current(ctx)
		mentions = m.resolver.ExtractMentions(text, cache)
	}
	additional := party.ExtractAdditionalNames(text, draft.Signals.Name)
	draft.Orders = party.Distribute(mentions, draft.Signals.Name, draft.Signals.PartySize, additional, text)
	draft.RecomputeTotal()
}

func clarifyPrompt(draft *Draft) string {
	missing := draft.MissingFields()
	if len(missing) > 0 {
		return "Happy to set that up. Could I get your " + joinAnd(missing) + "?"
	}
	return "Got it. Would you like to order any food ahead, or just book the table?"
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

// LastCallerText returns the most recent caller utterance, or false when the
// transcript has no caller turn yet.
func LastCallerText(turns []ports.ConversationTurn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == ports.RoleCaller {
			return turns[i].Text, true
		}
	}
	return "", false
}

// prevAgentText returns the agent message the caller was answering: the
// nearest agent turn before the last caller turn, skipping system turns.
func prevAgentText(turns []ports.ConversationTurn) string {
	i := len(turns) - 1
	for ; i >= 0; i-- {
		if turns[i].Role == ports.RoleCaller {
			break
		}
	}
	for j := i - 1; j >= 0; j-- {
		switch turns[j].Role {
		case ports.RoleAgent:
			return turns[j].Text
		case ports.RoleSystem:
			continue
		default:
			return ""
		}
	}
	return ""
}

func joinCallerText(turns []ports.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role != ports.RoleCaller {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}
