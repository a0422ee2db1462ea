// Package engine assembles the conversation-to-transaction pipeline behind
// one turn handler plus direct tool operations. Every turn the voice runtime
// hands over the full transcript and the previous turn's session blob; the
// engine advances either the reservation workflow or the payment
// sub-protocol and returns the reply to speak.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/extract"
	"github.com/tabletalkhq/tabletalk/ttk/menu"
	"github.com/tabletalkhq/tabletalk/ttk/notify"
	"github.com/tabletalkhq/tabletalk/ttk/payment"
	"github.com/tabletalkhq/tabletalk/ttk/reconcile"
	"github.com/tabletalkhq/tabletalk/ttk/resolve"
)

// apologyReply is spoken when a turn fails internally. Callers never hear an
// error string; the session blob is preserved so the call can continue.
const apologyReply = "I'm sorry, something went wrong on my end. Could you say that once more?"

// Engine owns one restaurant's reservation line.
type Engine struct {
	store     ports.DataStore
	menus     *menu.Manager
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	machine   *reconcile.Machine
	payments  *payment.Coordinator
	sessions  ports.SessionStore
	gateway   ports.PaymentGateway
	notify    *notify.Dispatcher
	tracer    ports.Tracer
	loc       *time.Location
	grace     time.Duration
	areaCode  string
	maxParty  int
	logger    zerolog.Logger
}

// NewEngine wires the engine from its collaborators. Use Factory.CreateEngine
// for config-driven construction.
func NewEngine(
	store ports.DataStore,
	menus *menu.Manager,
	extractor *extract.Extractor,
	resolver *resolve.Resolver,
	machine *reconcile.Machine,
	payments *payment.Coordinator,
	sessions ports.SessionStore,
	gateway ports.PaymentGateway,
	dispatcher *notify.Dispatcher,
	tracer ports.Tracer,
	cfg *config.Config,
	loc *time.Location,
	logger zerolog.Logger,
) *Engine {
	areaCode := cfg.Extract.DefaultAreaCode
	maxParty := cfg.Extract.MaxPartySize
	if maxParty <= 0 {
		maxParty = 20
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:     store,
		menus:     menus,
		extractor: extractor,
		resolver:  resolver,
		machine:   machine,
		payments:  payments,
		sessions:  sessions,
		gateway:   gateway,
		notify:    dispatcher,
		tracer:    tracer,
		loc:       loc,
		grace:     cfg.Engine.GraceBuffer,
		areaCode:  areaCode,
		maxParty:  maxParty,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// HandleTurn serves one conversational turn. It never returns an error: any
// internal failure becomes an apology reply with the session blob untouched,
// so the call keeps going and the next turn retries from the same state.
func (e *Engine) HandleTurn(ctx context.Context, req ports.TurnRequest) (resp ports.TurnResponse) {
	ctx, finish := e.tracer.StartSpan(ctx, "handle_turn", map[string]any{
		"call_id": req.CallID,
		"turns":   len(req.Turns),
	})
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("call_id", req.CallID).Interface("panic", r).Msg("turn handler panicked")
			resp = ports.TurnResponse{Reply: apologyReply, State: string(reconcile.StateError), Metadata: req.Metadata}
		}
		finish(nil)
	}()

	sess := decodeSession(req.Metadata, e.logger)

	// An in-flight payment owns the call until it ends. Nothing the caller
	// says mid-payment may mutate the reservation.
	if e.paymentOwnsCall(ctx, req.CallID) {
		return e.paymentTurn(ctx, req, sess)
	}

	if sess.Draft != nil && sess.Draft.State == reconcile.StateCommitted {
		return e.postCommitTurn(ctx, req, sess)
	}

	// A fresh call that opens with payment talk is someone calling back to
	// settle an earlier booking, not someone starting a new one.
	if last, ok := reconcile.LastCallerText(req.Turns); ok {
		if reconcile.ContainsPaymentIntent(last) && draftUntouched(sess.Draft) {
			return e.paymentTurn(ctx, req, sess)
		}
	}

	result := e.machine.Advance(ctx, sess.Draft, req.Turns, req.CallerLine)
	sess.Draft = result.Draft
	state := string(result.Draft.State)

	switch result.Event {
	case reconcile.EventCommitted:
		e.notify.ReservationConfirmed(result.Reservation)
	case reconcile.EventCancelled:
		sess.Draft = nil
	}

	e.tracer.Event(ctx, "turn_handled", map[string]any{"event": string(result.Event), "state": state})
	return ports.TurnResponse{Reply: result.Reply, State: state, Metadata: sess.encode(e.logger)}
}

// Close flushes the notification queue. The engine itself holds no other
// resources; stores and buses are closed by whoever created them.
func (e *Engine) Close() {
	e.notify.Close()
}

// paymentOwnsCall reports whether this call already has a live payment
// session that must keep receiving the caller's turns.
func (e *Engine) paymentOwnsCall(ctx context.Context, callID string) bool {
	if callID == "" {
		return false
	}
	sess, ok, err := e.sessions.Get(ctx, callID)
	if err != nil {
		e.logger.Warn().Err(err).Str("call_id", callID).Msg("payment session lookup failed")
		return false
	}
	return ok && payment.InFlight(sess.Step)
}

// paymentTurn routes one turn through the payment coordinator.
func (e *Engine) paymentTurn(ctx context.Context, req ports.TurnRequest, sess *Session) ports.TurnResponse {
	result, err := e.payments.Advance(ctx, e.paymentRequest(req, sess))
	if err != nil {
		e.logger.Error().Err(err).Str("call_id", req.CallID).Msg("payment turn failed")
		return ports.TurnResponse{Reply: apologyReply, State: payment.StepNone, Metadata: sess.encode(e.logger)}
	}
	return ports.TurnResponse{Reply: result.Reply, State: result.Step, Metadata: sess.encode(e.logger)}
}

func (e *Engine) paymentRequest(req ports.TurnRequest, sess *Session) payment.Request {
	preq := payment.Request{
		CallID:      req.CallID,
		CallerPhone: req.CallerLine,
		Turns:       req.Turns,
	}
	if sess.Draft != nil {
		preq.DraftNumber = sess.Draft.ReservationNumber
		if sess.Draft.Signals.Phone != "" {
			preq.CallerPhone = sess.Draft.Signals.Phone
		}
	}
	return preq
}

// postCommitTurn serves turns after the reservation persisted: payment talk
// opens the payment sub-protocol, a cancel cue cancels the stored record,
// everything else gets a courteous recap of what the call can still do.
func (e *Engine) postCommitTurn(ctx context.Context, req ports.TurnRequest, sess *Session) ports.TurnResponse {
	number := sess.Draft.ReservationNumber
	last, ok := reconcile.LastCallerText(req.Turns)
	if !ok || strings.TrimSpace(last) == "" {
		return e.respond(sess, string(reconcile.StateCommitted), "")
	}

	switch {
	case reconcile.ContainsPaymentIntent(last):
		return e.paymentTurn(ctx, req, sess)

	case reconcile.ContainsCancelCue(last):
		if _, err := e.CancelReservation(ctx, number); err != nil {
			e.logger.Error().Err(err).Str("reservation", number).Msg("post-commit cancel failed")
			return e.respond(sess, string(reconcile.StateError), apologyReply)
		}
		sess.Draft = nil
		reply := fmt.Sprintf("Done, reservation #%s is cancelled. We hope to see you another time!", number)
		return e.respond(sess, string(reconcile.StateCancelled), reply)

	case reconcile.ContainsModifyCue(last):
		reply := fmt.Sprintf("Of course, I can make changes to reservation #%s. What would you like to update?", number)
		return e.respond(sess, string(reconcile.StateCommitted), reply)

	default:
		reply := fmt.Sprintf("Your reservation #%s is all set. You can pay for your pre-order now, make changes, or just show up. Anything else I can help with?", number)
		return e.respond(sess, string(reconcile.StateCommitted), reply)
	}
}

func (e *Engine) respond(sess *Session, state, reply string) ports.TurnResponse {
	return ports.TurnResponse{Reply: reply, State: state, Metadata: sess.encode(e.logger)}
}

// draftUntouched reports whether the session has collected nothing yet, so
// the call can be handed to the payment coordinator without losing work.
func draftUntouched(d *reconcile.Draft) bool {
	if d == nil {
		return true
	}
	if d.State != reconcile.StateCollecting {
		return false
	}
	s := d.Signals
	return s.Name == "" && s.PartySize == 0 && s.Date == "" && s.Time == "" && !d.HasItems()
}

// handleGatewayResult is the engine's gateway subscription target: record
// the outcome through the coordinator, then text a receipt on success.
func (e *Engine) handleGatewayResult(ctx context.Context, result ports.PaymentResult) error {
	if err := e.payments.HandleGatewayCallback(ctx, result); err != nil {
		return err
	}
	if result.Status == ports.PaymentSucceeded {
		e.sendReceipt(ctx, result)
	}
	return nil
}

// sendReceipt texts the payment receipt after a gateway success. Receipts
// are best-effort: an uncorrelatable result is logged and skipped.
func (e *Engine) sendReceipt(ctx context.Context, result ports.PaymentResult) {
	number := e.payments.CorrelateReservation(ctx, result)
	var confirmation string
	amount := result.AmountCents
	if result.CallID != "" {
		if sess, ok, err := e.sessions.Get(ctx, result.CallID); err == nil && ok {
			confirmation = sess.ConfirmationNumber
			if number == "" {
				number = sess.ReservationNumber
			}
			if amount <= 0 {
				amount = sess.AmountCents
			}
		}
	}
	if number == "" {
		e.logger.Debug().Str("call_id", result.CallID).Msg("receipt skipped, no reservation correlation")
		return
	}
	res, err := e.store.GetReservation(ctx, number)
	if err != nil {
		e.logger.Warn().Err(err).Str("reservation", number).Msg("receipt skipped, reservation unavailable")
		return
	}
	if confirmation == "" {
		confirmation = res.ConfirmationNumber
	}
	if amount <= 0 {
		amount = res.PaidAmountCents
	}
	e.notify.PaymentReceipt(res, amount, confirmation)
}
