// Package payment runs the post-commit payment sub-protocol: present the
// itemized bill, wait for an explicit go-ahead on a later turn, hand the
// charge to the gateway, and reconcile its asynchronous outcome with the
// per-call session.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	internal "github.com/tabletalkhq/tabletalk/ttk"
	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
	"github.com/tabletalkhq/tabletalk/ttk/reconcile"
)

// Steps of the payment sub-protocol. A call with no stored session is at
// "none"; the session store only ever holds the later steps. Steps move
// forward except the explicit failed -> awaiting_confirmation retry reset.
const (
	StepNone                 = "none"
	StepAwaitingConfirmation = "awaiting_confirmation"
	StepConfirmed            = "confirmed"
	StepProcessing           = "processing"
	StepCompleted            = "completed"
	StepFailed               = "failed"
)

// InFlight reports whether a step still needs conversational turns routed to
// the coordinator. Completed sessions linger only so completion checks stay
// idempotent; they no longer own the conversation.
func InFlight(step string) bool {
	switch step {
	case StepAwaitingConfirmation, StepConfirmed, StepProcessing, StepFailed:
		return true
	}
	return false
}

// Request carries one conversational turn (or a direct tool invocation) into
// the coordinator. ReservationNumber is the explicit argument when the
// runtime supplied one; DraftNumber is the number recorded in the call's
// committed draft metadata.
type Request struct {
	CallID            string
	ReservationNumber string
	DraftNumber       string
	CallerPhone       string
	Turns             []ports.ConversationTurn
}

// Result is the coordinator's answer for one turn. Ended means the
// sub-protocol no longer owns the conversation for this call.
type Result struct {
	Reply string
	Step  string
	Ended bool
}

// Coordinator drives payment sessions keyed by call id.
type Coordinator struct {
	store    ports.DataStore
	sessions ports.SessionStore
	gateway  ports.PaymentGateway
	limiter  ports.RateLimiter
	cfg      config.PaymentConfig
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewCoordinator wires the coordinator. limiter may be nil to disable
// submission throttling; ttl bounds session lifetime for SweepExpired.
func NewCoordinator(store ports.DataStore, sessions ports.SessionStore, gateway ports.PaymentGateway, limiter ports.RateLimiter, cfg config.PaymentConfig, ttl time.Duration, logger zerolog.Logger) *Coordinator {
	if cfg.Currency == "" {
		cfg.Currency = internal.DefaultCurrency
	}
	if cfg.DescriptionPrefix == "" {
		cfg.DescriptionPrefix = "Reservation"
	}
	return &Coordinator{
		store:    store,
		sessions: sessions,
		gateway:  gateway,
		limiter:  limiter,
		cfg:      cfg,
		ttl:      ttl,
		logger:   logger.With().Str("component", "payment").Logger(),
	}
}

// Advance handles one turn of the payment sub-protocol. The target
// reservation number is re-derived on every entry: explicit argument, then
// the committed draft's number, then the session's previously verified
// number, then a back-reference spoken in the transcript.
func (c *Coordinator) Advance(ctx context.Context, req Request) (Result, error) {
	c.sweepQuietly(ctx)

	sess, ok, err := c.sessions.Get(ctx, req.CallID)
	if err != nil {
		return Result{}, fmt.Errorf("load payment session: %w", err)
	}

	number := deriveNumber(req, sess, ok)
	if number == "" {
		return Result{
			Reply: "I don't see a reservation to pay for yet. Would you like to book a table first?",
			Step:  StepNone,
			Ended: true,
		}, nil
	}

	if !ok {
		return c.openSession(ctx, req, number)
	}

	// Before any charge is in flight, an explicitly different target
	// restarts the bill for the new reservation.
	if sess.Step == StepAwaitingConfirmation && number != sess.ReservationNumber {
		if _, _, err := c.sessions.Delete(ctx, req.CallID); err != nil {
			return Result{}, fmt.Errorf("evict payment session: %w", err)
		}
		return c.openSession(ctx, req, number)
	}

	switch sess.Step {
	case StepAwaitingConfirmation:
		return c.confirmStep(ctx, req, sess)
	case StepConfirmed:
		// The go-ahead is on record but the submission may not have gone
		// out, for example when a previous turn hit the rate limiter.
		return c.submit(ctx, req, sess)
	case StepProcessing:
		return c.processingStep(), nil
	case StepCompleted:
		return c.completedStep(ctx, sess)
	case StepFailed:
		return c.failedStep(ctx, sess)
	}

	c.logger.Error().Str("call_id", req.CallID).Str("step", sess.Step).Msg("payment session in unknown step, evicting")
	if _, _, err := c.sessions.Delete(ctx, req.CallID); err != nil {
		return Result{}, fmt.Errorf("evict payment session: %w", err)
	}
	return c.openSession(ctx, req, number)
}

// CheckCompletion answers the "did my payment go through" tool call. It is
// idempotent: repeated checks on a completed session return the same
// confirmation number, and only the first one announces success.
func (c *Coordinator) CheckCompletion(ctx context.Context, callID string) (Result, error) {
	sess, ok, err := c.sessions.Get(ctx, callID)
	if err != nil {
		return Result{}, fmt.Errorf("load payment session: %w", err)
	}
	if !ok {
		return Result{
			Reply: "I don't see a payment in progress for this call.",
			Step:  StepNone,
			Ended: true,
		}, nil
	}

	switch sess.Step {
	case StepCompleted:
		return c.completedStep(ctx, sess)
	case StepFailed:
		return c.failedStep(ctx, sess)
	case StepProcessing:
		return c.processingStep(), nil
	}
	return Result{Reply: c.billPrompt(sess), Step: sess.Step}, nil
}

// SweepExpired evicts sessions older than the configured lifetime and
// reports how many were removed.
func (c *Coordinator) SweepExpired(ctx context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	removed, err := c.sessions.Sweep(ctx, time.Now().UTC().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("sweep payment sessions: %w", err)
	}
	if removed > 0 {
		c.logger.Info().Int("removed", removed).Msg("expired payment sessions swept")
	}
	return removed, nil
}

func (c *Coordinator) sweepQuietly(ctx context.Context) {
	if _, err := c.SweepExpired(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("payment session sweep failed")
	}
}

// openSession is the first invocation for a call: it verifies the
// reservation, computes the balance due, presents the itemized bill, and
// halts at awaiting_confirmation. Card collection never starts on the same
// turn as the bill.
func (c *Coordinator) openSession(ctx context.Context, req Request, number string) (Result, error) {
	res, err := c.store.GetReservation(ctx, number)
	if err != nil {
		c.logger.Warn().Err(err).Str("call_id", req.CallID).Str("reservation_number", number).Msg("payment target not found")
		return Result{
			Reply: fmt.Sprintf("I couldn't find reservation #%s. Could you double-check the number?", number),
			Step:  StepNone,
			Ended: true,
		}, nil
	}

	if res.Paid {
		return Result{
			Reply: fmt.Sprintf("Reservation #%s is already paid. Your confirmation number is %s.", res.Number, res.ConfirmationNumber),
			Step:  StepNone,
			Ended: true,
		}, nil
	}

	due := totalDue(res)
	if due <= 0 {
		return Result{
			Reply: fmt.Sprintf("There's no pre-order balance on reservation #%s, so there's nothing to pay ahead. You can settle anything else at the restaurant.", res.Number),
			Step:  StepNone,
			Ended: true,
		}, nil
	}

	sess := ports.PaymentSession{
		CallID:            req.CallID,
		ReservationNumber: res.Number,
		Step:              StepAwaitingConfirmation,
		AmountCents:       due,
		StartedAt:         time.Now().UTC(),
	}
	if err := c.sessions.Put(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("save payment session: %w", err)
	}

	c.logger.Info().
		Str("call_id", req.CallID).
		Str("reservation_number", res.Number).
		Int64("amount_cents", due).
		Msg("payment session opened")

	return Result{Reply: RenderBill(res, due), Step: StepAwaitingConfirmation}, nil
}

// confirmStep resolves the caller's answer to the bill. Declines are checked
// before affirmatives so "i'll pay at the restaurant" never reads as a
// go-ahead.
func (c *Coordinator) confirmStep(ctx context.Context, req Request, sess ports.PaymentSession) (Result, error) {
	text, ok := reconcile.LastCallerText(req.Turns)
	if !ok || strings.TrimSpace(text) == "" {
		return Result{Reply: c.billPrompt(sess), Step: StepAwaitingConfirmation}, nil
	}

	if reconcile.IsBareNegative(text) || reconcile.ContainsPaymentDecline(text) || reconcile.ContainsCancelCue(text) {
		if _, _, err := c.sessions.Delete(ctx, req.CallID); err != nil {
			return Result{}, fmt.Errorf("evict payment session: %w", err)
		}
		c.logger.Info().
			Str("call_id", req.CallID).
			Str("reservation_number", sess.ReservationNumber).
			Msg("payment declined by caller")
		return Result{
			Reply: "No problem, you can settle up at the restaurant. Your reservation is still booked.",
			Step:  StepNone,
			Ended: true,
		}, nil
	}

	if reconcile.ContainsAffirmative(text) || reconcile.ContainsPaymentIntent(text) || reconcile.IsBareAffirmative(text) {
		sess.Step = StepConfirmed
		if err := c.sessions.Put(ctx, sess); err != nil {
			return Result{}, fmt.Errorf("save payment session: %w", err)
		}
		return c.submit(ctx, req, sess)
	}

	return Result{Reply: c.billPrompt(sess), Step: StepAwaitingConfirmation}, nil
}

// submit hands the charge to the gateway and moves the session to
// processing. Submissions are throttled per call id so a repeated "yes"
// cannot fire a duplicate charge while one is in flight.
func (c *Coordinator) submit(ctx context.Context, req Request, sess ports.PaymentSession) (Result, error) {
	var release func()
	if c.limiter != nil {
		var err error
		release, err = c.limiter.Acquire(ctx, req.CallID)
		if err != nil {
			c.logger.Warn().
				Str("call_id", req.CallID).
				Str("reservation_number", sess.ReservationNumber).
				Msg("gateway submission throttled")
			return Result{Reply: "One moment, I'm still working on that charge.", Step: sess.Step}, nil
		}
	}

	greq := ports.PaymentRequest{
		CallID:            sess.CallID,
		ReservationNumber: sess.ReservationNumber,
		AmountCents:       sess.AmountCents,
		Currency:          c.cfg.Currency,
		Description:       fmt.Sprintf("%s #%s", c.cfg.DescriptionPrefix, sess.ReservationNumber),
		Identity:          req.CallerPhone,
		Metadata: map[string]string{
			"call_id":            sess.CallID,
			"reservation_number": sess.ReservationNumber,
		},
	}
	if err := c.gateway.Submit(ctx, greq); err != nil {
		if release != nil {
			release()
		}
		c.logger.Error().Err(err).
			Str("call_id", req.CallID).
			Str("reservation_number", sess.ReservationNumber).
			Msg("gateway submission failed")
		sess.Step = StepAwaitingConfirmation
		if perr := c.sessions.Put(ctx, sess); perr != nil {
			return Result{}, fmt.Errorf("save payment session: %w", perr)
		}
		return Result{
			Reply: "I'm having trouble reaching our payment system right now. Would you like to try again?",
			Step:  StepAwaitingConfirmation,
		}, nil
	}

	sess.Step = StepProcessing
	if err := c.sessions.Put(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("save payment session: %w", err)
	}

	c.logger.Info().
		Str("call_id", req.CallID).
		Str("reservation_number", sess.ReservationNumber).
		Int64("amount_cents", sess.AmountCents).
		Msg("charge submitted")

	return Result{
		Reply: fmt.Sprintf("Thanks, I'm processing your card for %s now. One moment.", internal.FormatCents(sess.AmountCents)),
		Step:  StepProcessing,
	}, nil
}

func (c *Coordinator) processingStep() Result {
	return Result{
		Reply: "Your payment is still processing. Give me just a moment.",
		Step:  StepProcessing,
	}
}

// completedStep announces success exactly once. Later checks return the same
// confirmation number without flipping the announced flag again.
func (c *Coordinator) completedStep(ctx context.Context, sess ports.PaymentSession) (Result, error) {
	if sess.Announced {
		return Result{
			Reply: fmt.Sprintf("You're all set. Your confirmation number is %s.", sess.ConfirmationNumber),
			Step:  StepCompleted,
			Ended: true,
		}, nil
	}

	sess.Announced = true
	if err := c.sessions.Put(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("save payment session: %w", err)
	}
	return Result{
		Reply: fmt.Sprintf("Your payment of %s went through! Your confirmation number is %s.", internal.FormatCents(sess.AmountCents), sess.ConfirmationNumber),
		Step:  StepCompleted,
		Ended: true,
	}, nil
}

// failedStep delivers the category-specific retry prompt and resets the
// session to awaiting_confirmation so the caller can try another card.
func (c *Coordinator) failedStep(ctx context.Context, sess ports.PaymentSession) (Result, error) {
	prompt := retryPrompt(sess.LastError)
	sess.Step = StepAwaitingConfirmation
	sess.LastError = ""
	if err := c.sessions.Put(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("save payment session: %w", err)
	}
	return Result{Reply: prompt, Step: StepAwaitingConfirmation}, nil
}

func (c *Coordinator) billPrompt(sess ports.PaymentSession) string {
	return fmt.Sprintf("Your pre-order total on reservation #%s is %s. Would you like to pay now, or settle up at the restaurant?",
		sess.ReservationNumber, internal.FormatCents(sess.AmountCents))
}

func retryPrompt(category string) string {
	switch category {
	case ports.GatewayErrInvalidCardType:
		return "That card type isn't one we can accept. Do you have a Visa or Mastercard you'd like to use instead?"
	case ports.GatewayErrInvalidCardNumber:
		return "That card number didn't read correctly. Could you give it to me one more time?"
	case ports.GatewayErrCardDeclined:
		return "I'm sorry, that card was declined. Would you like to try a different card?"
	}
	return "Something went wrong processing the payment. Would you like to try again?"
}

func deriveNumber(req Request, sess ports.PaymentSession, hasSession bool) string {
	if req.ReservationNumber != "" {
		return req.ReservationNumber
	}
	if req.DraftNumber != "" {
		return req.DraftNumber
	}
	if hasSession && sess.ReservationNumber != "" {
		return sess.ReservationNumber
	}
	return backReference(req.Turns)
}
