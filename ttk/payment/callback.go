package payment

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// Back-references used when a gateway result carries no correlation
// parameters and the reservation must be read out of the description.
var (
	reservationRefRe = regexp.MustCompile(`(?i)reservation\s*#?\s*(\d{6})\b`)
	orderRefRe       = regexp.MustCompile(`(?i)order\s*#?\s*(\d{6})\b`)
)

// NewConfirmationNumber mints a caller-facing payment confirmation code.
func NewConfirmationNumber() string {
	return "CONF-" + strings.ToUpper(uuid.NewString()[:8])
}

// HandleGatewayCallback records one asynchronous gateway outcome. Successes
// mark the reservation paid and park the session at completed for the next
// completion check; failures store the error category and park the session
// at failed so the next turn delivers the matching retry prompt. The
// signature matches ports.CallbackHandler for direct subscription wiring.
func (c *Coordinator) HandleGatewayCallback(ctx context.Context, result ports.PaymentResult) error {
	var sess ports.PaymentSession
	var found bool
	if result.CallID != "" {
		var err error
		sess, found, err = c.sessions.Get(ctx, result.CallID)
		if err != nil {
			return fmt.Errorf("load payment session: %w", err)
		}
	}

	number := c.CorrelateReservation(ctx, result)
	if number == "" && found {
		number = sess.ReservationNumber
	}

	if result.Status == ports.PaymentSucceeded {
		if number == "" {
			return fmt.Errorf("gateway success with no reservation correlation (call %q)", result.CallID)
		}

		amount := result.AmountCents
		if amount <= 0 && found {
			amount = sess.AmountCents
		}

		confirmation := NewConfirmationNumber()
		if err := c.store.MarkReservationPaid(ctx, number, confirmation, amount); err != nil {
			return fmt.Errorf("mark reservation %s paid: %w", number, err)
		}

		if found {
			sess.Step = StepCompleted
			sess.ConfirmationNumber = confirmation
			sess.LastError = ""
			if amount > 0 {
				sess.AmountCents = amount
			}
			if err := c.sessions.Put(ctx, sess); err != nil {
				return fmt.Errorf("save payment session: %w", err)
			}
		} else {
			c.logger.Warn().
				Str("call_id", result.CallID).
				Str("reservation_number", number).
				Msg("payment completed with no live session")
		}

		c.logger.Info().
			Str("call_id", result.CallID).
			Str("reservation_number", number).
			Str("confirmation_number", confirmation).
			Int64("amount_cents", amount).
			Msg("payment completed")
		return nil
	}

	category := result.ErrorType
	if category == "" {
		category = ports.GatewayErrUnknown
	}

	if found {
		sess.Step = StepFailed
		sess.LastError = category
		if err := c.sessions.Put(ctx, sess); err != nil {
			return fmt.Errorf("save payment session: %w", err)
		}
	}

	c.logger.Warn().
		Str("call_id", result.CallID).
		Str("reservation_number", number).
		Str("error_type", category).
		Msg("payment failed")
	return nil
}

// CorrelateReservation works out which reservation a result refers to:
// message parameters first, then description back-references. An order-only
// reference is resolved to its parent reservation through the store. Receipt
// senders use the same derivation as the callback recorder.
func (c *Coordinator) CorrelateReservation(ctx context.Context, result ports.PaymentResult) string {
	if result.ReservationNumber != "" {
		return result.ReservationNumber
	}
	if m := reservationRefRe.FindStringSubmatch(result.Description); m != nil {
		return m[1]
	}

	orderNumber := result.OrderNumber
	if orderNumber == "" {
		if m := orderRefRe.FindStringSubmatch(result.Description); m != nil {
			orderNumber = m[1]
		}
	}
	if orderNumber == "" {
		return ""
	}

	res, err := c.store.FindReservationByOrderNumber(ctx, orderNumber)
	if err != nil {
		c.logger.Warn().Err(err).Str("order_number", orderNumber).Msg("order back-reference did not resolve")
		return ""
	}
	return res.Number
}

// backReference scans the transcript newest-first for a spoken reservation
// number, the weakest derivation source.
func backReference(turns []ports.ConversationTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if m := reservationRefRe.FindStringSubmatch(turns[i].Text); m != nil {
			return m[1]
		}
	}
	return ""
}
