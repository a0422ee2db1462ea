package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// WatermillGateway bridges the payment gateway over a watermill pub/sub pair:
// charge requests go out on one topic, asynchronous results come back on
// another and are correlated by call id.
type WatermillGateway struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	requestTopic  string
	callbackTopic string
	logger        zerolog.Logger
}

// NewWatermillGateway creates a gateway on the given publisher/subscriber pair.
func NewWatermillGateway(pub message.Publisher, sub message.Subscriber, requestTopic, callbackTopic string, logger zerolog.Logger) *WatermillGateway {
	return &WatermillGateway{
		publisher:     pub,
		subscriber:    sub,
		requestTopic:  requestTopic,
		callbackTopic: callbackTopic,
		logger:        logger.With().Str("component", "payment_gateway").Logger(),
	}
}

// Submit publishes one charge request.
func (g *WatermillGateway) Submit(ctx context.Context, req ports.PaymentRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal payment request: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("call_id", req.CallID)
	msg.Metadata.Set("reservation_number", req.ReservationNumber)

	if err := g.publisher.Publish(g.requestTopic, msg); err != nil {
		return fmt.Errorf("failed to publish payment request: %w", err)
	}

	g.logger.Info().
		Str("call_id", req.CallID).
		Str("reservation_number", req.ReservationNumber).
		Int64("amount_cents", req.AmountCents).
		Msg("payment request submitted")
	return nil
}

// Subscribe consumes gateway results until ctx is cancelled, invoking the
// handler for each decoded message. Undecodable and failed messages are
// acked after logging: the coordinator treats results idempotently, so
// redelivery would only repeat work.
func (g *WatermillGateway) Subscribe(ctx context.Context, handler ports.CallbackHandler) error {
	messages, err := g.subscriber.Subscribe(ctx, g.callbackTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", g.callbackTopic, err)
	}

	go g.consume(ctx, messages, handler)
	return nil
}

func (g *WatermillGateway) consume(ctx context.Context, messages <-chan *message.Message, handler ports.CallbackHandler) {
	g.logger.Info().Str("topic", g.callbackTopic).Msg("payment callback consumer started")

	for msg := range messages {
		var result ports.PaymentResult
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			g.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("failed to decode payment result")
			msg.Ack()
			continue
		}

		if result.CallID == "" {
			result.CallID = msg.Metadata.Get("call_id")
		}

		if err := handler(ctx, result); err != nil {
			g.logger.Error().Err(err).
				Str("call_id", result.CallID).
				Str("reservation_number", result.ReservationNumber).
				Msg("payment callback handler failed")
		}
		msg.Ack()
	}

	g.logger.Info().Str("topic", g.callbackTopic).Msg("payment callback consumer stopped")
}

// Ensure WatermillGateway implements the PaymentGateway interface.
var _ ports.PaymentGateway = (*WatermillGateway)(nil)
