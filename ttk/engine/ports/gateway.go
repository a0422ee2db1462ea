package engineports

import "context"

// Gateway result statuses and error categories.
const (
	PaymentSucceeded = "success"
	PaymentFailed    = "failed"

	GatewayErrInvalidCardType   = "invalid_card_type"
	GatewayErrInvalidCardNumber = "invalid_card_number"
	GatewayErrCardDeclined      = "card_declined"
	GatewayErrUnknown           = "unknown"
)

// PaymentRequest is the charge instruction handed to the gateway.
type PaymentRequest struct {
	CallID            string
	ReservationNumber string
	OrderNumber       string
	AmountCents       int64
	Currency          string
	Description       string
	Identity          string            // caller phone in E.164
	Metadata          map[string]string // correlation parameters echoed back on the callback
}

// PaymentResult is the asynchronous gateway callback payload.
type PaymentResult struct {
	CallID            string
	ReservationNumber string
	OrderNumber       string
	Status            string // "success" | "failed"
	ErrorType         string // set when Status is "failed"
	AmountCents       int64
	Description       string
}

// CallbackHandler consumes one gateway result.
type CallbackHandler func(ctx context.Context, result PaymentResult) error

// PaymentGateway submits charges and delivers their asynchronous outcomes.
type PaymentGateway interface {
	Submit(ctx context.Context, req PaymentRequest) error
	Subscribe(ctx context.Context, handler CallbackHandler) error
}
