package engineports

import (
	"context"
	"time"
)

// PaymentSession tracks one call's payment sub-protocol between turns.
type PaymentSession struct {
	CallID             string
	ReservationNumber  string
	Step               string // forward-only except explicit retry reset
	ConfirmationNumber string
	AmountCents        int64
	Announced          bool   // success spoken to the caller already
	LastError          string // gateway error category behind a "failed" step
	StartedAt          time.Time
	UpdatedAt          time.Time
}

// SessionStore keeps payment sessions keyed by call id. Eviction is explicit:
// Delete pops, Sweep removes sessions started before the cutoff.
type SessionStore interface {
	Put(ctx context.Context, session PaymentSession) error
	Get(ctx context.Context, callID string) (PaymentSession, bool, error)
	Delete(ctx context.Context, callID string) (PaymentSession, bool, error)
	Sweep(ctx context.Context, startedBefore time.Time) (int, error)
}
