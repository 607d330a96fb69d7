// Package payment abstracts the downstream payment processor used to replay
// offline transactions. Implementations wrap external processors behind a
// uniform interface; the sync subsystem only requires that repeating a call
// with the same idempotency key is safe and returns the original result.
package payment

import (
	"context"

	"github.com/allisson/possync/internal/errors"
)

// Status is the payment lifecycle status reported by the provider.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// Payment provider error definitions. These map the processor's conflict
// modes onto sentinel errors the sync handler can classify.
var (
	// ErrInsufficientFunds indicates the payer's balance cannot cover the
	// amount at replay time. Entries failing this way go to manual
	// reconciliation, never silent discard.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrReferenceExpired indicates a payment reference (e.g., a gift card)
	// expired between offline capture and sync. Fails for manual review.
	ErrReferenceExpired = errors.New("payment reference expired")

	// ErrUnavailable indicates a transient processor failure; safe to retry.
	ErrUnavailable = errors.New("payment provider unavailable")
)

// CreateIntentRequest carries the parameters for replaying one offline
// transaction. Amount is in minor currency units (cents).
type CreateIntentRequest struct {
	Amount                 int64
	Currency               string
	CustomerReference      string
	PaymentMethodReference string
	CaptureImmediately     bool
	Metadata               map[string]string
	// IdempotencyKey is the de-duplication token passed to the processor.
	// Repeating the call with the same key returns the original intent
	// instead of creating a second charge.
	IdempotencyKey string
}

// Intent is the provider-agnostic result of intent creation.
type Intent struct {
	Reference string
	Status    Status
}

// Provider creates payment intents against the downstream processor.
// Provider-side retry/backoff against the processor is the implementation's
// concern, not the caller's.
type Provider interface {
	CreateIntent(ctx context.Context, request CreateIntentRequest) (*Intent, error)
}
