package billing

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the billing-provider surface consumed by the orchestration components.
type Provider interface {
	FetchSubscription(ctx context.Context, id string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, sub *Subscription, planID string, quantity int) (*Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*Subscription, error)
	ReactivateSubscription(ctx context.Context, sub *Subscription) (*Subscription, error)

	FetchUpcomingInvoice(ctx context.Context, customerID string) (*Invoice, error)
	FetchInvoices(ctx context.Context, customerID string) ([]*Invoice, error)

	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*PaymentMethod, error)
	UpdateCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	FetchPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
}

type idempotencyKey struct{}

// WithIdempotencyKey attaches the key sent with mutating provider calls made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKey returns the key attached by WithIdempotencyKey, or "".
func IdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok {
		return key
	}
	return ""
}

// EnsureIdempotencyKey attaches a fresh key unless ctx already carries one.
func EnsureIdempotencyKey(ctx context.Context) context.Context {
	if IdempotencyKey(ctx) != "" {
		return ctx
	}
	return WithIdempotencyKey(ctx, uuid.NewString())
}
