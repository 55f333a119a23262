package accountview

import (
	"context"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
)

// Invoices lists the billing history of the subscription user owns. Teammates get
// ErrNotOwner and non-subscribers ErrSubscriptionNotFound.
func (a *Aggregator) Invoices(ctx context.Context, user *accounts.User) ([]*billing.Invoice, error) {
	sub, err := a.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}
	if sub == nil {
		return nil, accounts.ErrSubscriptionNotFound
	}
	if sub.UserID != user.ID {
		return nil, accounts.ErrNotOwner
	}

	logger := a.logger.WithField("subscription_id", sub.ID.String())
	billingSub, err := a.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		logger.WithError(err).Error("failed to fetch billing subscription")
		return nil, accounts.ErrBillingFailure.WithCause(err)
	}

	invoices, err := a.billing.FetchInvoices(ctx, billingSub.CustomerID)
	if err != nil {
		logger.WithError(err).Error("failed to fetch invoices")
		return nil, accounts.ErrBillingFailure.WithCause(err)
	}
	return invoices, nil
}
