package subscriptions

import (
	"context"
	"errors"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/locks"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/seats"
)

// Transition names used for logging and metrics.
const (
	TransitionCancel            = "cancel"
	TransitionReactivate        = "reactivate"
	TransitionUpgrade           = "upgrade"
	TransitionDowngrade         = "downgrade"
	TransitionChangeTeamPricing = "change_team_pricing"
	TransitionPaymentMethod     = "update_payment_method"
)

// StateMachine runs cancel, reactivate, upgrade, downgrade and pricing changes.
type StateMachine struct {
	billing   billing.Provider
	ledger    *seats.Ledger
	catalogue *billing.Catalogue
	guard     locks.MutationGuard
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewStateMachine creates a StateMachine. A nil catalogue uses the default plans; guard,
// metrics and logger may be nil.
func NewStateMachine(provider billing.Provider, ledger *seats.Ledger, catalogue *billing.Catalogue, guard locks.MutationGuard, metrics *observability.Metrics, logger *observability.Logger) *StateMachine {
	if catalogue == nil {
		catalogue = billing.DefaultCatalogue()
	}
	return &StateMachine{
		billing:   provider,
		ledger:    ledger,
		catalogue: catalogue,
		guard:     locks.OrNoop(guard),
		metrics:   metrics,
		logger:    observability.OrNop(logger),
	}
}

// Cancel schedules the subscription to end at the close of its current period. It requires
// an active subscription that is not already scheduled to cancel.
func (m *StateMachine) Cancel(ctx context.Context, sub *accounts.Subscription) (*billing.Subscription, error) {
	return m.run(ctx, sub, TransitionCancel,
		func(_ context.Context, current *billing.Subscription) error {
			if current.Status != billing.StatusActive {
				return accounts.ErrNotActive
			}
			if current.CancelAtPeriodEnd {
				return accounts.ErrAlreadyCanceled
			}
			return nil
		},
		func(ctx context.Context, current *billing.Subscription) (*billing.Subscription, error) {
			return m.billing.CancelSubscription(ctx, current.ID)
		},
	)
}

// Reactivate undoes a scheduled cancellation. It requires cancel_at_period_end to be set.
func (m *StateMachine) Reactivate(ctx context.Context, sub *accounts.Subscription) (*billing.Subscription, error) {
	return m.run(ctx, sub, TransitionReactivate,
		func(_ context.Context, current *billing.Subscription) error {
			if !current.CancelAtPeriodEnd {
				return accounts.ErrNotEligible
			}
			return nil
		},
		func(ctx context.Context, current *billing.Subscription) (*billing.Subscription, error) {
			return m.billing.ReactivateSubscription(ctx, current)
		},
	)
}

// Upgrade moves an individual monthly subscription to the individual yearly plan.
func (m *StateMachine) Upgrade(ctx context.Context, sub *accounts.Subscription) (*billing.Subscription, error) {
	return m.switchIndividual(ctx, sub, TransitionUpgrade, billing.IntervalMonth, billing.IntervalYear)
}

// Downgrade moves an individual yearly subscription to the individual monthly plan.
func (m *StateMachine) Downgrade(ctx context.Context, sub *accounts.Subscription) (*billing.Subscription, error) {
	return m.switchIndividual(ctx, sub, TransitionDowngrade, billing.IntervalYear, billing.IntervalMonth)
}

func (m *StateMachine) switchIndividual(ctx context.Context, sub *accounts.Subscription, transition string, from, to billing.Interval) (*billing.Subscription, error) {
	source, err := m.catalogue.Individual(from)
	if err != nil {
		return nil, m.outcome(transition, accounts.ErrInvalidTransition.WithCause(err))
	}
	target, err := m.catalogue.Individual(to)
	if err != nil {
		return nil, m.outcome(transition, accounts.ErrInvalidTransition.WithCause(err))
	}

	return m.run(ctx, sub, transition,
		func(ctx context.Context, current *billing.Subscription) error {
			if current.PlanID != source.ID {
				return accounts.ErrInvalidTransition
			}
			if !current.Status.IsActive() {
				return accounts.ErrNotActive
			}
			return m.ledger.ValidateQuantity(ctx, sub, 1)
		},
		func(ctx context.Context, current *billing.Subscription) (*billing.Subscription, error) {
			return m.billing.UpdateSubscription(ctx, current, target.ID, 1)
		},
	)
}

// ChangeTeamPricing moves an active subscription to the plan and quantity described by
// pricing. Seat validation and the provider update are delegated to the ledger. Failures are
// reported as a generic ErrSeatingInvalid or ErrBillingFailure; the cause is only logged.
func (m *StateMachine) ChangeTeamPricing(ctx context.Context, sub *accounts.Subscription, pricing billing.Pricing) (*billing.Subscription, error) {
	updated, err := m.changeTeamPricing(ctx, sub, pricing)
	return updated, m.outcome(TransitionChangeTeamPricing, err)
}

func (m *StateMachine) changeTeamPricing(ctx context.Context, sub *accounts.Subscription, pricing billing.Pricing) (*billing.Subscription, error) {
	logger := m.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID.String(),
		"interval":        string(pricing.Interval),
		"quantity":        pricing.Quantity,
	})

	current, err := m.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		logger.WithError(err).Error("failed to fetch billing subscription")
		return nil, accounts.ErrBillingFailure
	}
	if current.Status != billing.StatusActive {
		return nil, accounts.ErrNotActive
	}

	plan, err := m.catalogue.PlanFor(pricing)
	if err != nil {
		logger.WithError(err).Warn("rejected team pricing")
		return nil, accounts.ErrSeatingInvalid
	}

	updated, err := m.ledger.ApplyPlanChange(ctx, sub, plan.ID, pricing.Quantity)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, accounts.ErrMutationInProgress):
		return nil, accounts.ErrMutationInProgress
	case errors.Is(err, accounts.ErrExternalService):
		logger.WithError(err).Error("team pricing change failed")
		return nil, accounts.ErrBillingFailure
	default:
		logger.WithError(err).Warn("rejected team pricing")
		return nil, accounts.ErrSeatingInvalid
	}
}

// UpdatePaymentMethod attaches paymentMethodID to the subscription's customer and makes it
// the default for future invoices.
func (m *StateMachine) UpdatePaymentMethod(ctx context.Context, sub *accounts.Subscription, paymentMethodID string) (*billing.PaymentMethod, error) {
	if paymentMethodID == "" {
		return nil, m.outcome(TransitionPaymentMethod, accounts.ErrNoPaymentMethod)
	}

	var attached *billing.PaymentMethod
	_, err := m.run(ctx, sub, TransitionPaymentMethod,
		func(context.Context, *billing.Subscription) error { return nil },
		func(ctx context.Context, current *billing.Subscription) (*billing.Subscription, error) {
			pm, err := m.billing.AttachPaymentMethod(ctx, paymentMethodID, current.CustomerID)
			if err != nil {
				return nil, err
			}
			if err := m.billing.UpdateCustomerDefaultPaymentMethod(ctx, current.CustomerID, pm.ID); err != nil {
				return nil, err
			}
			attached = pm
			updated := *current
			updated.DefaultPaymentMethodID = pm.ID
			return &updated, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return attached, nil
}

// run guards sub, reads its live provider state, checks the transition and applies it.
func (m *StateMachine) run(
	ctx context.Context,
	sub *accounts.Subscription,
	transition string,
	check func(context.Context, *billing.Subscription) error,
	apply func(context.Context, *billing.Subscription) (*billing.Subscription, error),
) (*billing.Subscription, error) {
	logger := m.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID.String(),
		"transition":      transition,
	})

	release, err := m.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return nil, m.outcome(transition, err)
	}
	defer release()

	current, err := m.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		logger.WithError(err).Error("failed to fetch billing subscription")
		return nil, m.outcome(transition, accounts.ErrBillingFailure.WithCause(err))
	}
	if err := check(ctx, current); err != nil {
		return nil, m.outcome(transition, err)
	}

	ctx = billing.EnsureIdempotencyKey(ctx)
	updated, err := apply(ctx, current)
	if err != nil {
		logger.WithError(err).Error("billing provider rejected transition")
		return nil, m.outcome(transition, accounts.ErrBillingFailure.WithCause(err))
	}

	logger.WithFields(map[string]interface{}{
		"plan_id":              updated.PlanID,
		"status":               string(updated.Status),
		"cancel_at_period_end": updated.CancelAtPeriodEnd,
	}).Info("subscription transition applied")
	return updated, m.outcome(transition, nil)
}

func (m *StateMachine) outcome(transition string, err error) error {
	m.metrics.RecordTransition(transition, seats.Outcome(err))
	return err
}
