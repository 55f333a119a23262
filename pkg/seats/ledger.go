package seats

import (
	"context"
	"errors"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/locks"
	"github.com/platinummonkey/teamseats/pkg/observability"
)

// Ledger computes seat occupancy and applies quantity changes.
type Ledger struct {
	store     accounts.Store
	billing   billing.Provider
	catalogue *billing.Catalogue
	guard     locks.MutationGuard
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewLedger creates a Ledger. guard, metrics and logger may be nil.
func NewLedger(store accounts.Store, provider billing.Provider, catalogue *billing.Catalogue, guard locks.MutationGuard, metrics *observability.Metrics, logger *observability.Logger) *Ledger {
	if catalogue == nil {
		catalogue = billing.DefaultCatalogue()
	}
	return &Ledger{
		store:     store,
		billing:   provider,
		catalogue: catalogue,
		guard:     locks.OrNoop(guard),
		metrics:   metrics,
		logger:    observability.OrNop(logger),
	}
}

// Occupancy breaks down a subscription's occupied seats.
type Occupancy struct {
	Teammates   int  `json:"teammates"`
	Invites     int  `json:"invites"`
	OwnerSeated bool `json:"owner_seated"`
}

// Total is the number of occupied seats.
func (o Occupancy) Total() int {
	total := o.Teammates + o.Invites
	if o.OwnerSeated {
		total++
	}
	return total
}

// Occupancy counts teammates and pending invites of sub.
func (l *Ledger) Occupancy(ctx context.Context, sub *accounts.Subscription) (Occupancy, error) {
	teammates, err := l.store.FetchTeammatesByOwnerID(ctx, sub.UserID)
	if err != nil {
		return Occupancy{}, accounts.ErrStoreFailure.WithCause(err)
	}
	invites, err := l.store.FetchTeamInvites(ctx, sub.UserID)
	if err != nil {
		return Occupancy{}, accounts.ErrStoreFailure.WithCause(err)
	}
	return Occupancy{
		Teammates:   len(teammates),
		Invites:     len(invites),
		OwnerSeated: sub.OwnerSeated,
	}, nil
}

// OccupiedSeats returns the number of seats in use on sub.
func (l *Ledger) OccupiedSeats(ctx context.Context, sub *accounts.Subscription) (int, error) {
	occupancy, err := l.Occupancy(ctx, sub)
	if err != nil {
		return 0, err
	}
	return occupancy.Total(), nil
}

// ValidateQuantity rejects a quantity below the occupied seat count with ErrBelowOccupied.
func (l *Ledger) ValidateQuantity(ctx context.Context, sub *accounts.Subscription, requested int) error {
	occupied, err := l.OccupiedSeats(ctx, sub)
	if err != nil {
		return err
	}
	if requested < occupied {
		return accounts.ErrBelowOccupied
	}
	return nil
}

// AvailableSeats returns the purchased quantity minus the occupied seats. It may be negative
// when the provider was changed outside this service.
func (l *Ledger) AvailableSeats(ctx context.Context, sub *accounts.Subscription) (int, error) {
	billingSub, err := l.fetchBilling(ctx, sub)
	if err != nil {
		return 0, err
	}
	occupied, err := l.OccupiedSeats(ctx, sub)
	if err != nil {
		return 0, err
	}
	return billingSub.Quantity - occupied, nil
}

// ApplyPlanChange validates newQuantity and then moves the provider subscription to
// newPlanID at newQuantity.
func (l *Ledger) ApplyPlanChange(ctx context.Context, sub *accounts.Subscription, newPlanID string, newQuantity int) (*billing.Subscription, error) {
	release, err := l.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return nil, l.outcome("plan_change", err)
	}
	defer release()

	billingSub, err := l.fetchBilling(ctx, sub)
	if err != nil {
		return nil, l.outcome("plan_change", err)
	}
	updated, err := l.applyPlanChange(ctx, sub, billingSub, newPlanID, newQuantity)
	return updated, l.outcome("plan_change", err)
}

// AddSeats grows the subscription by n seats, keeping its billing interval. A single-seat
// plan moves to the team plan of the same interval.
func (l *Ledger) AddSeats(ctx context.Context, sub *accounts.Subscription, n int) (*billing.Subscription, error) {
	release, err := l.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return nil, l.outcome("add_seats", err)
	}
	defer release()

	billingSub, err := l.fetchBilling(ctx, sub)
	if err != nil {
		return nil, l.outcome("add_seats", err)
	}
	if !billingSub.Status.IsActive() {
		return nil, l.outcome("add_seats", accounts.ErrSubscriptionInvalid)
	}

	current, err := l.catalogue.Plan(billingSub.PlanID)
	if err != nil {
		l.logger.WithError(err).WithField("plan_id", billingSub.PlanID).Error("subscription is on an unknown plan")
		return nil, l.outcome("add_seats", accounts.ErrSubscriptionInvalid.WithCause(err))
	}

	quantity := billingSub.Quantity + n
	plan, err := l.catalogue.PlanFor(billing.Pricing{Interval: current.Interval, Quantity: quantity})
	if err != nil {
		return nil, l.outcome("add_seats", accounts.ErrSubscriptionInvalid.WithCause(err))
	}

	updated, err := l.applyPlanChange(ctx, sub, billingSub, plan.ID, quantity)
	return updated, l.outcome("add_seats", err)
}

func (l *Ledger) applyPlanChange(ctx context.Context, sub *accounts.Subscription, billingSub *billing.Subscription, planID string, quantity int) (*billing.Subscription, error) {
	if _, err := l.catalogue.Plan(planID); err != nil {
		return nil, accounts.ErrSeatingInvalid.WithCause(err)
	}
	if quantity < 1 || (l.catalogue.IsIndividual(planID) && quantity != 1) {
		return nil, accounts.ErrSeatingInvalid
	}

	if err := l.ValidateQuantity(ctx, sub, quantity); err != nil {
		return nil, err
	}

	ctx = billing.EnsureIdempotencyKey(ctx)
	updated, err := l.billing.UpdateSubscription(ctx, billingSub, planID, quantity)
	if err != nil {
		l.logger.WithError(err).WithFields(map[string]interface{}{
			"subscription_id": sub.ID.String(),
			"plan_id":         planID,
			"quantity":        quantity,
		}).Error("billing provider rejected plan change")
		return nil, accounts.ErrBillingFailure.WithCause(err)
	}

	l.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID.String(),
		"plan_id":         updated.PlanID,
		"quantity":        updated.Quantity,
	}).Info("subscription plan changed")
	return updated, nil
}

func (l *Ledger) fetchBilling(ctx context.Context, sub *accounts.Subscription) (*billing.Subscription, error) {
	billingSub, err := l.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		l.logger.WithError(err).WithField("subscription_id", sub.ID.String()).Error("failed to fetch billing subscription")
		return nil, accounts.ErrBillingFailure.WithCause(err)
	}
	return billingSub, nil
}

func (l *Ledger) outcome(transition string, err error) error {
	l.metrics.RecordTransition(transition, Outcome(err))
	return err
}

// Outcome labels an operation result for metrics: ok, rejected or failed.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, accounts.ErrExternalService):
		return "failed"
	default:
		return "rejected"
	}
}
