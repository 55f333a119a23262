package identity

import (
	"context"
	"errors"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
)

// Classify derives the user's SubscriberState from their resolved subscription.
// sub and billingSub may be nil; a nil sub is a non-subscriber.
func Classify(user *accounts.User, sub *accounts.Subscription, billingSub *billing.Subscription, enterprise *accounts.EnterpriseAccount) accounts.SubscriberState {
	if sub == nil {
		return accounts.NonSubscriberState()
	}

	state := accounts.SubscriberState{
		Deactivated: sub.Deactivated,
		Enterprise:  enterprise,
	}
	if billingSub != nil {
		state.Status = billingSub.Status
	}

	if sub.UserID == user.ID {
		state.Kind = accounts.Owner
		state.HasSeat = sub.OwnerSeated
	} else {
		state.Kind = accounts.Teammate
		state.HasSeat = true
	}
	return state
}

// StateResolver resolves and classifies users in one call.
type StateResolver struct {
	resolver *Resolver
	store    accounts.Store
	billing  billing.Provider
}

// NewStateResolver creates a StateResolver.
func NewStateResolver(resolver *Resolver, store accounts.Store, provider billing.Provider) *StateResolver {
	return &StateResolver{resolver: resolver, store: store, billing: provider}
}

// State resolves user's governing subscription and classifies them against its live status.
// It also returns the resolved records so callers need not fetch them again.
func (s *StateResolver) State(ctx context.Context, user *accounts.User) (accounts.SubscriberState, *accounts.Subscription, *billing.Subscription, error) {
	sub, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return accounts.NonSubscriberState(), nil, nil, err
	}
	if sub == nil {
		return accounts.NonSubscriberState(), nil, nil, nil
	}

	billingSub, err := s.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return accounts.NonSubscriberState(), sub, nil, err
	}

	enterprise, err := s.store.FetchEnterpriseAccountForSubscription(ctx, sub.ID)
	if err != nil && !errors.Is(err, accounts.ErrNotFound) {
		return accounts.NonSubscriberState(), sub, billingSub, err
	}

	return Classify(user, sub, billingSub, enterprise), sub, billingSub, nil
}
