package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/teamseats/pkg/accounts"
)

// Strategy looks up a candidate subscription for user. It returns (nil, nil) when it has
// nothing to offer so the next strategy runs.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, user *accounts.User) (*accounts.Subscription, error)
}

// MembershipStrategy follows User.SubscriptionID.
type MembershipStrategy struct {
	Store accounts.Store
}

func (MembershipStrategy) Name() string { return "membership" }

// Resolve returns the referenced subscription; a dangling reference yields nothing.
func (s MembershipStrategy) Resolve(ctx context.Context, user *accounts.User) (*accounts.Subscription, error) {
	if user.SubscriptionID == nil {
		return nil, nil
	}
	sub, err := s.Store.FetchSubscriptionByID(ctx, *user.SubscriptionID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// OwnershipStrategy finds the subscription the user owns.
type OwnershipStrategy struct {
	Store accounts.Store
}

func (OwnershipStrategy) Name() string { return "ownership" }

func (s OwnershipStrategy) Resolve(ctx context.Context, user *accounts.User) (*accounts.Subscription, error) {
	sub, err := s.Store.FetchSubscriptionByOwnerID(ctx, user.ID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// Resolver determines the single subscription governing a user.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a resolver with the membership-then-ownership order.
func NewResolver(store accounts.Store) *Resolver {
	return NewResolverWithStrategies(
		MembershipStrategy{Store: store},
		OwnershipStrategy{Store: store},
	)
}

// NewResolverWithStrategies creates a resolver that tries strategies in order.
func NewResolverWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the governing subscription, or nil for a non-subscriber.
// A store failure stops resolution and is returned.
func (r *Resolver) Resolve(ctx context.Context, user *accounts.User) (*accounts.Subscription, error) {
	for _, strategy := range r.strategies {
		sub, err := strategy.Resolve(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve subscription via %s: %w", strategy.Name(), err)
		}
		if sub != nil {
			return sub, nil
		}
	}
	return nil, nil
}
