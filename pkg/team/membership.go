package team

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/locks"
	"github.com/platinummonkey/teamseats/pkg/mail"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/seats"
)

// Membership removes teammates and manages the owner's seat.
type Membership struct {
	store    accounts.Store
	ledger   *seats.Ledger
	guard    locks.MutationGuard
	notifier *mail.Notifier
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewMembership creates a Membership. guard, metrics and logger may be nil.
func NewMembership(store accounts.Store, ledger *seats.Ledger, guard locks.MutationGuard, notifier *mail.Notifier, metrics *observability.Metrics, logger *observability.Logger) *Membership {
	return &Membership{
		store:    store,
		ledger:   ledger,
		guard:    locks.OrNoop(guard),
		notifier: notifier,
		metrics:  metrics,
		logger:   observability.OrNop(logger),
	}
}

// RemoveTeammate removes teammateID from the subscription owned by requesterID and emails
// both of them. An owner removing themself gives up their seat but keeps ownership, and no
// email is sent.
func (m *Membership) RemoveTeammate(ctx context.Context, requesterID, teammateID uuid.UUID) error {
	return m.outcome("remove_teammate", m.removeTeammate(ctx, requesterID, teammateID))
}

func (m *Membership) removeTeammate(ctx context.Context, requesterID, teammateID uuid.UUID) error {
	sub, err := m.ownedSubscription(ctx, requesterID)
	if err != nil {
		return err
	}
	if teammateID == requesterID {
		return m.setOwnerSeated(ctx, sub, false)
	}

	teammate, err := m.fetchUser(ctx, teammateID)
	if err != nil {
		return err
	}
	if !teammate.IsTeammateOf(sub.ID) {
		return accounts.ErrNotTeammate
	}

	release, err := m.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return err
	}
	defer release()

	logger := m.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID.String(),
		"teammate_id":     teammateID.String(),
	})
	if err := m.store.RemoveTeammate(ctx, teammateID); err != nil {
		logger.WithError(err).Error("failed to remove teammate")
		return accounts.ErrStoreFailure.WithCause(err)
	}
	logger.Info("teammate removed")

	owner, err := m.store.FetchUserByID(ctx, requesterID)
	if err != nil {
		logger.WithError(err).Warn("skipping teammate removed emails")
		return nil
	}
	m.notifier.TeammateRemoved(ctx, owner, teammate)
	return nil
}

// Leave removes userID from the team they belong to. Owners can never leave their own
// subscription.
func (m *Membership) Leave(ctx context.Context, userID uuid.UUID) error {
	return m.outcome("leave_team", m.leave(ctx, userID))
}

func (m *Membership) leave(ctx context.Context, userID uuid.UUID) error {
	_, err := m.store.FetchSubscriptionByOwnerID(ctx, userID)
	switch {
	case err == nil:
		return accounts.ErrOwnerCannotLeave
	case !errors.Is(err, accounts.ErrNotFound):
		return accounts.ErrStoreFailure.WithCause(err)
	}

	user, err := m.fetchUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.SubscriptionID == nil {
		return accounts.ErrNotTeammate
	}

	release, err := m.guard.Acquire(ctx, *user.SubscriptionID)
	if err != nil {
		return err
	}
	defer release()

	if err := m.store.RemoveTeammate(ctx, userID); err != nil {
		m.logger.WithError(err).WithField("user_id", userID.String()).Error("failed to leave team")
		return accounts.ErrStoreFailure.WithCause(err)
	}
	m.logger.WithFields(map[string]interface{}{
		"subscription_id": user.SubscriptionID.String(),
		"user_id":         userID.String(),
	}).Info("teammate left team")
	return nil
}

// TakeSeat gives the owner of a subscription a seat on it again. It needs a free seat.
func (m *Membership) TakeSeat(ctx context.Context, ownerID uuid.UUID) error {
	sub, err := m.ownedSubscription(ctx, ownerID)
	if err != nil {
		return m.outcome("take_seat", err)
	}
	return m.outcome("take_seat", m.setOwnerSeated(ctx, sub, true))
}

func (m *Membership) setOwnerSeated(ctx context.Context, sub *accounts.Subscription, seated bool) error {
	if sub.OwnerSeated == seated {
		return nil
	}

	release, err := m.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return err
	}
	defer release()

	if seated {
		available, err := m.ledger.AvailableSeats(ctx, sub)
		if err != nil {
			return err
		}
		if available < 1 {
			return accounts.ErrNoSeatsAvailable
		}
	}

	if err := m.store.SetOwnerSeated(ctx, sub.ID, seated); err != nil {
		m.logger.WithError(err).WithField("subscription_id", sub.ID.String()).Error("failed to update owner seat")
		return accounts.ErrStoreFailure.WithCause(err)
	}
	m.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID.String(),
		"owner_seated":    seated,
	}).Info("owner seat updated")
	return nil
}

func (m *Membership) ownedSubscription(ctx context.Context, ownerID uuid.UUID) (*accounts.Subscription, error) {
	sub, err := m.store.FetchSubscriptionByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, accounts.ErrNotOwner
		}
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}
	return sub, nil
}

func (m *Membership) fetchUser(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	user, err := m.store.FetchUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, accounts.ErrUserNotFound
		}
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}
	return user, nil
}

func (m *Membership) outcome(transition string, err error) error {
	m.metrics.RecordTransition(transition, seats.Outcome(err))
	return err
}
