package invites

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/locks"
	notify "github.com/platinummonkey/teamseats/pkg/mail"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/seats"
)

// Lifecycle creates, resends, revokes and accepts team invites.
type Lifecycle struct {
	store    accounts.Store
	billing  billing.Provider
	ledger   *seats.Ledger
	guard    locks.MutationGuard
	notifier *notify.Notifier
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewLifecycle creates a Lifecycle. guard, metrics and logger may be nil.
func NewLifecycle(store accounts.Store, provider billing.Provider, ledger *seats.Ledger, guard locks.MutationGuard, notifier *notify.Notifier, metrics *observability.Metrics, logger *observability.Logger) *Lifecycle {
	return &Lifecycle{
		store:    store,
		billing:  provider,
		ledger:   ledger,
		guard:    locks.OrNoop(guard),
		notifier: notifier,
		metrics:  metrics,
		logger:   observability.OrNop(logger),
	}
}

// Create invites email to the subscription owned by inviterID and emails the invitee.
// It fails with ErrNoSeatsAvailable when every purchased seat is taken.
func (l *Lifecycle) Create(ctx context.Context, inviterID uuid.UUID, email string) (*accounts.TeamInvite, error) {
	invite, err := l.create(ctx, inviterID, email)
	return invite, l.outcome("invite_create", err)
}

func (l *Lifecycle) create(ctx context.Context, inviterID uuid.UUID, email string) (*accounts.TeamInvite, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	inviter, err := l.fetchUser(ctx, inviterID)
	if err != nil {
		return nil, err
	}
	sub, err := l.ownedSubscription(ctx, inviterID)
	if err != nil {
		return nil, err
	}

	release, err := l.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	available, err := l.ledger.AvailableSeats(ctx, sub)
	if err != nil {
		return nil, err
	}
	if available < 1 {
		return nil, accounts.ErrNoSeatsAvailable
	}

	invite, err := l.store.InsertTeamInvite(ctx, email, inviterID)
	if err != nil {
		l.logger.WithError(err).WithField("inviter_id", inviterID.String()).Error("failed to insert team invite")
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}

	l.logger.WithFields(map[string]interface{}{
		"invite_id":       invite.ID.String(),
		"subscription_id": sub.ID.String(),
	}).Info("team invite created")
	l.notifier.TeamInvite(ctx, invite, inviter)
	return invite, nil
}

// Resend emails the invitation again. Only the inviter may resend.
func (l *Lifecycle) Resend(ctx context.Context, inviteID, requesterID uuid.UUID) error {
	invite, err := l.authorizedInvite(ctx, inviteID, requesterID)
	if err != nil {
		return l.outcome("invite_resend", err)
	}
	inviter, err := l.fetchUser(ctx, requesterID)
	if err != nil {
		return l.outcome("invite_resend", err)
	}
	l.notifier.TeamInvite(ctx, invite, inviter)
	return l.outcome("invite_resend", nil)
}

// Revoke deletes the invite, freeing its seat. Only the inviter may revoke.
func (l *Lifecycle) Revoke(ctx context.Context, inviteID, requesterID uuid.UUID) error {
	invite, err := l.authorizedInvite(ctx, inviteID, requesterID)
	if err != nil {
		return l.outcome("invite_revoke", err)
	}
	if err := l.store.DeleteTeamInvite(ctx, invite.ID); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return l.outcome("invite_revoke", accounts.ErrInviteNotFound)
		}
		return l.outcome("invite_revoke", accounts.ErrStoreFailure.WithCause(err))
	}
	l.logger.WithField("invite_id", invite.ID.String()).Info("team invite revoked")
	return l.outcome("invite_revoke", nil)
}

// Accept joins user to the inviter's subscription and consumes the invite.
//
// It fails with ErrActiveSubscriber when user owns an active, renewing subscription
// and with ErrInviterNotActive unless the inviter's subscription is active. Membership is
// written before the invite is deleted; a failed delete is reported but not rolled back.
func (l *Lifecycle) Accept(ctx context.Context, inviteID uuid.UUID, user *accounts.User) error {
	return l.outcome("invite_accept", l.accept(ctx, inviteID, user))
}

func (l *Lifecycle) accept(ctx context.Context, inviteID uuid.UUID, user *accounts.User) error {
	invite, err := l.fetchInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if err := l.checkNotSubscribed(ctx, user); err != nil {
		return err
	}

	sub, err := l.store.FetchSubscriptionByOwnerID(ctx, invite.InviterUserID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return accounts.ErrSubscriptionNotFound
		}
		return accounts.ErrStoreFailure.WithCause(err)
	}

	release, err := l.guard.Acquire(ctx, sub.ID)
	if err != nil {
		return err
	}
	defer release()

	billingSub, err := l.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		l.logger.WithError(err).WithField("subscription_id", sub.ID.String()).Error("failed to fetch inviter billing subscription")
		return accounts.ErrBillingFailure.WithCause(err)
	}
	if billingSub.Status != billing.StatusActive {
		return accounts.ErrInviterNotActive
	}

	logger := l.logger.WithFields(map[string]interface{}{
		"invite_id":       invite.ID.String(),
		"subscription_id": sub.ID.String(),
		"user_id":         user.ID.String(),
	})
	if err := l.store.AddUserToSubscription(ctx, user.ID, sub.ID); err != nil {
		logger.WithError(err).Error("failed to add user to subscription")
		return accounts.ErrStoreFailure.WithCause(err)
	}
	if err := l.store.DeleteTeamInvite(ctx, invite.ID); err != nil {
		logger.WithError(err).Error("user joined but the accepted invite could not be deleted")
		return accounts.ErrStoreFailure.WithCause(err)
	}
	logger.Info("team invite accepted")

	inviter, err := l.store.FetchUserByID(ctx, invite.InviterUserID)
	if err != nil {
		logger.WithError(err).Warn("skipping invite accepted email")
		return nil
	}
	l.notifier.InviteAccepted(ctx, inviter, user)
	return nil
}

// AddTeammateViaInvite buys one more seat on the inviter's subscription and, only when that
// succeeds, invites email into it.
func (l *Lifecycle) AddTeammateViaInvite(ctx context.Context, inviterID uuid.UUID, email string) (*accounts.TeamInvite, error) {
	if _, err := normalizeEmail(email); err != nil {
		return nil, l.outcome("add_teammate", err)
	}
	sub, err := l.ownedSubscription(ctx, inviterID)
	if err != nil {
		return nil, l.outcome("add_teammate", err)
	}
	if _, err := l.ledger.AddSeats(ctx, sub, 1); err != nil {
		return nil, l.outcome("add_teammate", err)
	}
	invite, err := l.create(ctx, inviterID, email)
	return invite, l.outcome("add_teammate", err)
}

// checkNotSubscribed rejects users who own a subscription that is active and renewing.
// Team membership is not considered. A subscription whose billing record cannot be read
// does not block acceptance.
func (l *Lifecycle) checkNotSubscribed(ctx context.Context, user *accounts.User) error {
	own, err := l.store.FetchSubscriptionByOwnerID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil
		}
		return accounts.ErrStoreFailure.WithCause(err)
	}
	billingSub, err := l.billing.FetchSubscription(ctx, own.StripeSubscriptionID)
	if err != nil {
		l.logger.WithError(err).WithField("user_id", user.ID.String()).Warn("could not read own subscription of invitee")
		return nil
	}
	if billingSub.IsRenewing() {
		return accounts.ErrActiveSubscriber
	}
	return nil
}

func (l *Lifecycle) authorizedInvite(ctx context.Context, inviteID, requesterID uuid.UUID) (*accounts.TeamInvite, error) {
	invite, err := l.fetchInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.InviterUserID != requesterID {
		return nil, accounts.ErrNotInviter
	}
	return invite, nil
}

func (l *Lifecycle) fetchInvite(ctx context.Context, id uuid.UUID) (*accounts.TeamInvite, error) {
	invite, err := l.store.FetchTeamInvite(ctx, id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, accounts.ErrInviteNotFound
		}
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}
	return invite, nil
}

func (l *Lifecycle) fetchUser(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	user, err := l.store.FetchUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, accounts.ErrUserNotFound
		}
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}
	return user, nil
}

// ownedSubscription returns the subscription ownerID owns, or ErrNotOwner.
func (l *Lifecycle) ownedSubscription(ctx context.Context, ownerID uuid.UUID) (*accounts.Subscription, error) {
	sub, err := l.store.FetchSubscriptionByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, accounts.ErrNotOwner
		}
		return nil, accounts.ErrStoreFailure.WithCause(err)
	}
	return sub, nil
}

func (l *Lifecycle) outcome(transition string, err error) error {
	l.metrics.RecordTransition(transition, seats.Outcome(err))
	return err
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", accounts.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", accounts.ErrInvalidEmail
	}
	return email, nil
}
