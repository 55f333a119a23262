package accounts

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence surface consumed by the orchestration components.
//
// Single-record fetches return an error matching ErrNotFound when the record is absent;
// list fetches return an empty slice.
type Store interface {
	// Subscriptions
	FetchSubscriptionByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FetchSubscriptionByOwnerID(ctx context.Context, ownerID uuid.UUID) (*Subscription, error)
	FetchSubscriptions(ctx context.Context) ([]*Subscription, error)
	SetOwnerSeated(ctx context.Context, subscriptionID uuid.UUID, seated bool) error
	FetchEnterpriseAccountForSubscription(ctx context.Context, subscriptionID uuid.UUID) (*EnterpriseAccount, error)

	// Users
	FetchUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	// Team membership
	FetchTeammatesByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*User, error)
	AddUserToSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error
	RemoveTeammate(ctx context.Context, userID uuid.UUID) error

	// Team invites
	FetchTeamInvite(ctx context.Context, id uuid.UUID) (*TeamInvite, error)
	FetchTeamInvites(ctx context.Context, inviterID uuid.UUID) ([]*TeamInvite, error)
	InsertTeamInvite(ctx context.Context, email string, inviterID uuid.UUID) (*TeamInvite, error)
	DeleteTeamInvite(ctx context.Context, id uuid.UUID) error

	// Account extras
	FetchEmailSettings(ctx context.Context, userID uuid.UUID) ([]*EmailSetting, error)
	FetchEpisodeCredits(ctx context.Context, userID uuid.UUID) ([]*EpisodeCredit, error)
}
