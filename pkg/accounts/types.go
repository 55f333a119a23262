package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamseats/pkg/billing"
)

// User is a registered account holder.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	// SubscriptionID is set only when the user is a teammate of a subscription they do not own.
	SubscriptionID     *uuid.UUID `json:"subscription_id,omitempty"`
	EpisodeCreditCount int        `json:"episode_credit_count"`
	CreatedAt          time.Time  `json:"created_at"`
}

// DisplayName returns the user's name, falling back to their email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// IsTeammateOf reports whether the user is a member of the given subscription.
func (u *User) IsTeammateOf(subscriptionID uuid.UUID) bool {
	return u.SubscriptionID != nil && *u.SubscriptionID == subscriptionID
}

// Subscription is the local record that links an owner to a billing-provider subscription.
type Subscription struct {
	ID                   uuid.UUID `json:"id"`
	UserID               uuid.UUID `json:"user_id"`
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	OwnerSeated          bool      `json:"owner_seated"`
	Deactivated          bool      `json:"deactivated"`
	CreatedAt            time.Time `json:"created_at"`
}

// TeamInvite is a pending invitation to join the inviter's subscription.
type TeamInvite struct {
	ID            uuid.UUID `json:"id"`
	InviterUserID uuid.UUID `json:"inviter_user_id"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
}

// EmailSetting is a newsletter the user has opted into.
type EmailSetting struct {
	UserID     uuid.UUID `json:"user_id"`
	Newsletter string    `json:"newsletter"`
}

// EpisodeCredit records an episode unlocked with a credit.
type EpisodeCredit struct {
	UserID          uuid.UUID `json:"user_id"`
	EpisodeSequence int       `json:"episode_sequence"`
}

// EnterpriseAccount attaches a subscription to a company.
type EnterpriseAccount struct {
	ID             uuid.UUID `json:"id"`
	CompanyName    string    `json:"company_name"`
	Domain         string    `json:"domain"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
}

// SubscriberKind classifies how a user relates to a subscription.
type SubscriberKind string

const (
	NonSubscriber SubscriberKind = "non_subscriber"
	Owner         SubscriberKind = "owner"
	Teammate      SubscriberKind = "teammate"
)

// SubscriberState is the derived, never persisted, classification of a user.
type SubscriberState struct {
	Kind        SubscriberKind             `json:"kind"`
	HasSeat     bool                       `json:"has_seat"`
	Status      billing.SubscriptionStatus `json:"status,omitempty"`
	Deactivated bool                       `json:"deactivated"`
	Enterprise  *EnterpriseAccount         `json:"enterprise,omitempty"`
}

// NonSubscriberState is the state of a user with no governing subscription.
func NonSubscriberState() SubscriberState {
	return SubscriberState{Kind: NonSubscriber}
}

// IsOwner reports whether the user owns the governing subscription.
func (s SubscriberState) IsOwner() bool {
	return s.Kind == Owner
}

// IsActive reports whether the user currently has access through a subscription.
// Owners without a seat are not active subscribers.
func (s SubscriberState) IsActive() bool {
	switch s.Kind {
	case Owner:
		return s.HasSeat && !s.Deactivated && s.Status.IsActive()
	case Teammate:
		return !s.Deactivated && s.Status.IsActive()
	default:
		return false
	}
}
