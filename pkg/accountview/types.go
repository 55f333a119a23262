package accountview

import (
	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
)

// Field names used when a branch degrades.
const (
	FieldSubscription        = "subscription"
	FieldBillingSubscription = "billing_subscription"
	FieldEnterprise          = "enterprise"
	FieldOwner               = "owner"
	FieldTeammates           = "teammates"
	FieldInvites             = "invites"
	FieldUpcomingInvoice     = "upcoming_invoice"
	FieldPaymentMethod       = "payment_method"
	FieldEmailSettings       = "email_settings"
	FieldEpisodeCredits      = "episode_credits"
)

// View is the account page aggregate for one user. It is rebuilt on every request.
//
// Teammates, Invites, UpcomingInvoice, PaymentMethod and SeatsTaken are only filled for the
// subscription owner. Owner is only filled for teammates.
type View struct {
	User                *accounts.User            `json:"user"`
	State               accounts.SubscriberState  `json:"state"`
	Subscription        *accounts.Subscription    `json:"subscription,omitempty"`
	BillingSubscription *billing.Subscription     `json:"billing_subscription,omitempty"`
	Owner               *accounts.User            `json:"owner,omitempty"`
	Teammates           []*accounts.User          `json:"teammates"`
	Invites             []*accounts.TeamInvite    `json:"invites"`
	UpcomingInvoice     *billing.Invoice          `json:"upcoming_invoice,omitempty"`
	PaymentMethod       *billing.PaymentMethod    `json:"payment_method,omitempty"`
	EmailSettings       []*accounts.EmailSetting  `json:"email_settings"`
	EpisodeCredits      []*accounts.EpisodeCredit `json:"episode_credits"`
	SeatsTaken          int                       `json:"seats_taken"`
}

func newView(user *accounts.User) *View {
	return &View{
		User:           user,
		State:          accounts.NonSubscriberState(),
		Teammates:      []*accounts.User{},
		Invites:        []*accounts.TeamInvite{},
		EmailSettings:  []*accounts.EmailSetting{},
		EpisodeCredits: []*accounts.EpisodeCredit{},
	}
}
