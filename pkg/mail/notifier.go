package mail

import (
	"context"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/async"
	"github.com/platinummonkey/teamseats/pkg/observability"
)

// Notifier sends team notifications as detached tasks.
//
// None of its methods block on delivery or report its outcome.
type Notifier struct {
	mailer     Mailer
	dispatcher *async.Dispatcher
	metrics    *observability.Metrics
	appURL     string
}

// NewNotifier creates a notifier. appURL is the base of links placed in emails; metrics may be nil.
func NewNotifier(mailer Mailer, dispatcher *async.Dispatcher, metrics *observability.Metrics, appURL string) *Notifier {
	return &Notifier{
		mailer:     mailer,
		dispatcher: dispatcher,
		metrics:    metrics,
		appURL:     appURL,
	}
}

// Send dispatches msg.
func (n *Notifier) Send(ctx context.Context, msg Message) {
	n.dispatcher.Go(ctx, string(msg.Kind)+" email", func(ctx context.Context) error {
		err := n.mailer.SendEmail(ctx, msg.To, msg.Subject, msg.Content)
		n.metrics.RecordNotification(string(msg.Kind), err)
		return err
	})
}

// TeamInvite emails the invitee a link to accept invite.
func (n *Notifier) TeamInvite(ctx context.Context, invite *accounts.TeamInvite, inviter *accounts.User) {
	n.Send(ctx, TeamInviteMessage(invite, inviter, n.appURL))
}

// InviteAccepted emails the inviter.
func (n *Notifier) InviteAccepted(ctx context.Context, inviter, invitee *accounts.User) {
	n.Send(ctx, InviteAcceptedMessage(inviter, invitee))
}

// TeammateRemoved emails the removed teammate and the owner independently.
func (n *Notifier) TeammateRemoved(ctx context.Context, owner, teammate *accounts.User) {
	n.Send(ctx, TeammateRemovedMessage(owner, teammate))
	n.Send(ctx, TeammateRemovedNoticeMessage(owner, teammate))
}
