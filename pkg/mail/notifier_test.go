package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/async"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/testkit"
)

func TestNotifier(t *testing.T) {
	owner := &accounts.User{ID: uuid.New(), Email: "owner@example.com", Name: "Olive Owner"}
	teammate := &accounts.User{ID: uuid.New(), Email: "mate@example.com"}

	t.Run("team invite links to acceptance", func(t *testing.T) {
		mailer := testkit.NewMailer()
		d := async.NewDispatcher(nil, time.Second)
		n := NewNotifier(mailer, d, nil, "https://app.example.com/")

		invite := &accounts.TeamInvite{ID: uuid.New(), InviterUserID: owner.ID, Email: "new@example.com"}
		n.TeamInvite(context.Background(), invite, owner)
		d.Wait()

		sent := mailer.SentTo("new@example.com")
		require.Len(t, sent, 1)
		assert.Equal(t, "Olive Owner invited you to join their team", sent[0].Subject)
		assert.Contains(t, sent[0].Content, "https://app.example.com/invites/"+invite.ID.String()+"/accept")
	})

	t.Run("removal notifies both parties", func(t *testing.T) {
		mailer := testkit.NewMailer()
		d := async.NewDispatcher(nil, time.Second)
		n := NewNotifier(mailer, d, nil, "")

		n.TeammateRemoved(context.Background(), owner, teammate)
		d.Wait()

		assert.Len(t, mailer.SentTo(teammate.Email), 1)
		ownerMail := mailer.SentTo(owner.Email)
		require.Len(t, ownerMail, 1)
		// Falls back to the email when there is no name.
		assert.Equal(t, "mate@example.com was removed from your team", ownerMail[0].Subject)
	})

	t.Run("delivery failures are swallowed and counted", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := observability.NewMetrics(registry)
		mailer := testkit.NewMailer()
		mailer.Fail("SendEmail", errors.New("sendgrid down"))
		d := async.NewDispatcher(nil, time.Second)
		n := NewNotifier(mailer, d, metrics, "")

		n.InviteAccepted(context.Background(), owner, teammate)
		d.Wait()

		assert.Equal(t, 1, mailer.Calls("SendEmail"))
		assert.Empty(t, mailer.Sent())
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues(string(KindInviteAccepted), "error")))
	})
}
