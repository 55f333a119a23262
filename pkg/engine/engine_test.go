package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/testkit"
)

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Dependencies{Store: testkit.NewStore()})
	require.Error(t, err)
}

// TestEngine_TeamLifecycle walks one team from a single seat to two members and back.
func TestEngine_TeamLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testkit.NewStore()
	provider := testkit.NewBilling()
	mailer := testkit.NewMailer()

	owner, sub := store.SeedOwner("owner@example.com", "sub_1")
	provider.SeedSubscription(billing.Subscription{ID: "sub_1", PlanID: billing.PlanIndividualMonthly, Quantity: 1, Status: billing.StatusActive})
	invitee := store.SeedUser("friend@example.com")

	e, err := New(Dependencies{
		Store:         store,
		Billing:       provider,
		Mailer:        mailer,
		Metrics:       observability.NewMetrics(prometheus.NewRegistry()),
		AppURL:        "https://app.example.com",
		NotifyTimeout: time.Second,
	})
	require.NoError(t, err)

	// The single seat is the owner's, so inviting buys a second one on the team plan.
	_, err = e.Invites.Create(ctx, owner.ID, "friend@example.com")
	require.ErrorIs(t, err, accounts.ErrNoSeatsAvailable)

	invite, err := e.Invites.AddTeammateViaInvite(ctx, owner.ID, "friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanTeamMonthly, provider.Subscription("sub_1").PlanID)
	assert.Equal(t, 2, provider.Subscription("sub_1").Quantity)

	require.NoError(t, e.Invites.Accept(ctx, invite.ID, invitee))

	state, resolved, _, err := e.States.State(ctx, store.User(invitee.ID))
	require.NoError(t, err)
	assert.Equal(t, accounts.Teammate, state.Kind)
	assert.True(t, state.IsActive())
	assert.Equal(t, sub.ID, resolved.ID)

	view := e.Accounts.Build(ctx, owner)
	assert.Len(t, view.Teammates, 1)
	assert.Empty(t, view.Invites)
	assert.Equal(t, 2, view.SeatsTaken)

	// Dropping to one seat would strand the teammate.
	_, err = e.Subscriptions.ChangeTeamPricing(ctx, sub, billing.Pricing{Interval: billing.IntervalMonth, Quantity: 1})
	require.ErrorIs(t, err, accounts.ErrSeatingInvalid)

	require.NoError(t, e.Team.RemoveTeammate(ctx, owner.ID, invitee.ID))
	_, err = e.Subscriptions.ChangeTeamPricing(ctx, sub, billing.Pricing{Interval: billing.IntervalMonth, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, billing.PlanIndividualMonthly, provider.Subscription("sub_1").PlanID)

	report, err := e.Auditor.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Violations)

	e.Wait()
	assert.Len(t, mailer.SentTo("friend@example.com"), 2, "invite and removal")
	assert.Len(t, mailer.SentTo("owner@example.com"), 2, "accepted and removal notice")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, e.Shutdown(shutdownCtx))
}
