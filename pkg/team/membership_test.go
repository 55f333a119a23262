package team

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/async"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/mail"
	"github.com/platinummonkey/teamseats/pkg/seats"
	"github.com/platinummonkey/teamseats/pkg/testkit"
)

type fixture struct {
	store      *testkit.Store
	provider   *testkit.Billing
	mailer     *testkit.Mailer
	dispatcher *async.Dispatcher
	membership *Membership
	owner      *accounts.User
	teammate   *accounts.User
	sub        *accounts.Subscription
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testkit.NewStore()
	provider := testkit.NewBilling()
	mailer := testkit.NewMailer()
	dispatcher := async.NewDispatcher(nil, time.Second)

	owner, sub := store.SeedOwner("owner@example.com", "sub_team")
	teammate := store.SeedTeammate("mate@example.com", sub)
	provider.SeedSubscription(billing.Subscription{ID: "sub_team", PlanID: billing.PlanTeamMonthly, Quantity: 2, Status: billing.StatusActive})

	ledger := seats.NewLedger(store, provider, nil, nil, nil, nil)
	notifier := mail.NewNotifier(mailer, dispatcher, nil, "")
	return &fixture{
		store:      store,
		provider:   provider,
		mailer:     mailer,
		dispatcher: dispatcher,
		membership: NewMembership(store, ledger, nil, notifier, nil, nil),
		owner:      owner,
		teammate:   teammate,
		sub:        sub,
	}
}

func TestMembership_RemoveTeammate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner removes a teammate", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.membership.RemoveTeammate(ctx, f.owner.ID, f.teammate.ID))
		assert.Nil(t, f.store.User(f.teammate.ID).SubscriptionID)

		f.dispatcher.Wait()
		assert.Len(t, f.mailer.SentTo("mate@example.com"), 1)
		assert.Len(t, f.mailer.SentTo("owner@example.com"), 1)
	})

	t.Run("email failures do not undo the removal", func(t *testing.T) {
		f := newFixture(t)
		f.mailer.Fail("SendEmail", errors.New("sendgrid down"))

		require.NoError(t, f.membership.RemoveTeammate(ctx, f.owner.ID, f.teammate.ID))
		f.dispatcher.Wait()
		assert.Nil(t, f.store.User(f.teammate.ID).SubscriptionID)
	})

	t.Run("owner removes themself", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.membership.RemoveTeammate(ctx, f.owner.ID, f.owner.ID))
		assert.False(t, f.store.Subscription(f.sub.ID).OwnerSeated)
		f.dispatcher.Wait()
		assert.Empty(t, f.mailer.Sent())

		_, err := f.store.FetchSubscriptionByOwnerID(ctx, f.owner.ID)
		assert.NoError(t, err)
	})

	t.Run("requester is not an owner", func(t *testing.T) {
		f := newFixture(t)

		err := f.membership.RemoveTeammate(ctx, f.teammate.ID, f.owner.ID)
		assert.True(t, errors.Is(err, accounts.ErrNotOwner))
		assert.True(t, errors.Is(err, accounts.ErrUnauthorized))
	})

	t.Run("target belongs to another team", func(t *testing.T) {
		f := newFixture(t)
		_, other := f.store.SeedOwner("other@example.com", "sub_other")
		outsider := f.store.SeedTeammate("outsider@example.com", other)

		err := f.membership.RemoveTeammate(ctx, f.owner.ID, outsider.ID)
		assert.True(t, errors.Is(err, accounts.ErrNotTeammate))
		assert.NotNil(t, f.store.User(outsider.ID).SubscriptionID)
	})

	t.Run("unknown target", func(t *testing.T) {
		f := newFixture(t)

		err := f.membership.RemoveTeammate(ctx, f.owner.ID, uuid.New())
		assert.True(t, errors.Is(err, accounts.ErrUserNotFound))
	})
}

func TestMembership_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("teammate leaves", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.membership.Leave(ctx, f.teammate.ID))
		assert.Nil(t, f.store.User(f.teammate.ID).SubscriptionID)
		f.dispatcher.Wait()
		assert.Empty(t, f.mailer.Sent())
	})

	t.Run("owner can never leave", func(t *testing.T) {
		f := newFixture(t)
		assert.True(t, errors.Is(f.membership.Leave(ctx, f.owner.ID), accounts.ErrOwnerCannotLeave))

		require.NoError(t, f.membership.RemoveTeammate(ctx, f.owner.ID, f.owner.ID))
		assert.True(t, errors.Is(f.membership.Leave(ctx, f.owner.ID), accounts.ErrOwnerCannotLeave))

		_, other := f.store.SeedOwner("other@example.com", "sub_other")
		require.NoError(t, f.store.AddUserToSubscription(ctx, f.owner.ID, other.ID))
		err := f.membership.Leave(ctx, f.owner.ID)
		assert.True(t, errors.Is(err, accounts.ErrOwnerCannotLeave))
		assert.True(t, errors.Is(err, accounts.ErrUnauthorized))
	})

	t.Run("non-subscriber", func(t *testing.T) {
		f := newFixture(t)
		user := f.store.SeedUser("nobody@example.com")

		assert.True(t, errors.Is(f.membership.Leave(ctx, user.ID), accounts.ErrNotTeammate))
	})
}

func TestMembership_TakeSeat(t *testing.T) {
	ctx := context.Background()

	t.Run("needs a free seat", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.membership.RemoveTeammate(ctx, f.owner.ID, f.owner.ID))
		f.store.SeedInvite("new@example.com", f.owner)

		err := f.membership.TakeSeat(ctx, f.owner.ID)
		assert.True(t, errors.Is(err, accounts.ErrNoSeatsAvailable))
		assert.False(t, f.store.Subscription(f.sub.ID).OwnerSeated)
	})

	t.Run("reseats the owner", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.membership.RemoveTeammate(ctx, f.owner.ID, f.owner.ID))

		require.NoError(t, f.membership.TakeSeat(ctx, f.owner.ID))
		assert.True(t, f.store.Subscription(f.sub.ID).OwnerSeated)
	})

	t.Run("already seated", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.membership.TakeSeat(ctx, f.owner.ID))
		assert.Equal(t, 0, f.store.Calls("SetOwnerSeated"))
	})
}
