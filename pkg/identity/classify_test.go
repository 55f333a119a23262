package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/testkit"
)

func TestClassify(t *testing.T) {
	owner := &accounts.User{ID: uuid.New()}
	mate := &accounts.User{ID: uuid.New()}
	sub := &accounts.Subscription{ID: uuid.New(), UserID: owner.ID, OwnerSeated: true}
	active := &billing.Subscription{Status: billing.StatusActive}

	t.Run("non-subscriber", func(t *testing.T) {
		state := Classify(owner, nil, nil, nil)
		assert.Equal(t, accounts.NonSubscriber, state.Kind)
		assert.False(t, state.IsActive())
	})

	t.Run("seated owner", func(t *testing.T) {
		state := Classify(owner, sub, active, nil)
		assert.True(t, state.IsOwner())
		assert.True(t, state.HasSeat)
		assert.True(t, state.IsActive())
	})

	t.Run("unseated owner is not active", func(t *testing.T) {
		unseated := *sub
		unseated.OwnerSeated = false
		state := Classify(owner, &unseated, active, nil)
		assert.True(t, state.IsOwner())
		assert.False(t, state.HasSeat)
		assert.False(t, state.IsActive())
	})

	t.Run("teammate inherits status and enterprise", func(t *testing.T) {
		enterprise := &accounts.EnterpriseAccount{CompanyName: "Acme"}
		state := Classify(mate, sub, &billing.Subscription{Status: billing.StatusPastDue}, enterprise)
		assert.Equal(t, accounts.Teammate, state.Kind)
		assert.Equal(t, billing.StatusPastDue, state.Status)
		assert.Equal(t, enterprise, state.Enterprise)
		assert.False(t, state.IsActive())
	})

	t.Run("deactivated subscription", func(t *testing.T) {
		deactivated := *sub
		deactivated.Deactivated = true
		state := Classify(mate, &deactivated, active, nil)
		assert.True(t, state.Deactivated)
		assert.False(t, state.IsActive())
	})
}

func TestStateResolver_State(t *testing.T) {
	ctx := context.Background()

	setup := func() (*testkit.Store, *testkit.Billing, *StateResolver) {
		store := testkit.NewStore()
		provider := testkit.NewBilling()
		return store, provider, NewStateResolver(NewResolver(store), store, provider)
	}

	t.Run("teammate of enterprise subscription", func(t *testing.T) {
		store, provider, sr := setup()
		_, sub := store.SeedOwner("owner@example.com", "sub_1")
		store.SeedEnterprise(sub, "Acme")
		provider.SeedSubscription(billing.Subscription{ID: "sub_1", Status: billing.StatusTrialing, Quantity: 3})
		mate := store.SeedTeammate("mate@example.com", sub)

		state, resolved, billingSub, err := sr.State(ctx, mate)
		require.NoError(t, err)
		assert.Equal(t, accounts.Teammate, state.Kind)
		assert.True(t, state.IsActive())
		require.NotNil(t, state.Enterprise)
		assert.Equal(t, "Acme", state.Enterprise.CompanyName)
		assert.Equal(t, sub.ID, resolved.ID)
		assert.Equal(t, 3, billingSub.Quantity)
	})

	t.Run("non-subscriber skips billing", func(t *testing.T) {
		store, provider, sr := setup()
		user := store.SeedUser("nobody@example.com")

		state, resolved, _, err := sr.State(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, accounts.NonSubscriber, state.Kind)
		assert.Nil(t, resolved)
		assert.Equal(t, 0, provider.Calls("FetchSubscription"))
	})

	t.Run("billing failure is returned with the resolved record", func(t *testing.T) {
		store, provider, sr := setup()
		owner, sub := store.SeedOwner("owner@example.com", "sub_1")
		provider.Fail("FetchSubscription", errors.New("stripe down"))

		state, resolved, _, err := sr.State(ctx, owner)
		require.Error(t, err)
		assert.Equal(t, accounts.NonSubscriber, state.Kind)
		assert.Equal(t, sub.ID, resolved.ID)
	})
}
