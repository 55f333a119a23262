package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamseats/pkg/accounts"
)

// failures is the shared call-counting and error-injection helper.
type failures struct {
	mu    sync.Mutex
	errs  map[string]error
	hooks map[string]func()
	calls map[string]int
}

func (f *failures) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	f.errs[method] = err
}

// OnCall runs hook on entry to method, before any seeded data is read. The hook may block
// or panic.
func (f *failures) OnCall(method string, hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hooks == nil {
		f.hooks = map[string]func(){}
	}
	f.hooks[method] = hook
}

// Calls returns how many times method was invoked.
func (f *failures) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *failures) enter(method string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
	err, hook := f.errs[method], f.hooks[method]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

// Store is an in-memory accounts.Store.
type Store struct {
	failures

	mu            sync.Mutex
	users         map[uuid.UUID]*accounts.User
	subscriptions map[uuid.UUID]*accounts.Subscription
	invites       map[uuid.UUID]*accounts.TeamInvite
	enterprise    map[uuid.UUID]*accounts.EnterpriseAccount
	emailSettings map[uuid.UUID][]*accounts.EmailSetting
	credits       map[uuid.UUID][]*accounts.EpisodeCredit
	clock         time.Time
}

var _ accounts.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:         map[uuid.UUID]*accounts.User{},
		subscriptions: map[uuid.UUID]*accounts.Subscription{},
		invites:       map[uuid.UUID]*accounts.TeamInvite{},
		enterprise:    map[uuid.UUID]*accounts.EnterpriseAccount{},
		emailSettings: map[uuid.UUID][]*accounts.EmailSetting{},
		credits:       map[uuid.UUID][]*accounts.EpisodeCredit{},
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering by creation is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// SeedUser adds a user with no subscription.
func (s *Store) SeedUser(email string) *accounts.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &accounts.User{ID: uuid.New(), Email: email, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return clone(u)
}

// SeedOwner adds a user owning a seated subscription linked to stripeID.
func (s *Store) SeedOwner(email, stripeID string) (*accounts.User, *accounts.Subscription) {
	u := s.SeedUser(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &accounts.Subscription{
		ID:                   uuid.New(),
		UserID:               u.ID,
		StripeSubscriptionID: stripeID,
		OwnerSeated:          true,
		CreatedAt:            s.tick(),
	}
	s.subscriptions[sub.ID] = sub
	return u, clone(sub)
}

// SeedTeammate adds a user who is a member of sub.
func (s *Store) SeedTeammate(email string, sub *accounts.Subscription) *accounts.User {
	u := s.SeedUser(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := sub.ID
	s.users[u.ID].SubscriptionID = &id
	return clone(s.users[u.ID])
}

// SeedInvite adds a pending invite from inviter.
func (s *Store) SeedInvite(email string, inviter *accounts.User) *accounts.TeamInvite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.insertInvite(email, inviter.ID))
}

// SeedEnterprise attaches sub to a company.
func (s *Store) SeedEnterprise(sub *accounts.Subscription, company string) *accounts.EnterpriseAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &accounts.EnterpriseAccount{ID: uuid.New(), CompanyName: company, SubscriptionID: sub.ID}
	s.enterprise[sub.ID] = e
	return clone(e)
}

// SeedEmailSetting opts the user into a newsletter.
func (s *Store) SeedEmailSetting(userID uuid.UUID, newsletter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailSettings[userID] = append(s.emailSettings[userID], &accounts.EmailSetting{UserID: userID, Newsletter: newsletter})
}

// SeedEpisodeCredit records an unlocked episode.
func (s *Store) SeedEpisodeCredit(userID uuid.UUID, sequence int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[userID] = append(s.credits[userID], &accounts.EpisodeCredit{UserID: userID, EpisodeSequence: sequence})
}

// DeleteSubscriptionRecord removes a subscription row, leaving dangling member references.
func (s *Store) DeleteSubscriptionRecord(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
}

// DeactivateSubscription marks a subscription as deactivated.
func (s *Store) DeactivateSubscription(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscriptions[id]; ok {
		sub.Deactivated = true
	}
}

// User returns the stored user, or nil.
func (s *Store) User(id uuid.UUID) *accounts.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return clone(u)
	}
	return nil
}

// Subscription returns the stored subscription, or nil.
func (s *Store) Subscription(id uuid.UUID) *accounts.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscriptions[id]; ok {
		return clone(sub)
	}
	return nil
}

// Invites returns every pending invite.
func (s *Store) Invites() []*accounts.TeamInvite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*accounts.TeamInvite, 0, len(s.invites))
	for _, inv := range s.invites {
		out = append(out, clone(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) FetchSubscriptionByID(ctx context.Context, id uuid.UUID) (*accounts.Subscription, error) {
	if err := s.enter("FetchSubscriptionByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, accounts.ErrSubscriptionNotFound
	}
	return clone(sub), nil
}

func (s *Store) FetchSubscriptionByOwnerID(ctx context.Context, ownerID uuid.UUID) (*accounts.Subscription, error) {
	if err := s.enter("FetchSubscriptionByOwnerID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		if sub.UserID == ownerID {
			return clone(sub), nil
		}
	}
	return nil, accounts.ErrSubscriptionNotFound
}

func (s *Store) FetchSubscriptions(ctx context.Context) ([]*accounts.Subscription, error) {
	if err := s.enter("FetchSubscriptions"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*accounts.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, clone(sub))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SetOwnerSeated(ctx context.Context, subscriptionID uuid.UUID, seated bool) error {
	if err := s.enter("SetOwnerSeated"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok {
		return accounts.ErrSubscriptionNotFound
	}
	sub.OwnerSeated = seated
	return nil
}

func (s *Store) FetchEnterpriseAccountForSubscription(ctx context.Context, subscriptionID uuid.UUID) (*accounts.EnterpriseAccount, error) {
	if err := s.enter("FetchEnterpriseAccountForSubscription"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enterprise[subscriptionID]
	if !ok {
		return nil, accounts.ErrEnterpriseAccountNotFound
	}
	return clone(e), nil
}

func (s *Store) FetchUserByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	if err := s.enter("FetchUserByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, accounts.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *accounts.User) error {
	if err := s.enter("UpdateUser"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return accounts.ErrUserNotFound
	}
	s.users[user.ID] = clone(user)
	return nil
}

func (s *Store) FetchTeammatesByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*accounts.User, error) {
	if err := s.enter("FetchTeammatesByOwnerID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*accounts.User{}
	for _, u := range s.users {
		if u.ID == ownerID || u.SubscriptionID == nil {
			continue
		}
		if sub, ok := s.subscriptions[*u.SubscriptionID]; ok && sub.UserID == ownerID {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddUserToSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	if err := s.enter("AddUserToSubscription"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	id := subscriptionID
	u.SubscriptionID = &id
	return nil
}

func (s *Store) RemoveTeammate(ctx context.Context, userID uuid.UUID) error {
	if err := s.enter("RemoveTeammate"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return accounts.ErrUserNotFound
	}
	u.SubscriptionID = nil
	return nil
}

func (s *Store) FetchTeamInvite(ctx context.Context, id uuid.UUID) (*accounts.TeamInvite, error) {
	if err := s.enter("FetchTeamInvite"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, accounts.ErrInviteNotFound
	}
	return clone(inv), nil
}

func (s *Store) FetchTeamInvites(ctx context.Context, inviterID uuid.UUID) ([]*accounts.TeamInvite, error) {
	if err := s.enter("FetchTeamInvites"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*accounts.TeamInvite{}
	for _, inv := range s.invites {
		if inv.InviterUserID == inviterID {
			out = append(out, clone(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertTeamInvite(ctx context.Context, email string, inviterID uuid.UUID) (*accounts.TeamInvite, error) {
	if err := s.enter("InsertTeamInvite"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.insertInvite(email, inviterID)), nil
}

func (s *Store) insertInvite(email string, inviterID uuid.UUID) *accounts.TeamInvite {
	inv := &accounts.TeamInvite{ID: uuid.New(), InviterUserID: inviterID, Email: email, CreatedAt: s.tick()}
	s.invites[inv.ID] = inv
	return inv
}

func (s *Store) DeleteTeamInvite(ctx context.Context, id uuid.UUID) error {
	if err := s.enter("DeleteTeamInvite"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invites[id]; !ok {
		return accounts.ErrInviteNotFound
	}
	delete(s.invites, id)
	return nil
}

func (s *Store) FetchEmailSettings(ctx context.Context, userID uuid.UUID) ([]*accounts.EmailSetting, error) {
	if err := s.enter("FetchEmailSettings"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*accounts.EmailSetting{}
	for _, e := range s.emailSettings[userID] {
		out = append(out, clone(e))
	}
	return out, nil
}

func (s *Store) FetchEpisodeCredits(ctx context.Context, userID uuid.UUID) ([]*accounts.EpisodeCredit, error) {
	if err := s.enter("FetchEpisodeCredits"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*accounts.EpisodeCredit{}
	for _, c := range s.credits[userID] {
		out = append(out, clone(c))
	}
	return out, nil
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}
