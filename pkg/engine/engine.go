package engine

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/accountview"
	"github.com/platinummonkey/teamseats/pkg/async"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/identity"
	"github.com/platinummonkey/teamseats/pkg/invites"
	"github.com/platinummonkey/teamseats/pkg/locks"
	"github.com/platinummonkey/teamseats/pkg/mail"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/reconcile"
	"github.com/platinummonkey/teamseats/pkg/seats"
	"github.com/platinummonkey/teamseats/pkg/subscriptions"
	"github.com/platinummonkey/teamseats/pkg/team"
)

// Dependencies are the collaborators an Engine is built from. Store, Billing and Mailer are
// required; everything else may be left zero.
type Dependencies struct {
	Store     accounts.Store
	Billing   billing.Provider
	Mailer    mail.Mailer
	Catalogue *billing.Catalogue
	Guard     locks.MutationGuard
	Metrics   *observability.Metrics
	Logger    *observability.Logger

	// AppURL is the base of links placed in notification emails
	AppURL string
	// NotifyTimeout bounds each detached notification task
	NotifyTimeout time.Duration
	// AuditWorkers is the seat audit concurrency
	AuditWorkers int
}

// Engine holds every orchestration component.
type Engine struct {
	Resolver      *identity.Resolver
	States        *identity.StateResolver
	Accounts      *accountview.Aggregator
	Seats         *seats.Ledger
	Invites       *invites.Lifecycle
	Subscriptions *subscriptions.StateMachine
	Team          *team.Membership
	Auditor       *reconcile.Auditor

	dispatcher *async.Dispatcher
}

// New builds an Engine.
func New(deps Dependencies) (*Engine, error) {
	if deps.Store == nil || deps.Billing == nil || deps.Mailer == nil {
		return nil, errors.New("engine: store, billing and mailer are required")
	}
	logger := observability.OrNop(deps.Logger)
	catalogue := deps.Catalogue
	if catalogue == nil {
		catalogue = billing.DefaultCatalogue()
	}

	dispatcher := async.NewDispatcher(logger, deps.NotifyTimeout)
	notifier := mail.NewNotifier(deps.Mailer, dispatcher, deps.Metrics, deps.AppURL)

	resolver := identity.NewResolver(deps.Store)
	ledger := seats.NewLedger(deps.Store, deps.Billing, catalogue, deps.Guard, deps.Metrics, logger.WithField("component", "seats"))

	return &Engine{
		Resolver: resolver,
		States:   identity.NewStateResolver(resolver, deps.Store, deps.Billing),
		Accounts: accountview.NewAggregator(deps.Store, deps.Billing, resolver, deps.Metrics, logger.WithField("component", "accountview")),
		Seats:    ledger,
		Invites: invites.NewLifecycle(deps.Store, deps.Billing, ledger, deps.Guard, notifier,
			deps.Metrics, logger.WithField("component", "invites")),
		Subscriptions: subscriptions.NewStateMachine(deps.Billing, ledger, catalogue, deps.Guard,
			deps.Metrics, logger.WithField("component", "subscriptions")),
		Team: team.NewMembership(deps.Store, ledger, deps.Guard, notifier,
			deps.Metrics, logger.WithField("component", "team")),
		Auditor: reconcile.NewAuditor(deps.Store, deps.Billing, ledger, deps.Metrics,
			logger.WithField("component", "reconcile"), deps.AuditWorkers, 0),
		dispatcher: dispatcher,
	}, nil
}

// Wait blocks until every dispatched notification has finished.
func (e *Engine) Wait() {
	e.dispatcher.Wait()
}

// Shutdown waits for in-flight notifications or until ctx is done.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.dispatcher.Shutdown(ctx)
}
