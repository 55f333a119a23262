package accountview

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/identity"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/seats"
)

// Aggregator builds account views.
type Aggregator struct {
	store    accounts.Store
	billing  billing.Provider
	resolver *identity.Resolver
	metrics  *observability.Metrics
	logger   *observability.Logger
	tracer   trace.Tracer
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTracer overrides the tracer used for build spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = tracer
	}
}

// NewAggregator creates an Aggregator. metrics and logger may be nil.
func NewAggregator(store accounts.Store, provider billing.Provider, resolver *identity.Resolver, metrics *observability.Metrics, logger *observability.Logger, opts ...Option) *Aggregator {
	if resolver == nil {
		resolver = identity.NewResolver(store)
	}
	a := &Aggregator{
		store:    store,
		billing:  provider,
		resolver: resolver,
		metrics:  metrics,
		logger:   observability.OrNop(logger),
		tracer:   observability.Tracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build assembles the View for user. It never fails: every branch that errors is logged,
// counted and left at its empty value.
func (a *Aggregator) Build(ctx context.Context, user *accounts.User) *View {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "accountview.Build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("user.id", user.ID.String())),
	)
	defer span.End()
	defer func() {
		a.metrics.ObserveAggregate(time.Since(start))
	}()

	view := newView(user)
	var enterprise *accounts.EnterpriseAccount

	var g errgroup.Group
	a.spawn(ctx, &g, FieldEmailSettings, func() error {
		settings, err := a.store.FetchEmailSettings(ctx, user.ID)
		if err != nil {
			return err
		}
		view.EmailSettings = settings
		return nil
	})
	a.spawn(ctx, &g, FieldEpisodeCredits, func() error {
		credits, err := a.store.FetchEpisodeCredits(ctx, user.ID)
		if err != nil {
			return err
		}
		view.EpisodeCredits = credits
		return nil
	})
	a.spawn(ctx, &g, FieldSubscription, func() error {
		enterprise = a.buildSubscription(ctx, user, view)
		return nil
	})
	_ = g.Wait()

	view.State = identity.Classify(user, view.Subscription, view.BillingSubscription, enterprise)
	if view.Subscription != nil && view.Subscription.UserID == user.ID {
		view.SeatsTaken = seats.Occupancy{
			Teammates:   len(view.Teammates),
			Invites:     len(view.Invites),
			OwnerSeated: view.Subscription.OwnerSeated,
		}.Total()
	}

	span.SetAttributes(attribute.String("subscriber.kind", string(view.State.Kind)))
	return view
}

// buildSubscription resolves the governing subscription and fills every field that depends
// on it. It returns the enterprise account, if any, for classification.
func (a *Aggregator) buildSubscription(ctx context.Context, user *accounts.User, view *View) *accounts.EnterpriseAccount {
	sub, err := a.resolver.Resolve(ctx, user)
	if err != nil {
		a.degrade(ctx, FieldSubscription, err)
		return nil
	}
	if sub == nil {
		return nil
	}
	view.Subscription = sub
	ctx = observability.WithSubscriptionID(ctx, sub.ID.String())
	isOwner := sub.UserID == user.ID

	var enterprise *accounts.EnterpriseAccount
	var g errgroup.Group

	a.spawn(ctx, &g, FieldBillingSubscription, func() error {
		a.buildBilling(ctx, sub, isOwner, view)
		return nil
	})
	a.spawn(ctx, &g, FieldEnterprise, func() error {
		account, err := a.store.FetchEnterpriseAccountForSubscription(ctx, sub.ID)
		if errors.Is(err, accounts.ErrNotFound) {
			return nil
		}
		enterprise = account
		return err
	})

	if isOwner {
		a.spawn(ctx, &g, FieldTeammates, func() error {
			teammates, err := a.store.FetchTeammatesByOwnerID(ctx, sub.UserID)
			if err != nil {
				return err
			}
			view.Teammates = teammates
			return nil
		})
		a.spawn(ctx, &g, FieldInvites, func() error {
			invites, err := a.store.FetchTeamInvites(ctx, sub.UserID)
			if err != nil {
				return err
			}
			view.Invites = invites
			return nil
		})
	} else {
		a.spawn(ctx, &g, FieldOwner, func() error {
			owner, err := a.store.FetchUserByID(ctx, sub.UserID)
			if err != nil {
				return err
			}
			view.Owner = owner
			return nil
		})
	}

	_ = g.Wait()
	return enterprise
}

// buildBilling fetches the provider subscription and, for owners, the upcoming invoice and
// payment method that hang off it.
func (a *Aggregator) buildBilling(ctx context.Context, sub *accounts.Subscription, isOwner bool, view *View) {
	billingSub, err := a.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		a.degrade(ctx, FieldBillingSubscription, err)
		return
	}
	view.BillingSubscription = billingSub
	if !isOwner {
		return
	}

	var g errgroup.Group
	a.spawn(ctx, &g, FieldUpcomingInvoice, func() error {
		invoice, err := a.billing.FetchUpcomingInvoice(ctx, billingSub.CustomerID)
		if err != nil {
			return err
		}
		view.UpcomingInvoice = invoice
		return nil
	})
	if billingSub.DefaultPaymentMethodID != "" {
		a.spawn(ctx, &g, FieldPaymentMethod, func() error {
			pm, err := a.billing.FetchPaymentMethod(ctx, billingSub.DefaultPaymentMethodID)
			if err != nil {
				return err
			}
			view.PaymentMethod = pm
			return nil
		})
	}
	_ = g.Wait()
}

// spawn runs fetch on g. An error or panic from fetch degrades field and never fails the group.
func (a *Aggregator) spawn(ctx context.Context, g *errgroup.Group, field string, fetch func() error) {
	g.Go(func() error {
		defer observability.RecoverPanicWithCallback(a.logger, "accountview."+field, func(err error) {
			a.degrade(ctx, field, err)
		})
		if err := fetch(); err != nil {
			a.degrade(ctx, field, err)
		}
		return nil
	})
}

func (a *Aggregator) degrade(ctx context.Context, field string, err error) {
	a.metrics.RecordDegraded(field)
	trace.SpanFromContext(ctx).AddEvent("field degraded", trace.WithAttributes(
		attribute.String("field", field),
		attribute.String("error", err.Error()),
	))
	observability.Enrich(ctx, a.logger).WithError(err).WithField("field", field).Warn("account view field degraded")
}
