package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/async"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/seats"
)

const (
	// DefaultWorkers is the number of subscriptions audited concurrently.
	DefaultWorkers = 4
	// DefaultCheckTimeout bounds the audit of one subscription.
	DefaultCheckTimeout = 30 * time.Second
)

// Violation is a subscription whose purchased quantity is below its occupied seats.
type Violation struct {
	SubscriptionID       uuid.UUID `json:"subscription_id"`
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	Quantity             int       `json:"quantity"`
	Occupied             int       `json:"occupied"`
}

// Report summarizes one audit run.
type Report struct {
	Checked    int         `json:"checked"`
	Skipped    int         `json:"skipped"`
	Violations []Violation `json:"violations"`
	Failed     int         `json:"failed"`
}

// Auditor compares live quantities with occupied seats.
type Auditor struct {
	store   accounts.Store
	billing billing.Provider
	ledger  *seats.Ledger
	metrics *observability.Metrics
	logger  *observability.Logger
	workers int
	timeout time.Duration
}

// NewAuditor creates an Auditor. workers and timeout fall back to their defaults when zero.
func NewAuditor(store accounts.Store, provider billing.Provider, ledger *seats.Ledger, metrics *observability.Metrics, logger *observability.Logger, workers int, timeout time.Duration) *Auditor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Auditor{
		store:   store,
		billing: provider,
		ledger:  ledger,
		metrics: metrics,
		logger:  observability.OrNop(logger),
		workers: workers,
		timeout: timeout,
	}
}

// Run audits every subscription that is not deactivated or canceled. Subscriptions that
// cannot be checked are counted in Report.Failed and their errors are joined into the
// returned error; the report is always returned.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{Violations: []Violation{}}

	subs, err := a.store.FetchSubscriptions(ctx)
	if err != nil {
		err = fmt.Errorf("failed to list subscriptions: %w", err)
		a.metrics.RecordReconcileRun(err)
		return report, err
	}

	var mu sync.Mutex
	errs := async.Batch(ctx, a.logger, subs, a.workers, "seat audit", a.timeout, func(ctx context.Context, sub *accounts.Subscription) error {
		violation, checked, err := a.check(ctx, sub)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			report.Failed++
		case !checked:
			report.Skipped++
		default:
			report.Checked++
			if violation != nil {
				report.Violations = append(report.Violations, *violation)
			}
		}
		return err
	})

	sort.Slice(report.Violations, func(i, j int) bool {
		return report.Violations[i].StripeSubscriptionID < report.Violations[j].StripeSubscriptionID
	})

	err = errors.Join(errs...)
	a.metrics.RecordReconcileRun(err)
	a.logger.WithFields(map[string]interface{}{
		"checked":    report.Checked,
		"skipped":    report.Skipped,
		"violations": len(report.Violations),
		"failed":     report.Failed,
	}).Info("seat audit completed")
	return report, err
}

// check audits one subscription. checked is false when the subscription is skipped.
func (a *Auditor) check(ctx context.Context, sub *accounts.Subscription) (*Violation, bool, error) {
	if sub.Deactivated {
		return nil, false, nil
	}

	billingSub, err := a.billing.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch billing subscription %s: %w", sub.StripeSubscriptionID, err)
	}
	if billingSub.Status == billing.StatusCanceled {
		return nil, false, nil
	}

	occupied, err := a.ledger.OccupiedSeats(ctx, sub)
	if err != nil {
		return nil, false, fmt.Errorf("failed to count seats of subscription %s: %w", sub.ID, err)
	}
	if billingSub.Quantity >= occupied {
		return nil, true, nil
	}

	a.metrics.RecordSeatViolation()
	a.logger.WithFields(map[string]interface{}{
		"subscription_id":        sub.ID.String(),
		"stripe_subscription_id": sub.StripeSubscriptionID,
		"quantity":               billingSub.Quantity,
		"occupied":               occupied,
	}).Warn("subscription has fewer seats than occupied")

	return &Violation{
		SubscriptionID:       sub.ID,
		StripeSubscriptionID: sub.StripeSubscriptionID,
		Quantity:             billingSub.Quantity,
		Occupied:             occupied,
	}, true, nil
}
