package billing

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

// invoiceHistoryLimit caps how many past invoices FetchInvoices returns.
const invoiceHistoryLimit = 24

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct {
	metrics *observability.Metrics
}

// NewStripeProvider configures the Stripe client with apiKey. metrics may be nil.
func NewStripeProvider(apiKey string, metrics *observability.Metrics) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{metrics: metrics}
}

// FetchSubscription retrieves a subscription with its default payment method.
func (p *StripeProvider) FetchSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := subscription.Get(id, params)
	p.metrics.RecordBillingCall("fetch_subscription", err)
	if err != nil {
		return nil, fmt.Errorf("billing: fetch stripe subscription %s: %w", id, err)
	}
	return convertSubscription(s), nil
}

// UpdateSubscription switches the subscription's single item to planID at quantity.
func (p *StripeProvider) UpdateSubscription(ctx context.Context, sub *Subscription, planID string, quantity int) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:       stripe.String(sub.ItemID),
				Price:    stripe.String(planID),
				Quantity: stripe.Int64(int64(quantity)),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	p.prepare(ctx, &params.Params, "update_subscription")

	s, err := subscription.Update(sub.ID, params)
	p.metrics.RecordBillingCall("update_subscription", err)
	if err != nil {
		return nil, fmt.Errorf("billing: update stripe subscription %s: %w", sub.ID, err)
	}
	return convertSubscription(s), nil
}

// CancelSubscription schedules cancellation at the end of the current period.
func (p *StripeProvider) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	p.prepare(ctx, &params.Params, "cancel_subscription")

	s, err := subscription.Update(id, params)
	p.metrics.RecordBillingCall("cancel_subscription", err)
	if err != nil {
		return nil, fmt.Errorf("billing: cancel stripe subscription %s: %w", id, err)
	}
	return convertSubscription(s), nil
}

// ReactivateSubscription clears a scheduled cancellation.
func (p *StripeProvider) ReactivateSubscription(ctx context.Context, sub *Subscription) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	p.prepare(ctx, &params.Params, "reactivate_subscription")

	s, err := subscription.Update(sub.ID, params)
	p.metrics.RecordBillingCall("reactivate_subscription", err)
	if err != nil {
		return nil, fmt.Errorf("billing: reactivate stripe subscription %s: %w", sub.ID, err)
	}
	return convertSubscription(s), nil
}

// FetchUpcomingInvoice previews the customer's next invoice.
func (p *StripeProvider) FetchUpcomingInvoice(ctx context.Context, customerID string) (*Invoice, error) {
	params := &stripe.InvoiceCreatePreviewParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	inv, err := invoice.CreatePreview(params)
	p.metrics.RecordBillingCall("fetch_upcoming_invoice", err)
	if err != nil {
		return nil, fmt.Errorf("billing: preview stripe invoice for %s: %w", customerID, err)
	}
	return convertInvoice(inv), nil
}

// FetchInvoices lists the customer's most recent invoices, newest first.
func (p *StripeProvider) FetchInvoices(ctx context.Context, customerID string) ([]*Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(invoiceHistoryLimit)
	params.Single = true

	invoices := []*Invoice{}
	iter := invoice.List(params)
	for iter.Next() {
		invoices = append(invoices, convertInvoice(iter.Invoice()))
	}
	err := iter.Err()
	p.metrics.RecordBillingCall("fetch_invoices", err)
	if err != nil {
		return nil, fmt.Errorf("billing: list stripe invoices for %s: %w", customerID, err)
	}
	return invoices, nil
}

// AttachPaymentMethod attaches a payment method to a customer.
func (p *StripeProvider) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	p.prepare(ctx, &params.Params, "attach_payment_method")

	pm, err := paymentmethod.Attach(paymentMethodID, params)
	p.metrics.RecordBillingCall("attach_payment_method", err)
	if err != nil {
		return nil, fmt.Errorf("billing: attach stripe payment method %s: %w", paymentMethodID, err)
	}
	return convertPaymentMethod(pm), nil
}

// UpdateCustomerDefaultPaymentMethod makes paymentMethodID the customer's invoice default.
func (p *StripeProvider) UpdateCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	p.prepare(ctx, &params.Params, "update_default_payment_method")

	_, err := customer.Update(customerID, params)
	p.metrics.RecordBillingCall("update_default_payment_method", err)
	if err != nil {
		return fmt.Errorf("billing: set default payment method for %s: %w", customerID, err)
	}
	return nil
}

// FetchPaymentMethod retrieves a payment method.
func (p *StripeProvider) FetchPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(id, params)
	p.metrics.RecordBillingCall("fetch_payment_method", err)
	if err != nil {
		return nil, fmt.Errorf("billing: fetch stripe payment method %s: %w", id, err)
	}
	return convertPaymentMethod(pm), nil
}

// prepare binds ctx to a mutating request and scopes its idempotency key to operation, so
// the requests of one logical change never share a key.
func (p *StripeProvider) prepare(ctx context.Context, params *stripe.Params, operation string) {
	params.Context = ctx
	if key := IdempotencyKey(ctx); key != "" {
		params.SetIdempotencyKey(key + ":" + operation)
	}
}

func convertSubscription(s *stripe.Subscription) *Subscription {
	sub := &Subscription{
		ID:                s.ID,
		Status:            convertStatus(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if s.DefaultPaymentMethod != nil {
		sub.DefaultPaymentMethodID = s.DefaultPaymentMethod.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		sub.ItemID = item.ID
		sub.Quantity = int(item.Quantity)
		if item.CurrentPeriodEnd > 0 {
			sub.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
		if item.Price != nil {
			sub.PlanID = item.Price.ID
		}
	}
	return sub
}

// convertStatus folds Stripe's statuses onto the four tracked ones.
func convertStatus(status stripe.SubscriptionStatus) SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return StatusTrialing
	case stripe.SubscriptionStatusActive:
		return StatusActive
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return StatusCanceled
	default:
		return StatusPastDue
	}
}

func convertInvoice(inv *stripe.Invoice) *Invoice {
	out := &Invoice{
		ID:        inv.ID,
		Number:    inv.Number,
		AmountDue: inv.AmountDue,
		Total:     inv.Total,
		Currency:  string(inv.Currency),
		Status:    InvoiceStatus(inv.Status),
		HostedURL: inv.HostedInvoiceURL,
	}
	if inv.PeriodStart > 0 {
		out.PeriodStart = time.Unix(inv.PeriodStart, 0).UTC()
	}
	if inv.PeriodEnd > 0 {
		out.PeriodEnd = time.Unix(inv.PeriodEnd, 0).UTC()
	}
	if inv.Created > 0 {
		out.Created = time.Unix(inv.Created, 0).UTC()
	}
	return out
}

func convertPaymentMethod(pm *stripe.PaymentMethod) *PaymentMethod {
	out := &PaymentMethod{
		ID:   pm.ID,
		Type: string(pm.Type),
	}
	if pm.Card != nil {
		out.CardBrand = string(pm.Card.Brand)
		out.CardLast4 = pm.Card.Last4
		out.ExpMonth = int(pm.Card.ExpMonth)
		out.ExpYear = int(pm.Card.ExpYear)
	}
	return out
}
