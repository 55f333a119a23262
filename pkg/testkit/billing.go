package testkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/teamseats/pkg/billing"
)

// Billing is an in-memory billing.Provider.
type Billing struct {
	failures

	mu              sync.Mutex
	subscriptions   map[string]*billing.Subscription
	upcoming        map[string]*billing.Invoice
	invoices        map[string][]*billing.Invoice
	paymentMethods  map[string]*billing.PaymentMethod
	defaultPayments map[string]string
	idempotencyKeys []string
}

var _ billing.Provider = (*Billing)(nil)

// NewBilling creates an empty provider.
func NewBilling() *Billing {
	return &Billing{
		subscriptions:   map[string]*billing.Subscription{},
		upcoming:        map[string]*billing.Invoice{},
		invoices:        map[string][]*billing.Invoice{},
		paymentMethods:  map[string]*billing.PaymentMethod{},
		defaultPayments: map[string]string{},
	}
}

// SeedSubscription stores sub, filling in an item and customer when empty.
func (b *Billing) SeedSubscription(sub billing.Subscription) *billing.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.ItemID == "" {
		sub.ItemID = "si_" + sub.ID
	}
	if sub.CustomerID == "" {
		sub.CustomerID = "cus_" + sub.ID
	}
	b.subscriptions[sub.ID] = &sub
	return clone(&sub)
}

// SeedUpcomingInvoice sets the customer's next invoice.
func (b *Billing) SeedUpcomingInvoice(customerID string, inv billing.Invoice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upcoming[customerID] = &inv
}

// SeedInvoices sets the customer's invoice history.
func (b *Billing) SeedInvoices(customerID string, invoices ...*billing.Invoice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invoices[customerID] = invoices
}

// SeedPaymentMethod stores a payment method.
func (b *Billing) SeedPaymentMethod(pm billing.PaymentMethod) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paymentMethods[pm.ID] = &pm
}

// Subscription returns the stored subscription, or nil.
func (b *Billing) Subscription(id string) *billing.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subscriptions[id]; ok {
		return clone(s)
	}
	return nil
}

// DefaultPaymentMethod returns the customer's default payment method id.
func (b *Billing) DefaultPaymentMethod(customerID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.defaultPayments[customerID]
}

// IdempotencyKeys returns the keys seen on mutating calls, in order.
func (b *Billing) IdempotencyKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.idempotencyKeys...)
}

func (b *Billing) mutate(ctx context.Context, method string) error {
	if err := b.enter(method); err != nil {
		return err
	}
	b.mu.Lock()
	b.idempotencyKeys = append(b.idempotencyKeys, billing.IdempotencyKey(ctx))
	b.mu.Unlock()
	return nil
}

func (b *Billing) FetchSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	if err := b.enter("FetchSubscription"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("billing: no such subscription %s", id)
	}
	return clone(s), nil
}

func (b *Billing) UpdateSubscription(ctx context.Context, sub *billing.Subscription, planID string, quantity int) (*billing.Subscription, error) {
	if err := b.mutate(ctx, "UpdateSubscription"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscriptions[sub.ID]
	if !ok {
		return nil, fmt.Errorf("billing: no such subscription %s", sub.ID)
	}
	s.PlanID = planID
	s.Quantity = quantity
	return clone(s), nil
}

func (b *Billing) CancelSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	if err := b.mutate(ctx, "CancelSubscription"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("billing: no such subscription %s", id)
	}
	s.CancelAtPeriodEnd = true
	return clone(s), nil
}

func (b *Billing) ReactivateSubscription(ctx context.Context, sub *billing.Subscription) (*billing.Subscription, error) {
	if err := b.mutate(ctx, "ReactivateSubscription"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscriptions[sub.ID]
	if !ok {
		return nil, fmt.Errorf("billing: no such subscription %s", sub.ID)
	}
	s.CancelAtPeriodEnd = false
	return clone(s), nil
}

func (b *Billing) FetchUpcomingInvoice(ctx context.Context, customerID string) (*billing.Invoice, error) {
	if err := b.enter("FetchUpcomingInvoice"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.upcoming[customerID]
	if !ok {
		return nil, fmt.Errorf("billing: no upcoming invoice for %s", customerID)
	}
	return clone(inv), nil
}

func (b *Billing) FetchInvoices(ctx context.Context, customerID string) ([]*billing.Invoice, error) {
	if err := b.enter("FetchInvoices"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []*billing.Invoice{}
	for _, inv := range b.invoices[customerID] {
		out = append(out, clone(inv))
	}
	return out, nil
}

func (b *Billing) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*billing.PaymentMethod, error) {
	if err := b.mutate(ctx, "AttachPaymentMethod"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	pm, ok := b.paymentMethods[paymentMethodID]
	if !ok {
		return nil, fmt.Errorf("billing: no such payment method %s", paymentMethodID)
	}
	return clone(pm), nil
}

func (b *Billing) UpdateCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if err := b.mutate(ctx, "UpdateCustomerDefaultPaymentMethod"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaultPayments[customerID] = paymentMethodID
	for _, s := range b.subscriptions {
		if s.CustomerID == customerID {
			s.DefaultPaymentMethodID = paymentMethodID
		}
	}
	return nil
}

func (b *Billing) FetchPaymentMethod(ctx context.Context, id string) (*billing.PaymentMethod, error) {
	if err := b.enter("FetchPaymentMethod"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	pm, ok := b.paymentMethods[id]
	if !ok {
		return nil, fmt.Errorf("billing: no such payment method %s", id)
	}
	return clone(pm), nil
}
