package billing

import "time"

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// IsActive reports whether the status grants access to content.
func (s SubscriptionStatus) IsActive() bool {
	return s == StatusActive || s == StatusTrialing
}

// Subscription is the provider-side subscription.
type Subscription struct {
	ID                     string             `json:"id"`
	ItemID                 string             `json:"item_id"`
	PlanID                 string             `json:"plan_id"`
	Quantity               int                `json:"quantity"`
	Status                 SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd      bool               `json:"cancel_at_period_end"`
	CurrentPeriodEnd       time.Time          `json:"current_period_end"`
	CustomerID             string             `json:"customer_id"`
	DefaultPaymentMethodID string             `json:"default_payment_method_id,omitempty"`
}

// IsRenewing reports whether the subscription is active and will renew at period end.
func (s *Subscription) IsRenewing() bool {
	return s.Status == StatusActive && !s.CancelAtPeriodEnd
}

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// Invoice represents a billing invoice or an upcoming-invoice preview
type Invoice struct {
	ID          string        `json:"id,omitempty"`
	Number      string        `json:"number,omitempty"`
	AmountDue   int64         `json:"amount_due"`
	Total       int64         `json:"total"`
	Currency    string        `json:"currency"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Status      InvoiceStatus `json:"status"`
	HostedURL   string        `json:"hosted_url,omitempty"`
	Created     time.Time     `json:"created"`
}

// PaymentMethod represents a payment method
type PaymentMethod struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	CardBrand string `json:"card_brand,omitempty"`
	CardLast4 string `json:"card_last4,omitempty"`
	ExpMonth  int    `json:"exp_month,omitempty"`
	ExpYear   int    `json:"exp_year,omitempty"`
}
