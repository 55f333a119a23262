// Package billing mirrors billing-provider state and wraps the provider API.
//
// # Overview
//
// The billing provider (Stripe) is the system of record for plan, seat quantity and
// payment status. Nothing here is cached: callers read a Subscription live whenever they
// need its quantity or status.
//
// # Plans
//
// Four plans ship in DefaultCatalogue:
//
//   - individual-monthly / individual-yearly: one seat
//   - monthly-2019 / yearly-2019: team plans, any quantity
//
// A Pricing (interval + quantity) selects a plan with Catalogue.PlanFor. The catalogue can be
// replaced from a YAML file with LoadCatalogue.
//
// # Idempotency
//
// Mutating calls read an idempotency key from the context:
//
//	ctx = billing.WithIdempotencyKey(ctx, uuid.NewString())
//	sub, err := provider.UpdateSubscription(ctx, sub, "yearly-2019", 5)
package billing
