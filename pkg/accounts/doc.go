// Package accounts holds the persisted account model for the subscription service:
// users, subscriptions, team invites, email settings and episode credits.
//
// # Overview
//
// A subscription has exactly one owner (Subscription.UserID). Teammates are the users whose
// SubscriptionID points at that subscription; the owner never carries a SubscriptionID and
// occupies a seat only while Subscription.OwnerSeated is true. Pending TeamInvites also consume
// seats until they are accepted or revoked.
//
// # Errors
//
// Every failure that crosses a component boundary is an *Error whose Kind is one of
// ErrNotFound, ErrUnauthorized, ErrInvariantViolation, ErrExternalService or
// ErrAlreadySubscribed:
//
//	if errors.Is(err, accounts.ErrNotFound) {
//		// render a "not found" message
//	}
//
// # Related Packages
//
//   - pkg/billing: provider-side subscription state
//   - pkg/identity: resolves the subscription that governs a user
package accounts
