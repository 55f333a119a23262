// Package identity resolves the subscription that governs a user and classifies the user
// against it.
//
// # Resolution
//
// Resolver evaluates an ordered list of strategies and returns the first subscription found:
//
//  1. Membership: the subscription referenced by User.SubscriptionID.
//  2. Ownership: the subscription whose owner is the user.
//
// A membership reference to a missing record falls through to ownership. When no strategy
// finds a record the user is a non-subscriber, which is not an error.
//
// # Classification
//
// Classify combines the resolved subscription with its live billing status into an
// accounts.SubscriberState (non-subscriber, owner or teammate).
package identity
