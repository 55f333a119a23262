// Package subscriptions executes subscription state transitions against the billing provider.
//
// Status is never stored locally. Each transition reads the live provider subscription,
// checks that the transition is allowed from it, and then issues one provider call carrying
// an idempotency key.
package subscriptions
