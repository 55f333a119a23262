// Package team manages the teammates of a subscription directly: owner-initiated removal,
// self-service leaving, and the owner's own seat.
package team
