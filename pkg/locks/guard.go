package locks

import (
	"context"

	"github.com/google/uuid"
)

// MutationGuard grants exclusive access to a subscription for the duration of a mutation.
type MutationGuard interface {
	// Acquire returns a release func, or an error matching accounts.ErrMutationInProgress
	// when another mutation holds the subscription.
	Acquire(ctx context.Context, subscriptionID uuid.UUID) (release func(), err error)
}

// NoopGuard grants every request immediately.
type NoopGuard struct{}

// Acquire always succeeds.
func (NoopGuard) Acquire(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}

// OrNoop returns g, or NoopGuard when g is nil.
func OrNoop(g MutationGuard) MutationGuard {
	if g == nil {
		return NoopGuard{}
	}
	return g
}
