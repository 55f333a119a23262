// Package locks serializes mutations of a single subscription.
//
// Mutations cross the billing provider and the account store without a transaction, so two
// concurrent seat changes on one subscription can interleave. A MutationGuard lets at most one
// proceed; the loser gets accounts.ErrMutationInProgress and may retry.
//
// NoopGuard never blocks and is the default. RedisGuard holds a short-lived Redis key per
// subscription:
//
//	client, err := locks.OpenRedis(ctx, cfg.RedisURL)
//	guard := locks.NewRedisGuard(client, 30*time.Second, logger)
//
//	release, err := guard.Acquire(ctx, sub.ID)
//	if err != nil {
//		return err
//	}
//	defer release()
package locks
