// Package async provides panic-safe background execution.
//
// # Dispatcher
//
// Notification emails are fire-and-forget. A Dispatcher runs each one detached from the
// request that triggered it, with a timeout and panic recovery; failures are logged and
// never returned:
//
//	d := async.NewDispatcher(logger, 10*time.Second)
//	d.Go(ctx, "invite email", func(ctx context.Context) error {
//		return mailer.SendEmail(ctx, to, subject, content)
//	})
//	d.Wait() // only at shutdown or in tests
//
// # WorkerPool and Batch
//
// Batch fans a slice out over a bounded worker pool and collects every error:
//
//	errs := async.Batch(ctx, logger, subs, 4, "seat audit", 30*time.Second, audit)
//
// # Related Packages
//
//   - pkg/mail: Notifier dispatches emails through a Dispatcher
//   - pkg/reconcile: Auditor uses Batch
package async
