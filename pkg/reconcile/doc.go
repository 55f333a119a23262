// Package reconcile audits the seat invariant across every subscription.
//
// The billing provider can change a subscription's quantity outside this service, so the
// invariant that quantity covers all occupied seats can drift. The Auditor reports such
// drift in logs and metrics; it never repairs it. Scheduler runs the audit on a cron
// schedule.
package reconcile
