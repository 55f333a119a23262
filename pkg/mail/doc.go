// Package mail sends notification emails.
//
// Mailer is the delivery surface; SendGridMailer implements it on the SendGrid v3 API.
// Notifier builds the team notifications and hands each one to an async.Dispatcher, so
// sending is always fire-and-forget: callers never see a delivery error.
package mail
