package accounts

import "errors"

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrExternalService    = errors.New("external service failure")
	ErrAlreadySubscribed  = errors.New("already subscribed")
)

// Error is an operation outcome with a taxonomy kind and a user-safe reason.
type Error struct {
	Kind   error
	Reason string
	// Err is the underlying cause. It is never rendered by Error().
	Err error
}

func (e *Error) Error() string {
	return e.Reason
}

// Unwrap exposes the kind and, when present, the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Is matches errors built from the same reason, so wrapped copies of a sentinel
// still compare equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// WithCause returns a copy of e that carries cause for logging.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Kind: e.Kind, Reason: e.Reason, Err: cause}
}

func newError(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// NotFound reasons.
var (
	ErrSubscriptionNotFound = newError(ErrNotFound, "subscription not found")
	ErrInviteNotFound       = newError(ErrNotFound, "team invite not found")
	ErrUserNotFound         = newError(ErrNotFound, "user not found")
	ErrNotTeammate          = newError(ErrNotFound, "user is not a teammate of this subscription")

	ErrEnterpriseAccountNotFound = newError(ErrNotFound, "enterprise account not found")
)

// Unauthorized reasons.
var (
	ErrNotInviter       = newError(ErrUnauthorized, "only the inviter can manage this invite")
	ErrNotOwner         = newError(ErrUnauthorized, "only the subscription owner can do that")
	ErrOwnerCannotLeave = newError(ErrUnauthorized, "the subscription owner cannot leave their own team")
)

// InvariantViolation reasons.
var (
	ErrBelowOccupied       = newError(ErrInvariantViolation, "quantity is below the number of occupied seats")
	ErrNoSeatsAvailable    = newError(ErrInvariantViolation, "no seats are available on this subscription")
	ErrAlreadyCanceled     = newError(ErrInvariantViolation, "subscription is already canceled")
	ErrNotEligible         = newError(ErrInvariantViolation, "subscription is not eligible for reactivation")
	ErrInvalidTransition   = newError(ErrInvariantViolation, "subscription is not on the plan this change expects")
	ErrNotActive           = newError(ErrInvariantViolation, "subscription is not active")
	ErrInviterNotActive    = newError(ErrInvariantViolation, "the inviter's subscription is not active")
	ErrSeatingInvalid      = newError(ErrInvariantViolation, "the requested seating is invalid")
	ErrSubscriptionInvalid = newError(ErrInvariantViolation, "subscription is invalid")
	ErrMutationInProgress  = newError(ErrInvariantViolation, "subscription is being modified, try again")
	ErrInvalidEmail        = newError(ErrInvariantViolation, "a valid invite email is required")
	ErrNoPaymentMethod     = newError(ErrInvariantViolation, "a payment method is required")
)

// ExternalServiceFailure reasons.
var (
	ErrBillingFailure = newError(ErrExternalService, "the billing provider could not complete the request")
	ErrStoreFailure   = newError(ErrExternalService, "account data could not be updated")
)

// AlreadySubscribed reasons.
var (
	ErrActiveSubscriber = newError(ErrAlreadySubscribed, "you already have an active subscription")
)
