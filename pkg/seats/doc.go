// Package seats enforces the seat invariant while changing a subscription's plan and quantity.
//
// A subscription's occupied seats are its teammates, its pending invites, and the owner when
// the owner holds a seat. The purchased quantity lives only in the billing provider and is read
// live; it must never drop below the occupied count:
//
//	quantity >= teammates + pending invites + (owner seated ? 1 : 0)
//
// Ledger validates every requested quantity against that count before calling the provider.
// Provider failures leave local state untouched and surface as accounts.ErrBillingFailure.
package seats
