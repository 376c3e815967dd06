package market

import "errors"

// Precondition failures surface as one of these sentinels, wrapped with
// operation context. Callers classify with errors.Is; no failure is ever
// partially applied.
var (
	// ErrNotFound reports an operation on a key with no live record.
	ErrNotFound = errors.New("market: record not found")
	// ErrAlreadyExists reports a create on an occupied key.
	ErrAlreadyExists = errors.New("market: record already exists")
	// ErrUnauthorized reports a caller who is not the required party.
	ErrUnauthorized = errors.New("market: unauthorized caller")
	// ErrInvalidTimeWindow reports start/end/expiration values inconsistent
	// with the current time or the configured duration bounds.
	ErrInvalidTimeWindow = errors.New("market: invalid time window")
	// ErrInvalidAmount reports a quantity or price violating divisibility,
	// reserve, or increment rules.
	ErrInvalidAmount = errors.New("market: invalid amount")
	// ErrKindMismatch reports an item reference whose kind disagrees with the
	// collection's registry.
	ErrKindMismatch = errors.New("market: item kind mismatch")
	// ErrCurrencyNotEnabled reports a payment token missing from the
	// allow-list.
	ErrCurrencyNotEnabled = errors.New("market: payment token not enabled")
	// ErrCurrencyMismatch reports a payment token differing from the one the
	// record was created with.
	ErrCurrencyMismatch = errors.New("market: payment token mismatch")
	// ErrInsufficientFunds reports a payer lacking currency balance or
	// allowance.
	ErrInsufficientFunds = errors.New("market: insufficient funds")
	// ErrInsufficientBalance reports an owner lacking item quantity.
	ErrInsufficientBalance = errors.New("market: insufficient item balance")
	// ErrNotApproved reports a caller who has not granted the marketplace
	// custody rights over their items.
	ErrNotApproved = errors.New("market: marketplace not approved")
)
