package store

import "errors"

// Business-rule failures. All are expected, recoverable outcomes reported to
// the caller; none leaves the store partially updated.
var (
	ErrNotFound          = errors.New("account not found")
	ErrAlreadyExists     = errors.New("account already exists")
	ErrSameAccount       = errors.New("source and target are the same account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrForeignPayment    = errors.New("credit belongs to a different account")
	ErrInvalidMerge      = errors.New("merge requires two distinct active root accounts")
)
