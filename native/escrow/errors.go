package escrow

import "errors"

// Errors are grouped by failure category so callers can distinguish a
// retryable state conflict from a validation bug or an authorization failure
// with errors.Is.
var (
	// Validation errors: bad input shape or range, detected before any side
	// effect.
	ErrInvalidAmount        = errors.New("escrow: amount must be positive")
	ErrInvalidTimeout       = errors.New("escrow: timeout duration must be positive")
	ErrInvalidDisputePeriod = errors.New("escrow: dispute period must be positive and within timeout")
	ErrInvalidAsset         = errors.New("escrow: invalid asset symbol")
	ErrSameParty            = errors.New("escrow: sender and recipient cannot be the same")
	ErrInvalidStatus        = errors.New("escrow: invalid status")
	ErrNegativeFee          = errors.New("escrow: dispute fee cannot be negative")

	// State errors: the record exists but its status does not admit the
	// requested transition.
	ErrNotActive         = errors.New("escrow: not active")
	ErrNotDisputed       = errors.New("escrow: not disputed")
	ErrDisputeExists     = errors.New("escrow: dispute already initiated")
	ErrDisputeMissing    = errors.New("escrow: dispute record missing")
	ErrTimeoutNotReached = errors.New("escrow: timeout not reached")
	ErrDisputeWindowOpen = errors.New("escrow: dispute period has not expired")

	// Authorization errors.
	ErrInvalidInitiator = errors.New("escrow: caller may not dispute this escrow")

	// Resource errors.
	ErrInsufficientFunds = errors.New("escrow: insufficient balance")

	// Not-found errors.
	ErrNotFound = errors.New("escrow: not found")

	// Admin gate errors.
	ErrAlreadyInitialized = errors.New("escrow: already initialized")
	ErrNotInitialized     = errors.New("escrow: not initialized")
)
