package domain

import "errors"

// Validation errors. Returned before any mutation.
var (
	ErrAlreadySettled  = errors.New("policy already settled")
	ErrThresholdTooLow = errors.New("threshold must be at least 0.1 mm")
	ErrPayoutTooHigh   = errors.New("payout must be at most 200 tokens")
	ErrNotRegistered   = errors.New("no policy registered")
)

// Collaborator errors. The underlying cause is wrapped alongside the sentinel,
// e.g. fmt.Errorf("%w: %w", ErrDataSource, err).
var (
	ErrDataSource = errors.New("rainfall data source")
	ErrPayout     = errors.New("payout transfer")
)

// ErrInsufficientFunds is returned by ledgers when the holding account cannot
// cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// IsValidation reports whether err is a caller-correctable validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrThresholdTooLow) || errors.Is(err, ErrPayoutTooHigh)
}
