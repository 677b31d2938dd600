package ledger

import "errors"

// Failure kinds surfaced by ledger and treasury operations. Every mutating
// operation aborts with no partial state change and wraps one of these.
var (
	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the referenced token id is inactive.
	ErrNotFound = errors.New("token not found")

	// ErrAlreadyExists is returned on a create collision.
	ErrAlreadyExists = errors.New("token already exists")

	// ErrInvalidArgument is returned for zero, empty or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSupplyExceeded is returned when a mint would breach max supply.
	ErrSupplyExceeded = errors.New("max supply exceeded")

	// ErrInsufficientBalance is returned when a holder or the treasury lacks
	// the required quantity.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLengthMismatch is returned when batch arrays differ in length.
	ErrLengthMismatch = errors.New("ids and amounts length mismatch")

	// ErrTransferFailed is returned when the external stable-coin transfer
	// reported failure.
	ErrTransferFailed = errors.New("stable-coin transfer failed")
)
