package account

import "errors"

var (
	// ErrDuplicateAccount indicates the identifier is already registered.
	ErrDuplicateAccount = errors.New("an account with this email already exists")
	// ErrAccountNotFound indicates no record exists for the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials indicates the secret did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMalformedState indicates the persisted account map could not be decoded.
	ErrMalformedState = errors.New("persisted account state is malformed")
	// ErrMissingField indicates a required input was blank.
	ErrMissingField = errors.New("required field is missing")
	// ErrInvalidPoints indicates a negative point amount.
	ErrInvalidPoints = errors.New("points must not be negative")
)
