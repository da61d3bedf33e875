// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/ledger layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (username taken, badge owned).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInsufficientCoins indicates a spend larger than the balance.
	ErrInsufficientCoins = errors.New("insufficient coins")

	// ErrAlreadyLogged indicates today's drink status was already recorded.
	ErrAlreadyLogged = errors.New("already logged")

	// ErrAlreadySettled indicates today's rewards were already granted.
	ErrAlreadySettled = errors.New("already settled")

	// ErrNotActionable indicates an attempt to complete a task for a day that has not occurred.
	ErrNotActionable = errors.New("task not actionable")

	// ErrInvalidOffset indicates a day offset outside the supported range.
	ErrInvalidOffset = errors.New("invalid day offset")

	// ErrInvalidAmount indicates a negative or otherwise unusable amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrValidation indicates malformed input rejected before reaching storage.
	ErrValidation = errors.New("validation")

	// ErrCorrupt indicates a stored record could not be parsed.
	ErrCorrupt = errors.New("corrupt record")
)
