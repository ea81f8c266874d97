package services

import "errors"

// Errors that queue operations and the relationship manager report to the
// adapter layer. Nothing below this boundary escapes as an unhandled fault;
// the handlers decide how each of these is represented on the wire.
var (
	// ErrInvalidID rejects identifiers holding storage-reserved characters.
	// Raised before any store access; the identifier is never rewritten.
	ErrInvalidID = errors.New("identifier contains invalid characters")

	// ErrUnauthorized covers unknown users and mismatched tokens.
	ErrUnauthorized = errors.New("invalid user or token")

	// ErrUserNotFound means the referenced counterpart does not exist.
	ErrUserNotFound = errors.New("user does not exist")

	// ErrUnknownCode means a friend code resolved to nothing.
	ErrUnknownCode = errors.New("friend code does not exist")

	// ErrQueueNotFound means no queue exists between the two users.
	ErrQueueNotFound = errors.New("queue does not exist")

	// ErrOutOfRange rejects edits outside the undelivered window.
	ErrOutOfRange = errors.New("index is outside the editable window")

	// ErrNotYetAvailable means no message body is visible at the current
	// head, either because the rate-limit gate has not elapsed or because
	// an append reserved the slot but has not written the body yet. Callers
	// should retry later.
	ErrNotYetAvailable = errors.New("message is not available yet")

	// ErrCodeExhausted means friend-code generation ran out of attempts.
	ErrCodeExhausted = errors.New("could not obtain an unused friend code")
)
