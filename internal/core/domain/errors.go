package domain

import "errors"

var (
	// ErrAccountNotFound is returned when a sender addresses an unknown account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrMessageNotFound is returned when a message lookup misses.
	ErrMessageNotFound = errors.New("message not found")
	// ErrForbiddenParty is returned when the addressing policy denies a pair.
	ErrForbiddenParty = errors.New("conversation not allowed between these accounts")
	// ErrInvalidMessageKind is returned for unknown message kinds.
	ErrInvalidMessageKind = errors.New("invalid message kind")
	// ErrInvalidCredentials covers bad logins and malformed registrations.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when registering a duplicate username/email.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidToken is returned when a session token fails verification.
	ErrInvalidToken = errors.New("invalid session token")
)
