package usecase

import "errors"

var (
	// ErrValidation marks a report missing or malforming required fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrConflict marks a stale optimistic-concurrency token.
	ErrConflict = errors.New("concurrency conflict")
)
