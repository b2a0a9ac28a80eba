package domain

import "errors"

// Sentinel errors shared across repositories, services, and handlers.
var (
	// ErrNotFound is returned when an entity is not found in the database.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when a uniqueness constraint would be
	// violated, e.g. a second pending task for the same cart.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrValidation is returned when input fails structural validation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a cart status change violates
	// the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid cart transition")

	// ErrInvalidSignature is returned when a webhook payload fails
	// signature verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
