package dispatch

import "errors"

// Error types for the dispatch package.
var (
	// ErrDispatchFailed is returned when a recovery email could not be sent
	ErrDispatchFailed = errors.New("recovery dispatch failed")

	// ErrCartSettled is returned when the cart left the recovery flow
	// before dispatch ran
	ErrCartSettled = errors.New("cart already settled")

	// ErrRateLimitExceeded is returned when the outbound rate limit
	// cannot be satisfied before the context deadline
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
