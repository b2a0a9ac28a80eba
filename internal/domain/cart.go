// Package domain contains the core domain models for the marketing-ops service.
package domain

import (
	"fmt"
	"time"
)

// CartStatus represents the lifecycle state of a shopping cart.
type CartStatus string

const (
	CartStatusCreated      CartStatus = "created"
	CartStatusAbandoned    CartStatus = "abandoned"
	CartStatusRecoverySent CartStatus = "recovery_sent"
	CartStatusRecovered    CartStatus = "recovered"
	CartStatusExpired      CartStatus = "expired"
)

// cartTransitions is the allowed transition matrix. Statuses only move
// forward; recovered and expired are absorbing.
var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusCreated:      {CartStatusAbandoned, CartStatusRecovered},
	CartStatusAbandoned:    {CartStatusRecoverySent, CartStatusRecovered, CartStatusExpired},
	CartStatusRecoverySent: {CartStatusRecoverySent, CartStatusRecovered, CartStatusExpired},
	CartStatusRecovered:    {},
	CartStatusExpired:      {},
}

// IsValid reports whether s is a known cart status.
func (s CartStatus) IsValid() bool {
	_, ok := cartTransitions[s]
	return ok
}

// IsTerminal reports whether s is an absorbing status.
func (s CartStatus) IsTerminal() bool {
	return s == CartStatusRecovered || s == CartStatusExpired
}

// CanTransition reports whether a cart may move from s to next.
func (s CartStatus) CanTransition(next CartStatus) bool {
	for _, allowed := range cartTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is one product entry in a cart.
type LineItem struct {
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity"   json:"quantity"`
}

// Cart represents a tracked shopping cart and its recovery state.
type Cart struct {
	ID           string     `db:"id"            json:"id"`
	CustomerRef  string     `db:"customer_ref"  json:"customer_ref"`
	LineItems    []LineItem `db:"-"             json:"line_items"`
	Status       CartStatus `db:"status"        json:"status"`
	AttemptCount int        `db:"attempt_count" json:"attempt_count"`
	MaxAttempts  int        `db:"max_attempts"  json:"max_attempts"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

// defaultMaxRecoveryAttempts bounds recovery_sent recurrences before expiry.
const defaultMaxRecoveryAttempts = 3

// NewCart creates a cart in the created state with validation.
func NewCart(id, customerRef string, items []LineItem) (*Cart, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: cart id is required", ErrValidation)
	}
	if customerRef == "" {
		return nil, fmt.Errorf("%w: customer_ref is required", ErrValidation)
	}
	for i, item := range items {
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: line_items[%d].product_id is required", ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line_items[%d].quantity must be positive", ErrValidation, i)
		}
	}

	now := time.Now()
	return &Cart{
		ID:           id,
		CustomerRef:  customerRef,
		LineItems:    items,
		Status:       CartStatusCreated,
		MaxAttempts:  defaultMaxRecoveryAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Transition moves the cart to next, enforcing the state machine.
// The cart is unchanged when the transition is rejected.
func (c *Cart) Transition(next CartStatus) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}
	if !c.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s (cart %s)", ErrInvalidTransition, c.Status, next, c.ID)
	}
	if next == CartStatusRecoverySent {
		if c.AttemptCount >= c.MaxAttempts {
			return fmt.Errorf("%w: attempt limit %d reached (cart %s)", ErrInvalidTransition, c.MaxAttempts, c.ID)
		}
		c.AttemptCount++
	}
	c.Status = next
	c.UpdatedAt = time.Now()
	return nil
}

// AttemptsExhausted reports whether the recovery attempt cap is reached.
func (c *Cart) AttemptsExhausted() bool {
	return c.AttemptCount >= c.MaxAttempts
}
