// Package lifecycle owns every cart status change. Webhook handlers and
// the scheduler both mutate carts through this tracker, so monotonic
// transitions and terminal-state absorption are enforced in one place.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/metrics"
)

// Tracker applies cart lifecycle transitions and records outcomes.
type Tracker struct {
	carts       CartStore
	guard       PendingGuard
	metrics     RecoveryMetrics
	maxAttempts int
	logger      logger.Logger
}

// NewTracker creates a lifecycle tracker. maxAttempts is the configured
// recovery attempt cap applied to every cart the tracker records; a
// non-positive value keeps the domain default.
func NewTracker(carts CartStore, guard PendingGuard, m RecoveryMetrics, maxAttempts int, log logger.Logger) *Tracker {
	return &Tracker{
		carts:       carts,
		guard:       guard,
		metrics:     m,
		maxAttempts: maxAttempts,
		logger:      log,
	}
}

// RecordActivity upserts a cart from a webhook update. Activity on a
// terminal cart is ignored; the caller gets no error because late
// deliveries after recovery or expiry are expected.
func (t *Tracker) RecordActivity(ctx context.Context, cart *domain.Cart) error {
	if t.maxAttempts > 0 {
		cart.MaxAttempts = t.maxAttempts
	}

	err := t.carts.Upsert(ctx, cart)
	if errors.Is(err, domain.ErrInvalidTransition) {
		t.logger.Debug("Ignoring activity on terminal cart",
			logger.String("cart_id", cart.ID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record cart activity: %w", err)
	}

	t.logger.Debug("Recorded cart activity",
		logger.String("cart_id", cart.ID),
		logger.String("customer_ref", cart.CustomerRef),
		logger.Int("line_items", len(cart.LineItems)),
	)
	return nil
}

// CompleteCheckout marks a cart recovered after checkout completion.
// The transition is valid from any non-terminal status; a completed
// checkout always wins over in-flight recovery work.
func (t *Tracker) CompleteCheckout(ctx context.Context, cartID string) error {
	cart, err := t.carts.GetByID(ctx, cartID)
	if err != nil {
		return fmt.Errorf("complete checkout: %w", err)
	}

	if err := t.carts.MarkRecovered(ctx, cartID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Already terminal. Repeated checkout events are no-ops.
			return nil
		}
		return fmt.Errorf("complete checkout: %w", err)
	}

	if guardErr := t.guard.Clear(ctx, cartID); guardErr != nil {
		t.logger.Warn("Failed to clear pending guard",
			logger.String("cart_id", cartID),
			logger.Error(guardErr),
		)
	}

	if metricErr := t.metrics.IncrementRecovered(ctx); metricErr != nil {
		t.logger.Warn("Failed to record recovery metric",
			logger.String("cart_id", cartID),
			logger.Error(metricErr),
		)
	}
	if recentErr := t.metrics.AddRecentRecovery(ctx, metrics.RecentRecovery{
		CartID:      cart.ID,
		CustomerRef: cart.CustomerRef,
		Attempts:    cart.AttemptCount,
		RecoveredAt: time.Now().UTC(),
	}); recentErr != nil {
		t.logger.Warn("Failed to record recent recovery",
			logger.String("cart_id", cartID),
			logger.Error(recentErr),
		)
	}

	t.logger.Info("Cart recovered",
		logger.String("cart_id", cartID),
		logger.Int("attempts", cart.AttemptCount),
	)
	return nil
}

// ExpireCart moves a cart to expired and clears its pending guard.
func (t *Tracker) ExpireCart(ctx context.Context, cartID string) error {
	if err := t.carts.MarkExpired(ctx, cartID); err != nil {
		return fmt.Errorf("expire cart: %w", err)
	}

	if guardErr := t.guard.Clear(ctx, cartID); guardErr != nil {
		t.logger.Warn("Failed to clear pending guard",
			logger.String("cart_id", cartID),
			logger.Error(guardErr),
		)
	}
	if metricErr := t.metrics.IncrementExpired(ctx); metricErr != nil {
		t.logger.Warn("Failed to record expiry metric",
			logger.String("cart_id", cartID),
			logger.Error(metricErr),
		)
	}
	return nil
}

// GetCart retrieves a single cart.
func (t *Tracker) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	return t.carts.GetByID(ctx, cartID)
}

// ListCarts returns carts in the given status, oldest first.
func (t *Tracker) ListCarts(ctx context.Context, status domain.CartStatus, limit int) ([]domain.Cart, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown cart status %q", domain.ErrValidation, status)
	}
	return t.carts.ListByStatus(ctx, status, limit)
}

// RecoveryStats combines lifecycle status counts with recovery outcome
// totals for the stats endpoint.
type RecoveryStats struct {
	StatusCounts map[domain.CartStatus]int64 `json:"status_counts"`
	Outcomes     *metrics.Stats              `json:"outcomes"`
}

// Stats returns the combined recovery statistics.
func (t *Tracker) Stats(ctx context.Context) (*RecoveryStats, error) {
	counts, err := t.carts.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("recovery stats: %w", err)
	}

	outcomes, err := t.metrics.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("recovery stats: %w", err)
	}

	return &RecoveryStats{
		StatusCounts: counts,
		Outcomes:     outcomes,
	}, nil
}
