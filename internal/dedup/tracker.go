package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
)

// Tracker guards against duplicate recovery work per cart. The scheduler
// checks it before creating a task so repeated scans over unchanged state
// stay idempotent even across the database round trip. The database unique
// guard remains the source of truth; this is the fast path in front of it.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewTracker creates a pending-work tracker. The TTL should exceed the
// task expiry so the guard never outlives the task it protects.
func NewTracker(client *redis.Client, ttl time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (t *Tracker) key(cartID string) string {
	return fmt.Sprintf("recovery:pending:cart:%s", cartID)
}

// HasPending reports whether recovery work is already queued for the cart.
// Redis errors are logged and treated as "not pending" so the database
// guard makes the final call.
func (t *Tracker) HasPending(ctx context.Context, cartID string) bool {
	key := t.key(cartID)

	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		t.logger.Error("Redis error checking pending recovery",
			logger.String("cart_id", cartID),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return false
	}

	pending := exists == 1
	if pending {
		t.logger.Debug("Recovery already pending for cart",
			logger.String("cart_id", cartID),
			logger.String("redis_key", key),
		)
	}
	return pending
}

// MarkPending records that recovery work is queued for the cart.
func (t *Tracker) MarkPending(ctx context.Context, cartID string) error {
	key := t.key(cartID)

	if err := t.client.Set(ctx, key, "1", t.ttl).Err(); err != nil {
		t.logger.Error("Redis error marking recovery pending",
			logger.String("cart_id", cartID),
			logger.String("redis_key", key),
			logger.Duration("ttl", t.ttl),
			logger.Error(err),
		)
		return err
	}

	t.logger.Debug("Marked recovery pending",
		logger.String("cart_id", cartID),
		logger.String("redis_key", key),
	)
	return nil
}

// Clear removes the pending guard for a cart, letting the next scan
// schedule fresh work. Called after dispatch settles or the cart reaches
// a terminal status.
func (t *Tracker) Clear(ctx context.Context, cartID string) error {
	key := t.key(cartID)

	if err := t.client.Del(ctx, key).Err(); err != nil {
		t.logger.Error("Redis error clearing pending recovery",
			logger.String("cart_id", cartID),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return err
	}
	return nil
}
