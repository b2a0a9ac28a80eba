package lifecycle

import (
	"context"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/metrics"
)

// CartStore defines the cart persistence operations the tracker needs.
type CartStore interface {
	Upsert(ctx context.Context, cart *domain.Cart) error
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	ListByStatus(ctx context.Context, status domain.CartStatus, limit int) ([]domain.Cart, error)
	MarkAbandoned(ctx context.Context, inactivity time.Duration, limit int) ([]string, error)
	MarkRecovered(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, id string) error
	ExpireExhausted(ctx context.Context) (int64, error)
	StatusCounts(ctx context.Context) (map[domain.CartStatus]int64, error)
}

// PendingGuard clears queued-work markers when a cart leaves the
// recovery flow.
type PendingGuard interface {
	Clear(ctx context.Context, cartID string) error
}

// RecoveryMetrics is the subset of metrics the tracker records.
type RecoveryMetrics interface {
	IncrementRecovered(ctx context.Context) error
	IncrementExpired(ctx context.Context) error
	AddRecentRecovery(ctx context.Context, recovery metrics.RecentRecovery) error
	GetStats(ctx context.Context) (*metrics.Stats, error)
}
