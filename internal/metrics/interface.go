package metrics

import (
	"context"
)

// RecoveryMetrics defines the interface for tracking recovery outcomes.
// This interface allows for easy testing and potential future implementations.
type RecoveryMetrics interface {
	// IncrementSent increments the recovery-emails-sent counter.
	IncrementSent(ctx context.Context) error
	// IncrementRecovered increments the recovered-carts counter.
	IncrementRecovered(ctx context.Context) error
	// IncrementExpired increments the expired-carts counter.
	IncrementExpired(ctx context.Context) error
	// IncrementFailed increments the dispatch-failure counter.
	IncrementFailed(ctx context.Context) error
	// AddRecentRecovery adds a recovery to the recent recoveries list.
	AddRecentRecovery(ctx context.Context, recovery RecentRecovery) error
	// GetStats returns aggregated statistics.
	GetStats(ctx context.Context) (*Stats, error)
	// GetRecentRecoveries returns the most recent recovered carts.
	GetRecentRecoveries(ctx context.Context, limit int) ([]RecentRecovery, error)
	// UpdateLastScan updates the last scheduler scan timestamp.
	UpdateLastScan(ctx context.Context) error
}
