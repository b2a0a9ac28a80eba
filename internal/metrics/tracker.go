package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
)

// Tracker implements RecoveryMetrics using Redis.
type Tracker struct {
	client redis.UniversalClient
	keys   *RedisKeys
	logger logger.Logger
}

// NewTracker creates a new recovery metrics tracker.
func NewTracker(client redis.UniversalClient, log logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		keys:   NewRedisKeys(KeyPrefixMetrics),
		logger: log,
	}
}

// incrementCounter bumps a counter key and refreshes its TTL atomically.
func (t *Tracker) incrementCounter(ctx context.Context, key, what string) error {
	ttl := CounterTTLDays * HoursPerDay * time.Hour

	pipe := t.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		t.logger.Warn("Failed to increment counter",
			logger.String("counter", what),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return fmt.Errorf("increment %s counter: %w", what, err)
	}
	return nil
}

// IncrementSent increments the recovery-emails-sent counter.
func (t *Tracker) IncrementSent(ctx context.Context) error {
	return t.incrementCounter(ctx, t.keys.Sent(), "sent")
}

// IncrementRecovered increments the recovered-carts counter.
func (t *Tracker) IncrementRecovered(ctx context.Context) error {
	return t.incrementCounter(ctx, t.keys.Recovered(), "recovered")
}

// IncrementExpired increments the expired-carts counter.
func (t *Tracker) IncrementExpired(ctx context.Context) error {
	return t.incrementCounter(ctx, t.keys.Expired(), "expired")
}

// IncrementFailed increments the dispatch-failure counter.
func (t *Tracker) IncrementFailed(ctx context.Context) error {
	return t.incrementCounter(ctx, t.keys.Failed(), "failed")
}

// AddRecentRecovery pushes a recovery onto the capped recent list.
func (t *Tracker) AddRecentRecovery(ctx context.Context, recovery RecentRecovery) error {
	data, err := json.Marshal(recovery)
	if err != nil {
		return fmt.Errorf("marshal recovery: %w", err)
	}

	ttl := RecentRecoveriesTTLDays * HoursPerDay * time.Hour

	pipe := t.client.Pipeline()
	pipe.LPush(ctx, KeyRecentRecoveries, data)
	pipe.LTrim(ctx, KeyRecentRecoveries, 0, MaxRecentRecoveries-1)
	pipe.Expire(ctx, KeyRecentRecoveries, ttl)

	_, err = pipe.Exec(ctx)
	if err != nil {
		t.logger.Warn("Failed to add recent recovery",
			logger.String("cart_id", recovery.CartID),
			logger.Error(err),
		)
		return fmt.Errorf("add recent recovery: %w", err)
	}
	return nil
}

// GetStats returns aggregated statistics from a single pipelined read.
func (t *Tracker) GetStats(ctx context.Context) (*Stats, error) {
	pipe := t.client.Pipeline()

	sentCmd := pipe.Get(ctx, t.keys.Sent())
	recoveredCmd := pipe.Get(ctx, t.keys.Recovered())
	expiredCmd := pipe.Get(ctx, t.keys.Expired())
	failedCmd := pipe.Get(ctx, t.keys.Failed())
	lastScanCmd := pipe.Get(ctx, KeyLastScan)

	_, execErr := pipe.Exec(ctx)
	if execErr != nil && !errors.Is(execErr, redis.Nil) {
		return nil, fmt.Errorf("execute pipeline: %w", execErr)
	}

	stats := &Stats{}

	// Missing keys read as zero.
	if v, err := sentCmd.Int64(); err == nil {
		stats.TotalSent = v
	}
	if v, err := recoveredCmd.Int64(); err == nil {
		stats.TotalRecovered = v
	}
	if v, err := expiredCmd.Int64(); err == nil {
		stats.TotalExpired = v
	}
	if v, err := failedCmd.Int64(); err == nil {
		stats.TotalFailed = v
	}

	if stats.TotalSent > 0 {
		stats.RecoveryRate = float64(stats.TotalRecovered) / float64(stats.TotalSent)
	}

	if lastScanStr, err := lastScanCmd.Result(); err == nil && lastScanStr != "" {
		if lastScan, parseErr := time.Parse(time.RFC3339, lastScanStr); parseErr == nil {
			stats.LastScan = lastScan
		}
	}

	return stats, nil
}

const defaultRecentLimit = 50

// GetRecentRecoveries returns the most recent recovered carts.
func (t *Tracker) GetRecentRecoveries(ctx context.Context, limit int) ([]RecentRecovery, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > MaxRecentRecoveries {
		limit = MaxRecentRecoveries
	}

	results, err := t.client.LRange(ctx, KeyRecentRecoveries, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []RecentRecovery{}, nil
		}
		return nil, fmt.Errorf("get recent recoveries: %w", err)
	}

	recoveries := make([]RecentRecovery, 0, len(results))
	for _, result := range results {
		var recovery RecentRecovery
		if unmarshalErr := json.Unmarshal([]byte(result), &recovery); unmarshalErr != nil {
			t.logger.Warn("Failed to unmarshal recent recovery",
				logger.Error(unmarshalErr),
			)
			continue
		}
		recoveries = append(recoveries, recovery)
	}

	return recoveries, nil
}

// UpdateLastScan updates the last scheduler scan timestamp.
func (t *Tracker) UpdateLastScan(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := t.client.Set(ctx, KeyLastScan, now, 0).Err(); err != nil {
		t.logger.Warn("Failed to update last scan",
			logger.Error(err),
		)
		return fmt.Errorf("update last scan: %w", err)
	}
	return nil
}
