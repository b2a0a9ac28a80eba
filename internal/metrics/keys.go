package metrics

import "fmt"

const (
	// KeyPrefixMetrics is the prefix for all metrics keys.
	KeyPrefixMetrics = "metrics:recovery"
	// KeyPrefixSent is the prefix for recovery-email-sent counters.
	KeyPrefixSent = "sent"
	// KeyPrefixRecovered is the prefix for recovered-cart counters.
	KeyPrefixRecovered = "recovered"
	// KeyPrefixExpired is the prefix for expired-cart counters.
	KeyPrefixExpired = "expired"
	// KeyPrefixFailed is the prefix for dispatch-failure counters.
	KeyPrefixFailed = "failed"
	// KeyRecentRecoveries is the Redis key for the recent recoveries list.
	KeyRecentRecoveries = "metrics:recovery:recent"
	// KeyLastScan is the Redis key for the last scheduler scan timestamp.
	KeyLastScan = "metrics:recovery:last_scan"
	// MaxRecentRecoveries is the maximum number of recent recoveries kept.
	MaxRecentRecoveries = 100
	// CounterTTLDays is the TTL in days for outcome counters.
	CounterTTLDays = 30
	// RecentRecoveriesTTLDays is the TTL in days for the recent list.
	RecentRecoveriesTTLDays = 7
	// HoursPerDay converts day-denominated TTLs to time.Duration.
	HoursPerDay = 24
)

// RedisKeys builds Redis keys consistently.
type RedisKeys struct {
	prefix string
}

// NewRedisKeys creates a new RedisKeys instance.
func NewRedisKeys(prefix string) *RedisKeys {
	return &RedisKeys{prefix: prefix}
}

// Sent returns the counter key for recovery emails sent.
func (k *RedisKeys) Sent() string {
	return fmt.Sprintf("%s:%s", k.prefix, KeyPrefixSent)
}

// Recovered returns the counter key for recovered carts.
func (k *RedisKeys) Recovered() string {
	return fmt.Sprintf("%s:%s", k.prefix, KeyPrefixRecovered)
}

// Expired returns the counter key for expired carts.
func (k *RedisKeys) Expired() string {
	return fmt.Sprintf("%s:%s", k.prefix, KeyPrefixExpired)
}

// Failed returns the counter key for failed dispatches.
func (k *RedisKeys) Failed() string {
	return fmt.Sprintf("%s:%s", k.prefix, KeyPrefixFailed)
}
