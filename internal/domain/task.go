package domain

import (
	"fmt"
	"time"
)

// TaskKind identifies the work a recovery task represents.
type TaskKind string

const (
	TaskKindProcessAbandonedCarts TaskKind = "process_abandoned_carts"
	TaskKindSendRecoveryEmail     TaskKind = "send_recovery_email"
)

// TaskStatus represents the state of a scheduled recovery task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusDispatching marks a task claimed by the dispatch loop but
	// not yet confirmed; stale claims are reset to pending on recovery.
	TaskStatusDispatching TaskStatus = "dispatching"
	TaskStatusDispatched  TaskStatus = "dispatched"
	TaskStatusFailed      TaskStatus = "failed"
	TaskStatusExpired     TaskStatus = "expired"
)

// RecoveryTask is a scheduled unit of recovery work for a single cart.
// Tasks are created by the scheduler scan, consumed once by the dispatch
// loop, and dropped when they age past ExpiresAt before dispatch.
type RecoveryTask struct {
	ID           string     `db:"id"            json:"id"`
	Kind         TaskKind   `db:"kind"          json:"kind"`
	CartID       string     `db:"cart_id"       json:"cart_id"`
	Status       TaskStatus `db:"status"        json:"status"`
	RetryCount   int        `db:"retry_count"   json:"retry_count"`
	MaxRetries   int        `db:"max_retries"   json:"max_retries"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	ScheduledAt  time.Time  `db:"scheduled_at"  json:"scheduled_at"`
	ExpiresAt    time.Time  `db:"expires_at"    json:"expires_at"`
	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatched_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

const defaultTaskMaxRetries = 3

// NewRecoveryTask creates a pending task with validation.
func NewRecoveryTask(id string, kind TaskKind, cartID string, expiry time.Duration) (*RecoveryTask, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrValidation)
	}
	if cartID == "" {
		return nil, fmt.Errorf("%w: cart_id is required", ErrValidation)
	}
	if kind != TaskKindProcessAbandonedCarts && kind != TaskKindSendRecoveryEmail {
		return nil, fmt.Errorf("%w: unknown task kind %q", ErrValidation, kind)
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("%w: expiry must be positive", ErrValidation)
	}

	now := time.Now()
	return &RecoveryTask{
		ID:          id,
		Kind:        kind,
		CartID:      cartID,
		Status:      TaskStatusPending,
		MaxRetries:  defaultTaskMaxRetries,
		ScheduledAt: now,
		ExpiresAt:   now.Add(expiry),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ShouldRetry reports whether the task may be retried after a failure.
func (t *RecoveryTask) ShouldRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// IsExpired reports whether the task aged past its expiry at the given time.
func (t *RecoveryTask) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TaskStats holds task queue statistics for monitoring.
type TaskStats struct {
	Pending         int64   `json:"pending"`
	Dispatched      int64   `json:"dispatched"`
	FailedRetryable int64   `json:"failed_retryable"`
	FailedExhausted int64   `json:"failed_exhausted"`
	Expired         int64   `json:"expired"`
	AvgDispatchLag  float64 `json:"avg_dispatch_lag_seconds"`
}
