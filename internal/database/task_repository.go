package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// taskSelectList is the column list for SELECT/RETURNING on recovery_tasks.
const taskSelectList = `id, kind, cart_id, status, retry_count, max_retries,
			error_message, scheduled_at, expires_at, dispatched_at,
			created_at, updated_at`

// TaskRepository manages the recovery task queue in PostgreSQL.
type TaskRepository struct {
	db queryer
}

// NewTaskRepository creates a new repository.
func NewTaskRepository(db queryer) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreatePending inserts a pending task unless one already exists for the
// same cart. Re-running a scan against unchanged state therefore never
// produces duplicate tasks.
func (r *TaskRepository) CreatePending(ctx context.Context, task *domain.RecoveryTask) error {
	query := `
		INSERT INTO recovery_tasks (id, kind, cart_id, status, retry_count, max_retries,
			scheduled_at, expires_at, created_at, updated_at)
		SELECT $1, $2, $3, 'pending', 0, $4, $5, $6, NOW(), NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM recovery_tasks
			WHERE cart_id = $3 AND status IN ('pending', 'dispatching')
		)`

	result, err := r.db.ExecContext(ctx, query,
		task.ID, task.Kind, task.CartID, task.MaxRetries, task.ScheduledAt, task.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create pending task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: pending task for cart %s", domain.ErrAlreadyExists, task.CartID)
	}
	return nil
}

// FetchDue claims pending, unexpired tasks for dispatch. Uses FOR UPDATE
// SKIP LOCKED so concurrent dispatch loops never claim the same task.
func (r *TaskRepository) FetchDue(ctx context.Context, limit int) ([]domain.RecoveryTask, error) {
	query := `
		UPDATE recovery_tasks
		SET status = 'dispatching', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM recovery_tasks
			WHERE status = 'pending'
			  AND scheduled_at <= NOW()
			  AND expires_at > NOW()
			ORDER BY scheduled_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskSelectList

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// FetchRetryable claims failed tasks whose backoff elapsed and retries remain.
func (r *TaskRepository) FetchRetryable(ctx context.Context, limit int) ([]domain.RecoveryTask, error) {
	query := `
		UPDATE recovery_tasks
		SET status = 'dispatching', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM recovery_tasks
			WHERE status = 'failed'
			  AND retry_count < max_retries
			  AND expires_at > NOW()
			ORDER BY updated_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskSelectList

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch retryable tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// execExpectOneRow runs an exec and returns domain.ErrNotFound when no
// row was affected.
func (r *TaskRepository) execExpectOneRow(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkDispatched marks a claimed task as successfully handed off.
func (r *TaskRepository) MarkDispatched(ctx context.Context, id string) error {
	query := `
		UPDATE recovery_tasks
		SET status = 'dispatched',
		    dispatched_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

// MarkFailed records a dispatch failure and increments the retry counter.
func (r *TaskRepository) MarkFailed(ctx context.Context, id, errorMsg string) error {
	query := `
		UPDATE recovery_tasks
		SET status = 'failed',
		    error_message = $2,
		    retry_count = retry_count + 1,
		    updated_at = NOW()
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id, errorMsg); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ResetToPending resets stale "dispatching" claims back to "pending".
// This handles tasks claimed by a dispatch loop that crashed mid-flight.
func (r *TaskRepository) ResetToPending(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE recovery_tasks
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'dispatching'
		  AND updated_at < NOW() - $1::interval`

	result, err := r.db.ExecContext(ctx, query, olderThan.String())
	if err != nil {
		return 0, fmt.Errorf("reset to pending: %w", err)
	}
	return result.RowsAffected()
}

// ExpireStale marks undispatched tasks past their expiry as expired.
// Expired tasks are dropped from dispatch, never force-cancelled.
func (r *TaskRepository) ExpireStale(ctx context.Context) (int64, error) {
	query := `
		UPDATE recovery_tasks
		SET status = 'expired', updated_at = NOW()
		WHERE status IN ('pending', 'failed')
		  AND expires_at <= NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("expire stale tasks: %w", err)
	}
	return result.RowsAffected()
}

// CleanupDispatched removes old dispatched and expired tasks.
func (r *TaskRepository) CleanupDispatched(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		DELETE FROM recovery_tasks
		WHERE status IN ('dispatched', 'expired')
		  AND updated_at < NOW() - $1::interval`

	result, err := r.db.ExecContext(ctx, query, olderThan.String())
	if err != nil {
		return 0, fmt.Errorf("cleanup dispatched: %w", err)
	}
	return result.RowsAffected()
}

// GetStats returns task queue statistics.
func (r *TaskRepository) GetStats(ctx context.Context) (*domain.TaskStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status = 'dispatched') as dispatched,
			COUNT(*) FILTER (WHERE status = 'failed' AND retry_count < max_retries) as failed_retryable,
			COUNT(*) FILTER (WHERE status = 'failed' AND retry_count >= max_retries) as failed_exhausted,
			COUNT(*) FILTER (WHERE status = 'expired') as expired,
			COALESCE(AVG(EXTRACT(EPOCH FROM (dispatched_at - scheduled_at)))
				FILTER (WHERE status = 'dispatched' AND dispatched_at > NOW() - INTERVAL '1 hour'), 0) as avg_dispatch_lag_seconds
		FROM recovery_tasks`

	var stats domain.TaskStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Pending,
		&stats.Dispatched,
		&stats.FailedRetryable,
		&stats.FailedExhausted,
		&stats.Expired,
		&stats.AvgDispatchLag,
	)
	if err != nil {
		return nil, fmt.Errorf("get task stats: %w", err)
	}
	return &stats, nil
}

// GetByID retrieves a single task.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.RecoveryTask, error) {
	query := `SELECT ` + taskSelectList + ` FROM recovery_tasks WHERE id = $1`

	var t domain.RecoveryTask
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Kind, &t.CartID, &t.Status, &t.RetryCount, &t.MaxRetries,
		&t.ErrorMessage, &t.ScheduledAt, &t.ExpiresAt, &t.DispatchedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return &t, nil
}

const initialTaskCapacity = 100

func scanTasks(rows *sql.Rows) ([]domain.RecoveryTask, error) {
	tasks := make([]domain.RecoveryTask, 0, initialTaskCapacity)
	for rows.Next() {
		var t domain.RecoveryTask
		err := rows.Scan(
			&t.ID, &t.Kind, &t.CartID, &t.Status, &t.RetryCount, &t.MaxRetries,
			&t.ErrorMessage, &t.ScheduledAt, &t.ExpiresAt, &t.DispatchedAt,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
