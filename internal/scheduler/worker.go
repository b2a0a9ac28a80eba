// Package scheduler provides the background worker for cart recovery.
// worker.go implements the recurring scan and dispatch loops.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/telemetry"
)

const (
	defaultScanInterval     = 5 * time.Minute
	defaultInactivityWindow = 30 * time.Minute
	defaultTaskExpiry       = 1 * time.Hour
	defaultBatchSize        = 100
	dispatchPollInterval    = 5 * time.Second
	staleDispatchingAge     = 5 * time.Minute
	cleanupInterval         = 1 * time.Hour
	recoveryInterval        = 1 * time.Minute
	cleanupRetention        = 7 * 24 * time.Hour // Keep dispatched tasks for 7 days
	retryBatchDivisor       = 2                  // Retry batch = batchSize / divisor
)

// CartStore defines the cart operations the worker needs.
type CartStore interface {
	MarkAbandoned(ctx context.Context, inactivity time.Duration, limit int) ([]string, error)
	FetchRecoveryCandidates(ctx context.Context, inactivity time.Duration, limit int) ([]domain.Cart, error)
	ExpireExhausted(ctx context.Context) (int64, error)
}

// TaskStore defines the task queue operations the worker needs.
type TaskStore interface {
	CreatePending(ctx context.Context, task *domain.RecoveryTask) error
	FetchDue(ctx context.Context, limit int) ([]domain.RecoveryTask, error)
	FetchRetryable(ctx context.Context, limit int) ([]domain.RecoveryTask, error)
	ResetToPending(ctx context.Context, olderThan time.Duration) (int64, error)
	ExpireStale(ctx context.Context) (int64, error)
	CleanupDispatched(ctx context.Context, olderThan time.Duration) (int64, error)
	GetStats(ctx context.Context) (*domain.TaskStats, error)
}

// PendingGuard is the fast-path idempotence check in front of the task
// queue's unique constraint.
type PendingGuard interface {
	HasPending(ctx context.Context, cartID string) bool
	MarkPending(ctx context.Context, cartID string) error
}

// Dispatcher settles one claimed recovery task.
type Dispatcher interface {
	Dispatch(ctx context.Context, task domain.RecoveryTask) error
}

// ScanMetrics records scan-cycle bookkeeping.
type ScanMetrics interface {
	UpdateLastScan(ctx context.Context) error
}

// Worker runs the recovery scan and dispatch loops.
type Worker struct {
	carts      CartStore
	tasks      TaskStore
	guard      PendingGuard
	dispatcher Dispatcher
	metrics    ScanMetrics
	telemetry  *telemetry.Provider
	logger     logger.Logger

	scanInterval     time.Duration
	inactivityWindow time.Duration
	taskExpiry       time.Duration
	batchSize        int

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// WorkerConfig holds configuration options
type WorkerConfig struct {
	ScanInterval     time.Duration
	InactivityWindow time.Duration
	TaskExpiry       time.Duration
	BatchSize        int
}

// DefaultWorkerConfig returns sensible defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ScanInterval:     defaultScanInterval,
		InactivityWindow: defaultInactivityWindow,
		TaskExpiry:       defaultTaskExpiry,
		BatchSize:        defaultBatchSize,
	}
}

// WorkerDeps contains dependencies for creating a Worker.
type WorkerDeps struct {
	Carts      CartStore
	Tasks      TaskStore
	Guard      PendingGuard
	Dispatcher Dispatcher
	Metrics    ScanMetrics
	Telemetry  *telemetry.Provider
	Logger     logger.Logger
}

// NewWorker creates a new recovery worker
func NewWorker(cfg WorkerConfig, deps WorkerDeps) *Worker {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if cfg.InactivityWindow <= 0 {
		cfg.InactivityWindow = defaultInactivityWindow
	}
	if cfg.TaskExpiry <= 0 {
		cfg.TaskExpiry = defaultTaskExpiry
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Worker{
		carts:            deps.Carts,
		tasks:            deps.Tasks,
		guard:            deps.Guard,
		dispatcher:       deps.Dispatcher,
		metrics:          deps.Metrics,
		telemetry:        deps.Telemetry,
		logger:           deps.Logger,
		scanInterval:     cfg.ScanInterval,
		inactivityWindow: cfg.InactivityWindow,
		taskExpiry:       cfg.TaskExpiry,
		batchSize:        cfg.BatchSize,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the scan, dispatch, cleanup, and recovery loops
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.runScan(ctx)

	w.wg.Add(1)
	go w.runDispatch(ctx)

	w.wg.Add(1)
	go w.runCleanup(ctx)

	w.wg.Add(1)
	go w.runRecovery(ctx)

	w.logger.Info("recovery worker started",
		logger.Duration("scan_interval", w.scanInterval),
		logger.Duration("inactivity_window", w.inactivityWindow),
		logger.Int("batch_size", w.batchSize))
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("recovery worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *Worker) runScan(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	// Scan immediately on start
	w.ScanOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.ScanOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ScanOnce runs one scan cycle: stale created carts become abandoned,
// and eligible carts get a pending recovery task. Re-running against
// unchanged state creates nothing new.
func (w *Worker) ScanOnce(ctx context.Context) {
	start := time.Now()

	ctx, span := w.telemetry.StartSpan(ctx, "scheduler.scan")
	defer span.End()

	abandoned, err := w.carts.MarkAbandoned(ctx, w.inactivityWindow, w.batchSize)
	if err != nil {
		w.logger.Error("failed to mark abandoned carts", logger.Error(err))
	} else if len(abandoned) > 0 {
		w.logger.Info("marked carts abandoned",
			logger.Int("count", len(abandoned)))
	}

	created := w.scheduleRecoveries(ctx)

	if w.metrics != nil {
		if scanErr := w.metrics.UpdateLastScan(ctx); scanErr != nil {
			w.logger.Warn("failed to update last scan", logger.Error(scanErr))
		}
	}
	w.telemetry.RecordScan(ctx, time.Since(start), len(abandoned), created)

	span.SetAttributes(
		attribute.Int("carts_abandoned", len(abandoned)),
		attribute.Int("tasks_created", created),
	)
}

// scheduleRecoveries creates pending tasks for eligible carts and
// returns the number created.
func (w *Worker) scheduleRecoveries(ctx context.Context) int {
	candidates, err := w.carts.FetchRecoveryCandidates(ctx, w.inactivityWindow, w.batchSize)
	if err != nil {
		w.logger.Error("failed to fetch recovery candidates", logger.Error(err))
		return 0
	}

	created := 0
	for i := range candidates {
		if w.scheduleOne(ctx, &candidates[i]) {
			created++
		}
	}

	if created > 0 {
		w.logger.Debug("scheduled recovery tasks", logger.Int("count", created))
	}
	return created
}

func (w *Worker) scheduleOne(ctx context.Context, cart *domain.Cart) bool {
	if w.guard.HasPending(ctx, cart.ID) {
		return false
	}

	task, err := domain.NewRecoveryTask(uuid.NewString(), domain.TaskKindSendRecoveryEmail, cart.ID, w.taskExpiry)
	if err != nil {
		w.logger.Error("failed to build recovery task",
			logger.String("cart_id", cart.ID),
			logger.Error(err))
		return false
	}

	if createErr := w.tasks.CreatePending(ctx, task); createErr != nil {
		// ErrAlreadyExists is the database guard doing its job when the
		// Redis guard missed; anything else is a real failure.
		w.logger.Debug("skipped task creation",
			logger.String("cart_id", cart.ID),
			logger.Error(createErr))
		return false
	}

	if guardErr := w.guard.MarkPending(ctx, cart.ID); guardErr != nil {
		w.logger.Warn("failed to mark pending guard",
			logger.String("cart_id", cart.ID),
			logger.Error(guardErr))
	}
	return true
}

func (w *Worker) runDispatch(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(dispatchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.DispatchOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// DispatchOnce claims and settles one batch of due tasks, then a smaller
// batch of retryable ones so fresh work keeps priority.
func (w *Worker) DispatchOnce(ctx context.Context) {
	due, err := w.tasks.FetchDue(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to fetch due tasks", logger.Error(err))
	} else if len(due) > 0 {
		w.logger.Debug("dispatching due tasks", logger.Int("count", len(due)))
		w.dispatchBatch(ctx, due)
	}

	retryable, err := w.tasks.FetchRetryable(ctx, w.batchSize/retryBatchDivisor)
	if err != nil {
		w.logger.Error("failed to fetch retryable tasks", logger.Error(err))
	} else if len(retryable) > 0 {
		w.logger.Debug("dispatching retryable tasks", logger.Int("count", len(retryable)))
		w.dispatchBatch(ctx, retryable)
	}
}

func (w *Worker) dispatchBatch(ctx context.Context, tasks []domain.RecoveryTask) {
	for i := range tasks {
		task := tasks[i]

		dispatchCtx, span := w.telemetry.StartSpan(ctx, "scheduler.dispatch",
			attribute.String("task_id", task.ID),
			attribute.String("cart_id", task.CartID),
			attribute.Int("retry_count", task.RetryCount),
		)

		if err := w.dispatcher.Dispatch(dispatchCtx, task); err != nil {
			w.logger.Error("dispatch failed",
				logger.String("task_id", task.ID),
				logger.String("cart_id", task.CartID),
				logger.Int("retry_count", task.RetryCount),
				logger.Error(err))
			if task.ShouldRetry() {
				w.telemetry.IncrementDispatchRetries()
			}
		}

		span.End()
	}
}

// runCleanup expires stale work and trims settled tasks
func (w *Worker) runCleanup(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.CleanupOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// CleanupOnce expires overdue tasks, expires carts with exhausted
// attempts, and removes old settled tasks.
func (w *Worker) CleanupOnce(ctx context.Context) {
	tasksExpired, err := w.tasks.ExpireStale(ctx)
	if err != nil {
		w.logger.Error("task expiry failed", logger.Error(err))
	} else if tasksExpired > 0 {
		w.logger.Info("expired stale recovery tasks",
			logger.Int64("expired", tasksExpired))
	}

	cartsExpired, err := w.carts.ExpireExhausted(ctx)
	if err != nil {
		w.logger.Error("cart expiry failed", logger.Error(err))
	} else if cartsExpired > 0 {
		w.logger.Info("expired carts with exhausted attempts",
			logger.Int64("expired", cartsExpired))
	}

	w.telemetry.RecordExpirations(ctx, cartsExpired, tasksExpired)

	deleted, err := w.tasks.CleanupDispatched(ctx, cleanupRetention)
	if err != nil {
		w.logger.Error("task cleanup failed", logger.Error(err))
	} else if deleted > 0 {
		w.logger.Info("cleaned up old recovery tasks",
			logger.Int64("deleted", deleted))
	}

	if stats, statsErr := w.tasks.GetStats(ctx); statsErr == nil {
		w.telemetry.SetPendingTaskDepth(stats.Pending)
	}
}

// runRecovery resets stale "dispatching" claims back to "pending".
// This handles tasks that were claimed but the worker crashed before
// completing.
func (w *Worker) runRecovery(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(recoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reset, err := w.tasks.ResetToPending(ctx, staleDispatchingAge)
			if err != nil {
				w.logger.Error("task recovery failed", logger.Error(err))
			} else if reset > 0 {
				w.logger.Warn("recovered stale dispatching tasks",
					logger.Int64("reset", reset))
			}
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// GetStats returns current worker statistics
func (w *Worker) GetStats(ctx context.Context) (map[string]any, error) {
	stats, err := w.tasks.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"pending":                  stats.Pending,
		"dispatched":               stats.Dispatched,
		"failed_retryable":         stats.FailedRetryable,
		"failed_exhausted":         stats.FailedExhausted,
		"expired":                  stats.Expired,
		"avg_dispatch_lag_seconds": stats.AvgDispatchLag,
		"scan_interval":            w.scanInterval.String(),
		"batch_size":               w.batchSize,
		"running":                  w.IsRunning(),
	}, nil
}
