// Package dispatch sends recovery emails for claimed tasks and settles
// both task and cart state based on the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/config"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/email"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/telemetry"
)

const defaultRatePerSec = 5

// Outcome labels for dispatch telemetry.
const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSettled = "settled"
	outcomeExpired = "expired"
)

// Service dispatches recovery emails. Each task settles exactly one way:
// the email is sent and the cart advances, the cart turns out to be
// settled already, or the failure is recorded for retry.
type Service struct {
	emailClient EmailSender
	carts       CartStore
	tasks       TaskStore
	guard       PendingGuard
	metrics     RecoveryMetrics
	telemetry   *telemetry.Provider
	limiter     *rate.Limiter
	timeout     time.Duration
	logger      logger.Logger
}

// Deps contains dependencies for creating a Service.
type Deps struct {
	EmailClient EmailSender
	Carts       CartStore
	Tasks       TaskStore
	Guard       PendingGuard
	Metrics     RecoveryMetrics
	Telemetry   *telemetry.Provider
	Logger      logger.Logger
}

// NewService creates a dispatch service. The rate limit bounds outbound
// calls to the email collaborator.
func NewService(cfg config.SchedulerConfig, emailCfg config.EmailConfig, deps Deps) *Service {
	ratePerSec := emailCfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}

	timeout := cfg.DispatchTimeout
	if timeout <= 0 {
		timeout = config.DefaultDispatchTimeout
	}

	return &Service{
		emailClient: deps.EmailClient,
		carts:       deps.Carts,
		tasks:       deps.Tasks,
		guard:       deps.Guard,
		metrics:     deps.Metrics,
		telemetry:   deps.Telemetry,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1),
		timeout:     timeout,
		logger:      deps.Logger,
	}
}

// Dispatch settles one claimed recovery task. The returned error reflects
// the dispatch outcome; task and cart state are already updated when the
// call returns.
func (s *Service) Dispatch(ctx context.Context, task domain.RecoveryTask) error {
	start := time.Now()

	cart, err := s.carts.GetByID(ctx, task.CartID)
	if errors.Is(err, domain.ErrNotFound) {
		// Cart vanished under the task. Resolve the task so it never
		// redispatches.
		s.resolveTask(ctx, task, outcomeSettled)
		return fmt.Errorf("%w: cart %s not found", ErrCartSettled, task.CartID)
	}
	if err != nil {
		s.failTask(ctx, task, err)
		return fmt.Errorf("load cart: %w", err)
	}

	if cart.Status.IsTerminal() {
		s.resolveTask(ctx, task, outcomeSettled)
		s.logger.Debug("Skipping dispatch for settled cart",
			logger.String("cart_id", cart.ID),
			logger.String("status", string(cart.Status)),
		)
		return nil
	}

	if cart.AttemptsExhausted() {
		return s.expireCart(ctx, task, cart)
	}

	if waitErr := s.limiter.Wait(ctx); waitErr != nil {
		s.failTask(ctx, task, waitErr)
		return fmt.Errorf("%w: %s", ErrRateLimitExceeded, waitErr)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messageID, sendErr := s.emailClient.SendRecovery(sendCtx, email.SendRequest{
		CartID:      cart.ID,
		CustomerRef: cart.CustomerRef,
		Attempt:     cart.AttemptCount + 1,
		LineItems:   cart.LineItems,
	})
	if sendErr != nil {
		s.failTask(ctx, task, sendErr)
		// MarkFailed has already persisted the increment, so the count
		// the queue now holds is task.RetryCount+1.
		if task.RetryCount+1 >= task.MaxRetries {
			s.expireUndeliverable(ctx, task, cart)
		}
		s.recordOutcome(ctx, outcomeFailed, start)
		return fmt.Errorf("%w: %s", ErrDispatchFailed, sendErr)
	}

	return s.settleSend(ctx, task, cart, messageID, start)
}

// settleSend advances the cart after a successful send.
func (s *Service) settleSend(ctx context.Context, task domain.RecoveryTask, cart *domain.Cart, messageID string, start time.Time) error {
	if err := s.carts.MarkRecoverySent(ctx, cart.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Cart recovered or expired between send and update. The
			// email went out; the task is still done.
			s.resolveTask(ctx, task, outcomeSettled)
			return nil
		}
		s.failTask(ctx, task, err)
		return fmt.Errorf("advance cart after send: %w", err)
	}

	s.resolveTask(ctx, task, outcomeSent)

	if metricErr := s.metrics.IncrementSent(ctx); metricErr != nil {
		s.logger.Warn("Failed to record sent metric",
			logger.String("cart_id", cart.ID),
			logger.Error(metricErr),
		)
	}
	s.recordOutcome(ctx, outcomeSent, start)

	s.logger.Info("Recovery email dispatched",
		logger.String("cart_id", cart.ID),
		logger.String("message_id", messageID),
		logger.Int("attempt", cart.AttemptCount+1),
	)
	return nil
}

// expireCart settles a task whose cart already used every attempt.
func (s *Service) expireCart(ctx context.Context, task domain.RecoveryTask, cart *domain.Cart) error {
	if err := s.carts.MarkExpired(ctx, cart.ID); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		s.failTask(ctx, task, err)
		return fmt.Errorf("expire exhausted cart: %w", err)
	}

	s.resolveTask(ctx, task, outcomeExpired)

	if metricErr := s.metrics.IncrementExpired(ctx); metricErr != nil {
		s.logger.Warn("Failed to record expiry metric",
			logger.String("cart_id", cart.ID),
			logger.Error(metricErr),
		)
	}

	s.logger.Info("Cart expired after exhausting recovery attempts",
		logger.String("cart_id", cart.ID),
		logger.Int("attempts", cart.AttemptCount),
	)
	return nil
}

// expireUndeliverable settles a cart whose recovery task just burned its
// last retry. The cart moves to expired so the next scan does not mint a
// fresh task for an address that never accepts delivery; the task itself
// stays failed and ages out with the stale sweep.
func (s *Service) expireUndeliverable(ctx context.Context, task domain.RecoveryTask, cart *domain.Cart) {
	if err := s.carts.MarkExpired(ctx, cart.ID); err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Error("Failed to expire undeliverable cart",
				logger.String("cart_id", cart.ID),
				logger.Error(err),
			)
		}
		return
	}

	if err := s.guard.Clear(ctx, task.CartID); err != nil {
		s.logger.Warn("Failed to clear pending guard",
			logger.String("cart_id", task.CartID),
			logger.Error(err),
		)
	}

	if metricErr := s.metrics.IncrementExpired(ctx); metricErr != nil {
		s.logger.Warn("Failed to record expiry metric",
			logger.String("cart_id", cart.ID),
			logger.Error(metricErr),
		)
	}

	s.logger.Info("Cart expired after exhausting delivery retries",
		logger.String("cart_id", cart.ID),
		logger.String("task_id", task.ID),
		logger.Int("retries", task.RetryCount+1),
	)
}

// resolveTask marks the task dispatched and clears the pending guard.
func (s *Service) resolveTask(ctx context.Context, task domain.RecoveryTask, outcome string) {
	if err := s.tasks.MarkDispatched(ctx, task.ID); err != nil {
		s.logger.Error("Failed to mark task dispatched",
			logger.String("task_id", task.ID),
			logger.String("outcome", outcome),
			logger.Error(err),
		)
	}
	if err := s.guard.Clear(ctx, task.CartID); err != nil {
		s.logger.Warn("Failed to clear pending guard",
			logger.String("cart_id", task.CartID),
			logger.Error(err),
		)
	}
}

// failTask records a dispatch failure; retry scheduling happens in the
// task queue.
func (s *Service) failTask(ctx context.Context, task domain.RecoveryTask, cause error) {
	if err := s.tasks.MarkFailed(ctx, task.ID, cause.Error()); err != nil {
		s.logger.Error("Failed to mark task failed",
			logger.String("task_id", task.ID),
			logger.Error(err),
		)
	}
	if metricErr := s.metrics.IncrementFailed(ctx); metricErr != nil {
		s.logger.Warn("Failed to record failure metric",
			logger.String("task_id", task.ID),
			logger.Error(metricErr),
		)
	}
}

func (s *Service) recordOutcome(ctx context.Context, outcome string, start time.Time) {
	if s.telemetry != nil {
		s.telemetry.RecordDispatch(ctx, outcome, time.Since(start))
	}
}
