package dispatch

import (
	"context"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/email"
)

// EmailSender defines the interface for the recovery email collaborator.
type EmailSender interface {
	// SendRecovery sends one recovery email and returns the message id
	SendRecovery(ctx context.Context, req email.SendRequest) (string, error)
}

// CartStore defines the cart operations dispatch needs.
type CartStore interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	MarkRecoverySent(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, id string) error
}

// TaskStore defines the task queue operations dispatch needs.
type TaskStore interface {
	MarkDispatched(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errorMsg string) error
}

// PendingGuard clears queued-work markers once a task settles.
type PendingGuard interface {
	Clear(ctx context.Context, cartID string) error
}

// RecoveryMetrics is the subset of metrics dispatch records.
type RecoveryMetrics interface {
	IncrementSent(ctx context.Context) error
	IncrementFailed(ctx context.Context) error
	IncrementExpired(ctx context.Context) error
}
