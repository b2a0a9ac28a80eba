package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

func TestNewRecoveryTask(t *testing.T) {
	testCases := []struct {
		name    string
		id      string
		kind    domain.TaskKind
		cartID  string
		expiry  time.Duration
		wantErr bool
	}{
		{
			name:   "valid send task",
			id:     "task-1",
			kind:   domain.TaskKindSendRecoveryEmail,
			cartID: "cart-1",
			expiry: time.Hour,
		},
		{
			name:   "valid scan task",
			id:     "task-2",
			kind:   domain.TaskKindProcessAbandonedCarts,
			cartID: "cart-2",
			expiry: time.Minute,
		},
		{
			name:    "missing id",
			kind:    domain.TaskKindSendRecoveryEmail,
			cartID:  "cart-1",
			expiry:  time.Hour,
			wantErr: true,
		},
		{
			name:    "missing cart id",
			id:      "task-3",
			kind:    domain.TaskKindSendRecoveryEmail,
			expiry:  time.Hour,
			wantErr: true,
		},
		{
			name:    "unknown kind",
			id:      "task-4",
			kind:    domain.TaskKind("reindex"),
			cartID:  "cart-1",
			expiry:  time.Hour,
			wantErr: true,
		},
		{
			name:    "non-positive expiry",
			id:      "task-5",
			kind:    domain.TaskKindSendRecoveryEmail,
			cartID:  "cart-1",
			expiry:  0,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			task, err := domain.NewRecoveryTask(tc.id, tc.kind, tc.cartID, tc.expiry)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewRecoveryTask() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("error = %v, want ErrValidation", err)
				}
				return
			}
			if task.Status != domain.TaskStatusPending {
				t.Errorf("Status = %s, want pending", task.Status)
			}
			if !task.ExpiresAt.After(task.ScheduledAt) {
				t.Error("ExpiresAt should be after ScheduledAt")
			}
		})
	}
}

func TestRecoveryTask_ShouldRetry(t *testing.T) {
	task := domain.RecoveryTask{RetryCount: 2, MaxRetries: 3}
	if !task.ShouldRetry() {
		t.Error("ShouldRetry() = false with retries remaining")
	}

	task.RetryCount = 3
	if task.ShouldRetry() {
		t.Error("ShouldRetry() = true with retries exhausted")
	}
}

func TestRecoveryTask_IsExpired(t *testing.T) {
	now := time.Now()
	task := domain.RecoveryTask{ExpiresAt: now.Add(time.Minute)}

	if task.IsExpired(now) {
		t.Error("IsExpired() = true before expiry")
	}
	if !task.IsExpired(now.Add(2 * time.Minute)) {
		t.Error("IsExpired() = false after expiry")
	}
}
