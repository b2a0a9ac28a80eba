package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/database"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

func cartColumns() []string {
	return []string{
		"id", "customer_ref", "line_items", "status",
		"attempt_count", "max_attempts", "created_at", "updated_at",
	}
}

func cartRow(rows *sqlmock.Rows, id string, status domain.CartStatus, attempts int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "customer-1", []byte(`[{"product_id":"sku-1","quantity":2}]`),
		status, attempts, 3, now, now)
}

func TestCartRepository_Upsert(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCartRepository(db)
	ctx := context.Background()

	cart, cartErr := domain.NewCart("cart-1", "customer-1", []domain.LineItem{
		{ProductID: "sku-1", Quantity: 2},
	})
	if cartErr != nil {
		t.Fatalf("failed to build cart: %v", cartErr)
	}

	testCases := []struct {
		name      string
		setupMock func()
		wantErr   error
	}{
		{
			name: "inserts new cart",
			setupMock: func() {
				mock.ExpectExec("INSERT INTO carts").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "terminal cart rejects update",
			setupMock: func() {
				mock.ExpectExec("INSERT INTO carts").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			callErr := repo.Upsert(ctx, cart)
			if tc.wantErr == nil && callErr != nil {
				t.Errorf("Upsert() unexpected error: %v", callErr)
			}
			if tc.wantErr != nil && !errors.Is(callErr, tc.wantErr) {
				t.Errorf("Upsert() error = %v, want %v", callErr, tc.wantErr)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestCartRepository_GetByID(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCartRepository(db)
	ctx := context.Background()

	t.Run("returns cart with decoded line items", func(t *testing.T) {
		rows := cartRow(sqlmock.NewRows(cartColumns()), "cart-1", domain.CartStatusAbandoned, 1)
		mock.ExpectQuery("SELECT (.+) FROM carts WHERE id").
			WithArgs("cart-1").
			WillReturnRows(rows)

		cart, callErr := repo.GetByID(ctx, "cart-1")
		if callErr != nil {
			t.Fatalf("GetByID() unexpected error: %v", callErr)
		}
		if cart.Status != domain.CartStatusAbandoned {
			t.Errorf("status = %s, want abandoned", cart.Status)
		}
		if len(cart.LineItems) != 1 || cart.LineItems[0].ProductID != "sku-1" {
			t.Errorf("line items not decoded: %+v", cart.LineItems)
		}
	})

	t.Run("missing cart returns ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM carts WHERE id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, callErr := repo.GetByID(ctx, "missing")
		if !errors.Is(callErr, domain.ErrNotFound) {
			t.Errorf("GetByID() error = %v, want ErrNotFound", callErr)
		}
	})

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestCartRepository_MarkAbandoned(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCartRepository(db)
	ctx := context.Background()

	t.Run("returns affected cart ids", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id"}).AddRow("cart-1").AddRow("cart-2")
		mock.ExpectQuery("UPDATE carts").
			WithArgs("30m0s", 100).
			WillReturnRows(rows)

		ids, callErr := repo.MarkAbandoned(ctx, 30*time.Minute, 100)
		if callErr != nil {
			t.Fatalf("MarkAbandoned() unexpected error: %v", callErr)
		}
		if len(ids) != 2 || ids[0] != "cart-1" || ids[1] != "cart-2" {
			t.Errorf("ids = %v, want [cart-1 cart-2]", ids)
		}
	})

	t.Run("no stale carts returns empty", func(t *testing.T) {
		mock.ExpectQuery("UPDATE carts").
			WithArgs("30m0s", 100).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		ids, callErr := repo.MarkAbandoned(ctx, 30*time.Minute, 100)
		if callErr != nil {
			t.Fatalf("MarkAbandoned() unexpected error: %v", callErr)
		}
		if len(ids) != 0 {
			t.Errorf("ids = %v, want empty", ids)
		}
	})

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestCartRepository_Transitions(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCartRepository(db)
	ctx := context.Background()
	cartID := "cart-1"

	testCases := []struct {
		name      string
		call      func() error
		setupMock func()
		wantErr   error
	}{
		{
			name: "recovery sent succeeds",
			call: func() error { return repo.MarkRecoverySent(ctx, cartID) },
			setupMock: func() {
				mock.ExpectExec("UPDATE carts").
					WithArgs(cartID).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "recovered succeeds",
			call: func() error { return repo.MarkRecovered(ctx, cartID) },
			setupMock: func() {
				mock.ExpectExec("UPDATE carts").
					WithArgs(cartID).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "transition on missing cart returns ErrNotFound",
			call: func() error { return repo.MarkRecovered(ctx, cartID) },
			setupMock: func() {
				mock.ExpectExec("UPDATE carts").
					WithArgs(cartID).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT status FROM carts").
					WithArgs(cartID).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "transition from terminal status returns ErrInvalidTransition",
			call: func() error { return repo.MarkRecoverySent(ctx, cartID) },
			setupMock: func() {
				mock.ExpectExec("UPDATE carts").
					WithArgs(cartID).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT status FROM carts").
					WithArgs(cartID).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("recovered"))
			},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			callErr := tc.call()
			if tc.wantErr == nil && callErr != nil {
				t.Errorf("transition unexpected error: %v", callErr)
			}
			if tc.wantErr != nil && !errors.Is(callErr, tc.wantErr) {
				t.Errorf("transition error = %v, want %v", callErr, tc.wantErr)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestCartRepository_FetchRecoveryCandidates(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCartRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows(cartColumns())
	rows = cartRow(rows, "cart-1", domain.CartStatusAbandoned, 0)
	rows = cartRow(rows, "cart-2", domain.CartStatusRecoverySent, 1)

	mock.ExpectQuery("SELECT (.+) FROM carts").
		WithArgs("30m0s", 50).
		WillReturnRows(rows)

	carts, callErr := repo.FetchRecoveryCandidates(ctx, 30*time.Minute, 50)
	if callErr != nil {
		t.Fatalf("FetchRecoveryCandidates() unexpected error: %v", callErr)
	}
	if len(carts) != 2 {
		t.Fatalf("got %d carts, want 2", len(carts))
	}
	if carts[1].AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", carts[1].AttemptCount)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestCartRepository_StatusCounts(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCartRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("created", 5).
		AddRow("abandoned", 3).
		AddRow("recovered", 2)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(rows)

	counts, callErr := repo.StatusCounts(ctx)
	if callErr != nil {
		t.Fatalf("StatusCounts() unexpected error: %v", callErr)
	}
	if counts[domain.CartStatusAbandoned] != 3 {
		t.Errorf("abandoned count = %d, want 3", counts[domain.CartStatusAbandoned])
	}
	if len(counts) != 3 {
		t.Errorf("got %d statuses, want 3", len(counts))
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}
