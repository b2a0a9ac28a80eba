package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// cartSelectList is the column list for SELECT/RETURNING on carts
// (single source for schema changes).
const cartSelectList = `id, customer_ref, line_items, status, attempt_count,
			max_attempts, created_at, updated_at`

// CartRepository manages cart lifecycle rows in PostgreSQL. All status
// changes are guarded compare-and-swap updates so concurrent webhook and
// scheduler writes to the same cart serialize on the row.
type CartRepository struct {
	db queryer
}

// queryer is the subset of *sqlx.DB / *sql.DB the repositories need.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewCartRepository creates a new repository.
func NewCartRepository(db queryer) *CartRepository {
	return &CartRepository{db: db}
}

// Upsert inserts a cart or refreshes an existing non-terminal cart from a
// webhook update. Terminal carts are left untouched and reported via
// domain.ErrInvalidTransition.
func (r *CartRepository) Upsert(ctx context.Context, cart *domain.Cart) error {
	items, err := json.Marshal(cart.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	query := `
		INSERT INTO carts (id, customer_ref, line_items, status, attempt_count, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET customer_ref = EXCLUDED.customer_ref,
		    line_items = EXCLUDED.line_items,
		    updated_at = NOW()
		WHERE carts.status NOT IN ('recovered', 'expired')`

	result, err := r.db.ExecContext(ctx, query,
		cart.ID, cart.CustomerRef, items, cart.Status, cart.MaxAttempts)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: cart %s is terminal", domain.ErrInvalidTransition, cart.ID)
	}
	return nil
}

// GetByID retrieves a single cart.
func (r *CartRepository) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	query := `SELECT ` + cartSelectList + ` FROM carts WHERE id = $1`

	cart, err := scanCart(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart by id: %w", err)
	}
	return cart, nil
}

// ListByStatus returns carts in the given status, oldest first.
func (r *CartRepository) ListByStatus(ctx context.Context, status domain.CartStatus, limit int) ([]domain.Cart, error) {
	query := `SELECT ` + cartSelectList + `
		FROM carts
		WHERE status = $1
		ORDER BY updated_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	return scanCarts(rows)
}

// MarkAbandoned transitions created carts with no activity inside the
// inactivity window to abandoned, returning the affected cart ids.
func (r *CartRepository) MarkAbandoned(ctx context.Context, inactivity time.Duration, limit int) ([]string, error) {
	query := `
		UPDATE carts
		SET status = 'abandoned', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM carts
			WHERE status = 'created'
			  AND updated_at < NOW() - $1::interval
			ORDER BY updated_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, inactivity.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("mark abandoned: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("scan abandoned id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchRecoveryCandidates returns carts eligible for a recovery dispatch:
// abandoned or recovery_sent, attempts below the cap, stale past the
// inactivity window.
func (r *CartRepository) FetchRecoveryCandidates(ctx context.Context, inactivity time.Duration, limit int) ([]domain.Cart, error) {
	query := `SELECT ` + cartSelectList + `
		FROM carts
		WHERE status IN ('abandoned', 'recovery_sent')
		  AND attempt_count < max_attempts
		  AND updated_at < NOW() - $1::interval
		ORDER BY updated_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, inactivity.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recovery candidates: %w", err)
	}
	defer rows.Close()

	return scanCarts(rows)
}

// MarkRecoverySent transitions a cart to recovery_sent and increments its
// attempt counter. The guarded update rejects carts that moved elsewhere
// or exhausted their attempts in the meantime.
func (r *CartRepository) MarkRecoverySent(ctx context.Context, id string) error {
	query := `
		UPDATE carts
		SET status = 'recovery_sent',
		    attempt_count = attempt_count + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('abandoned', 'recovery_sent')
		  AND attempt_count < max_attempts`

	return r.execTransition(ctx, query, id)
}

// MarkRecovered transitions a cart to recovered on checkout completion.
func (r *CartRepository) MarkRecovered(ctx context.Context, id string) error {
	query := `
		UPDATE carts
		SET status = 'recovered', updated_at = NOW()
		WHERE id = $1
		  AND status IN ('created', 'abandoned', 'recovery_sent')`

	return r.execTransition(ctx, query, id)
}

// MarkExpired transitions a single cart to expired.
func (r *CartRepository) MarkExpired(ctx context.Context, id string) error {
	query := `
		UPDATE carts
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1
		  AND status IN ('abandoned', 'recovery_sent')`

	return r.execTransition(ctx, query, id)
}

// ExpireExhausted transitions carts whose attempt counter reached the cap
// to expired, returning the number affected.
func (r *CartRepository) ExpireExhausted(ctx context.Context) (int64, error) {
	query := `
		UPDATE carts
		SET status = 'expired', updated_at = NOW()
		WHERE status IN ('abandoned', 'recovery_sent')
		  AND attempt_count >= max_attempts`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("expire exhausted: %w", err)
	}
	return result.RowsAffected()
}

// StatusCounts returns the number of carts per lifecycle status.
func (r *CartRepository) StatusCounts(ctx context.Context) (map[domain.CartStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM carts GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cart status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.CartStatus]int64)
	for rows.Next() {
		var status domain.CartStatus
		var count int64
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("scan status count: %w", scanErr)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// execTransition runs a guarded status update and maps a zero-row result
// to ErrNotFound or ErrInvalidTransition depending on cart existence.
func (r *CartRepository) execTransition(ctx context.Context, query, id string) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cart transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var status domain.CartStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM carts WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check cart status: %w", err)
	}
	return fmt.Errorf("%w: cart %s in status %s", domain.ErrInvalidTransition, id, status)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row rowScanner) (*domain.Cart, error) {
	var c domain.Cart
	var items []byte

	err := row.Scan(
		&c.ID, &c.CustomerRef, &items, &c.Status, &c.AttemptCount,
		&c.MaxAttempts, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if unmarshalErr := json.Unmarshal(items, &c.LineItems); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal line items: %w", unmarshalErr)
		}
	}
	return &c, nil
}

// initialCartCapacity is a reasonable default for batch scans.
const initialCartCapacity = 100

func scanCarts(rows *sql.Rows) ([]domain.Cart, error) {
	carts := make([]domain.Cart, 0, initialCartCapacity)
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, *cart)
	}
	return carts, rows.Err()
}
