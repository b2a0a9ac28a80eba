package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// CitationRepository persists citation analysis results in PostgreSQL.
type CitationRepository struct {
	db queryer
}

// NewCitationRepository creates a new repository.
func NewCitationRepository(db queryer) *CitationRepository {
	return &CitationRepository{db: db}
}

// Insert stores a citation record and its competitor mentions.
func (r *CitationRepository) Insert(ctx context.Context, rec *domain.CitationRecord) error {
	query := `
		INSERT INTO citation_records (id, query, platform, response_text,
			brand_mentioned, sentence_position, context_window, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Query, rec.Platform, rec.ResponseText,
		rec.BrandMentioned, rec.SentencePosition, rec.ContextWindow, rec.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("insert citation record: %w", err)
	}

	for _, name := range rec.Competitors {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO citation_competitors (record_id, name) VALUES ($1, $2)`,
			rec.ID, name)
		if err != nil {
			return fmt.Errorf("insert competitor mention: %w", err)
		}
	}
	return nil
}

// CitationFilter narrows List results. Zero values mean no constraint.
type CitationFilter struct {
	Platform domain.Platform
	Query    string
	Since    time.Time
	Until    time.Time
	Limit    int
}

const defaultCitationLimit = 100

// List returns citation records newest first, with competitor names
// aggregated per record.
func (r *CitationRepository) List(ctx context.Context, filter CitationFilter) ([]domain.CitationRecord, error) {
	var conditions []string
	var args []any

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Platform != "" {
		addCondition("r.platform = $%d", filter.Platform)
	}
	if filter.Query != "" {
		addCondition("r.query = $%d", filter.Query)
	}
	if !filter.Since.IsZero() {
		addCondition("r.analyzed_at >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		addCondition("r.analyzed_at < $%d", filter.Until)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCitationLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT r.id, r.query, r.platform, r.response_text,
		       r.brand_mentioned, r.sentence_position, r.context_window,
		       COALESCE(array_agg(c.name ORDER BY c.name) FILTER (WHERE c.name IS NOT NULL), '{}') as competitors,
		       r.analyzed_at
		FROM citation_records r
		LEFT JOIN citation_competitors c ON c.record_id = r.id
		%s
		GROUP BY r.id
		ORDER BY r.analyzed_at DESC
		LIMIT $%d`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list citation records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.CitationRecord, 0, defaultCitationLimit)
	for rows.Next() {
		var rec domain.CitationRecord
		var competitors pq.StringArray
		err := rows.Scan(
			&rec.ID, &rec.Query, &rec.Platform, &rec.ResponseText,
			&rec.BrandMentioned, &rec.SentencePosition, &rec.ContextWindow,
			&competitors, &rec.AnalyzedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan citation record: %w", err)
		}
		rec.Competitors = []string(competitors)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByID retrieves a single citation record with its competitors.
func (r *CitationRepository) GetByID(ctx context.Context, id string) (*domain.CitationRecord, error) {
	query := `
		SELECT r.id, r.query, r.platform, r.response_text,
		       r.brand_mentioned, r.sentence_position, r.context_window,
		       COALESCE(array_agg(c.name ORDER BY c.name) FILTER (WHERE c.name IS NOT NULL), '{}') as competitors,
		       r.analyzed_at
		FROM citation_records r
		LEFT JOIN citation_competitors c ON c.record_id = r.id
		WHERE r.id = $1
		GROUP BY r.id`

	var rec domain.CitationRecord
	var competitors pq.StringArray
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Query, &rec.Platform, &rec.ResponseText,
		&rec.BrandMentioned, &rec.SentencePosition, &rec.ContextWindow,
		&competitors, &rec.AnalyzedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get citation record: %w", err)
	}
	rec.Competitors = []string(competitors)
	return &rec, nil
}

// CompetitorCounts aggregates competitor mention counts across all records,
// most-mentioned first.
func (r *CitationRepository) CompetitorCounts(ctx context.Context) ([]domain.CompetitorCitation, error) {
	query := `
		SELECT c.name, COUNT(*) as mention_count,
		       array_agg(c.record_id ORDER BY c.record_id) as record_ids
		FROM citation_competitors c
		GROUP BY c.name
		ORDER BY mention_count DESC, c.name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate competitor counts: %w", err)
	}
	defer rows.Close()

	var results []domain.CompetitorCitation
	for rows.Next() {
		var cc domain.CompetitorCitation
		var recordIDs pq.StringArray
		if err := rows.Scan(&cc.Name, &cc.Count, &recordIDs); err != nil {
			return nil, fmt.Errorf("scan competitor count: %w", err)
		}
		cc.RecordIDs = []string(recordIDs)
		results = append(results, cc)
	}
	return results, rows.Err()
}
