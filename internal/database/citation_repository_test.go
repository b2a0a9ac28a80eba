package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/database"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

func TestCitationRepository_Insert(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCitationRepository(db)
	ctx := context.Background()

	rec := &domain.CitationRecord{
		ID:               "rec-1",
		Query:            "best trading card storage",
		Platform:         domain.PlatformChatGPT,
		ResponseText:     "Infinity Vault is great. Ultra Pro too.",
		BrandMentioned:   true,
		SentencePosition: 1,
		ContextWindow:    "Infinity Vault is great. Ultra Pro too.",
		Competitors:      []string{"Ultra Pro"},
		AnalyzedAt:       time.Now(),
	}

	mock.ExpectExec("INSERT INTO citation_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO citation_competitors").
		WithArgs("rec-1", "Ultra Pro").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if callErr := repo.Insert(ctx, rec); callErr != nil {
		t.Errorf("Insert() unexpected error: %v", callErr)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestCitationRepository_List(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCitationRepository(db)
	ctx := context.Background()

	columns := []string{
		"id", "query", "platform", "response_text", "brand_mentioned",
		"sentence_position", "context_window", "competitors", "analyzed_at",
	}

	t.Run("no filter lists all records", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow("rec-1", "q1", "chatgpt", "text", true, 1, "ctx", "{Ultra Pro}", time.Now()).
			AddRow("rec-2", "q2", "claude", "text", false, 0, "", "{}", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM citation_records").
			WithArgs(100).
			WillReturnRows(rows)

		records, callErr := repo.List(ctx, database.CitationFilter{})
		if callErr != nil {
			t.Fatalf("List() unexpected error: %v", callErr)
		}
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
		if len(records[0].Competitors) != 1 || records[0].Competitors[0] != "Ultra Pro" {
			t.Errorf("competitors = %v, want [Ultra Pro]", records[0].Competitors)
		}
		if len(records[1].Competitors) != 0 {
			t.Errorf("competitors = %v, want empty", records[1].Competitors)
		}
	})

	t.Run("platform filter narrows query", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow("rec-1", "q1", "perplexity", "text", true, 2, "ctx", "{}", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM citation_records").
			WithArgs(string(domain.PlatformPerplexity), 25).
			WillReturnRows(rows)

		records, callErr := repo.List(ctx, database.CitationFilter{
			Platform: domain.PlatformPerplexity,
			Limit:    25,
		})
		if callErr != nil {
			t.Fatalf("List() unexpected error: %v", callErr)
		}
		if len(records) != 1 || records[0].Platform != domain.PlatformPerplexity {
			t.Errorf("records = %+v, want one perplexity record", records)
		}
	})

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestCitationRepository_GetByID_NotFound(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCitationRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM citation_records").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, callErr := repo.GetByID(ctx, "missing")
	if !errors.Is(callErr, domain.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", callErr)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestCitationRepository_CompetitorCounts(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewCitationRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"name", "mention_count", "record_ids"}).
		AddRow("Ultra Pro", 3, "{rec-1,rec-2,rec-3}").
		AddRow("Dragon Shield", 1, "{rec-2}")

	mock.ExpectQuery("SELECT (.+) FROM citation_competitors").
		WillReturnRows(rows)

	counts, callErr := repo.CompetitorCounts(ctx)
	if callErr != nil {
		t.Fatalf("CompetitorCounts() unexpected error: %v", callErr)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d competitors, want 2", len(counts))
	}
	if counts[0].Name != "Ultra Pro" || counts[0].Count != 3 {
		t.Errorf("first competitor = %+v, want Ultra Pro with 3 mentions", counts[0])
	}
	if len(counts[0].RecordIDs) != 3 {
		t.Errorf("record ids = %v, want 3 entries", counts[0].RecordIDs)
	}
}
