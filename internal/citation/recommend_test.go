package citation_test

import (
	"testing"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/citation"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

func record(id, query string, mentioned bool, position int, competitors ...string) domain.CitationRecord {
	return domain.CitationRecord{
		ID:               id,
		Query:            query,
		Platform:         domain.PlatformChatGPT,
		ResponseText:     "response",
		BrandMentioned:   mentioned,
		SentencePosition: position,
		Competitors:      competitors,
	}
}

func TestEngine_Recommend(t *testing.T) {
	engine := citation.NewEngine(citation.DefaultEngineConfig())

	records := []domain.CitationRecord{
		// "best binder": 1 of 4 mentioned, rate 0.25 -> coverage (high).
		record("r1", "best binder", true, 2),
		record("r2", "best binder", false, 0),
		record("r3", "best binder", false, 0),
		record("r4", "best binder", false, 0),
		// "best sleeves": always mentioned but late, mean 5 -> position (medium).
		record("r5", "best sleeves", true, 4),
		record("r6", "best sleeves", true, 6),
		// "best case": healthy, no recommendation.
		record("r7", "best case", true, 1),
		record("r8", "best case", true, 2),
	}

	recommendations := engine.Recommend(records)

	if len(recommendations) != 2 {
		t.Fatalf("Recommend() returned %d recommendations, want 2: %+v", len(recommendations), recommendations)
	}

	first := recommendations[0]
	if first.Query != "best binder" || first.Priority != domain.PriorityHigh {
		t.Errorf("first recommendation = %q/%s, want best binder/high", first.Query, first.Priority)
	}
	if first.MentionRate != 0.25 {
		t.Errorf("MentionRate = %v, want 0.25", first.MentionRate)
	}

	second := recommendations[1]
	if second.Query != "best sleeves" || second.Priority != domain.PriorityMedium {
		t.Errorf("second recommendation = %q/%s, want best sleeves/medium", second.Query, second.Priority)
	}
	if second.MeanPosition != 5.0 {
		t.Errorf("MeanPosition = %v, want 5.0", second.MeanPosition)
	}
}

func TestEngine_Recommend_Deterministic(t *testing.T) {
	engine := citation.NewEngine(citation.DefaultEngineConfig())

	// Two queries that both earn high-priority coverage recommendations;
	// ties break lexically by query text.
	records := []domain.CitationRecord{
		record("r1", "zeta query", false, 0),
		record("r2", "alpha query", false, 0),
	}

	for i := 0; i < 5; i++ {
		recommendations := engine.Recommend(records)
		if len(recommendations) != 2 {
			t.Fatalf("Recommend() returned %d recommendations, want 2", len(recommendations))
		}
		if recommendations[0].Query != "alpha query" || recommendations[1].Query != "zeta query" {
			t.Fatalf("run %d: order = [%q, %q], want lexical", i,
				recommendations[0].Query, recommendations[1].Query)
		}
	}
}

func TestEngine_Recommend_NoRecordsNoRecommendations(t *testing.T) {
	engine := citation.NewEngine(citation.DefaultEngineConfig())

	if got := engine.Recommend(nil); len(got) != 0 {
		t.Errorf("Recommend(nil) = %v, want empty", got)
	}
}

func TestEngine_Recommend_TunableThresholds(t *testing.T) {
	// A strict engine flags a 0.75 mention rate that the default accepts.
	strict := citation.NewEngine(citation.EngineConfig{
		MentionRateThreshold: 0.9,
		PositionThreshold:    10,
	})
	relaxed := citation.NewEngine(citation.DefaultEngineConfig())

	records := []domain.CitationRecord{
		record("r1", "best deck box", true, 1),
		record("r2", "best deck box", true, 1),
		record("r3", "best deck box", true, 1),
		record("r4", "best deck box", false, 0),
	}

	if got := strict.Recommend(records); len(got) != 1 {
		t.Errorf("strict Recommend() = %d recommendations, want 1", len(got))
	}
	if got := relaxed.Recommend(records); len(got) != 0 {
		t.Errorf("relaxed Recommend() = %d recommendations, want 0", len(got))
	}
}

func TestAggregateCompetitors(t *testing.T) {
	records := []domain.CitationRecord{
		record("r1", "q", false, 0, "Ultra Pro", "BCW"),
		record("r2", "q", true, 1, "Ultra Pro"),
		record("r3", "q", false, 0),
	}

	aggregated := citation.AggregateCompetitors(records)

	if len(aggregated) != 2 {
		t.Fatalf("AggregateCompetitors() = %d entries, want 2", len(aggregated))
	}
	if aggregated[0].Name != "Ultra Pro" || aggregated[0].Count != 2 {
		t.Errorf("top competitor = %s/%d, want Ultra Pro/2", aggregated[0].Name, aggregated[0].Count)
	}
	if aggregated[1].Name != "BCW" || aggregated[1].Count != 1 {
		t.Errorf("second competitor = %s/%d, want BCW/1", aggregated[1].Name, aggregated[1].Count)
	}
	if len(aggregated[0].RecordIDs) != 2 {
		t.Errorf("RecordIDs = %v, want 2 ids", aggregated[0].RecordIDs)
	}
}
