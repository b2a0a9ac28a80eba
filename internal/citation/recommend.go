package citation

import (
	"fmt"
	"sort"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// Default recommendation thresholds. Both are tunable via EngineConfig;
// the defaults are starting points, not contract values.
const (
	DefaultMentionRateThreshold = 0.5
	DefaultPositionThreshold    = 3.0
)

// EngineConfig holds recommendation policy thresholds.
type EngineConfig struct {
	// MentionRateThreshold triggers a coverage recommendation when the
	// fraction of records mentioning the brand falls below it.
	MentionRateThreshold float64
	// PositionThreshold triggers an early-mention recommendation when the
	// mean first-mention sentence exceeds it.
	PositionThreshold float64
}

// DefaultEngineConfig returns the default thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MentionRateThreshold: DefaultMentionRateThreshold,
		PositionThreshold:    DefaultPositionThreshold,
	}
}

// Engine derives optimization recommendations from citation records.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates an Engine, filling unset thresholds with defaults.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MentionRateThreshold <= 0 {
		cfg.MentionRateThreshold = DefaultMentionRateThreshold
	}
	if cfg.PositionThreshold <= 0 {
		cfg.PositionThreshold = DefaultPositionThreshold
	}
	return &Engine{cfg: cfg}
}

// queryStats accumulates per-query mention statistics.
type queryStats struct {
	total       int
	mentioned   int
	positionSum int
}

// Recommend aggregates records by query and derives recommendations.
// Output is deterministic: sorted by priority (high first), ties broken
// by query text.
func (e *Engine) Recommend(records []domain.CitationRecord) []domain.OptimizationRecommendation {
	stats := make(map[string]*queryStats)
	for i := range records {
		r := &records[i]
		s, ok := stats[r.Query]
		if !ok {
			s = &queryStats{}
			stats[r.Query] = s
		}
		s.total++
		if r.BrandMentioned {
			s.mentioned++
			s.positionSum += r.SentencePosition
		}
	}

	recommendations := make([]domain.OptimizationRecommendation, 0, len(stats))
	for query, s := range stats {
		mentionRate := float64(s.mentioned) / float64(s.total)

		if mentionRate < e.cfg.MentionRateThreshold {
			recommendations = append(recommendations, domain.OptimizationRecommendation{
				Query: query,
				Recommendation: fmt.Sprintf(
					"increase content coverage for %q: brand mentioned in %d of %d tracked responses",
					query, s.mentioned, s.total),
				Priority:    domain.PriorityHigh,
				MentionRate: mentionRate,
			})
		}

		if s.mentioned == 0 {
			continue
		}
		meanPosition := float64(s.positionSum) / float64(s.mentioned)
		if meanPosition > e.cfg.PositionThreshold {
			recommendations = append(recommendations, domain.OptimizationRecommendation{
				Query: query,
				Recommendation: fmt.Sprintf(
					"optimize %q for earlier mention: brand first appears around sentence %.1f on average",
					query, meanPosition),
				Priority:     domain.PriorityMedium,
				MentionRate:  mentionRate,
				MeanPosition: meanPosition,
			})
		}
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Priority != recommendations[j].Priority {
			return recommendations[i].Priority.Less(recommendations[j].Priority)
		}
		return recommendations[i].Query < recommendations[j].Query
	})

	return recommendations
}

// AggregateCompetitors derives per-competitor citation counts across
// records, sorted by count descending then name.
func AggregateCompetitors(records []domain.CitationRecord) []domain.CompetitorCitation {
	byName := make(map[string]*domain.CompetitorCitation)
	for i := range records {
		for _, name := range records[i].Competitors {
			c, ok := byName[name]
			if !ok {
				c = &domain.CompetitorCitation{Name: name}
				byName[name] = c
			}
			c.Count++
			c.RecordIDs = append(c.RecordIDs, records[i].ID)
		}
	}

	out := make([]domain.CompetitorCitation, 0, len(byName))
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
