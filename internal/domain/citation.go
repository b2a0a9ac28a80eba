package domain

import (
	"fmt"
	"time"
)

// Platform identifies which answer engine produced a response.
type Platform string

const (
	PlatformChatGPT    Platform = "chatgpt"
	PlatformClaude     Platform = "claude"
	PlatformPerplexity Platform = "perplexity"
	PlatformGemini     Platform = "gemini"
	PlatformOther      Platform = "other"
)

// IsValid reports whether p is a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformChatGPT, PlatformClaude, PlatformPerplexity, PlatformGemini, PlatformOther:
		return true
	}
	return false
}

// CitationRecord captures one analysis of an answer-engine response for
// brand and competitor mentions. Records are immutable once created.
type CitationRecord struct {
	ID               string    `db:"id"                json:"id"`
	Query            string    `db:"query"             json:"query"`
	Platform         Platform  `db:"platform"          json:"platform"`
	ResponseText     string    `db:"response_text"     json:"response_text"`
	BrandMentioned   bool      `db:"brand_mentioned"   json:"brand_mentioned"`
	SentencePosition int       `db:"sentence_position" json:"sentence_position"`
	ContextWindow    string    `db:"context_window"    json:"context_window"`
	Competitors      []string  `db:"-"                 json:"competitors"`
	AnalyzedAt       time.Time `db:"analyzed_at"       json:"analyzed_at"`
}

// CompetitorCitation aggregates competitor mentions across records.
// Derived on query, never independently mutated.
type CompetitorCitation struct {
	Name      string   `json:"name"`
	Count     int      `json:"count"`
	RecordIDs []string `json:"record_ids"`
}

// Priority ranks optimization recommendations.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// weight orders priorities for deterministic output sorting.
func (p Priority) weight() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Less reports whether p sorts before other (high first).
func (p Priority) Less(other Priority) bool {
	return p.weight() < other.weight()
}

// OptimizationRecommendation is a derived content suggestion for one query.
// Regenerated on demand from citation records.
type OptimizationRecommendation struct {
	Query          string   `json:"query"`
	Recommendation string   `json:"recommendation"`
	Priority       Priority `json:"priority"`
	MentionRate    float64  `json:"mention_rate"`
	MeanPosition   float64  `json:"mean_position,omitempty"`
}

// ValidateCitationInput checks analyzer input before any matching runs.
func ValidateCitationInput(query, responseText, brandName string, platform Platform) error {
	if query == "" {
		return fmt.Errorf("%w: query is required", ErrValidation)
	}
	if responseText == "" {
		return fmt.Errorf("%w: response text is required", ErrValidation)
	}
	if brandName == "" {
		return fmt.Errorf("%w: brand name is required", ErrValidation)
	}
	if !platform.IsValid() {
		return fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
	}
	return nil
}
