// Package citation implements brand mention detection in answer-engine
// responses and recommendation generation over the collected records.
package citation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

// DefaultContextRadius is the number of characters captured on each side
// of the first brand occurrence.
const DefaultContextRadius = 50

// Analyzer scans response text for brand and competitor mentions.
// Analyze is pure and safe for concurrent use.
type Analyzer struct {
	contextRadius int
}

// NewAnalyzer creates an Analyzer. A non-positive radius falls back to
// DefaultContextRadius.
func NewAnalyzer(contextRadius int) *Analyzer {
	if contextRadius <= 0 {
		contextRadius = DefaultContextRadius
	}
	return &Analyzer{contextRadius: contextRadius}
}

// Analyze inspects responseText for the brand and competitor names and
// returns an immutable citation record. Matching is case-insensitive
// substring search. Only the first brand occurrence is positioned and
// contextualized; competitor matches carry no positional data.
func (a *Analyzer) Analyze(
	query, responseText string,
	platform domain.Platform,
	brandName string,
	competitors []string,
) (*domain.CitationRecord, error) {
	if err := domain.ValidateCitationInput(query, responseText, brandName, platform); err != nil {
		return nil, err
	}

	record := &domain.CitationRecord{
		ID:           uuid.NewString(),
		Query:        query,
		Platform:     platform,
		ResponseText: responseText,
		Competitors:  []string{},
		AnalyzedAt:   time.Now().UTC(),
	}

	lowerResponse := strings.ToLower(responseText)

	if offset := strings.Index(lowerResponse, strings.ToLower(brandName)); offset >= 0 {
		record.BrandMentioned = true
		record.SentencePosition = sentencePosition(responseText, offset)
		record.ContextWindow = contextWindow(responseText, offset, len(brandName), a.contextRadius)
	}

	seen := make(map[string]struct{}, len(competitors))
	for _, name := range competitors {
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		if _, dup := seen[lower]; dup {
			continue
		}
		if strings.Contains(lowerResponse, lower) {
			seen[lower] = struct{}{}
			record.Competitors = append(record.Competitors, name)
		}
	}

	return record, nil
}

// sentenceTerminators end a sentence for position counting.
const sentenceTerminators = ".?!"

// sentencePosition returns the 1-indexed sentence containing offset by
// counting terminators in the preceding prefix. The offset comes from a
// lowercased copy of text, so it is snapped back to a rune start before
// slicing in case lowering changed a code point's byte length.
func sentencePosition(text string, offset int) int {
	offset = runeStart(text, offset)

	position := 1
	for _, r := range text[:offset] {
		if strings.ContainsRune(sentenceTerminators, r) {
			position++
		}
	}
	return position
}

// contextWindow extracts matchLen bytes at offset plus radius bytes on
// each side, clipped to the text bounds, widened to rune boundaries, and
// trimmed of whitespace.
func contextWindow(text string, offset, matchLen, radius int) string {
	start := runeStart(text, offset-radius)
	end := offset + matchLen + radius
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

// runeStart clamps i into [0, len(text)] and walks it back to the start
// of the rune it points into.
func runeStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
