package citation_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/citation"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
)

func TestAnalyzer_Analyze(t *testing.T) {
	analyzer := citation.NewAnalyzer(citation.DefaultContextRadius)

	testCases := []struct {
		name            string
		query           string
		response        string
		brand           string
		competitors     []string
		wantMentioned   bool
		wantPosition    int
		wantCompetitors []string
	}{
		{
			name:            "brand in first sentence with competitor",
			query:           "Best storage?",
			response:        "Infinity Vault is great. Ultra Pro too.",
			brand:           "Infinity Vault",
			competitors:     []string{"Ultra Pro"},
			wantMentioned:   true,
			wantPosition:    1,
			wantCompetitors: []string{"Ultra Pro"},
		},
		{
			name:            "brand absent",
			query:           "Best storage?",
			response:        "There are many options on the market today.",
			brand:           "Infinity Vault",
			competitors:     []string{"Ultra Pro"},
			wantMentioned:   false,
			wantPosition:    0,
			wantCompetitors: []string{},
		},
		{
			name:            "competitors only",
			query:           "Best storage?",
			response:        "Ultra Pro and BCW both make solid products.",
			brand:           "Infinity Vault",
			competitors:     []string{"Ultra Pro", "BCW"},
			wantMentioned:   false,
			wantPosition:    0,
			wantCompetitors: []string{"Ultra Pro", "BCW"},
		},
		{
			name:          "case-insensitive brand match in later sentence",
			query:         "Best storage?",
			response:      "Many brands compete here. Some are premium. Collectors often pick INFINITY VAULT for durability.",
			brand:         "Infinity Vault",
			wantMentioned: true,
			wantPosition:  3,
		},
		{
			name:            "question and exclamation terminators count",
			query:           "Best storage?",
			response:        "Looking for storage? You have options! Infinity Vault leads the pack.",
			brand:           "Infinity Vault",
			wantMentioned:   true,
			wantPosition:    3,
			wantCompetitors: []string{},
		},
		{
			name:            "overlapping brand and competitor names detected independently",
			query:           "Best vault?",
			response:        "The Vault Pro and Infinity Vault Pro lines overlap.",
			brand:           "Infinity Vault",
			competitors:     []string{"Vault Pro"},
			wantMentioned:   true,
			wantPosition:    1,
			wantCompetitors: []string{"Vault Pro"},
		},
		{
			name:            "only first brand occurrence positioned",
			query:           "Best storage?",
			response:        "Infinity Vault is popular. Reviewers praise Infinity Vault again here.",
			brand:           "Infinity Vault",
			wantMentioned:   true,
			wantPosition:    1,
			wantCompetitors: []string{},
		},
		{
			name:            "empty competitor list yields empty set",
			query:           "Best storage?",
			response:        "Infinity Vault wins.",
			brand:           "Infinity Vault",
			competitors:     nil,
			wantMentioned:   true,
			wantPosition:    1,
			wantCompetitors: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := analyzer.Analyze(tc.query, tc.response, domain.PlatformChatGPT, tc.brand, tc.competitors)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			if record.BrandMentioned != tc.wantMentioned {
				t.Errorf("BrandMentioned = %v, want %v", record.BrandMentioned, tc.wantMentioned)
			}
			if record.SentencePosition != tc.wantPosition {
				t.Errorf("SentencePosition = %d, want %d", record.SentencePosition, tc.wantPosition)
			}

			if tc.wantMentioned {
				if record.ContextWindow == "" {
					t.Error("ContextWindow is empty for mentioned brand")
				}
				if !strings.Contains(strings.ToLower(record.ContextWindow), strings.ToLower(tc.brand)) {
					t.Errorf("ContextWindow %q does not contain brand %q", record.ContextWindow, tc.brand)
				}
			} else if record.ContextWindow != "" {
				t.Errorf("ContextWindow = %q, want empty when brand absent", record.ContextWindow)
			}

			if tc.wantCompetitors != nil {
				if len(record.Competitors) != len(tc.wantCompetitors) {
					t.Fatalf("Competitors = %v, want %v", record.Competitors, tc.wantCompetitors)
				}
				for i, name := range tc.wantCompetitors {
					if record.Competitors[i] != name {
						t.Errorf("Competitors[%d] = %q, want %q", i, record.Competitors[i], name)
					}
				}
			}
		})
	}
}

func TestAnalyzer_Analyze_Validation(t *testing.T) {
	analyzer := citation.NewAnalyzer(0)

	testCases := []struct {
		name     string
		query    string
		response string
		brand    string
		platform domain.Platform
	}{
		{"empty query", "", "some response", "Brand", domain.PlatformChatGPT},
		{"empty response", "query", "", "Brand", domain.PlatformChatGPT},
		{"empty brand", "query", "response", "", domain.PlatformChatGPT},
		{"unknown platform", "query", "response", "Brand", domain.Platform("bing")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := analyzer.Analyze(tc.query, tc.response, tc.platform, tc.brand, nil)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Analyze() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAnalyzer_ContextWindow_Clipping(t *testing.T) {
	analyzer := citation.NewAnalyzer(citation.DefaultContextRadius)

	// Brand at the very start: window must clip at the left bound.
	record, err := analyzer.Analyze("q", "Infinity Vault at the start.", domain.PlatformChatGPT, "Infinity Vault", nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.HasPrefix(record.ContextWindow, "Infinity Vault") {
		t.Errorf("ContextWindow = %q, want prefix %q", record.ContextWindow, "Infinity Vault")
	}

	// Brand at the very end: window must clip at the right bound.
	long := strings.Repeat("filler text here. ", 20) + "Then comes Infinity Vault"
	record, err = analyzer.Analyze("q", long, domain.PlatformChatGPT, "Infinity Vault", nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.HasSuffix(record.ContextWindow, "Infinity Vault") {
		t.Errorf("ContextWindow = %q, want suffix %q", record.ContextWindow, "Infinity Vault")
	}
}

func TestAnalyzer_ContextWindow_MultibyteText(t *testing.T) {
	// A small radius forces the window edges to land inside the accented
	// words surrounding the brand.
	analyzer := citation.NewAnalyzer(4)

	response := "Véritablement,日本語のコレクターはInfinity Vaultを勧める。"
	record, err := analyzer.Analyze("q", response, domain.PlatformChatGPT, "Infinity Vault", nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !record.BrandMentioned {
		t.Fatal("BrandMentioned = false, want true")
	}
	if record.SentencePosition != 1 {
		t.Errorf("SentencePosition = %d, want 1", record.SentencePosition)
	}
	if !strings.Contains(record.ContextWindow, "Infinity Vault") {
		t.Errorf("ContextWindow = %q, want it to contain the brand", record.ContextWindow)
	}
	if !utf8.ValidString(record.ContextWindow) {
		t.Errorf("ContextWindow = %q is not valid UTF-8", record.ContextWindow)
	}
}
