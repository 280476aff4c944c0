package textfilter

import (
	"testing"

	"github.com/prepguard/prepguard/internal/moderation"
	"github.com/prepguard/prepguard/internal/moderation/patterns"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	filter := New()

	tests := []struct {
		name           string
		text           string
		tier           moderation.Tier
		wantSafe       bool
		wantCategories []string
	}{
		{
			name:     "empty text is always safe",
			text:     "",
			tier:     moderation.TierStrict,
			wantSafe: true,
		},
		{
			name:           "profanity at normal tier",
			text:           "fuck you",
			tier:           moderation.TierNormal,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategoryVulgar)},
		},
		{
			name:           "competitor mention at normal tier",
			text:           "allen modules are available",
			tier:           moderation.TierNormal,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategoryCompetitor)},
		},
		{
			name:           "threat phrasing at normal tier",
			text:           "lets report admin and shut down this place",
			tier:           moderation.TierNormal,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategoryScreenshotThreat)},
		},
		{
			name:           "spam link at normal tier",
			text:           "grab it at https://promo-site.com/deal",
			tier:           moderation.TierNormal,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategorySpam)},
		},
		{
			name:     "educational context overrides word lists",
			text:     "allen physics question, anyone has the solution?",
			tier:     moderation.TierStrict,
			wantSafe: true,
		},
		{
			name:           "commercial spam fails even in educational context",
			text:           "physics course, buy now for ₹ 999",
			tier:           moderation.TierNormal,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategoryCommercialSpam)},
		},
		{
			name:     "trusted tier ignores competitor mention",
			text:     "allen modules are available",
			tier:     moderation.TierTrusted,
			wantSafe: true,
		},
		{
			name:           "trusted tier still fails commercial spam",
			text:           "selling notes, call now 9876543210",
			tier:           moderation.TierTrusted,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategoryCommercialSpam)},
		},
		{
			name:           "strict tier adds promotional check",
			text:           "follow me for daily tips",
			tier:           moderation.TierStrict,
			wantSafe:       false,
			wantCategories: []string{string(patterns.CategoryPromotional)},
		},
		{
			name:     "promotional phrasing passes at normal tier",
			text:     "follow me for daily tips",
			tier:     moderation.TierNormal,
			wantSafe: true,
		},
		{
			name:     "clean message at strict tier",
			text:     "good luck everyone for tomorrow",
			tier:     moderation.TierStrict,
			wantSafe: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verdict := filter.Classify(tt.text, tt.tier)
			if verdict.IsSafe != tt.wantSafe {
				t.Fatalf("Classify(%q, %s).IsSafe = %v, want %v (violations: %v)",
					tt.text, tt.tier, verdict.IsSafe, tt.wantSafe, verdict.Violations)
			}
			if verdict.Tier != tt.tier {
				t.Fatalf("verdict tier = %s, want %s", verdict.Tier, tt.tier)
			}
			for _, want := range tt.wantCategories {
				found := false
				for _, hit := range verdict.Violations {
					if hit.Type == want {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("expected violation category %q, got %v", want, verdict.Violations)
				}
			}
		})
	}
}

func TestClassifySeverities(t *testing.T) {
	t.Parallel()

	filter := New()

	verdict := filter.Classify("fuck allen", moderation.TierNormal)
	if verdict.IsSafe {
		t.Fatal("expected unsafe verdict")
	}
	severities := map[string]moderation.Severity{}
	for _, hit := range verdict.Violations {
		severities[hit.Type] = hit.Severity
	}
	if severities[string(patterns.CategoryVulgar)] != moderation.SeverityHigh {
		t.Fatalf("vulgar severity = %s, want high", severities[string(patterns.CategoryVulgar)])
	}
	if severities[string(patterns.CategoryCompetitor)] != moderation.SeverityMedium {
		t.Fatalf("competitor severity = %s, want medium", severities[string(patterns.CategoryCompetitor)])
	}
}
